package plan

import (
	"context"
	"fmt"
	"sync"

	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core"
)

var (
	// ErrPlanNotFound is returned by ContentStore.Load when a unit's plan
	// has never been created. Distinct from a created-but-empty plan.
	ErrPlanNotFound = errors.New("semester plan not found")
)

type (
	// ContentStore is the durable source of truth for semester plans.
	ContentStore interface {
		Load(ctx context.Context, unitID string) (SemesterPlan, error)
		Persist(ctx context.Context, unitID string, p SemesterPlan) error
		Delete(ctx context.Context, unitID string) error
	}

	// IdentityProvider reports the currently authenticated subject.
	// An empty string means no active session.
	IdentityProvider interface {
		CurrentIdentity() string
	}

	cacheEntry struct {
		plan      SemesterPlan
		loadedFor string // subject the entry was loaded for
	}

	// Cache is the per-unit read-through/write-through plan cache.
	//
	// Every operation first observes the current identity and drops all
	// entries when it changed since the last observation, including a change
	// to "no identity" (logout). No entry ever outlives the session that
	// loaded it.
	//
	// Plans are cloned on insert and on return: callers always hold
	// immutable snapshots and a Get racing an invalidation either sees the
	// pre-invalidation snapshot or re-fetches, never a half-mutated entry.
	Cache struct {
		store  ContentStore
		idp    IdentityProvider
		logger core.Logger

		mu           sync.RWMutex
		entries      map[string]cacheEntry
		lastIdentity string
	}
)

func NewCache(store ContentStore, idp IdentityProvider, logger core.Logger) *Cache {
	return &Cache{
		store:   store,
		idp:     idp,
		logger:  logger,
		entries: make(map[string]cacheEntry),
	}
}

// observeIdentity compares the current subject to the previously observed one
// and invalidates everything on mismatch. Returns the current identity.
func (c *Cache) observeIdentity() string {
	cur := c.idp.CurrentIdentity()
	c.mu.Lock()
	if cur != c.lastIdentity {
		c.entries = make(map[string]cacheEntry)
		c.lastIdentity = cur
	}
	c.mu.Unlock()
	return cur
}

// InvalidateAll drops every cache entry regardless of unit.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// Get returns the plan for a unit: from cache when a non-empty entry exists,
// otherwise read-through from the store. A plan with no weeks (or a failing
// load) resolves to the default plan and is never cached, so a later creation
// is picked up by the next Get.
func (c *Cache) Get(ctx context.Context, unitID string) (SemesterPlan, error) {
	ident := c.observeIdentity()

	c.mu.RLock()
	e, ok := c.entries[unitID]
	c.mu.RUnlock()
	if ok && !e.plan.IsEmpty() {
		return e.plan.Clone(), nil
	}

	// no lock held across store I/O
	p, err := c.store.Load(ctx, unitID)
	if err != nil {
		if errors.Cause(err) != ErrPlanNotFound {
			c.logger.Warn(fmt.Sprintf("plan cache: loading plan for unit %s: %v", unitID, err), err)
		}
		return DefaultPlan(), nil
	}
	if p.IsEmpty() {
		return DefaultPlan(), nil
	}

	c.mu.Lock()
	// only cache if the session that issued the load is still active
	if ident == c.lastIdentity {
		c.entries[unitID] = cacheEntry{plan: p.Clone(), loadedFor: ident}
	}
	c.mu.Unlock()
	return p, nil
}

// Set writes through to the store first; the cache entry is only updated once
// persistence fully succeeded, so the cache can never diverge from the store.
func (c *Cache) Set(ctx context.Context, unitID string, p SemesterPlan) error {
	ident := c.observeIdentity()

	p.Normalize()
	if err := c.store.Persist(ctx, unitID, p); err != nil {
		return errors.Wrapf(err, "persisting plan for unit %s", unitID)
	}

	c.mu.Lock()
	if ident == c.lastIdentity {
		c.entries[unitID] = cacheEntry{plan: p.Clone(), loadedFor: ident}
	}
	c.mu.Unlock()
	return nil
}

// Clear removes the plan from the store and the cache.
func (c *Cache) Clear(ctx context.Context, unitID string) error {
	c.observeIdentity()

	if err := c.store.Delete(ctx, unitID); err != nil {
		return errors.Wrapf(err, "deleting plan for unit %s", unitID)
	}

	c.mu.Lock()
	delete(c.entries, unitID)
	c.mu.Unlock()
	return nil
}

// Has reports whether a cached entry with real data exists for this unit.
// Dependent forms use it to decide whether to offer week selection.
func (c *Cache) Has(unitID string) bool {
	c.observeIdentity()

	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[unitID]
	return ok && !e.plan.IsEmpty()
}
