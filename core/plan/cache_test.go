package plan

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCache_Get_missingPlanResolvesToDefault(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	p, err := cache.Get(ctx, "unit1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Equal(t, DefaultSemesterWeeks, p.SemesterWeeks)
	assert.Empty(t, p.Weeks)

	// the default plan must not be cached
	if cache.Has("unit1") {
		t.Error("Has() = true; default plan must not be cached")
	}
}

func TestCache_Get_loadFailureResolvesToDefault(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("connection refused")
	logger := &testLogger{}
	cache := NewCache(store, &fakeIdentity{subject: "lec1"}, logger)

	p, err := cache.Get(context.Background(), "unit1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Equal(t, DefaultPlan(), p)
	assert.NotEmpty(t, logger.warns, "load failure must be logged")
}

func TestCache_Get_cachesNonEmptyPlans(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	store.plans["unit1"] = planWithWeeks(WeekPlan{WeekNumber: 1, Topic: "Intro"})

	if _, err := cache.Get(ctx, "unit1"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if _, err := cache.Get(ctx, "unit1"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Equal(t, 1, store.loads, "second Get must be served from cache")
	assert.True(t, cache.Has("unit1"))
}

func TestCache_Get_emptyStoredPlanNeverCached(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	store.plans["unit1"] = SemesterPlan{SemesterWeeks: 10, Weeks: []WeekPlan{}}

	p, err := cache.Get(ctx, "unit1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Equal(t, DefaultPlan(), p)
	assert.False(t, cache.Has("unit1"))

	// a later creation is picked up by the next Get
	store.plans["unit1"] = planWithWeeks(WeekPlan{WeekNumber: 1})
	p, err = cache.Get(ctx, "unit1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Len(t, p.Weeks, 1)
}

func TestCache_Get_returnsIsolatedClones(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	store.plans["unit1"] = planWithWeeks(WeekPlan{
		WeekNumber: 1,
		Materials:  []Material{{ID: "m1", Title: "Sets", Visible: true}},
	})

	p1, _ := cache.Get(ctx, "unit1")
	p1.Weeks[0].Materials[0].Title = "MUTATED"
	p1.Weeks[0].Topic = "MUTATED"

	p2, _ := cache.Get(ctx, "unit1")
	assert.Equal(t, "Sets", p2.Weeks[0].Materials[0].Title)
	assert.Empty(t, p2.Weeks[0].Topic)
}

func TestCache_Set_writesThroughBeforeCaching(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	p := planWithWeeks(WeekPlan{WeekNumber: 2}, WeekPlan{WeekNumber: 1})
	if err := cache.Set(ctx, "unit1", p); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	// persisted and normalized
	stored := store.plans["unit1"]
	if assert.Len(t, stored.Weeks, 2) {
		assert.Equal(t, 1, stored.Weeks[0].WeekNumber)
		assert.Equal(t, 2, stored.Weeks[1].WeekNumber)
	}
	assert.True(t, cache.Has("unit1"))
}

func TestCache_Set_persistFailureLeavesCacheUntouched(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	store.plans["unit1"] = planWithWeeks(WeekPlan{WeekNumber: 1, Topic: "old"})
	if _, err := cache.Get(ctx, "unit1"); err != nil {
		t.Fatalf("Get() failed: %v", err)
	}

	store.persistErr = errors.New("disk full")
	err := cache.Set(ctx, "unit1", planWithWeeks(WeekPlan{WeekNumber: 1, Topic: "new"}))
	if err == nil {
		t.Fatal("Set() must propagate persist failures")
	}

	p, _ := cache.Get(ctx, "unit1")
	assert.Equal(t, "old", p.Weeks[0].Topic, "failed Set must not update the cache")
}

func TestCache_Clear(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	if err := cache.Set(ctx, "unit1", planWithWeeks(WeekPlan{WeekNumber: 1})); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}
	if err := cache.Clear(ctx, "unit1"); err != nil {
		t.Fatalf("Clear() failed: %v", err)
	}

	assert.False(t, cache.Has("unit1"))
	if _, ok := store.plans["unit1"]; ok {
		t.Error("Clear() must delete from the store")
	}
}

func TestCache_identityChangeInvalidatesEverything(t *testing.T) {
	store := newMemStore()
	idp := &fakeIdentity{subject: "lec1"}
	cache := newTestCache(store, idp)
	ctx := context.Background()

	store.plans["unit1"] = planWithWeeks(WeekPlan{WeekNumber: 1})
	store.plans["unit2"] = planWithWeeks(WeekPlan{WeekNumber: 1})
	_, _ = cache.Get(ctx, "unit1")
	_, _ = cache.Get(ctx, "unit2")
	assert.True(t, cache.Has("unit1"))
	assert.True(t, cache.Has("unit2"))

	// account switch
	idp.set("lec2")
	assert.False(t, cache.Has("unit1"))
	assert.False(t, cache.Has("unit2"))

	// reloaded under the new identity
	_, _ = cache.Get(ctx, "unit1")
	assert.True(t, cache.Has("unit1"))
}

func TestCache_logoutInvalidates(t *testing.T) {
	store := newMemStore()
	idp := &fakeIdentity{subject: "stud1"}
	cache := newTestCache(store, idp)
	ctx := context.Background()

	store.plans["unit1"] = planWithWeeks(WeekPlan{WeekNumber: 1})
	_, _ = cache.Get(ctx, "unit1")
	assert.True(t, cache.Has("unit1"))

	// transition to "no identity" counts as a change
	idp.set("")
	assert.False(t, cache.Has("unit1"))
}

func TestCache_InvalidateAll(t *testing.T) {
	store := newMemStore()
	cache := newTestCache(store, &fakeIdentity{subject: "lec1"})
	ctx := context.Background()

	store.plans["unit1"] = planWithWeeks(WeekPlan{WeekNumber: 1})
	_, _ = cache.Get(ctx, "unit1")

	cache.InvalidateAll()
	assert.False(t, cache.Has("unit1"))

	// store data survives
	p, _ := cache.Get(ctx, "unit1")
	assert.Len(t, p.Weeks, 1)
}

// Scenario: lecturer saves, logs out, student logs in and loads the same unit.
func TestCache_sessionSwitchRoundTrip(t *testing.T) {
	store := newMemStore()
	idp := &fakeIdentity{subject: "lec1"}
	cache := newTestCache(store, idp)
	ctx := context.Background()

	if err := cache.Set(ctx, "unit1", planWithWeeks(WeekPlan{WeekNumber: 1, Topic: "Graphs"})); err != nil {
		t.Fatalf("Set() failed: %v", err)
	}

	idp.set("")      // logout
	idp.set("stud1") // student login

	loadsBefore := store.loads
	p, err := cache.Get(ctx, "unit1")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	assert.Equal(t, "Graphs", p.Weeks[0].Topic)
	assert.Equal(t, loadsBefore+1, store.loads, "student session must reload from the store")
}
