package dummydb

import (
	"context"

	"github.com/kahero/ratiba/core/plan"
)

type planStore struct {
	db *planTable
}

var _ plan.ContentStore = (*planStore)(nil) // interface compliance check

func NewPlanStore(db *DB) plan.ContentStore {
	return &planStore{db: db.plan}
}

func (store *planStore) Load(ctx context.Context, unitID string) (plan.SemesterPlan, error) {
	store.db.RLock()
	defer store.db.RUnlock()

	p, ok := store.db.table[unitID]
	if !ok {
		return plan.SemesterPlan{}, plan.ErrPlanNotFound
	}
	return p.Clone(), nil
}

func (store *planStore) Persist(ctx context.Context, unitID string, p plan.SemesterPlan) error {
	store.db.Lock()
	defer store.db.Unlock()
	store.db.table[unitID] = p.Clone()
	return nil
}

func (store *planStore) Delete(ctx context.Context, unitID string) error {
	store.db.Lock()
	defer store.db.Unlock()
	delete(store.db.table, unitID)
	return nil
}
