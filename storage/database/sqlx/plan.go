package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core/plan"
)

type planStore struct {
	db *sqlx.DB
}

var _ plan.ContentStore = (*planStore)(nil) // interface compliance check

func NewPlanStore(db *sqlx.DB) plan.ContentStore {
	return &planStore{db: db}
}

func (store *planStore) Load(ctx context.Context, unitID string) (plan.SemesterPlan, error) {
	var raw []byte
	err := store.db.GetContext(ctx, &raw, `SELECT plan FROM semester_plan WHERE unit_id = $1`, unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return plan.SemesterPlan{}, plan.ErrPlanNotFound
		}
		return plan.SemesterPlan{}, errors.Wrap(err, "loading plan")
	}

	var p plan.SemesterPlan
	if err = json.Unmarshal(raw, &p); err != nil {
		return plan.SemesterPlan{}, errors.Wrap(err, "decoding plan")
	}
	return p, nil
}

func (store *planStore) Persist(ctx context.Context, unitID string, p plan.SemesterPlan) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "encoding plan")
	}

	_, err = store.db.ExecContext(ctx, `
		INSERT INTO semester_plan (unit_id, plan, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (unit_id) DO UPDATE SET plan = EXCLUDED.plan, updated_at = EXCLUDED.updated_at`,
		unitID, raw, time.Now().UTC(),
	)
	return errors.Wrap(err, "persisting plan")
}

func (store *planStore) Delete(ctx context.Context, unitID string) error {
	_, err := store.db.ExecContext(ctx, `DELETE FROM semester_plan WHERE unit_id = $1`, unitID)
	return errors.Wrap(err, "deleting plan")
}
