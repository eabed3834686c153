package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kahero/ratiba/core/plan"
)

var ErrUnitNotFound = errors.New("unit not found")

type roster struct {
	units       *unitTable
	enrollments *enrollmentTable
}

var _ plan.Roster = (*roster)(nil) // interface compliance check

func NewRoster(db *DB) *roster {
	return &roster{units: db.unit, enrollments: db.enrollment}
}

func (r *roster) GetUnit(ctx context.Context, unitID string) (plan.Unit, error) {
	r.units.RLock()
	defer r.units.RUnlock()

	u, ok := r.units.table[unitID]
	if !ok {
		return plan.Unit{}, ErrUnitNotFound
	}
	return u, nil
}

func (r *roster) EnrolledStudents(ctx context.Context, unitID string) ([]plan.Student, error) {
	r.enrollments.RLock()
	defer r.enrollments.RUnlock()
	return append([]plan.Student(nil), r.enrollments.table[unitID]...), nil
}

// AddUnit and Enroll seed the roster; tests and the dev server use them.

func (r *roster) AddUnit(u plan.Unit) {
	r.units.Lock()
	defer r.units.Unlock()
	r.units.table[u.ID] = u
}

func (r *roster) Enroll(unitID string, students ...plan.Student) {
	r.enrollments.Lock()
	defer r.enrollments.Unlock()
	r.enrollments.table[unitID] = append(r.enrollments.table[unitID], students...)
}
