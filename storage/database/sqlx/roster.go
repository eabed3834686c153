package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/kahero/ratiba/core/plan"
)

var ErrUnitNotFound = errors.New("unit not found")

type roster struct {
	db *sqlx.DB
}

var _ plan.Roster = (*roster)(nil) // interface compliance check

func NewRoster(db *sqlx.DB) plan.Roster {
	return &roster{db: db}
}

type unitRow struct {
	ID         string      `db:"id"`
	Code       string      `db:"code"`
	Name       string      `db:"name"`
	LecturerID null.String `db:"lecturer_id"`
}

func (r *roster) GetUnit(ctx context.Context, unitID string) (plan.Unit, error) {
	var row unitRow
	err := r.db.GetContext(ctx, &row, `SELECT id, code, name, lecturer_id FROM unit WHERE id = $1`, unitID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return plan.Unit{}, ErrUnitNotFound
		}
		return plan.Unit{}, errors.Wrap(err, "getting unit")
	}
	return plan.Unit{
		ID:         row.ID,
		Code:       row.Code,
		Name:       row.Name,
		LecturerID: row.LecturerID.String,
	}, nil
}

func (r *roster) EnrolledStudents(ctx context.Context, unitID string) ([]plan.Student, error) {
	var students []plan.Student
	err := r.db.SelectContext(ctx, &students, `
		SELECT u.id, u.name, u.email FROM "user" u
		JOIN enrollment e ON e.student_id = u.id
		WHERE e.unit_id = $1 AND u.is_active`,
		unitID,
	)
	return students, errors.Wrap(err, "querying enrolled students")
}
