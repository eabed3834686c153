// Package dummydb provides in-memory implementations of the storage
// interfaces, used in tests and for local hacking without a database.
package dummydb

import (
	"sync"

	"github.com/kahero/ratiba/core/plan"
	"github.com/kahero/ratiba/core/user"
)

type (
	DB struct {
		user       *userTable
		plan       *planTable
		unit       *unitTable
		enrollment *enrollmentTable
		document   *documentTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	planTable struct {
		sync.RWMutex
		table map[string]plan.SemesterPlan // keyed by unit id
	}

	unitTable struct {
		sync.RWMutex
		table map[string]plan.Unit
	}

	enrollmentTable struct {
		sync.RWMutex
		table map[string][]plan.Student // unit id -> enrolled students
	}

	documentTable struct {
		sync.RWMutex
		table map[string][]plan.Document // entity id -> attachments
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:       &userTable{table: make(map[string]*user.User)},
		plan:       &planTable{table: make(map[string]plan.SemesterPlan)},
		unit:       &unitTable{table: make(map[string]plan.Unit)},
		enrollment: &enrollmentTable{table: make(map[string][]plan.Student)},
		document:   &documentTable{table: make(map[string][]plan.Document)},
	}
	return db, nil
}
