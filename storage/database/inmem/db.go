package inmemdb

import (
	"sync"

	"github.com/trezcool/roster/core/session"
	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
)

type (
	// DB is a process-local database, used in DEV & tests.
	DB struct {
		students *documentTable
		users    *userTable
		sessions *sessionTable
	}

	documentTable struct {
		sync.RWMutex
		order []string // IDs, in insertion order
		table map[string]student.Data
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	sessionTable struct {
		sync.RWMutex
		table map[string]session.Session
	}
)

func Open() *DB {
	return &DB{
		students: &documentTable{table: make(map[string]student.Data)},
		users:    &userTable{table: make(map[string]*user.User)},
		sessions: &sessionTable{table: make(map[string]session.Session)},
	}
}

// Reset empties all the tables.
func (db *DB) Reset() {
	db.students.Lock()
	db.students.order = nil
	db.students.table = make(map[string]student.Data)
	db.students.Unlock()

	db.users.Lock()
	db.users.table = make(map[string]*user.User)
	db.users.Unlock()

	db.sessions.Lock()
	db.sessions.table = make(map[string]session.Session)
	db.sessions.Unlock()
}
