// Package roster keeps the list of students an admin is looking at, along with the state of the
// student form. The list is a cache of the students collection: every successful write is
// followed by a full reload, and a failed reload leaves the previous list in place.
package roster

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/roster/core"
	"github.com/trezcool/roster/core/student"
)

// Service is the students collection.
type Service interface {
	QueryAll(ctx context.Context) ([]student.Student, error)
	Create(ctx context.Context, data student.Data) (student.Student, error)
	Update(ctx context.Context, id string, data student.Data) (student.Student, error)
	Delete(ctx context.Context, id string) error
}

// Modal is the state of the student form. A nil Editing means the form creates a new student.
type Modal struct {
	Open    bool
	Editing *student.Student
}

type Roster struct {
	svc      Service
	validate *validator.Validate
	logger   core.Logger
	tasks    *taskGroup

	mu       sync.RWMutex
	closed   bool
	loadGen  uint64 // last load started
	applied  uint64 // last load applied
	students []student.Student
	index    map[string]int
	modal    Modal
}

func New(svc Service, validate *validator.Validate, logger core.Logger) *Roster {
	return &Roster{
		svc:      svc,
		validate: validate,
		logger:   logger,
		tasks:    newTaskGroup(),
		students: []student.Student{},
		index:    make(map[string]int),
	}
}

// Load replaces the list with the current content of the collection.
// Results of a load are dropped when a more recent load already landed.
func (r *Roster) Load(ctx context.Context) error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return ErrClosed
	}
	r.loadGen++
	gen := r.loadGen
	r.mu.Unlock()

	students, err := r.svc.QueryAll(ctx)
	if err != nil {
		r.logger.Error(fmt.Sprintf("roster: listing students: %v", err), err)
		return errors.Wrap(err, "listing students")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	if gen < r.applied {
		return nil
	}
	r.applied = gen
	r.students = students
	r.index = make(map[string]int, len(students))
	for i, s := range students {
		r.index[s.ID] = i
	}
	return nil
}

// Students returns a copy of the list, in collection order.
func (r *Roster) Students() []student.Student {
	r.mu.RLock()
	defer r.mu.RUnlock()
	students := make([]student.Student, len(r.students))
	copy(students, r.students)
	return students
}

func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.students)
}

func (r *Roster) Get(id string) (student.Student, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.index[id]
	if !ok {
		return student.Student{}, false
	}
	return r.students[i], true
}

func (r *Roster) Modal() Modal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m := r.modal
	if m.Editing != nil {
		editing := *m.Editing
		m.Editing = &editing
	}
	return m
}

// Add opens an empty form.
func (r *Roster) Add() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modal = Modal{Open: true}
}

// Edit opens the form pre-filled with the cached student.
func (r *Roster) Edit(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.index[id]
	if !ok {
		return student.ErrNotFound
	}
	editing := r.students[i]
	r.modal = Modal{Open: true, Editing: &editing}
	return nil
}

func (r *Roster) CloseModal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modal = Modal{}
}

// Busy reports whether op is running for the student with the given id ("" for creations).
func (r *Roster) Busy(op Op, id string) bool {
	return r.tasks.inFlight(taskKey{op: op, id: id})
}

// Create validates data, creates the student then reloads the list & closes the form.
func (r *Roster) Create(ctx context.Context, data student.Data) (student.Student, error) {
	if err := data.Validate(r.validate); err != nil {
		return student.Student{}, err
	}

	var created student.Student
	err := r.tasks.run(ctx, taskKey{op: OpCreate}, func(ctx context.Context) error {
		s, err := r.svc.Create(ctx, data)
		if err != nil {
			r.logger.Error(fmt.Sprintf("roster: creating student: %v", err), err)
			return err
		}
		created = s
		r.afterWrite(ctx)
		return nil
	})
	return created, err
}

// Update validates data, updates the student then reloads the list & closes the form.
func (r *Roster) Update(ctx context.Context, id string, data student.Data) (student.Student, error) {
	if err := data.Validate(r.validate); err != nil {
		return student.Student{}, err
	}

	var updated student.Student
	err := r.tasks.run(ctx, taskKey{op: OpUpdate, id: id}, func(ctx context.Context) error {
		s, err := r.svc.Update(ctx, id, data)
		if err != nil {
			if errors.Cause(err) != student.ErrNotFound {
				r.logger.Error(fmt.Sprintf("roster: updating student %s: %v", id, err), err)
			}
			return err
		}
		updated = s
		r.afterWrite(ctx)
		return nil
	})
	return updated, err
}

// Delete deletes the student then reloads the list. Unknown IDs are not an error.
func (r *Roster) Delete(ctx context.Context, id string) error {
	return r.tasks.run(ctx, taskKey{op: OpDelete, id: id}, func(ctx context.Context) error {
		if err := r.svc.Delete(ctx, id); err != nil {
			r.logger.Error(fmt.Sprintf("roster: deleting student %s: %v", id, err), err)
			return err
		}
		_ = r.Load(ctx)
		return nil
	})
}

// afterWrite reloads the list and closes the form. A failed reload is already logged by Load.
func (r *Roster) afterWrite(ctx context.Context) {
	if err := r.Load(ctx); errors.Cause(err) == ErrClosed {
		return
	}
	r.CloseModal()
}

// Close cancels running operations. A closed Roster ignores late results.
func (r *Roster) Close() {
	r.tasks.close()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
}
