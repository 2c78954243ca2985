package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/roster/core/student"
)

type studentRepository struct {
	db *documentTable
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db.students}
}

func (repo *studentRepository) CreateStudent(_ context.Context, data student.Data) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	id := uuid.NewString()
	repo.db.order = append(repo.db.order, id)
	repo.db.table[id] = data
	return student.Student{ID: id, Data: data}, nil
}

func (repo *studentRepository) QueryAllStudents(context.Context) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.order))
	for _, id := range repo.db.order {
		students = append(students, student.Student{ID: id, Data: repo.db.table[id]})
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if data, ok := repo.db.table[id]; ok {
		return student.Student{ID: id, Data: data}, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) UpdateStudent(_ context.Context, id string, data student.Data) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	repo.db.table[id] = data
	return student.Student{ID: id, Data: data}, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return nil
	}
	delete(repo.db.table, id)
	for i, oid := range repo.db.order {
		if oid == id {
			repo.db.order = append(repo.db.order[:i], repo.db.order[i+1:]...)
			break
		}
	}
	return nil
}
