package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/roster/core/student"
)

type studentRepository struct {
	docs *documents
}

var _ student.Repository = (*studentRepository)(nil)

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{docs: newDocuments(db, student.Collection)}
}

func (repo *studentRepository) CreateStudent(ctx context.Context, data student.Data) (student.Student, error) {
	id := uuid.NewString()
	if err := repo.docs.insert(ctx, id, data); err != nil {
		return student.Student{}, err
	}
	return student.Student{ID: id, Data: data}, nil
}

func (repo *studentRepository) QueryAllStudents(ctx context.Context) ([]student.Student, error) {
	rows, err := repo.docs.all(ctx)
	if err != nil {
		return nil, err
	}
	students := make([]student.Student, 0, len(rows))
	for _, row := range rows {
		s := student.Student{ID: row.ID}
		if err = decode(row, &s.Data); err != nil {
			return nil, err
		}
		students = append(students, s)
	}
	return students, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string) (student.Student, error) {
	row, err := repo.docs.get(ctx, id)
	if err != nil {
		if err == errNoDocument {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	s := student.Student{ID: row.ID}
	if err = decode(row, &s.Data); err != nil {
		return student.Student{}, err
	}
	return s, nil
}

func (repo *studentRepository) UpdateStudent(ctx context.Context, id string, data student.Data) (student.Student, error) {
	if err := repo.docs.replace(ctx, id, data); err != nil {
		if err == errNoDocument {
			return student.Student{}, student.ErrNotFound
		}
		return student.Student{}, err
	}
	return student.Student{ID: id, Data: data}, nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string) error {
	return repo.docs.delete(ctx, id)
}
