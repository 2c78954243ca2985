package student

import (
	"context"

	"github.com/pkg/errors"
)

// Collection is the name of the document collection holding the students.
const Collection = "students"

// ErrNotFound is returned when no Student has the requested ID.
var ErrNotFound = errors.New("student not found")

type (
	// Repository is a document collection of students.
	// QueryAllStudents returns them in insertion order, DeleteStudent ignores unknown IDs.
	Repository interface {
		CreateStudent(ctx context.Context, data Data) (Student, error)
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		UpdateStudent(ctx context.Context, id string, data Data) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, data Data) (Student, error) {
	s, err := svc.repo.CreateStudent(ctx, data)
	return s, errors.Wrap(err, "creating student")
}

func (svc *Service) QueryAll(ctx context.Context) ([]Student, error) {
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []Student{}
	}
	return students, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudentByID(ctx, id)
}

func (svc *Service) Update(ctx context.Context, id string, data Data) (Student, error) {
	return svc.repo.UpdateStudent(ctx, id, data)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return errors.Wrap(svc.repo.DeleteStudent(ctx, id), "deleting student")
}
