package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trezcool/roster/core/student"
	"github.com/trezcool/roster/core/user"
)

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Debug(string, ...interface{}) {}
func (NopLogger) Info(string, ...interface{})  {}
func (NopLogger) Warn(string, ...interface{})  {}
func (NopLogger) Error(string, ...interface{}) {}
func (NopLogger) Fatal(string, ...interface{}) {}

func CreateUser(t *testing.T, repo user.Repository, name, email, pwd string, isActive bool) user.User {
	t.Helper()
	now := time.Now().UTC()
	usr := user.User{
		ID:        uuid.NewString(),
		Name:      name,
		Email:     email,
		IsActive:  isActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// NewStudentData returns valid student data.
func NewStudentData(firstName, rollNumber string) student.Data {
	return student.Data{
		FirstName:     firstName,
		LastName:      "Mukendi",
		Email:         "student" + rollNumber + "@school.cd",
		PhoneNumber:   "0812345678",
		DateOfBirth:   "2011-09-01",
		Gender:        "Male",
		Class:         "5",
		Section:       "B",
		Address:       "4 Av. Kasa-Vubu, Kinshasa",
		ParentName:    "Marie Mukendi",
		ParentContact: "0998765432",
		RollNumber:    rollNumber,
	}
}

func CreateStudent(t *testing.T, repo student.Repository, firstName, rollNumber string) student.Student {
	t.Helper()
	s, err := repo.CreateStudent(context.Background(), NewStudentData(firstName, rollNumber))
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}
