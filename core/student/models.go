package student

import (
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/roster/core"
)

// Student is a roster record. ID is assigned by the store on creation and never changes.
type Student struct {
	ID string `json:"id"`
	Data
}

// Data holds the editable fields of a Student.
type Data struct {
	FirstName     string `json:"firstName" form:"firstName" validate:"required"`
	LastName      string `json:"lastName" form:"lastName" validate:"required"`
	Email         string `json:"email" form:"email" validate:"required,email"`
	PhoneNumber   string `json:"phoneNumber" form:"phoneNumber" validate:"omitempty,phone10"`
	DateOfBirth   string `json:"dateOfBirth" form:"dateOfBirth" validate:"required,date"`
	Gender        string `json:"gender" form:"gender" validate:"required"`
	Class         string `json:"class" form:"class" validate:"required"`
	Section       string `json:"section" form:"section" validate:"required"`
	Address       string `json:"address" form:"address" validate:"required"`
	ParentName    string `json:"parentName" form:"parentName" validate:"required"`
	ParentContact string `json:"parentContact" form:"parentContact" validate:"omitempty,phone10"`
	RollNumber    string `json:"rollNumber" form:"rollNumber" validate:"required"`
}

func (s Student) FullName() string {
	return s.FirstName + " " + s.LastName
}

// Clean trims all the fields.
func (d *Data) Clean() {
	d.FirstName = core.CleanString(d.FirstName)
	d.LastName = core.CleanString(d.LastName)
	d.Email = core.CleanString(d.Email, true /* lower */)
	d.PhoneNumber = core.CleanString(d.PhoneNumber)
	d.DateOfBirth = core.CleanString(d.DateOfBirth)
	d.Gender = core.CleanString(d.Gender)
	d.Class = core.CleanString(d.Class)
	d.Section = core.CleanString(d.Section)
	d.Address = core.CleanString(d.Address)
	d.ParentName = core.CleanString(d.ParentName)
	d.ParentContact = core.CleanString(d.ParentContact)
	d.RollNumber = core.CleanString(d.RollNumber)
}

func (d *Data) Validate(validate *validator.Validate) error {
	d.Clean()
	return validate.Struct(d)
}
