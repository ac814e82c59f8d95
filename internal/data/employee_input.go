package data

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
)

const (
	EmployeeAgeMin int = 18
	EmployeeAgeMax int = 60
)

// EmployeeInput is the payload used to create an employee, it's
// submitted upstream as-is once validated
type EmployeeInput struct {
	Name   string `json:"name"`
	Salary *int   `json:"salary"`
	Age    *int   `json:"age"`
	Title  string `json:"title"`
}

func notBlank(value any) error {
	if s, _ := value.(string); strings.TrimSpace(s) == "" {
		return errors.New("cannot be blank")
	}
	return nil
}

func (e EmployeeInput) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.Name, validation.Required, validation.By(notBlank)),
		validation.Field(&e.Salary, validation.Required, validation.Min(1).
			Error("must be greater than zero")),
		validation.Field(&e.Age, validation.Required,
			validation.Min(EmployeeAgeMin), validation.Max(EmployeeAgeMax)),
		validation.Field(&e.Title, validation.Required, validation.By(notBlank)),
	)
}
