package data

import (
	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/pkg/errors"
)

const MessageRateLimited string = "Too many requests. Please try again later."

var (
	ErrRateLimited        = errors.Wrap(jperrors.ErrRateLimited, "service unavailable due to rate limiting")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmployeeNotCreated = errors.New("failed to create employee")
	ErrMutateDisabled     = errors.New("mutation disabled")
	ErrInvalidRequest     = errors.New("invalid request")
)

// EmployeeNotFoundError identifies the employee that couldn't be found,
// it matches ErrEmployeeNotFound with errors.Is
type EmployeeNotFoundError struct {
	Id string
}

func NewErrEmployeeNotFound(id string) error {
	return &EmployeeNotFoundError{Id: id}
}

func (e *EmployeeNotFoundError) Error() string {
	return "employee not found with id: " + e.Id
}

func (e *EmployeeNotFoundError) Is(target error) bool {
	return target == ErrEmployeeNotFound
}
