package service

import (
	"encoding/json"
	"net/http"

	"github.com/antonio-alexander/go-employee-proxy/internal/data"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
)

// errorToStatus maps an error to the status code and message the
// caller receives
func errorToStatus(err error) (int, string) {
	var validationErrs validation.Errors

	switch {
	default:
		return http.StatusInternalServerError, "An error occurred: " + err.Error()
	case errors.Is(err, data.ErrRateLimited):
		return http.StatusTooManyRequests, data.MessageRateLimited
	case errors.Is(err, data.ErrEmployeeNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, data.ErrMutateDisabled):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, data.ErrInvalidRequest),
		errors.As(err, &validationErrs):
		return http.StatusBadRequest, err.Error()
	}
}

func decodeRequest(request *http.Request, v any) error {
	defer request.Body.Close()

	if err := json.NewDecoder(request.Body).Decode(v); err != nil {
		return errors.WithMessagef(data.ErrInvalidRequest, "unable to decode body: %s", err)
	}
	return nil
}
