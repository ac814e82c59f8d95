package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal/data"

	"github.com/pkg/errors"
)

const (
	defaultTTL           time.Duration = 30 * time.Second
	defaultPruneInterval time.Duration = 10 * time.Second
)

var (
	ErrEmployeeNotCached  = errors.New("employee not cached")
	ErrEmployeesNotCached = errors.New("employees not cached")
)

// Cache stores employees read from upstream, the roster is the full
// list of employees as returned by upstream (in order)
type Cache interface {
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeesWrite(ctx context.Context, roster bool, employees ...*data.Employee) error
	EmployeesDelete(ctx context.Context, ids ...string) error
}

func copyEmployee(e *data.Employee) *data.Employee {
	employee := &data.Employee{}
	*employee = *e
	if e.Salary != nil {
		salary := *e.Salary
		employee.Salary = &salary
	}
	return employee
}

func parseSeconds(envs map[string]string, key string, value *time.Duration) error {
	s, ok := envs[key]
	if !ok || s == "" {
		return nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return errors.Wrap(err, key)
	}
	*value = time.Duration(i) * time.Second
	return nil
}
