package logic

import (
	"cmp"
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/cache"
	"github.com/antonio-alexander/go-employee-proxy/internal/client"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	"github.com/pkg/errors"
)

const (
	topTenLimit       int    = 10
	counterEmployees  string = "employees"
	counterEmployeeId string = "employee_"
)

type Logic interface {
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeesSearch(ctx context.Context, name string) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	HighestSalary(ctx context.Context) (int, error)
	TopTenEarners(ctx context.Context) ([]string, error)
	EmployeeCreate(ctx context.Context, input data.EmployeeInput) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, id string) (string, error)
}

type logic struct {
	sync.RWMutex
	client  client.Client
	cache   cache.Cache
	counter utilities.Counter
	config  struct {
		cacheEnabled   bool
		mutateDisabled bool
	}
	utilities.Logger
}

func NewLogic(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Logic
} {
	l := &logic{}
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case client.Client:
			l.client = p
		case cache.Cache:
			l.cache = p
		case utilities.Counter:
			l.counter = p
		case utilities.Logger:
			l.Logger = p
		}
	}
	if l.Logger == nil {
		l.Logger = utilities.NewLogger()
	}
	if l.counter == nil {
		l.counter = utilities.NewCounter()
	}
	return l
}

func (l *logic) Configure(envs map[string]string) error {
	l.Lock()
	defer l.Unlock()

	if cacheEnabled, ok := envs["LOGIC_CACHE_ENABLED"]; ok {
		l.config.cacheEnabled, _ = strconv.ParseBool(cacheEnabled)
	}
	if mutateDisabled, ok := envs["MUTATE_DISABLED"]; ok {
		l.config.mutateDisabled, _ = strconv.ParseBool(mutateDisabled)
	}
	return nil
}

func (l *logic) Open(ctx context.Context) error {
	l.Lock()
	defer l.Unlock()

	if l.client == nil {
		return errors.New("logic: client not provided")
	}
	if l.config.cacheEnabled && l.cache == nil {
		l.Info(ctx, "logic: cache enabled, but no cache provided")
		l.config.cacheEnabled = false
	}
	if l.config.cacheEnabled {
		l.Info(ctx, "logic: cache enabled")
	}
	if l.config.mutateDisabled {
		l.Info(ctx, "logic: mutation disabled")
	}
	return nil
}

func (l *logic) Close(ctx context.Context) error {
	return nil
}

func (l *logic) cacheEnabled() bool {
	l.RLock()
	defer l.RUnlock()

	return l.config.cacheEnabled
}

func (l *logic) mutateDisabled() bool {
	l.RLock()
	defer l.RUnlock()

	return l.config.mutateDisabled
}

func (l *logic) invalidate(ctx context.Context, ids ...string) {
	if !l.cacheEnabled() {
		return
	}
	if err := l.cache.EmployeesDelete(ctx, ids...); err != nil {
		l.Error(ctx, "error while deleting employees %v from cache: %s", ids, err)
	}
}

func (l *logic) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	cacheEnabled := l.cacheEnabled()
	if cacheEnabled {
		employees, err := l.cache.EmployeesRead(ctx)
		if err == nil {
			l.counter.IncrementHit(counterEmployees)
			return employees, nil
		}
		l.counter.IncrementMiss(counterEmployees)
		l.Trace(ctx, "employees not read from cache: %s", err)
	}
	employees, err := l.client.EmployeesRead(ctx)
	if err != nil {
		if errors.Is(err, data.ErrRateLimited) {
			l.Error(ctx, "rate limited while reading employees")
		}
		return nil, err
	}
	if employees == nil {
		employees = []*data.Employee{}
	}
	l.Debug(ctx, "read %d employees", len(employees))
	if cacheEnabled {
		if err := l.cache.EmployeesWrite(ctx, true, employees...); err != nil {
			l.Error(ctx, "error while writing employees to cache: %s", err)
		}
	}
	return employees, nil
}

func (l *logic) EmployeesSearch(ctx context.Context, name string) ([]*data.Employee, error) {
	employees, err := l.EmployeesRead(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(name)
	matches := make([]*data.Employee, 0, len(employees))
	for _, employee := range employees {
		if employee == nil || employee.Name == "" {
			continue
		}
		if strings.Contains(strings.ToLower(employee.Name), search) {
			matches = append(matches, employee)
		}
	}
	l.Debug(ctx, "found %d employees matching %q", len(matches), name)
	return matches, nil
}

func (l *logic) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	cacheEnabled := l.cacheEnabled()
	if cacheEnabled {
		employee, err := l.cache.EmployeeRead(ctx, id)
		if err == nil {
			l.counter.IncrementHit(counterEmployeeId + id)
			return employee, nil
		}
		l.counter.IncrementMiss(counterEmployeeId + id)
		l.Trace(ctx, "employee (%s) not read from cache: %s", id, err)
	}
	employee, err := l.client.EmployeeRead(ctx, id)
	if err != nil {
		var statusErr *client.StatusError
		switch {
		case errors.As(err, &statusErr) && statusErr.StatusCode() == http.StatusNotFound:
			l.Info(ctx, "employee (%s) not found", id)
			return nil, data.NewErrEmployeeNotFound(id)
		case errors.Is(err, data.ErrRateLimited):
			l.Error(ctx, "rate limited while reading employee (%s)", id)
		}
		return nil, err
	}
	if employee == nil {
		l.Info(ctx, "employee (%s) not found", id)
		return nil, data.NewErrEmployeeNotFound(id)
	}
	if cacheEnabled {
		if err := l.cache.EmployeesWrite(ctx, false, employee); err != nil {
			l.Error(ctx, "error while writing employee (%s) to cache: %s", id, err)
		}
	}
	return employee, nil
}

// HighestSalary returns the highest salary amongst employees with a
// salary, 0 if there are none
func (l *logic) HighestSalary(ctx context.Context) (int, error) {
	employees, err := l.EmployeesRead(ctx)
	if err != nil {
		return 0, err
	}
	var highestSalary int
	for _, employee := range employees {
		if employee == nil || employee.Salary == nil {
			continue
		}
		if *employee.Salary > highestSalary {
			highestSalary = *employee.Salary
		}
	}
	return highestSalary, nil
}

// TopTenEarners returns the names of the (up to) ten highest paid
// employees in descending order of salary; ties keep upstream order
func (l *logic) TopTenEarners(ctx context.Context) ([]string, error) {
	employees, err := l.EmployeesRead(ctx)
	if err != nil {
		return nil, err
	}
	earners := make([]*data.Employee, 0, len(employees))
	for _, employee := range employees {
		if employee == nil || employee.Salary == nil {
			continue
		}
		earners = append(earners, employee)
	}
	slices.SortStableFunc(earners, func(a, b *data.Employee) int {
		return cmp.Compare(*b.Salary, *a.Salary)
	})
	names := make([]string, 0, topTenLimit)
	for i := 0; i < len(earners) && i < topTenLimit; i++ {
		names = append(names, earners[i].Name)
	}
	return names, nil
}

func (l *logic) EmployeeCreate(ctx context.Context, input data.EmployeeInput) (*data.Employee, error) {
	if l.mutateDisabled() {
		return nil, data.ErrMutateDisabled
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}
	l.Info(ctx, "creating employee: %s", input.Name)
	employee, err := l.client.EmployeeCreate(ctx, input)
	if err != nil {
		if errors.Is(err, data.ErrRateLimited) {
			l.Error(ctx, "rate limited while creating employee")
		}
		return nil, err
	}
	if employee == nil {
		return nil, data.ErrEmployeeNotCreated
	}
	l.Info(ctx, "employee created with id: %s", employee.Id)
	l.invalidate(ctx, employee.Id)
	return employee, nil
}

// EmployeeDelete deletes the employee with the given id, upstream
// deletes by name so the employee is read first
func (l *logic) EmployeeDelete(ctx context.Context, id string) (string, error) {
	if l.mutateDisabled() {
		return "", data.ErrMutateDisabled
	}
	employee, err := l.EmployeeRead(ctx, id)
	if err != nil {
		return "", err
	}
	l.Info(ctx, "deleting employee: %s (id: %s)", employee.Name, id)
	deleted, err := l.client.EmployeeDelete(ctx, employee.Name)
	if err != nil {
		if errors.Is(err, data.ErrRateLimited) {
			l.Error(ctx, "rate limited while deleting employee (%s)", employee.Name)
		}
		return "", err
	}
	if !deleted {
		l.Info(ctx, "upstream didn't acknowledge deleting employee: %s", employee.Name)
	}
	l.invalidate(ctx, id)
	return employee.Name, nil
}
