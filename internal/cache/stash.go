package cache

import (
	"context"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	"github.com/antonio-alexander/go-stash"
)

const (
	stashKeyEmployeePrefix string = "employee_"
	stashKeyEmployees      string = "employees"
)

type stashCache struct {
	utilities.Logger
	stash interface {
		stash.Configurer
		stash.Parameterizer
		stash.Initializer
		stash.Shutdowner
	}
	stash.Stasher
}

// NewStash wraps a go-stash implementation (memory or redis) which
// must be provided as a parameter
func NewStash(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &stashCache{}
	for _, p := range parameters {
		switch p := p.(type) {
		case utilities.Logger:
			c.Logger = p
		case interface {
			stash.Configurer
			stash.Parameterizer
			stash.Initializer
			stash.Shutdowner
			stash.Stasher
		}:
			c.stash = p
			c.Stasher = p
		}
	}
	if c.Logger == nil {
		c.Logger = utilities.NewLogger()
	}
	if c.stash != nil {
		c.stash.SetParameters(parameters...)
	}
	return c
}

func (c *stashCache) Configure(envs map[string]string) error {
	if c.stash != nil {
		if err := c.stash.Configure(envs); err != nil {
			return err
		}
	}
	return nil
}

func (c *stashCache) Open(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Initialize()
	}
	return nil
}

func (c *stashCache) Close(ctx context.Context) error {
	if c.stash != nil {
		return c.stash.Shutdown()
	}
	return nil
}

func (c *stashCache) Clear(ctx context.Context) error {
	return c.Stasher.Clear()
}

func (c *stashCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	employee := &data.Employee{}
	if err := c.Stasher.Read(stashKeyEmployeePrefix+id, employee); err != nil {
		c.Trace(ctx, "stash miss for employee (%s): %s", id, err)
		return nil, ErrEmployeeNotCached
	}
	return employee, nil
}

func (c *stashCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	employees := data.Employees{}
	if err := c.Stasher.Read(stashKeyEmployees, &employees); err != nil {
		c.Trace(ctx, "stash miss for employees: %s", err)
		return nil, ErrEmployeesNotCached
	}
	return employees, nil
}

func (c *stashCache) EmployeesWrite(ctx context.Context, roster bool, employees ...*data.Employee) error {
	written := make(data.Employees, 0, len(employees))
	for _, employee := range employees {
		if employee == nil {
			continue
		}
		if _, err := c.Stasher.Write(stashKeyEmployeePrefix+employee.Id, employee); err != nil {
			//KIM: a failed write leaves the employee uncached, which
			// only costs a trip upstream
			c.Error(ctx, "error while writing employee (%s): %s", employee.Id, err)
			continue
		}
		written = append(written, employee)
	}
	if roster {
		if _, err := c.Stasher.Write(stashKeyEmployees, &written); err != nil {
			c.Error(ctx, "error while writing employees: %s", err)
			return err
		}
	}
	return nil
}

func (c *stashCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	for _, id := range ids {
		if err := c.Stasher.Delete(stashKeyEmployeePrefix + id); err != nil {
			c.Trace(ctx, "unable to evict employee (%s): %s", id, err)
		}
	}
	if err := c.Stasher.Delete(stashKeyEmployees); err != nil {
		c.Trace(ctx, "unable to evict employees: %s", err)
	}
	return nil
}
