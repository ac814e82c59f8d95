package cache

import (
	"context"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"
)

type entry struct {
	employee *data.Employee
	expires  int64
}

type memoryCache struct {
	sync.RWMutex
	sync.WaitGroup
	employees map[string]*entry //map[id]entry
	roster    struct {
		ids     []string
		expires int64
	}
	config struct {
		ttl           time.Duration
		pruneInterval time.Duration
	}
	ctx       context.Context
	ctxCancel context.CancelFunc
	utilities.Logger
}

func NewMemory(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &memoryCache{}
	c.config.ttl = defaultTTL
	c.config.pruneInterval = defaultPruneInterval
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	if c.Logger == nil {
		c.Logger = utilities.NewLogger()
	}
	return c
}

func (c *memoryCache) expired(expires int64) bool {
	return time.Now().UnixNano() > expires
}

func (c *memoryCache) launchPrune() {
	started := make(chan struct{})
	c.Add(1)
	go func() {
		defer c.Done()

		pruneFx := func() {
			c.Lock()
			defer c.Unlock()

			for id, e := range c.employees {
				if c.expired(e.expires) {
					delete(c.employees, id)
				}
			}
			if c.roster.ids != nil && c.expired(c.roster.expires) {
				c.roster.ids = nil
			}
		}
		tPrune := time.NewTicker(c.config.pruneInterval)
		defer tPrune.Stop()
		close(started)
		for {
			select {
			case <-c.ctx.Done():
				return
			case <-tPrune.C:
				pruneFx()
			}
		}
	}()
	<-started
}

func (c *memoryCache) Configure(envs map[string]string) error {
	if err := parseSeconds(envs, "CACHE_TTL", &c.config.ttl); err != nil {
		return err
	}
	if err := parseSeconds(envs, "CACHE_PRUNE_INTERVAL", &c.config.pruneInterval); err != nil {
		return err
	}
	if c.config.pruneInterval <= 0 {
		c.config.pruneInterval = defaultPruneInterval
	}
	return nil
}

func (c *memoryCache) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[string]*entry)
	c.roster.ids = nil
	c.ctx, c.ctxCancel = context.WithCancel(context.Background())
	c.launchPrune()
	return nil
}

func (c *memoryCache) Close(ctx context.Context) error {
	if c.ctxCancel != nil {
		c.ctxCancel()
	}
	c.Wait()
	return nil
}

func (c *memoryCache) Clear(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.employees = make(map[string]*entry)
	c.roster.ids = nil
	c.Trace(ctx, "memory cache cleared")
	return nil
}

func (c *memoryCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	e, ok := c.employees[id]
	if !ok || c.expired(e.expires) {
		return nil, ErrEmployeeNotCached
	}
	return copyEmployee(e.employee), nil
}

func (c *memoryCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	c.RLock()
	defer c.RUnlock()

	if c.roster.ids == nil || c.expired(c.roster.expires) {
		return nil, ErrEmployeesNotCached
	}
	employees := make([]*data.Employee, 0, len(c.roster.ids))
	for _, id := range c.roster.ids {
		//KIM: a roster with a missing employee is incomplete and
		// treated as a miss
		e, ok := c.employees[id]
		if !ok {
			return nil, ErrEmployeesNotCached
		}
		employees = append(employees, copyEmployee(e.employee))
	}
	return employees, nil
}

func (c *memoryCache) EmployeesWrite(ctx context.Context, roster bool, employees ...*data.Employee) error {
	c.Lock()
	defer c.Unlock()

	expires := time.Now().Add(c.config.ttl).UnixNano()
	ids := make([]string, 0, len(employees))
	for _, e := range employees {
		if e == nil {
			continue
		}
		c.employees[e.Id] = &entry{
			employee: copyEmployee(e),
			expires:  expires,
		}
		ids = append(ids, e.Id)
	}
	if roster {
		c.roster.ids, c.roster.expires = ids, expires
	}
	return nil
}

func (c *memoryCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	c.Lock()
	defer c.Unlock()

	for _, id := range ids {
		delete(c.employees, id)
	}
	c.roster.ids = nil
	return nil
}
