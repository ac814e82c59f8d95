package utilities

import (
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal/data"
)

// timerGroup aggregates the stopped timers of a group, only timers that
// are still running are kept individually
type timerGroup struct {
	nextId  int
	running map[int]time.Time
	count   int64
	total   time.Duration
	maximum time.Duration
}

type timers struct {
	sync.Mutex
	groups map[string]*timerGroup
}

// Timers records how long endpoints take, grouped by name
type Timers interface {
	Start(group string) int
	Stop(group string, id int) int64
	ReadAll() *data.Timers
	Clear()
}

func NewTimers() Timers {
	return &timers{
		groups: make(map[string]*timerGroup),
	}
}

func (t *timers) Clear() {
	t.Lock()
	defer t.Unlock()

	t.groups = make(map[string]*timerGroup)
}

// Start returns an id for the running timer that's unique within the group
func (t *timers) Start(group string) int {
	t.Lock()
	defer t.Unlock()

	g, found := t.groups[group]
	if !found {
		g = &timerGroup{running: make(map[int]time.Time)}
		t.groups[group] = g
	}
	id := g.nextId
	g.nextId++
	g.running[id] = time.Now()
	return id
}

// Stop returns the elapsed nanoseconds, or -1 if the timer isn't running
// (stopped twice or cleared in between)
func (t *timers) Stop(group string, id int) int64 {
	t.Lock()
	defer t.Unlock()

	g, found := t.groups[group]
	if !found {
		return -1
	}
	started, found := g.running[id]
	if !found {
		return -1
	}
	delete(g.running, id)
	elapsed := time.Since(started)
	g.count++
	g.total += elapsed
	if elapsed > g.maximum {
		g.maximum = elapsed
	}
	return elapsed.Nanoseconds()
}

func (t *timers) ReadAll() *data.Timers {
	t.Lock()
	defer t.Unlock()

	read := &data.Timers{
		Totals:   make(map[string]int64, len(t.groups)),
		Averages: make(map[string]int64, len(t.groups)),
		Maximums: make(map[string]int64, len(t.groups)),
		Counts:   make(map[string]int64, len(t.groups)),
	}
	for group, g := range t.groups {
		read.Totals[group] = g.total.Nanoseconds()
		read.Maximums[group] = g.maximum.Nanoseconds()
		read.Counts[group] = g.count
		if g.count > 0 {
			read.Averages[group] = g.total.Nanoseconds() / g.count
		}
	}
	return read
}
