package data

// CacheCounters holds the cache hits and misses per cache key, e.g.
// "employees" for the roster and "employee_<id>" for a single employee
type CacheCounters struct {
	CounterHits   map[string]int `json:"counter_hits,omitempty"`
	CounterMisses map[string]int `json:"counter_misses,omitempty"`
}
