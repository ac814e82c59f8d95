package data

// Timers summarises endpoint durations per group, durations are in
// nanoseconds and only stopped timers are counted
type Timers struct {
	Totals   map[string]int64 `json:"totals,omitempty"`
	Averages map[string]int64 `json:"averages,omitempty"`
	Maximums map[string]int64 `json:"maximums,omitempty"`
	Counts   map[string]int64 `json:"counts,omitempty"`
}
