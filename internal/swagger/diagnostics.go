package swagger

import "github.com/antonio-alexander/go-employee-proxy/internal/data"

// swagger:route DELETE /cache Cache DeleteCache
// Deletes all items in the cache.
//
// responses:
//   204: NoContentResponse
//   500: ErrorResponse

// swagger:route GET /cache/counters Cache ReadCacheCounters
// Reads all cache counters.
//
// responses:
//   200: CacheCountersResponseOk

// swagger:route DELETE /cache/counters Cache DeleteCacheCounters
// Resets all cache counters.
//
// responses:
//   204: NoContentResponse

// swagger:response CacheCountersResponseOk
type CacheCountersResponseOk struct {
	// in:body
	CacheCounters data.CacheCounters
}

// swagger:route GET /timers Timers ReadTimers
// Reads all endpoint timers.
//
// responses:
//   200: TimersResponseOk

// swagger:route DELETE /timers Timers DeleteTimers
// Clears all endpoint timers.
//
// responses:
//   204: NoContentResponse

// swagger:response TimersResponseOk
type TimersResponseOk struct {
	// in:body
	Timers data.Timers
}

// swagger:response NoContentResponse
type NoContentResponse struct{}
