// Package Swagger go-employee-proxy
//
// An API that proxies the mock employee api, retrying when it's rate limited.
//
//   Schemes: http, https
//   Version: 1.0
//   Host: localhost:8080
//   BasePath:/
//
//   Consumes:
//   - application/json
//
//   Produces:
//   - application/json
//
// swagger:meta
package swagger

import "github.com/antonio-alexander/go-employee-proxy/internal/data"

// swagger:response ErrorResponse
type ErrorResponse struct {
	// in:body
	Error data.Error
}

// swagger:parameters ReadEmployees SearchEmployees ReadEmployee ReadHighestSalary ReadTopTenEarners CreateEmployee DeleteEmployee DeleteCache ReadCacheCounters DeleteCacheCounters ReadTimers DeleteTimers
type CorrelationIdParam struct {
	// in:header
	CorrelationId string `json:"Correlation-Id"`
}
