package data

const (
	RouteEmployees              string = "/employees"
	RouteEmployeesSearch        string = RouteEmployees + "/search/{" + PathSearchString + "}"
	RouteEmployeesSearchf       string = RouteEmployees + "/search/%s"
	RouteEmployeesHighestSalary string = RouteEmployees + "/highestSalary"
	RouteEmployeesTopTen        string = RouteEmployees + "/topTenHighestEarningEmployeeNames"
	RouteEmployeesId            string = RouteEmployees + "/{" + PathId + "}"
	RouteEmployeesIdf           string = RouteEmployees + "/%s"
	RouteCache                  string = "/cache"
	RouteCacheCounters          string = RouteCache + "/counters"
	RouteTimers                 string = "/timers"
)

const (
	PathId           string = "id"
	PathSearchString string = "searchString"
)

const HeaderCorrelationId string = "Correlation-Id"

// ApiResponse is the envelope upstream wraps every payload in
type ApiResponse[T any] struct {
	Data   T      `json:"data"`
	Status string `json:"status,omitempty"`
}

// EmployeeDelete is the body upstream expects when deleting,
// employees are deleted by name rather than by id
type EmployeeDelete struct {
	Name string `json:"name"`
}

type Error struct {
	Error string `json:"error"`
}
