package swagger

import "github.com/antonio-alexander/go-employee-proxy/internal/data"

// swagger:route GET /employees Employee ReadEmployees
// Reads all employees.
//
// responses:
//   200: EmployeesResponseOk
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:route GET /employees/search/{searchString} Employee SearchEmployees
// Reads all employees whose name contains the search string (case insensitive).
//
// responses:
//   200: EmployeesResponseOk
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:response EmployeesResponseOk
type EmployeesResponseOk struct {
	// in:body
	Employees []data.Employee
}

// swagger:parameters SearchEmployees
type EmployeesSearchParams struct {
	// in:path
	SearchString string `json:"searchString"`
}

// swagger:route GET /employees/{id} Employee ReadEmployee
// Reads an employee using its id.
//
// responses:
//   200: EmployeeResponseOk
//   404: ErrorResponse
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:response EmployeeResponseOk
type EmployeeResponseOk struct {
	// in:body
	Employee data.Employee
}

// swagger:parameters ReadEmployee DeleteEmployee
type EmployeeIdParams struct {
	// in:path
	Id string `json:"id"`
}

// swagger:route GET /employees/highestSalary Employee ReadHighestSalary
// Reads the highest salary, 0 if there are no employees.
//
// responses:
//   200: HighestSalaryResponseOk
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:response HighestSalaryResponseOk
type HighestSalaryResponseOk struct {
	// in:body
	HighestSalary int
}

// swagger:route GET /employees/topTenHighestEarningEmployeeNames Employee ReadTopTenEarners
// Reads the names of the ten highest paid employees.
//
// responses:
//   200: NamesResponseOk
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:response NamesResponseOk
type NamesResponseOk struct {
	// in:body
	Names []string
}

// swagger:route POST /employees Employee CreateEmployee
// Creates an employee.
//
// responses:
//   200: EmployeeResponseOk
//   400: ErrorResponse
//   403: ErrorResponse
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:parameters CreateEmployee
type EmployeeCreateParams struct {
	// in:body
	EmployeeInput data.EmployeeInput
}

// swagger:route DELETE /employees/{id} Employee DeleteEmployee
// Deletes an employee using its id, responds with the deleted employee's name.
//
// responses:
//   200: NameResponseOk
//   403: ErrorResponse
//   404: ErrorResponse
//   429: ErrorResponse
//   500: ErrorResponse

// swagger:response NameResponseOk
type NameResponseOk struct {
	// in:body
	Name string
}
