package data

import "encoding/json"

// Employee is the upstream representation of an employee, the json tags
// match the field names used by the mock employee api
type Employee struct {
	Id     string `json:"id"`
	Name   string `json:"employee_name"`
	Salary *int   `json:"employee_salary,omitempty"` //nil when upstream omits it
	Age    int    `json:"employee_age"`
	Title  string `json:"employee_title"`
	Email  string `json:"employee_email,omitempty"`
}

func (e *Employee) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Employee) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// Employees is the full roster as returned by upstream
type Employees []*Employee

func (e *Employees) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *Employees) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}
