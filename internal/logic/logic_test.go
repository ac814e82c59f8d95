package logic_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/cache"
	"github.com/antonio-alexander/go-employee-proxy/internal/client"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/logic"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

var envs = map[string]string{
	//client
	"UPSTREAM_MAX_ATTEMPTS": "3",
	"UPSTREAM_RETRY_DELAY":  "10",
	"UPSTREAM_TIMEOUT":      "5",
	//cache
	"CACHE_TTL": "30",
	//logic
	"LOGIC_CACHE_ENABLED": "false",
	"MUTATE_DISABLED":     "false",
}

func init() {
	for _, env := range os.Environ() {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
}

func salary(i int) *int {
	return &i
}

// mockClient is an in-memory stand-in for upstream
type mockClient struct {
	sync.Mutex
	employees []*data.Employee
	deleted   []string
	reads     atomic.Int32
	err       error
	ack       bool
}

func newMockClient(employees ...*data.Employee) *mockClient {
	return &mockClient{employees: employees, ack: true}
}

func (m *mockClient) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.reads.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.employees, nil
}

func (m *mockClient) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	m.reads.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	for _, employee := range m.employees {
		if employee.Id == id {
			return employee, nil
		}
	}
	return nil, &client.StatusError{Code: http.StatusNotFound}
}

func (m *mockClient) EmployeeCreate(ctx context.Context, input data.EmployeeInput) (*data.Employee, error) {
	m.Lock()
	defer m.Unlock()

	if m.err != nil {
		return nil, m.err
	}
	employee := &data.Employee{
		Id:     fmt.Sprint(len(m.employees) + 1),
		Name:   input.Name,
		Salary: input.Salary,
		Age:    *input.Age,
		Title:  input.Title,
	}
	m.employees = append(m.employees, employee)
	return employee, nil
}

func (m *mockClient) EmployeeDelete(ctx context.Context, name string) (bool, error) {
	m.Lock()
	defer m.Unlock()

	if m.err != nil {
		return false, m.err
	}
	m.deleted = append(m.deleted, name)
	return m.ack, nil
}

type logicTest struct {
	client *mockClient
	cache  interface {
		internal.Configurer
		internal.Opener
		internal.Clearer
		cache.Cache
	}
	counter utilities.Counter
	logic   interface {
		internal.Configurer
		internal.Opener
	}
	logic.Logic
}

func newLogicTest(envs map[string]string, employees ...*data.Employee) (*logicTest, error) {
	ctx := context.TODO()
	mockClient := newMockClient(employees...)
	c := cache.NewMemory()
	counter := utilities.NewCounter()
	l := logic.NewLogic(mockClient, c, counter)
	if err := c.Configure(envs); err != nil {
		return nil, err
	}
	if err := c.Open(ctx); err != nil {
		return nil, err
	}
	if err := l.Configure(envs); err != nil {
		return nil, err
	}
	if err := l.Open(ctx); err != nil {
		return nil, err
	}
	return &logicTest{
		client:  mockClient,
		cache:   c,
		counter: counter,
		logic:   l,
		Logic:   l,
	}, nil
}

func (l *logicTest) Close() {
	_ = l.logic.Close(context.TODO())
	_ = l.cache.Close(context.TODO())
}

func mergeEnvs(overrides map[string]string) map[string]string {
	merged := make(map[string]string, len(envs)+len(overrides))
	for key, value := range envs {
		merged[key] = value
	}
	for key, value := range overrides {
		merged[key] = value
	}
	return merged
}

func roster() []*data.Employee {
	return []*data.Employee{
		{Id: "1", Name: "John Doe", Salary: salary(100)},
		{Id: "2", Name: "Johnny", Salary: salary(300)},
		{Id: "3", Name: "Jane", Salary: salary(200)},
		{Id: "4", Name: "Nobody"},
		{Id: "5", Name: "", Salary: salary(50)},
	}
}

func TestEmployeesRead(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(envs, roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	employees, err := l.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Len(t, employees, 5)

	//upstream returning nothing is an empty list
	l.client.employees = nil
	employees, err = l.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.NotNil(t, employees)
	assert.Empty(t, employees)

	//rate limiting propagates unchanged
	l.client.err = data.ErrRateLimited
	_, err = l.EmployeesRead(ctx)
	assert.ErrorIs(t, err, data.ErrRateLimited)
}

func TestEmployeesSearch(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(envs, roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	employees, err := l.EmployeesSearch(ctx, "john")
	assert.Nil(t, err)
	names := make([]string, 0, len(employees))
	for _, employee := range employees {
		names = append(names, employee.Name)
	}
	assert.Equal(t, []string{"John Doe", "Johnny"}, names)

	employees, err = l.EmployeesSearch(ctx, "JANE")
	assert.Nil(t, err)
	assert.Len(t, employees, 1)

	employees, err = l.EmployeesSearch(ctx, "zzz")
	assert.Nil(t, err)
	assert.Empty(t, employees)
}

func TestEmployeeRead(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(envs, roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	employee, err := l.EmployeeRead(ctx, "2")
	assert.Nil(t, err)
	assert.Equal(t, "Johnny", employee.Name)

	_, err = l.EmployeeRead(ctx, "42")
	assert.ErrorIs(t, err, data.ErrEmployeeNotFound)
	assert.Equal(t, "employee not found with id: 42", err.Error())

	//server errors are not translated to not found
	l.client.err = &client.StatusError{Code: http.StatusInternalServerError}
	_, err = l.EmployeeRead(ctx, "2")
	assert.NotNil(t, err)
	assert.False(t, errors.Is(err, data.ErrEmployeeNotFound))
}

func TestHighestSalary(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(envs, roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	highestSalary, err := l.HighestSalary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 300, highestSalary)

	l.client.employees = nil
	highestSalary, err = l.HighestSalary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 0, highestSalary)

	l.client.employees = []*data.Employee{{Id: "1", Name: "Nobody"}}
	highestSalary, err = l.HighestSalary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 0, highestSalary)
}

func TestTopTenEarners(t *testing.T) {
	ctx := context.TODO()

	employees := make([]*data.Employee, 0, 15)
	for i := 1; i <= 12; i++ {
		employees = append(employees, &data.Employee{
			Id:     fmt.Sprint(i),
			Name:   fmt.Sprintf("employee_%d", i),
			Salary: salary(i * 100),
		})
	}
	employees = append(employees,
		&data.Employee{Id: "13", Name: "tie_first", Salary: salary(1150)},
		&data.Employee{Id: "14", Name: "unpaid"},
		&data.Employee{Id: "15", Name: "tie_second", Salary: salary(1150)},
	)
	l, err := newLogicTest(envs, employees...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	names, err := l.TopTenEarners(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{
		"employee_12",
		"tie_first",
		"tie_second",
		"employee_11",
		"employee_10",
		"employee_9",
		"employee_8",
		"employee_7",
		"employee_6",
		"employee_5",
	}, names)

	l.client.employees = roster()
	names, err = l.TopTenEarners(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"Johnny", "Jane", "John Doe", ""}, names)

	//extreme salaries must not overflow the comparison
	l.client.employees = []*data.Employee{
		{Id: "1", Name: "lowest", Salary: salary(math.MinInt)},
		{Id: "2", Name: "highest", Salary: salary(math.MaxInt)},
		{Id: "3", Name: "negative", Salary: salary(-1)},
		{Id: "4", Name: "zero", Salary: salary(0)},
	}
	names, err = l.TopTenEarners(ctx)
	assert.Nil(t, err)
	assert.Equal(t, []string{"highest", "zero", "negative", "lowest"}, names)
}

func TestEmployeeCreate(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(envs)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	age := 30
	employee, err := l.EmployeeCreate(ctx, data.EmployeeInput{
		Name:   "Jane Doe",
		Salary: salary(1000),
		Age:    &age,
		Title:  "Engineer",
	})
	assert.Nil(t, err)
	assert.NotNil(t, employee)
	assert.Equal(t, "Jane Doe", employee.Name)

	//invalid input never reaches upstream
	tooYoung := 17
	_, err = l.EmployeeCreate(ctx, data.EmployeeInput{
		Name:   " ",
		Salary: salary(0),
		Age:    &tooYoung,
	})
	var validationErrs validation.Errors
	assert.True(t, errors.As(err, &validationErrs))
	assert.Contains(t, validationErrs, "name")
	assert.Contains(t, validationErrs, "salary")
	assert.Contains(t, validationErrs, "age")
	assert.Contains(t, validationErrs, "title")
	assert.Len(t, l.client.employees, 1)
}

func TestEmployeeDelete(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(envs, roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	name, err := l.EmployeeDelete(ctx, "1")
	assert.Nil(t, err)
	assert.Equal(t, "John Doe", name)
	assert.Equal(t, []string{"John Doe"}, l.client.deleted)

	_, err = l.EmployeeDelete(ctx, "42")
	assert.ErrorIs(t, err, data.ErrEmployeeNotFound)
	assert.Len(t, l.client.deleted, 1)

	//an unacknowledged delete still returns the name
	l.client.ack = false
	name, err = l.EmployeeDelete(ctx, "2")
	assert.Nil(t, err)
	assert.Equal(t, "Johnny", name)
	assert.Equal(t, []string{"John Doe", "Johnny"}, l.client.deleted)
}

func TestEmployeeDeleteEmptyBody(t *testing.T) {
	var deleted atomic.Value

	ctx := context.TODO()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		switch {
		case request.Method == http.MethodGet && strings.HasSuffix(request.URL.Path, "/1"):
			_ = json.NewEncoder(writer).Encode(&data.ApiResponse[*data.Employee]{Data: roster()[0]})
		case request.Method == http.MethodDelete:
			input := &data.EmployeeDelete{}
			_ = json.NewDecoder(request.Body).Decode(input)
			deleted.Store(input.Name)
			writer.WriteHeader(http.StatusOK)
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := client.NewClient()
	err := c.Configure(mergeEnvs(map[string]string{
		"UPSTREAM_BASE_URL": server.URL,
	}))
	assert.Nil(t, err)
	err = c.Open(ctx)
	assert.Nil(t, err)
	defer c.Close(ctx)
	l := logic.NewLogic(c)
	err = l.Configure(envs)
	assert.Nil(t, err)
	err = l.Open(ctx)
	assert.Nil(t, err)

	name, err := l.EmployeeDelete(ctx, "1")
	assert.Nil(t, err)
	assert.Equal(t, "John Doe", name)
	assert.Equal(t, "John Doe", deleted.Load())
}

func TestMutateDisabled(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(mergeEnvs(map[string]string{
		"MUTATE_DISABLED": "true",
	}), roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()
	age := 30
	_, err = l.EmployeeCreate(ctx, data.EmployeeInput{
		Name:   "Jane Doe",
		Salary: salary(1000),
		Age:    &age,
		Title:  "Engineer",
	})
	assert.ErrorIs(t, err, data.ErrMutateDisabled)
	_, err = l.EmployeeDelete(ctx, "1")
	assert.ErrorIs(t, err, data.ErrMutateDisabled)
	assert.Empty(t, l.client.deleted)
}

func TestLogicCache(t *testing.T) {
	ctx := context.TODO()

	l, err := newLogicTest(mergeEnvs(map[string]string{
		"LOGIC_CACHE_ENABLED": "true",
	}), roster()...)
	if !assert.Nil(t, err) {
		assert.FailNow(t, "unable to create logic")
	}
	defer l.Close()

	//first read misses, second read hits
	_, err = l.EmployeesRead(ctx)
	assert.Nil(t, err)
	_, err = l.HighestSalary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int32(1), l.client.reads.Load())
	hits, misses := l.counter.Read("employees")
	assert.Equal(t, 1, hits)
	assert.Equal(t, 1, misses)

	//employees read via the roster aren't re-read
	employee, err := l.EmployeeRead(ctx, "3")
	assert.Nil(t, err)
	assert.Equal(t, "Jane", employee.Name)
	assert.Equal(t, int32(1), l.client.reads.Load())

	//deleting invalidates the roster
	_, err = l.EmployeeDelete(ctx, "3")
	assert.Nil(t, err)
	_, err = l.cache.EmployeeRead(ctx, "3")
	assert.ErrorIs(t, err, cache.ErrEmployeeNotCached)
	_, err = l.cache.EmployeesRead(ctx)
	assert.ErrorIs(t, err, cache.ErrEmployeesNotCached)
	_, err = l.EmployeesRead(ctx)
	assert.Nil(t, err)
	assert.Equal(t, int32(2), l.client.reads.Load())
}

// TestLogicUpstream exercises the logic through the real client against
// a fake upstream that rate limits every other request
func TestLogicUpstream(t *testing.T) {
	var hits atomic.Int32

	ctx := context.TODO()
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if hits.Add(1)%2 == 1 {
			writer.WriteHeader(http.StatusTooManyRequests)
			return
		}
		switch {
		case request.Method == http.MethodGet && request.URL.Path == "/":
			_ = json.NewEncoder(writer).Encode(&data.ApiResponse[[]*data.Employee]{Data: roster()})
		case request.Method == http.MethodGet && request.URL.Path == "/1":
			_ = json.NewEncoder(writer).Encode(&data.ApiResponse[*data.Employee]{Data: roster()[0]})
		case request.Method == http.MethodDelete:
			_ = json.NewEncoder(writer).Encode(&data.ApiResponse[bool]{Data: true})
		default:
			writer.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	c := client.NewClient()
	err := c.Configure(mergeEnvs(map[string]string{
		"UPSTREAM_BASE_URL": server.URL + "/",
	}))
	assert.Nil(t, err)
	err = c.Open(ctx)
	assert.Nil(t, err)
	defer c.Close(ctx)
	l := logic.NewLogic(c)
	err = l.Configure(envs)
	assert.Nil(t, err)
	err = l.Open(ctx)
	assert.Nil(t, err)

	highestSalary, err := l.HighestSalary(ctx)
	assert.Nil(t, err)
	assert.Equal(t, 300, highestSalary)
	name, err := l.EmployeeDelete(ctx, "1")
	assert.Nil(t, err)
	assert.Equal(t, "John Doe", name)
	_, err = l.EmployeeRead(ctx, "42")
	assert.ErrorIs(t, err, data.ErrEmployeeNotFound)
}
