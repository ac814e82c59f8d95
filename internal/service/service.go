package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/cache"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/logic"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/rs/cors"
)

const (
	defaultPort            string        = "8080"
	defaultShutdownTimeout time.Duration = 10 * time.Second
)

var (
	Version   string
	GitCommit string
	GitBranch string
)

func init() {
	if Version = data.Version; Version == "" {
		Version = "<no_version_provided>"
	}
	if GitCommit = data.GitCommit; GitCommit == "" {
		GitCommit = "<no_git_commit>"
	}
	if GitBranch = data.GitBranch; GitBranch == "" {
		GitBranch = "<no_git_branch>"
	}
}

type service struct {
	sync.RWMutex
	sync.WaitGroup
	config struct {
		address          string
		port             string
		shutdownTimeout  time.Duration
		allowedOrigins   []string
		allowedMethods   []string
		allowedHeaders   []string
		allowCredentials bool
		corsDisabled     bool
		corsDebug        bool
		timersEnabled    bool
	}
	ctx     context.Context
	cancel  context.CancelFunc
	router  *mux.Router
	server  *http.Server
	cache   internal.Clearer
	counter utilities.Counter
	timers  utilities.Timers
	utilities.Logger
	logic.Logic
}

func NewService(parameters ...any) interface {
	internal.Configurer
	internal.Opener
} {
	router := mux.NewRouter()
	s := &service{
		router: router,
		server: &http.Server{
			Handler: router,
		},
	}
	s.config.port = defaultPort
	s.config.shutdownTimeout = defaultShutdownTimeout
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case interface {
			cache.Cache
			internal.Clearer
		}:
			s.cache = p
		case logic.Logic:
			s.Logic = p
		case utilities.Counter:
			s.counter = p
		case utilities.Timers:
			s.timers = p
		case utilities.Logger:
			s.Logger = p
		}
	}
	if s.Logger == nil {
		s.Logger = utilities.NewLogger()
	}
	if s.counter == nil {
		s.counter = utilities.NewCounter()
	}
	if s.timers == nil {
		s.timers = utilities.NewTimers()
	}
	return s
}

func (s *service) launchServer() error {
	started := make(chan struct{})
	chErr := make(chan error, 1)
	s.Add(1)
	go func() {
		defer s.WaitGroup.Done()
		defer close(chErr)

		if !s.config.corsDisabled {
			s.server.Handler = cors.New(cors.Options{
				AllowedOrigins:   s.config.allowedOrigins,
				AllowCredentials: s.config.allowCredentials,
				AllowedMethods:   s.config.allowedMethods,
				AllowedHeaders:   s.config.allowedHeaders,
				Debug:            s.config.corsDebug,
			}).Handler(s.router)
		}
		close(started)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			chErr <- err
		}
	}()
	<-started
	select {
	case err := <-chErr:
		//KIM: this catches the server failing quickly after start (e.g. the
		// port is already in use)
		if err != nil {
			return err
		}
		return nil
	case <-time.After(time.Second):
		address := net.JoinHostPort(s.config.address, s.config.port)
		s.Info(s.ctx, "started server: %s", address)
		return nil
	}
}

// handleResponse writes the first item as json, or no content if
// there are no items; errors are mapped to a status code
func (s *service) handleResponse(ctx context.Context, writer http.ResponseWriter, err error, items ...any) {
	var bytes []byte

	statusCode := http.StatusOK
	if err == nil {
		switch {
		default:
			bytes, err = json.Marshal(items[0])
		case len(items) <= 0:
			writer.WriteHeader(http.StatusNoContent)
			return
		}
	}
	if err != nil {
		var message string

		statusCode, message = errorToStatus(err)
		switch {
		case statusCode >= http.StatusInternalServerError:
			s.Error(ctx, "error while handling request: %s", err)
		default:
			s.Debug(ctx, "request failed (%d): %s", statusCode, err)
		}
		bytes, _ = json.Marshal(&data.Error{Error: message})
	}
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	if _, err := writer.Write(bytes); err != nil {
		s.Error(ctx, "error handling response: %s", err)
	}
}

// startTimer records how long an endpoint takes if timers are enabled,
// the returned function must be called when the endpoint is done
func (s *service) startTimer(ctx context.Context, group string) func() {
	if !s.config.timersEnabled {
		return func() {}
	}
	index := s.timers.Start(group)
	return func() {
		elapsedTime := s.timers.Stop(group, index)
		s.Trace(ctx, "%s took %v", group, time.Duration(elapsedTime))
	}
}

func (s *service) endpointDefault() func(http.ResponseWriter, *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		fmt.Fprintf(writer,
			"go-employee-proxy\n"+
				"Version: \"%s\"\n"+
				"Git Commit: \"%s\"\n"+
				"Git Branch: \"%s\"\n",
			Version, GitCommit, GitBranch)
	}
}

func (s *service) endpointEmployeesRead(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employees_read")()

	employees, err := s.EmployeesRead(ctx)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, employees)
	s.Trace(ctx, "executed employees_read: %d", len(employees))
}

func (s *service) endpointEmployeesSearch(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employees_search")()

	searchString := mux.Vars(request)[data.PathSearchString]
	employees, err := s.EmployeesSearch(ctx, searchString)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, employees)
	s.Trace(ctx, "executed employees_search: %s", searchString)
}

func (s *service) endpointEmployeeRead(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_read")()

	id := mux.Vars(request)[data.PathId]
	employee, err := s.EmployeeRead(ctx, id)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, employee)
	s.Trace(ctx, "executed employee_read: %s", id)
}

func (s *service) endpointHighestSalary(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "highest_salary")()

	highestSalary, err := s.HighestSalary(ctx)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, highestSalary)
	s.Trace(ctx, "executed highest_salary: %d", highestSalary)
}

func (s *service) endpointTopTenEarners(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "top_ten_earners")()

	names, err := s.TopTenEarners(ctx)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, names)
	s.Trace(ctx, "executed top_ten_earners")
}

func (s *service) endpointEmployeeCreate(writer http.ResponseWriter, request *http.Request) {
	var input data.EmployeeInput

	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_create")()

	if err := decodeRequest(request, &input); err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	employee, err := s.EmployeeCreate(ctx, input)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, employee)
	s.Trace(ctx, "executed employee_create: %s", employee.Id)
}

func (s *service) endpointEmployeeDelete(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	defer s.startTimer(ctx, "employee_delete")()

	id := mux.Vars(request)[data.PathId]
	name, err := s.EmployeeDelete(ctx, id)
	if err != nil {
		s.handleResponse(ctx, writer, err)
		return
	}
	s.handleResponse(ctx, writer, nil, name)
	s.Trace(ctx, "executed employee_delete: %s", id)
}

func (s *service) endpointCacheClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.handleResponse(ctx, writer, err)
			return
		}
		s.Trace(ctx, "executed cache_clear")
	}
	s.handleResponse(ctx, writer, nil)
}

func (s *service) endpointCacheCountersRead(writer http.ResponseWriter, request *http.Request) {
	s.handleResponse(internal.CtxFromRequest(request), writer, nil, s.counter.ReadAll())
}

func (s *service) endpointCacheCountersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	s.counter.Reset()
	s.handleResponse(ctx, writer, nil)
	s.Trace(ctx, "executed cache_counters_clear")
}

func (s *service) endpointTimersRead(writer http.ResponseWriter, request *http.Request) {
	s.handleResponse(internal.CtxFromRequest(request), writer, nil, s.timers.ReadAll())
}

func (s *service) endpointTimersClear(writer http.ResponseWriter, request *http.Request) {
	ctx := internal.CtxFromRequest(request)
	s.timers.Clear()
	s.handleResponse(ctx, writer, nil)
	s.Trace(ctx, "executed timers_clear")
}

func (s *service) buildRoutes() {
	s.router.HandleFunc("/", s.endpointDefault())
	s.router.HandleFunc(data.RouteEmployeesSearch, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesSearch(w, r)
		}
	})
	s.router.HandleFunc(data.RouteEmployeesHighestSalary, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointHighestSalary(w, r)
		}
	})
	s.router.HandleFunc(data.RouteEmployeesTopTen, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointTopTenEarners(w, r)
		}
	})
	s.router.HandleFunc(data.RouteEmployees, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeesRead(w, r)
		case http.MethodPost:
			s.endpointEmployeeCreate(w, r)
		}
	})
	s.router.HandleFunc(data.RouteEmployeesId, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointEmployeeRead(w, r)
		case http.MethodDelete:
			s.endpointEmployeeDelete(w, r)
		}
	})
	s.router.HandleFunc(data.RouteCacheCounters, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointCacheCountersRead(w, r)
		case http.MethodDelete:
			s.endpointCacheCountersClear(w, r)
		}
	})
	s.router.HandleFunc(data.RouteCache, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodDelete:
			s.endpointCacheClear(w, r)
		}
	})
	s.router.HandleFunc(data.RouteTimers, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		case http.MethodGet:
			s.endpointTimersRead(w, r)
		case http.MethodDelete:
			s.endpointTimersClear(w, r)
		}
	})
}

func (s *service) Configure(envs map[string]string) error {
	if address, ok := envs["SERVICE_ADDRESS"]; ok {
		s.config.address = address
	}
	if port, ok := envs["SERVICE_PORT"]; ok && port != "" {
		s.config.port = port
	}
	if shutdownTimeoutString, ok := envs["SERVICE_SHUTDOWN_TIMEOUT"]; ok {
		if shutdownTimeoutInt, err := strconv.Atoi(shutdownTimeoutString); err == nil {
			if timeout := time.Duration(shutdownTimeoutInt) * time.Second; timeout > 0 {
				s.config.shutdownTimeout = timeout
			}
		}
	}
	if allowCredentialsString, ok := envs["SERVICE_CORS_ALLOW_CREDENTIALS"]; ok {
		if allowCredentials, err := strconv.ParseBool(allowCredentialsString); err == nil {
			s.config.allowCredentials = allowCredentials
		}
	}
	if allowedOrigins, ok := envs["SERVICE_CORS_ALLOWED_ORIGINS"]; ok && allowedOrigins != "" {
		s.config.allowedOrigins = strings.Split(allowedOrigins, ",")
	}
	if allowedMethods, ok := envs["SERVICE_CORS_ALLOWED_METHODS"]; ok && allowedMethods != "" {
		s.config.allowedMethods = strings.Split(allowedMethods, ",")
	}
	if allowedHeaders, ok := envs["SERVICE_CORS_ALLOWED_HEADERS"]; ok && allowedHeaders != "" {
		s.config.allowedHeaders = strings.Split(allowedHeaders, ",")
	}
	if corsDisabledString, ok := envs["SERVICE_CORS_DISABLED"]; ok {
		if corsDisabled, err := strconv.ParseBool(corsDisabledString); err == nil {
			s.config.corsDisabled = corsDisabled
		}
	}
	if corsDebug, ok := envs["SERVICE_CORS_DEBUG"]; ok {
		if corsDebug, err := strconv.ParseBool(corsDebug); err == nil {
			s.config.corsDebug = corsDebug
		}
	}
	if timersEnabled := envs["SERVICE_TIMERS_ENABLED"]; timersEnabled != "" {
		s.config.timersEnabled, _ = strconv.ParseBool(timersEnabled)
	}
	return nil
}

func (s *service) Open(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	if s.Logic == nil {
		return errors.New("service: logic not provided")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.server.Addr = net.JoinHostPort(s.config.address, s.config.port)
	s.buildRoutes()
	return s.launchServer()
}

func (s *service) Close(ctx context.Context) error {
	s.Lock()
	defer s.Unlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.shutdownTimeout)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.Error(ctx, "error while shutting down the server: %s", err)
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.Wait()
	return nil
}
