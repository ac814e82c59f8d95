package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/pkg/errors"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
)

const (
	defaultBaseUrl         string        = "http://localhost:8112/api/v1/employee"
	defaultTimeout         time.Duration = 10 * time.Second
	defaultMaxAttempts     int           = 3
	defaultRetryDelay      time.Duration = time.Second
	defaultBreakerTimeout  time.Duration = 30 * time.Second
	defaultBreakerFailures uint32        = 5
)

// Client talks to the upstream employee api, requests that are rate
// limited (429) are retried with a linear backoff
type Client interface {
	EmployeesRead(ctx context.Context) ([]*data.Employee, error)
	EmployeeRead(ctx context.Context, id string) (*data.Employee, error)
	EmployeeCreate(ctx context.Context, input data.EmployeeInput) (*data.Employee, error)
	EmployeeDelete(ctx context.Context, name string) (bool, error)
}

// StatusError is returned when upstream responds with an unexpected
// status code
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("upstream responded with status code: %d", e.Code)
	}
	return fmt.Sprintf("upstream responded with status code: %d; %s", e.Code, e.Body)
}

func (e *StatusError) StatusCode() int {
	return e.Code
}

type response struct {
	statusCode int
	body       []byte
}

type client struct {
	sync.RWMutex
	config struct {
		baseUrl         string
		timeout         time.Duration
		maxAttempts     int
		retryDelay      time.Duration
		breakerEnabled  bool
		breakerTimeout  time.Duration
		breakerFailures uint32
		sslCaFile       string
		sslCrtFile      string
		sslKeyFile      string
	}
	breaker *gobreaker.CircuitBreaker[*response]
	utilities.Logger
	*http.Client
}

func NewClient(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	Client
} {
	c := &client{Client: &http.Client{}}
	c.config.baseUrl = defaultBaseUrl
	c.config.timeout = defaultTimeout
	c.config.maxAttempts = defaultMaxAttempts
	c.config.retryDelay = defaultRetryDelay
	c.config.breakerTimeout = defaultBreakerTimeout
	c.config.breakerFailures = defaultBreakerFailures
	for _, parameter := range parameters {
		switch p := parameter.(type) {
		case utilities.Logger:
			c.Logger = p
		}
	}
	if c.Logger == nil {
		c.Logger = utilities.NewLogger()
	}
	return c
}

// linearBackoff waits base, 2*base, 3*base... between attempts
func linearBackoff(base time.Duration) retry.Backoff {
	var attempt int64

	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return time.Duration(attempt) * base, false
	})
}

func (c *client) Configure(envs map[string]string) error {
	c.Lock()
	defer c.Unlock()

	if baseUrl, ok := envs["UPSTREAM_BASE_URL"]; ok && baseUrl != "" {
		c.config.baseUrl = strings.TrimSuffix(baseUrl, "/")
	}
	if timeout, ok := envs["UPSTREAM_TIMEOUT"]; ok && timeout != "" {
		i, err := strconv.ParseInt(timeout, 10, 64)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_TIMEOUT")
		}
		c.config.timeout = time.Duration(i) * time.Second
	}
	if maxAttempts, ok := envs["UPSTREAM_MAX_ATTEMPTS"]; ok && maxAttempts != "" {
		i, err := strconv.Atoi(maxAttempts)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_MAX_ATTEMPTS")
		}
		if i < 1 {
			return errors.Errorf("UPSTREAM_MAX_ATTEMPTS must be at least 1: %d", i)
		}
		c.config.maxAttempts = i
	}
	if retryDelay, ok := envs["UPSTREAM_RETRY_DELAY"]; ok && retryDelay != "" {
		i, err := strconv.ParseInt(retryDelay, 10, 64)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_RETRY_DELAY")
		}
		c.config.retryDelay = time.Duration(i) * time.Millisecond
	}
	if breakerEnabled, ok := envs["UPSTREAM_BREAKER_ENABLED"]; ok {
		c.config.breakerEnabled, _ = strconv.ParseBool(breakerEnabled)
	}
	if breakerTimeout, ok := envs["UPSTREAM_BREAKER_TIMEOUT"]; ok && breakerTimeout != "" {
		i, err := strconv.ParseInt(breakerTimeout, 10, 64)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_BREAKER_TIMEOUT")
		}
		c.config.breakerTimeout = time.Duration(i) * time.Second
	}
	if breakerFailures, ok := envs["UPSTREAM_BREAKER_FAILURES"]; ok && breakerFailures != "" {
		i, err := strconv.ParseUint(breakerFailures, 10, 32)
		if err != nil {
			return errors.Wrap(err, "UPSTREAM_BREAKER_FAILURES")
		}
		c.config.breakerFailures = uint32(i)
	}
	if sslCaFile, ok := envs["SSL_CA_FILE"]; ok {
		c.config.sslCaFile = sslCaFile
	}
	if sslKeyFile, ok := envs["SSL_KEY_FILE"]; ok {
		c.config.sslKeyFile = sslKeyFile
	}
	if sslCrtFile, ok := envs["SSL_CRT_FILE"]; ok {
		c.config.sslCrtFile = sslCrtFile
	}
	return nil
}

func (c *client) Open(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	if _, err := url.Parse(c.config.baseUrl); err != nil {
		return errors.Wrapf(err, "invalid upstream base url: %s", c.config.baseUrl)
	}
	c.Client.Timeout = c.config.timeout
	transport, err := newTransport(c.config.sslCaFile, c.config.sslCrtFile,
		c.config.sslKeyFile)
	if err != nil {
		return err
	}
	c.Client.Transport = transport
	if c.config.breakerEnabled {
		failures := c.config.breakerFailures
		c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
			Name:        "upstream",
			MaxRequests: 1,
			Timeout:     c.config.breakerTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= failures
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				c.Info(ctx, "client: circuit breaker (%s) changed from %s to %s",
					name, from, to)
			},
		})
		c.Debug(ctx, "client: circuit breaker enabled (failures: %d, timeout: %s)",
			failures, c.config.breakerTimeout)
	}
	c.Debug(ctx, "client: upstream %s (attempts: %d, delay: %s)",
		c.config.baseUrl, c.config.maxAttempts, c.config.retryDelay)
	return nil
}

func (c *client) Close(ctx context.Context) error {
	c.Lock()
	defer c.Unlock()

	c.Client.CloseIdleConnections()
	c.breaker = nil
	return nil
}

func (c *client) doRequest(ctx context.Context, uri, method string, item any) (*response, error) {
	var body io.Reader

	if item != nil {
		byts, err := json.Marshal(item)
		if err != nil {
			return nil, err
		}
		body = bytes.NewBuffer(byts)
	}
	request, err := http.NewRequestWithContext(ctx, method, uri, body)
	if err != nil {
		return nil, err
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	if correlationId := internal.CorrelationIdFromCtx(ctx); correlationId != "" {
		request.Header.Set(data.HeaderCorrelationId, correlationId)
	}
	resp, err := c.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	byts, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	r := &response{statusCode: resp.StatusCode, body: byts}
	if r.statusCode >= http.StatusInternalServerError {
		//KIM: returned as an error so the breaker counts it
		return r, &StatusError{Code: r.statusCode, Body: string(byts)}
	}
	return r, nil
}

// attempt executes a single request, through the circuit breaker if
// it's enabled
func (c *client) attempt(ctx context.Context, uri, method string, item any) (*response, error) {
	c.RLock()
	breaker := c.breaker
	c.RUnlock()

	if breaker == nil {
		return c.doRequest(ctx, uri, method, item)
	}
	r, err := breaker.Execute(func() (*response, error) {
		return c.doRequest(ctx, uri, method, item)
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState):
		c.Error(ctx, "client: circuit breaker open, request rejected")
		return nil, jperrors.NewCircuitBreakerError("request rejected",
			method+" "+uri, "open", jperrors.WithCause(err))
	case errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, jperrors.NewCircuitBreakerError("too many requests in half-open state",
			method+" "+uri, "half-open", jperrors.WithCause(err))
	}
	return r, err
}

// execute performs a request against upstream and unwraps the data
// envelope, a 429 is retried until attempts are exhausted, at which
// point data.ErrRateLimited is returned
func execute[T any](ctx context.Context, c *client, method, path string, item any) (T, error) {
	var result T
	var attempts int

	c.RLock()
	uri := c.config.baseUrl + path
	maxAttempts, retryDelay := c.config.maxAttempts, c.config.retryDelay
	c.RUnlock()

	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), linearBackoff(retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		r, err := c.attempt(ctx, uri, method, item)
		if err != nil {
			return err
		}
		switch {
		case r.statusCode == http.StatusTooManyRequests:
			c.Info(ctx, "client: rate limited by upstream (%s %s), attempt %d of %d",
				method, uri, attempts, maxAttempts)
			return retry.RetryableError(data.ErrRateLimited)
		case r.statusCode < http.StatusOK || r.statusCode >= http.StatusMultipleChoices:
			return &StatusError{Code: r.statusCode, Body: string(r.body)}
		}
		if len(bytes.TrimSpace(r.body)) == 0 {
			return nil
		}
		envelope := &data.ApiResponse[T]{}
		if err := json.Unmarshal(r.body, envelope); err != nil {
			return errors.Wrap(err, "unable to decode upstream response")
		}
		result = envelope.Data
		return nil
	})
	if err != nil {
		if errors.Is(err, data.ErrRateLimited) {
			c.Error(ctx, "client: rate limit retries exhausted after %d attempts (%s %s)",
				attempts, method, uri)
		}
		var zero T
		return zero, err
	}
	return result, nil
}

func (c *client) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	return execute[[]*data.Employee](ctx, c, http.MethodGet, "", nil)
}

func (c *client) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	return execute[*data.Employee](ctx, c, http.MethodGet, "/"+url.PathEscape(id), nil)
}

func (c *client) EmployeeCreate(ctx context.Context, input data.EmployeeInput) (*data.Employee, error) {
	return execute[*data.Employee](ctx, c, http.MethodPost, "", input)
}

func (c *client) EmployeeDelete(ctx context.Context, name string) (bool, error) {
	return execute[bool](ctx, c, http.MethodDelete, "", &data.EmployeeDelete{Name: name})
}
