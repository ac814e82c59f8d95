package client_test

import (
	"context"
	"encoding/json"
	"encoding/pem"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/client"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"

	jperrors "github.com/JohnPlummer/jp-go-errors"
	"github.com/pkg/errors"
)

const retryDelay = 10 * time.Millisecond

type upstream struct {
	hits    atomic.Int32
	handler func(hit int32, writer http.ResponseWriter, request *http.Request)
	*httptest.Server
}

func newUpstream() *upstream {
	u := &upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		defer GinkgoRecover()

		hit := u.hits.Add(1)
		u.handler(hit, writer, request)
	}))
	return u
}

func writeJson(writer http.ResponseWriter, statusCode int, body string) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	_, _ = io.WriteString(writer, body)
}

func newClient(baseUrl string, envs map[string]string) interface {
	internal.Configurer
	internal.Opener
	client.Client
} {
	c := client.NewClient()
	config := map[string]string{
		"UPSTREAM_BASE_URL":     baseUrl,
		"UPSTREAM_RETRY_DELAY":  "10",
		"UPSTREAM_MAX_ATTEMPTS": "3",
		"UPSTREAM_TIMEOUT":      "5",
	}
	for key, value := range envs {
		config[key] = value
	}
	Expect(c.Configure(config)).To(Succeed())
	Expect(c.Open(context.Background())).To(Succeed())
	return c
}

var _ = Describe("Client", func() {
	var (
		ctx    context.Context
		cancel context.CancelFunc
		u      *upstream
	)

	BeforeEach(func() {
		ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
		u = newUpstream()
	})

	AfterEach(func() {
		cancel()
		u.Close()
	})

	Describe("rate limiting", func() {
		It("returns ErrRateLimited once attempts are exhausted", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, _ *http.Request) {
				writeJson(writer, http.StatusTooManyRequests, `{"message":"Too many requests"}`)
			}
			c := newClient(u.URL, nil)

			start := time.Now()
			employees, err := c.EmployeesRead(ctx)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, data.ErrRateLimited)).To(BeTrue())
			Expect(errors.Is(err, jperrors.ErrRateLimited)).To(BeTrue())
			Expect(employees).To(BeNil())
			Expect(u.hits.Load()).To(Equal(int32(3)))
			Expect(time.Since(start)).To(BeNumerically(">=", 3*retryDelay))
		})

		It("succeeds when upstream recovers before attempts are exhausted", func() {
			u.handler = func(hit int32, writer http.ResponseWriter, _ *http.Request) {
				if hit == 1 {
					writeJson(writer, http.StatusTooManyRequests, "")
					return
				}
				writeJson(writer, http.StatusOK,
					`{"status":"success","data":[{"id":"1","employee_name":"Tiger Nixon","employee_salary":320800,"employee_age":61,"employee_title":"Architect"}]}`)
			}
			c := newClient(u.URL, nil)

			employees, err := c.EmployeesRead(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(employees).To(HaveLen(1))
			Expect(employees[0].Name).To(Equal("Tiger Nixon"))
			Expect(*employees[0].Salary).To(Equal(320800))
			Expect(u.hits.Load()).To(Equal(int32(2)))
		})

		It("stops retrying when the context is cancelled", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, _ *http.Request) {
				writeJson(writer, http.StatusTooManyRequests, "")
			}
			c := newClient(u.URL, map[string]string{"UPSTREAM_RETRY_DELAY": "1000"})

			ctx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			defer cancel()
			_, err := c.EmployeesRead(ctx)
			Expect(err).To(MatchError(context.DeadlineExceeded))
			Expect(u.hits.Load()).To(Equal(int32(1)))
		})
	})

	Describe("errors", func() {
		It("doesn't retry server errors", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, _ *http.Request) {
				writeJson(writer, http.StatusInternalServerError, `{"error":"boom"}`)
			}
			c := newClient(u.URL, nil)

			_, err := c.EmployeeRead(ctx, "1")
			var statusErr *client.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode()).To(Equal(http.StatusInternalServerError))
			Expect(statusErr.Body).To(ContainSubstring("boom"))
			Expect(u.hits.Load()).To(Equal(int32(1)))
		})

		It("returns the status code for not found", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, request *http.Request) {
				Expect(request.URL.Path).To(Equal("/missing"))
				writeJson(writer, http.StatusNotFound, "")
			}
			c := newClient(u.URL, nil)

			_, err := c.EmployeeRead(ctx, "missing")
			var statusErr *client.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())
			Expect(statusErr.StatusCode()).To(Equal(http.StatusNotFound))
		})

		It("returns nil data for an empty body", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(http.StatusOK)
			}
			c := newClient(u.URL, nil)

			employee, err := c.EmployeeRead(ctx, "1")
			Expect(err).NotTo(HaveOccurred())
			Expect(employee).To(BeNil())
		})

		It("returns an error for a malformed body", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, _ *http.Request) {
				writeJson(writer, http.StatusOK, `{"data":`)
			}
			c := newClient(u.URL, nil)

			_, err := c.EmployeesRead(ctx)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("mutations", func() {
		It("posts the employee input", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, request *http.Request) {
				Expect(request.Method).To(Equal(http.MethodPost))
				input := data.EmployeeInput{}
				Expect(json.NewDecoder(request.Body).Decode(&input)).To(Succeed())
				Expect(input.Name).To(Equal("Jane Doe"))
				writeJson(writer, http.StatusOK,
					`{"data":{"id":"42","employee_name":"Jane Doe","employee_salary":1000,"employee_age":30,"employee_title":"Engineer","employee_email":"jane@company.com"}}`)
			}
			c := newClient(u.URL, nil)
			salary, age := 1000, 30

			employee, err := c.EmployeeCreate(ctx, data.EmployeeInput{
				Name:   "Jane Doe",
				Salary: &salary,
				Age:    &age,
				Title:  "Engineer",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(employee.Id).To(Equal("42"))
			Expect(employee.Email).To(Equal("jane@company.com"))
		})

		It("deletes by name", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, request *http.Request) {
				Expect(request.Method).To(Equal(http.MethodDelete))
				body := data.EmployeeDelete{}
				Expect(json.NewDecoder(request.Body).Decode(&body)).To(Succeed())
				Expect(body.Name).To(Equal("Jane Doe"))
				writeJson(writer, http.StatusOK, `{"data":true}`)
			}
			c := newClient(u.URL, nil)

			deleted, err := c.EmployeeDelete(ctx, "Jane Doe")
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(BeTrue())
		})

		It("forwards the correlation id", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, request *http.Request) {
				Expect(request.Header.Get(data.HeaderCorrelationId)).To(Equal("abc"))
				writeJson(writer, http.StatusOK, `{"data":[]}`)
			}
			c := newClient(u.URL, nil)

			employees, err := c.EmployeesRead(internal.CtxWithCorrelationId(ctx, "abc"))
			Expect(err).NotTo(HaveOccurred())
			Expect(employees).To(BeEmpty())
		})
	})

	Describe("circuit breaker", func() {
		It("rejects requests once open", func() {
			u.handler = func(_ int32, writer http.ResponseWriter, _ *http.Request) {
				writeJson(writer, http.StatusInternalServerError, "")
			}
			c := newClient(u.URL, map[string]string{
				"UPSTREAM_BREAKER_ENABLED":  "true",
				"UPSTREAM_BREAKER_FAILURES": "1",
				"UPSTREAM_BREAKER_TIMEOUT":  "30",
			})

			_, err := c.EmployeesRead(ctx)
			var statusErr *client.StatusError
			Expect(errors.As(err, &statusErr)).To(BeTrue())

			_, err = c.EmployeesRead(ctx)
			Expect(err).To(HaveOccurred())
			Expect(errors.As(err, &statusErr)).To(BeFalse())
			Expect(u.hits.Load()).To(Equal(int32(1)))
		})

		It("doesn't count rate limiting as a failure", func() {
			u.handler = func(hit int32, writer http.ResponseWriter, _ *http.Request) {
				if hit < 3 {
					writeJson(writer, http.StatusTooManyRequests, "")
					return
				}
				writeJson(writer, http.StatusOK, `{"data":[]}`)
			}
			c := newClient(u.URL, map[string]string{
				"UPSTREAM_BREAKER_ENABLED":  "true",
				"UPSTREAM_BREAKER_FAILURES": "1",
			})

			_, err := c.EmployeesRead(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(u.hits.Load()).To(Equal(int32(3)))
		})
	})

	Describe("configuration", func() {
		It("rejects invalid values", func() {
			c := client.NewClient()
			Expect(c.Configure(map[string]string{"UPSTREAM_MAX_ATTEMPTS": "0"})).NotTo(Succeed())
			Expect(c.Configure(map[string]string{"UPSTREAM_RETRY_DELAY": "soon"})).NotTo(Succeed())
		})

		It("rejects a client certificate without a key", func() {
			c := client.NewClient()
			Expect(c.Configure(map[string]string{"SSL_CRT_FILE": "client.crt"})).To(Succeed())
			Expect(c.Open(context.Background())).NotTo(Succeed())
		})
	})

	Describe("tls", func() {
		It("verifies upstream with the configured ca file", func() {
			server := httptest.NewTLSServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writeJson(writer, http.StatusOK, `{"status":"success","data":[]}`)
			}))
			defer server.Close()

			caFile := filepath.Join(GinkgoT().TempDir(), "ca.pem")
			bytes := pem.EncodeToMemory(&pem.Block{
				Type:  "CERTIFICATE",
				Bytes: server.Certificate().Raw,
			})
			Expect(os.WriteFile(caFile, bytes, 0600)).To(Succeed())

			c := newClient(server.URL, map[string]string{"SSL_CA_FILE": caFile})
			employees, err := c.EmployeesRead(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(employees).To(BeEmpty())
		})
	})
})
