package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/cache"
	"github.com/antonio-alexander/go-employee-proxy/internal/client"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/logic"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	"github.com/antonio-alexander/go-stash/memory"
	"github.com/antonio-alexander/go-stash/redis"

	"github.com/pkg/errors"
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

func main() {
	args := os.Args[1:]
	envs, err := internal.Envs(os.Environ())
	if err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
	osSignal := make(chan os.Signal, 1)
	signal.Notify(osSignal, syscall.SIGINT, syscall.SIGTERM)
	if err := Main(args, envs, osSignal); err != nil {
		os.Stderr.WriteString(err.Error())
		os.Exit(1)
	}
}

func createCache(envs map[string]string, parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	cache.Cache
} {
	switch envs["CACHE_TYPE"] {
	default:
		return nil
	case "memory":
		return cache.NewMemory(parameters...)
	case "redis":
		return cache.NewRedis(parameters...)
	case "stash-memory":
		stash := memory.New()
		parameters = append(parameters, stash)
		return cache.NewStash(parameters...)
	case "stash-redis":
		stash := redis.New()
		parameters = append(parameters, stash)
		return cache.NewStash(parameters...)
	}
}

// scenarioRateLimit has several readers hammer upstream to provoke
// rate limiting, then reports how many reads succeeded, were rate
// limited or failed
func scenarioRateLimit(ctx context.Context, envs map[string]string, logger utilities.Logger,
	counter utilities.Counter, l logic.Logic) error {
	const correlationId string = "scenario_rate_limit"

	var readInterval time.Duration = 100 * time.Millisecond
	var scenarioDuration time.Duration = 10 * time.Second
	var succeeded, rateLimited, failed atomic.Int64
	var wg sync.WaitGroup

	nClients := 5
	if s := envs["N_CLIENTS"]; s != "" {
		i, err := strconv.Atoi(s)
		if err != nil {
			return errors.Wrap(err, "N_CLIENTS")
		}
		nClients = i
	}
	if s := envs["SCENARIO_READ_INTERVAL"]; s != "" {
		i, _ := strconv.Atoi(s)
		readInterval = time.Duration(i) * time.Millisecond
	}
	if s := envs["SCENARIO_DURATION"]; s != "" {
		i, _ := strconv.Atoi(s)
		scenarioDuration = time.Duration(i) * time.Second
	}
	if nClients < 1 {
		return errors.New("at least one client is required")
	}

	//generate start/stop channels
	start, stop := make(chan struct{}), make(chan struct{})

	//create reader go routines
	for i := 0; i < nClients; i++ {
		wg.Add(1)
		go func(clientNumber int) {
			defer wg.Done()

			ctx := internal.CtxWithCorrelationId(ctx,
				fmt.Sprintf("%s_%d", correlationId, clientNumber))
			readEmployeesFx := func() {
				_, err := l.EmployeesRead(ctx)
				switch {
				case err == nil:
					succeeded.Add(1)
				case errors.Is(err, data.ErrRateLimited):
					rateLimited.Add(1)
				default:
					failed.Add(1)
					logger.Error(ctx, "error while reading employees: %s", err)
				}
			}
			tRead := time.NewTicker(readInterval)
			defer tRead.Stop()
			<-start
			for {
				select {
				case <-stop:
					return
				case <-ctx.Done():
					return
				case <-tRead.C:
					readEmployeesFx()
				}
			}
		}(i)
	}

	//start the go routines
	counter.Reset()
	close(start)

	//allow go routines to run
	select {
	case <-time.After(scenarioDuration):
	case <-ctx.Done():
	}

	//stop go routines
	close(stop)
	wg.Wait()

	ctx = internal.CtxWithCorrelationId(ctx, correlationId)
	logger.Info(ctx, "reads succeeded: %d, rate limited: %d, failed: %d",
		succeeded.Load(), rateLimited.Load(), failed.Load())
	if hit, miss := counter.Read("employees"); hit >= 0 {
		logger.Info(ctx, "cache hit miss ratio (%d/%d): %0.2f%%",
			hit, hit+miss, utilities.HitRatio(hit, miss))
	}
	return nil
}

func Main(args []string, envs map[string]string, osSignal chan os.Signal) error {
	var wg sync.WaitGroup

	//create context
	ctx, cancel := internal.LaunchContext(&wg, osSignal)
	defer cancel()

	// create utilities
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)
	counter := utilities.NewCounter()

	//print version info
	logger.Info(ctx, "scenarios: go-employee-proxy v%s (%s) built from: %s",
		Version, GitCommit, GitBranch)

	//create client
	client := client.NewClient(logger)
	if err := client.Configure(envs); err != nil {
		return err
	}
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			logger.Error(ctx, "error while closing client: %s", err)
		}
	}()

	//create cache
	parameters := []any{client, logger, counter}
	cache := createCache(envs, logger)
	if cache != nil {
		if err := cache.Configure(envs); err != nil {
			return err
		}
		if err := cache.Open(ctx); err != nil {
			return err
		}
		defer func() {
			if err := cache.Close(context.Background()); err != nil {
				logger.Error(ctx, "error while closing cache: %s", err)
			}
		}()
		parameters = append(parameters, cache)
	}

	//create logic
	logic := logic.NewLogic(parameters...)
	if err := logic.Configure(envs); err != nil {
		return err
	}
	if err := logic.Open(ctx); err != nil {
		return err
	}

	// execute scenario
	switch scenario := envs["SCENARIO"]; scenario {
	default:
		return errors.Errorf("unsupported scenario: %s", scenario)
	case "rate_limit":
		logger.Info(ctx, "executing %s scenario", scenario)
		if err := scenarioRateLimit(ctx, envs, logger, counter, logic); err != nil {
			logger.Error(ctx, "error while executing %s scenario: %s", scenario, err)
		}
	}
	cancel()
	wg.Wait()
	return nil
}
