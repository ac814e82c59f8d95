package cache

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

	"github.com/cenkalti/backoff/v5"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	keyEmployeePrefix string = "employee:"
	keyEmployees      string = "employees"
)

type redisCache struct {
	redisClient *redis.Client
	config      struct {
		address         string
		port            string
		password        string
		database        int
		timeout         time.Duration
		ttl             time.Duration
		connectAttempts uint
		connectInterval time.Duration
	}
	utilities.Logger
}

func NewRedis(parameters ...any) interface {
	internal.Configurer
	internal.Opener
	internal.Clearer
	Cache
} {
	c := &redisCache{}
	c.config.address = "localhost"
	c.config.port = "6379"
	c.config.timeout = 10 * time.Second
	c.config.ttl = defaultTTL
	c.config.connectAttempts = 3
	c.config.connectInterval = time.Second
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

func employeeKey(id string) string {
	return keyEmployeePrefix + id
}

func (c *redisCache) Configure(envs map[string]string) error {
	if redisAddress, ok := envs["REDIS_ADDRESS"]; ok && redisAddress != "" {
		c.config.address = redisAddress
	}
	if redisPort, ok := envs["REDIS_PORT"]; ok && redisPort != "" {
		c.config.port = redisPort
	}
	if redisPassword, ok := envs["REDIS_PASSWORD"]; ok {
		c.config.password = redisPassword
	}
	if redisDatabase, ok := envs["REDIS_DATABASE"]; ok && redisDatabase != "" {
		i, err := strconv.Atoi(redisDatabase)
		if err != nil {
			return errors.Wrap(err, "REDIS_DATABASE")
		}
		c.config.database = i
	}
	if err := parseSeconds(envs, "REDIS_TIMEOUT", &c.config.timeout); err != nil {
		return err
	}
	if err := parseSeconds(envs, "CACHE_TTL", &c.config.ttl); err != nil {
		return err
	}
	if connectAttempts, ok := envs["REDIS_CONNECT_ATTEMPTS"]; ok && connectAttempts != "" {
		i, err := strconv.ParseUint(connectAttempts, 10, 32)
		if err != nil {
			return errors.Wrap(err, "REDIS_CONNECT_ATTEMPTS")
		}
		c.config.connectAttempts = uint(i)
	}
	if err := parseSeconds(envs, "REDIS_CONNECT_INTERVAL", &c.config.connectInterval); err != nil {
		return err
	}
	return nil
}

// Open connects to redis, the ping is retried with a constant backoff
// since redis may still be starting up
func (c *redisCache) Open(ctx context.Context) error {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(c.config.address, c.config.port),
		Password: c.config.password,
		DB:       c.config.database,
	})
	attempt := 0
	if _, err := backoff.Retry(ctx, func() (string, error) {
		attempt++
		ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
		defer cancel()
		pong, err := redisClient.Ping(ctx).Result()
		if err != nil {
			c.Debug(ctx, "redis: ping attempt %d failed: %s", attempt, err)
		}
		return pong, err
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(c.config.connectInterval)),
		backoff.WithMaxTries(c.config.connectAttempts),
	); err != nil {
		_ = redisClient.Close()
		return errors.Wrap(err, "unable to connect to redis")
	}
	c.redisClient = redisClient
	return nil
}

func (c *redisCache) Close(ctx context.Context) error {
	if c.redisClient == nil {
		return nil
	}
	if err := c.redisClient.Close(); err != nil {
		c.Error(ctx, "error while shutting down redis client: %s", err)
	}
	return nil
}

func (c *redisCache) Clear(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()

	keys := []string{keyEmployees}
	iter := c.redisClient.Scan(ctx, 0, keyEmployeePrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	return c.redisClient.Del(ctx, keys...).Err()
}

func (c *redisCache) EmployeeRead(ctx context.Context, id string) (*data.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()

	value, err := c.redisClient.Get(ctx, employeeKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeeNotCached
		}
		return nil, err
	}
	employee := &data.Employee{}
	if err := employee.UnmarshalBinary(value); err != nil {
		return nil, err
	}
	return employee, nil
}

func (c *redisCache) EmployeesRead(ctx context.Context) ([]*data.Employee, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()

	value, err := c.redisClient.Get(ctx, keyEmployees).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEmployeesNotCached
		}
		return nil, err
	}
	employees := data.Employees{}
	if err := employees.UnmarshalBinary(value); err != nil {
		return nil, err
	}
	return employees, nil
}

func (c *redisCache) EmployeesWrite(ctx context.Context, roster bool, employees ...*data.Employee) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()

	pipe := c.redisClient.TxPipeline()
	written := make(data.Employees, 0, len(employees))
	for _, employee := range employees {
		if employee == nil {
			continue
		}
		pipe.Set(ctx, employeeKey(employee.Id), employee, c.config.ttl)
		written = append(written, employee)
	}
	if roster {
		pipe.Set(ctx, keyEmployees, &written, c.config.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *redisCache) EmployeesDelete(ctx context.Context, ids ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.timeout)
	defer cancel()

	keys := make([]string, 0, len(ids)+1)
	keys = append(keys, keyEmployees)
	for _, id := range ids {
		keys = append(keys, employeeKey(id))
	}
	return c.redisClient.Del(ctx, keys...).Err()
}
