package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/antonio-alexander/go-employee-proxy/internal"
	"github.com/antonio-alexander/go-employee-proxy/internal/client"
	"github.com/antonio-alexander/go-employee-proxy/internal/data"
	"github.com/antonio-alexander/go-employee-proxy/internal/logic"
	"github.com/antonio-alexander/go-employee-proxy/internal/utilities"

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

func optionalInt(envs map[string]string, key string) (*int, error) {
	s, ok := envs[key]
	if !ok || s == "" {
		return nil, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.Wrap(err, key)
	}
	return &i, nil
}

func printJSON(item any) error {
	bytes, err := json.MarshalIndent(item, "", " ")
	if err != nil {
		return err
	}
	fmt.Println(string(bytes))
	return nil
}

func Main(args []string, envs map[string]string, osSignal chan os.Signal) error {
	fmt.Printf("client: go-employee-proxy v%s (%s) built from: %s\n",
		Version, GitCommit, GitBranch)

	// create logger
	logger := utilities.NewLogger()
	_ = logger.Configure(envs)

	//create client
	client := client.NewClient(logger)
	if err := client.Configure(envs); err != nil {
		return err
	}
	if err := client.Open(context.Background()); err != nil {
		return err
	}
	defer func() {
		if err := client.Close(context.Background()); err != nil {
			fmt.Printf("error while closing client: %s\n", err)
		}
	}()

	//create logic
	logic := logic.NewLogic(client, logger)
	if err := logic.Configure(envs); err != nil {
		return err
	}
	if err := logic.Open(context.Background()); err != nil {
		return err
	}

	//KIM: a signal cancels the command (and any retry backoff)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-ctx.Done():
		case <-osSignal:
			cancel()
		}
	}()
	ctx = internal.CtxWithCorrelationId(ctx, internal.GenerateId())

	// execute command
	switch command := envs["COMMAND"]; command {
	default:
		return errors.Errorf("unsupported command: %s", command)
	case "employees_read":
		employees, err := logic.EmployeesRead(ctx)
		if err != nil {
			return err
		}
		return printJSON(employees)
	case "employees_search":
		employees, err := logic.EmployeesSearch(ctx, envs["SEARCH"])
		if err != nil {
			return err
		}
		return printJSON(employees)
	case "employee_read":
		employee, err := logic.EmployeeRead(ctx, envs["EMPLOYEE_ID"])
		if err != nil {
			return err
		}
		return printJSON(employee)
	case "highest_salary":
		highestSalary, err := logic.HighestSalary(ctx)
		if err != nil {
			return err
		}
		return printJSON(highestSalary)
	case "top_ten":
		names, err := logic.TopTenEarners(ctx)
		if err != nil {
			return err
		}
		return printJSON(names)
	case "employee_create":
		salary, err := optionalInt(envs, "EMPLOYEE_SALARY")
		if err != nil {
			return err
		}
		age, err := optionalInt(envs, "EMPLOYEE_AGE")
		if err != nil {
			return err
		}
		employee, err := logic.EmployeeCreate(ctx, data.EmployeeInput{
			Name:   envs["EMPLOYEE_NAME"],
			Salary: salary,
			Age:    age,
			Title:  envs["EMPLOYEE_TITLE"],
		})
		if err != nil {
			return err
		}
		return printJSON(employee)
	case "employee_delete":
		name, err := logic.EmployeeDelete(ctx, envs["EMPLOYEE_ID"])
		if err != nil {
			return err
		}
		return printJSON(name)
	}
}
