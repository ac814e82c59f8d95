package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

func GenerateId() string {
	return uuid.Must(uuid.NewRandom()).String()
}

// DoRequest executes a request and returns the status code, on success
// the body is unmarshalled into v (if provided), otherwise an error
// containing the body is returned alongside the status code
func DoRequest(client *http.Client, uri, method string, input interface{}, v ...interface{}) (int, error) {
	var byts []byte
	var err error

	switch v := input.(type) {
	default:
		if byts, err = json.Marshal(input); err != nil {
			return -1, err
		}
	case nil:
	case url.Values:
		uri += "?" + v.Encode()
	}
	request, err := http.NewRequest(method, uri, bytes.NewBuffer(byts))
	if err != nil {
		return -1, err
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := client.Do(request)
	if err != nil {
		return -1, err
	}
	defer response.Body.Close()
	byts, err = io.ReadAll(response.Body)
	if err != nil {
		return response.StatusCode, err
	}
	switch response.StatusCode {
	default:
		if len(byts) > 0 {
			return response.StatusCode, errors.Errorf("%s: %s", response.Status, string(byts))
		}
		return response.StatusCode, errors.Errorf("%s", response.Status)
	case http.StatusNoContent:
		return response.StatusCode, nil
	case http.StatusOK:
		if len(v) > 0 {
			return response.StatusCode, json.Unmarshal(byts, v[0])
		}
		return response.StatusCode, nil
	}
}

// LaunchContext returns a context that's cancelled when a signal is
// received on osSignal or when the returned cancel function is called
func LaunchContext(wg *sync.WaitGroup, osSignal chan os.Signal) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	wg.Add(1)
	go func() {
		defer wg.Done()

		select {
		case <-ctx.Done():
		case <-osSignal:
			cancel()
		}
	}()
	return ctx, cancel
}

// Envs builds the configuration map, in order of precedence: the
// process environment, the dotenv file at ENV_FILE and the flat yaml
// file at CONFIG_FILE
func Envs(environ []string) (map[string]string, error) {
	envs := make(map[string]string)
	for _, env := range environ {
		if s := strings.Split(env, "="); len(s) > 1 {
			envs[s[0]] = strings.Join(s[1:], "=")
		}
	}
	if envFile := envs["ENV_FILE"]; envFile != "" {
		dotEnvs, err := godotenv.Read(envFile)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read env file %s", envFile)
		}
		mergeEnvs(envs, dotEnvs)
	}
	if configFile := envs["CONFIG_FILE"]; configFile != "" {
		bytes, err := os.ReadFile(configFile)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to read config file %s", configFile)
		}
		items := make(map[string]any)
		if err := yaml.Unmarshal(bytes, &items); err != nil {
			return nil, errors.Wrapf(err, "unable to parse config file %s", configFile)
		}
		configEnvs := make(map[string]string, len(items))
		for key, value := range items {
			if value == nil {
				continue
			}
			configEnvs[key] = fmt.Sprint(value)
		}
		mergeEnvs(envs, configEnvs)
	}
	return envs, nil
}

func mergeEnvs(envs, others map[string]string) {
	for key, value := range others {
		if _, ok := envs[key]; !ok {
			envs[key] = value
		}
	}
}
