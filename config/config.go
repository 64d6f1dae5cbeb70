package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"magic-mirror/internal/appdirs"
)

type App struct {
	Proxy       string   `toml:"proxy"`
	ParsedProxy *url.URL `toml:"-"`
}

type Server struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Api configures the remote image-generation service.
type Api struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Timeout int    `toml:"timeout"` // seconds per HTTP request
}

// Workflow controls the status polling loop.
type Workflow struct {
	PollInterval int `toml:"poll_interval"` // seconds between status checks
	PollTimeout  int `toml:"poll_timeout"`  // max seconds before a job is abandoned
	MaxAttempts  int `toml:"max_attempts"`  // max status checks per job
}

// Queue configures the optional Redis-backed durable queue.
// When disabled, tasks run on the in-process runner.
type Queue struct {
	Enabled       bool   `toml:"enabled"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	Concurrency   int    `toml:"concurrency"`
}

// Llm configures optional prompt polishing for style descriptions.
type Llm struct {
	BaseUrl string `toml:"base_url"`
	ApiKey  string `toml:"api_key"`
	Model   string `toml:"model"`
}

type Config struct {
	App      App      `toml:"app"`
	Server   Server   `toml:"server"`
	Api      Api      `toml:"api"`
	Workflow Workflow `toml:"workflow"`
	Queue    Queue    `toml:"queue"`
	Llm      Llm      `toml:"llm"`
}

var Conf Config

var resolveConfigPath = func() (string, error) {
	dirs, err := appdirs.Resolve()
	if err != nil {
		return "", err
	}
	return dirs.ConfigFile, nil
}

func ResolveConfigPath() (string, error) {
	return resolveConfigPath()
}

func defaultConfig() Config {
	return Config{
		Server: Server{
			Host: "127.0.0.1",
			Port: 8888,
		},
		Api: Api{
			BaseUrl: "http://127.0.0.1:8000",
			Timeout: 60,
		},
		Workflow: Workflow{
			PollInterval: 2,
			PollTimeout:  300,
			MaxAttempts:  150,
		},
		Queue: Queue{
			RedisAddr:   "localhost:6379",
			Concurrency: 3,
		},
		Llm: Llm{
			Model: "gpt-4o-mini",
		},
	}
}

// LoadOrCreateConfig loads config.toml, writing the default file first when it
// does not exist yet. It reports whether a new file was created.
func LoadOrCreateConfig() (bool, error) {
	configPath, err := resolveConfigPath()
	if err != nil {
		return false, err
	}

	if _, err = os.Stat(configPath); os.IsNotExist(err) {
		Conf = defaultConfig()
		if err = SaveConfig(); err != nil {
			return false, fmt.Errorf("write default config: %w", err)
		}
		return true, nil
	} else if err != nil {
		return false, err
	}

	if _, err = toml.DecodeFile(configPath, &Conf); err != nil {
		return false, fmt.Errorf("decode config %s: %w", configPath, err)
	}
	return false, nil
}

// LoadConfig is the boolean convenience wrapper used by the entrypoints.
func LoadConfig() bool {
	if _, err := LoadOrCreateConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		return false
	}
	return true
}

// SaveConfig writes the current Conf to the resolved config path, creating
// parent directories as needed.
func SaveConfig() error {
	configPath, err := resolveConfigPath()
	if err != nil {
		return err
	}

	if err = os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return err
	}

	file, err := os.Create(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	return toml.NewEncoder(file).Encode(Conf)
}

// CheckConfig validates required fields and normalizes derived values.
func CheckConfig() error {
	if strings.TrimSpace(Conf.Api.BaseUrl) == "" {
		return fmt.Errorf("api.base_url must be configured")
	}
	Conf.Api.BaseUrl = strings.TrimRight(strings.TrimSpace(Conf.Api.BaseUrl), "/")
	if _, err := url.Parse(Conf.Api.BaseUrl); err != nil {
		return fmt.Errorf("api.base_url is not a valid url: %w", err)
	}

	if Conf.App.Proxy != "" {
		parsed, err := url.Parse(Conf.App.Proxy)
		if err != nil {
			return fmt.Errorf("app.proxy is not a valid url: %w", err)
		}
		Conf.App.ParsedProxy = parsed
	}

	if Conf.Api.Timeout <= 0 {
		Conf.Api.Timeout = 60
	}
	if Conf.Workflow.PollInterval <= 0 {
		Conf.Workflow.PollInterval = 2
	}
	if Conf.Workflow.PollTimeout <= 0 {
		Conf.Workflow.PollTimeout = 300
	}
	if Conf.Workflow.MaxAttempts <= 0 {
		Conf.Workflow.MaxAttempts = 150
	}
	return nil
}
