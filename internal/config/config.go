package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Paths   Paths   `yaml:"paths"`
	API     API     `yaml:"api"`
	Cleanup Cleanup `yaml:"cleanup"`
	Server  Server  `yaml:"server"`
	Log     Log     `yaml:"log"`
	Hooks   Hooks   `yaml:"hooks,omitempty"`
}

// Paths locates the task, result and skill directories
type Paths struct {
	TasksDir   string `yaml:"tasks_dir"`
	ResultsDir string `yaml:"results_dir"`
	SkillsDir  string `yaml:"skills_dir"`
}

// API describes the remote action endpoint embedded in generated instructions.
// Credentials are never stored in the file, only the names of the environment
// variables that carry them.
type API struct {
	Endpoint     string `yaml:"endpoint"`
	APIKeyEnv    string `yaml:"api_key_env"`
	AuthTokenEnv string `yaml:"auth_token_env"`
}

type Cleanup struct {
	MaxAgeDays int `yaml:"max_age_days"`
}

type Server struct {
	Port      int    `yaml:"port"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Hooks lists commands run on task lifecycle events
type Hooks struct {
	OnCreated  []HookCommand `yaml:"on_created,omitempty"`
	OnResolved []HookCommand `yaml:"on_resolved,omitempty"`
	OnCleanup  []HookCommand `yaml:"on_cleanup,omitempty"`
}

// HookCommand is a single hook invocation
type HookCommand struct {
	Command     string            `yaml:"command"`
	Args        []string          `yaml:"args,omitempty"`
	Env         map[string]string `yaml:"env,omitempty"`
	WorkingDir  string            `yaml:"working_dir,omitempty"`
	Timeout     int               `yaml:"timeout,omitempty"`     // seconds
	ContinueOn  string            `yaml:"continue_on,omitempty"` // error (default), always, success
	Description string            `yaml:"description,omitempty"`
}

// APIKey returns the action API key from the environment
func (a API) APIKey() string {
	return lookupEnv(a.APIKeyEnv)
}

// AuthToken returns the bearer token from the environment
func (a API) AuthToken() string {
	return lookupEnv(a.AuthTokenEnv)
}

// APIKey returns the key guarding the HTTP API, empty when auth is disabled
func (s Server) APIKey() string {
	return lookupEnv(s.APIKeyEnv)
}

func lookupEnv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

// Default returns a configuration with every default applied
func Default() *Config {
	var config Config
	setDefaults(&config)
	return &config
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	setDefaults(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadOrDefault loads filename, falling back to Default when it does not exist
func LoadOrDefault(filename string) (*Config, error) {
	config, err := LoadConfig(filename)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Paths.TasksDir == config.Paths.ResultsDir {
		return fmt.Errorf("paths.tasks_dir and paths.results_dir must differ")
	}

	if config.Cleanup.MaxAgeDays < 0 {
		return fmt.Errorf("cleanup.max_age_days must not be negative")
	}

	if config.Server.Port < 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", config.Server.Port)
	}

	for event, hooks := range map[string][]HookCommand{
		"on_created":  config.Hooks.OnCreated,
		"on_resolved": config.Hooks.OnResolved,
		"on_cleanup":  config.Hooks.OnCleanup,
	} {
		for i, hook := range hooks {
			if hook.Command == "" {
				return fmt.Errorf("hooks.%s[%d]: command is required", event, i)
			}
			switch hook.ContinueOn {
			case "", ContinueOnError, ContinueOnAlways, ContinueOnSuccess:
			default:
				return fmt.Errorf("hooks.%s[%d]: invalid continue_on %q", event, i, hook.ContinueOn)
			}
			if hook.Timeout < 0 {
				return fmt.Errorf("hooks.%s[%d]: timeout must not be negative", event, i)
			}
		}
	}

	return nil
}

func setDefaults(config *Config) {
	if config.Paths.TasksDir == "" {
		config.Paths.TasksDir = DefaultTasksDir
	}
	if config.Paths.ResultsDir == "" {
		config.Paths.ResultsDir = DefaultResultsDir
	}
	if config.Paths.SkillsDir == "" {
		config.Paths.SkillsDir = DefaultSkillsDir
	}
	if config.API.Endpoint == "" {
		config.API.Endpoint = DefaultAPIEndpoint
	}
	if config.API.APIKeyEnv == "" {
		config.API.APIKeyEnv = DefaultAPIKeyEnv
	}
	if config.API.AuthTokenEnv == "" {
		config.API.AuthTokenEnv = DefaultAuthTokenEnv
	}
	if config.Cleanup.MaxAgeDays == 0 {
		config.Cleanup.MaxAgeDays = DefaultMaxAgeDays
	}
	if config.Server.Port == 0 {
		config.Server.Port = DefaultServerPort
	}
	if config.Server.APIKeyEnv == "" {
		config.Server.APIKeyEnv = DefaultServerAPIKeyEnv
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}
}

func CreateSampleConfig(filename string) error {
	sampleConfig := Default()

	data, err := yaml.Marshal(sampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config: %w", err)
	}

	if err := os.WriteFile(filename, data, ConfigFilePerm); err != nil {
		return fmt.Errorf("failed to write sample config: %w", err)
	}

	return nil
}
