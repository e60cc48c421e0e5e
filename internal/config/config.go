package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalid marks configuration rejected before any mission starts.
var ErrInvalid = errors.New("invalid configuration")

const DefaultPath = "rose.yaml"

type Config struct {
	Backend    string `yaml:"backend"`
	Model      string `yaml:"model"`
	OllamaHost string `yaml:"ollama_host"`

	MaxIterations       int `yaml:"max_iterations"`
	StageTimeoutSeconds int `yaml:"stage_timeout_seconds"`
	SchemaRetries       int `yaml:"schema_retries"`
	ServiceRetries      int `yaml:"service_retries"`

	LogFile string `yaml:"log_file"`
}

func Default() Config {
	return Config{
		Backend:             "gemini",
		MaxIterations:       3,
		StageTimeoutSeconds: 30,
		SchemaRetries:       2,
		ServiceRetries:      3,
		LogFile:             "rose.log",
	}
}

// Load reads the YAML config at path, layered over defaults. A missing file at
// the default path is not an error; an explicitly named missing file is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Backend {
	case "gemini", "ollama", "openai":
	default:
		return fmt.Errorf("%w: unsupported backend %q", ErrInvalid, c.Backend)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be >= 1, got %d", ErrInvalid, c.MaxIterations)
	}
	if c.StageTimeoutSeconds < 1 {
		return fmt.Errorf("%w: stage_timeout_seconds must be >= 1, got %d", ErrInvalid, c.StageTimeoutSeconds)
	}
	if c.SchemaRetries < 0 || c.ServiceRetries < 0 {
		return fmt.Errorf("%w: retry counts must not be negative", ErrInvalid)
	}
	return nil
}

func (c Config) StageTimeout() time.Duration {
	return time.Duration(c.StageTimeoutSeconds) * time.Second
}
