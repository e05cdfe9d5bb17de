// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config loads ruline settings from a YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ruline/internal/jq"
	"github.com/tombee/ruline/internal/log"
	"github.com/tombee/ruline/internal/tracing"
	rulineerrors "github.com/tombee/ruline/pkg/errors"
)

var (
	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = rulineerrors.New("config: invalid configuration")
)

// Config represents the complete ruline configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Run     RunConfig     `yaml:"run"`
	JQ      JQConfig      `yaml:"jq"`
	Tracing TracingConfig `yaml:"tracing"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	// Level sets the minimum log level (trace, debug, info, warn, error).
	// Environment: RULINE_LOG_LEVEL, LOG_LEVEL
	// Default: info
	Level string `yaml:"level"`

	// Format sets the output format (json, text).
	// Environment: LOG_FORMAT
	// Default: json
	Format string `yaml:"format"`

	// AddSource adds source file and line information to logs.
	// Environment: LOG_SOURCE
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// RunConfig configures how the CLI processes inputs.
type RunConfig struct {
	// MaxConcurrentRuns bounds how many inputs are processed at once.
	// Environment: RULINE_MAX_CONCURRENT_RUNS
	// Default: 4
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`

	// Timeout bounds a single run. Zero means no limit.
	// Environment: RULINE_RUN_TIMEOUT
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// JQConfig limits jq field evaluation.
type JQConfig struct {
	// Timeout bounds a single query.
	// Environment: RULINE_JQ_TIMEOUT
	// Default: 1s
	Timeout time.Duration `yaml:"timeout"`

	// MaxInputSize caps the encoded size of a query's input in bytes.
	// Default: 10MB
	MaxInputSize int64 `yaml:"max_input_size"`
}

// TracingConfig configures span export.
type TracingConfig struct {
	// Exporter is "console", "otlp", "otlp-http" or empty for none.
	// Environment: RULINE_TRACE_EXPORTER
	Exporter string `yaml:"exporter,omitempty"`

	// Endpoint is the OTLP receiver address.
	// Environment: OTEL_EXPORTER_OTLP_ENDPOINT
	Endpoint string `yaml:"endpoint,omitempty"`

	// Insecure disables TLS for OTLP exporters.
	Insecure bool `yaml:"insecure"`

	// CACertPath is an optional CA bundle for OTLP exporters.
	CACertPath string `yaml:"ca_cert_path,omitempty"`

	// Headers are additional OTLP headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// ServiceName identifies this service in traces.
	// Default: ruline
	ServiceName string `yaml:"service_name,omitempty"`

	// SampleRate is the fraction of runs to trace.
	// Default: 1.0
	SampleRate float64 `yaml:"sample_rate,omitempty"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Run: RunConfig{
			MaxConcurrentRuns: 4,
		},
		JQ: JQConfig{
			Timeout:      jq.DefaultTimeout,
			MaxInputSize: jq.DefaultMaxInputSize,
		},
		Tracing: TracingConfig{
			ServiceName: "ruline",
			SampleRate:  1.0,
		},
	}
}

// Load loads configuration from an optional YAML file and the environment.
// Environment variables take precedence over the file.
func Load(configPath string) (*Config, error) {
	cfg := Default()

	if configPath != "" {
		if err := cfg.loadFromFile(configPath); err != nil {
			return nil, &rulineerrors.ConfigError{
				Key:    "config_file",
				Reason: fmt.Sprintf("failed to load from %s", configPath),
				Cause:  err,
			}
		}
	}

	cfg.applyDefaults()
	cfg.loadFromEnv()

	if err := cfg.Validate(); err != nil {
		return nil, &rulineerrors.ConfigError{
			Key:    "validation",
			Reason: "configuration validation failed",
			Cause:  err,
		}
	}

	return cfg, nil
}

// LoadDefault loads the file at ConfigPath when it exists, otherwise only
// the environment is applied.
func LoadDefault() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Load("")
	}
	if _, err := os.Stat(path); err != nil {
		return Load("")
	}
	return Load(path)
}

// applyDefaults fills zero values so minimal files still produce a usable
// configuration.
func (c *Config) applyDefaults() {
	defaults := Default()

	if c.Log.Level == "" {
		c.Log.Level = defaults.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = defaults.Log.Format
	}
	if c.Run.MaxConcurrentRuns == 0 {
		c.Run.MaxConcurrentRuns = defaults.Run.MaxConcurrentRuns
	}
	if c.JQ.Timeout == 0 {
		c.JQ.Timeout = defaults.JQ.Timeout
	}
	if c.JQ.MaxInputSize == 0 {
		c.JQ.MaxInputSize = defaults.JQ.MaxInputSize
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = defaults.Tracing.ServiceName
	}
	if c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = defaults.Tracing.SampleRate
	}
}

// loadFromFile loads configuration from a YAML file.
func (c *Config) loadFromFile(path string) error {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// loadFromEnv loads configuration from environment variables.
func (c *Config) loadFromEnv() {
	if val := os.Getenv("RULINE_LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	} else if val := os.Getenv("LOG_LEVEL"); val != "" {
		c.Log.Level = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		c.Log.Format = strings.ToLower(val)
	}
	if val := os.Getenv("LOG_SOURCE"); val != "" {
		c.Log.AddSource = val == "1" || strings.ToLower(val) == "true"
	}
	if val := os.Getenv("RULINE_DEBUG"); val == "1" || val == "true" {
		c.Log.Level = "debug"
		c.Log.AddSource = true
	}

	if val := os.Getenv("RULINE_MAX_CONCURRENT_RUNS"); val != "" {
		if runs, err := strconv.Atoi(val); err == nil {
			c.Run.MaxConcurrentRuns = runs
		}
	}
	if val := os.Getenv("RULINE_RUN_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.Run.Timeout = d
		}
	}

	if val := os.Getenv("RULINE_JQ_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			c.JQ.Timeout = d
		}
	}

	if val := os.Getenv("RULINE_TRACE_EXPORTER"); val != "" {
		c.Tracing.Exporter = strings.ToLower(val)
	}
	if val := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); val != "" {
		c.Tracing.Endpoint = val
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	var errs []string

	if !log.ValidLevel(c.Log.Level) {
		errs = append(errs, fmt.Sprintf("log.level must be one of trace, debug, info, warn, error, got %q", c.Log.Level))
	}
	if c.Log.Format != string(log.FormatJSON) && c.Log.Format != string(log.FormatText) {
		errs = append(errs, fmt.Sprintf("log.format must be json or text, got %q", c.Log.Format))
	}

	if c.Run.MaxConcurrentRuns < 1 {
		errs = append(errs, fmt.Sprintf("run.max_concurrent_runs must be at least 1, got %d", c.Run.MaxConcurrentRuns))
	}
	if c.Run.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("run.timeout must not be negative, got %v", c.Run.Timeout))
	}

	if c.JQ.Timeout <= 0 {
		errs = append(errs, fmt.Sprintf("jq.timeout must be positive, got %v", c.JQ.Timeout))
	}
	if c.JQ.MaxInputSize <= 0 {
		errs = append(errs, fmt.Sprintf("jq.max_input_size must be positive, got %d", c.JQ.MaxInputSize))
	}

	if err := c.TracingConfig().Validate(); err != nil {
		errs = append(errs, "tracing: "+err.Error())
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w:\n  - %s", ErrInvalidConfig, strings.Join(errs, "\n  - "))
	}
	return nil
}

// LoggerConfig converts the log section for internal/log.
func (c *Config) LoggerConfig() *log.Config {
	cfg := log.DefaultConfig()
	cfg.Level = c.Log.Level
	cfg.Format = log.Format(c.Log.Format)
	cfg.AddSource = c.Log.AddSource
	return cfg
}

// TracingConfig converts the tracing section for internal/tracing.
func (c *Config) TracingConfig() tracing.Config {
	cfg := tracing.DefaultConfig()
	cfg.Exporter = c.Tracing.Exporter
	cfg.Endpoint = c.Tracing.Endpoint
	cfg.Insecure = c.Tracing.Insecure
	cfg.CACertPath = c.Tracing.CACertPath
	cfg.Headers = c.Tracing.Headers
	if c.Tracing.ServiceName != "" {
		cfg.ServiceName = c.Tracing.ServiceName
	}
	cfg.SampleRate = c.Tracing.SampleRate
	return cfg
}

// JQExecutor builds a jq executor with the configured limits.
func (c *Config) JQExecutor() *jq.Executor {
	return jq.NewExecutor(c.JQ.Timeout, c.JQ.MaxInputSize)
}
