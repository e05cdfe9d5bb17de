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

package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	rulineerrors "github.com/tombee/ruline/pkg/errors"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"RULINE_LOG_LEVEL", "LOG_LEVEL", "LOG_FORMAT", "LOG_SOURCE", "RULINE_DEBUG",
		"RULINE_MAX_CONCURRENT_RUNS", "RULINE_RUN_TIMEOUT", "RULINE_JQ_TIMEOUT",
		"RULINE_TRACE_EXPORTER", "OTEL_EXPORTER_OTLP_ENDPOINT",
	} {
		t.Setenv(key, "")
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Log.Level != "info" {
		t.Errorf("expected log level 'info', got %q", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("expected log format 'json', got %q", cfg.Log.Format)
	}
	if cfg.Run.MaxConcurrentRuns != 4 {
		t.Errorf("expected 4 concurrent runs, got %d", cfg.Run.MaxConcurrentRuns)
	}
	if cfg.JQ.Timeout != time.Second {
		t.Errorf("expected jq timeout 1s, got %v", cfg.JQ.Timeout)
	}
	if cfg.Tracing.ServiceName != "ruline" {
		t.Errorf("expected service name 'ruline', got %q", cfg.Tracing.ServiceName)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
log:
  level: debug
  format: text
run:
  max_concurrent_runs: 8
  timeout: 30s
jq:
  timeout: 250ms
tracing:
  exporter: otlp
  endpoint: localhost:4317
  insecure: true
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" || cfg.Log.Format != "text" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.Run.MaxConcurrentRuns != 8 || cfg.Run.Timeout != 30*time.Second {
		t.Errorf("unexpected run config %+v", cfg.Run)
	}
	if cfg.JQ.Timeout != 250*time.Millisecond {
		t.Errorf("expected jq timeout 250ms, got %v", cfg.JQ.Timeout)
	}
	// unset fields keep their defaults
	if cfg.JQ.MaxInputSize != 10*1024*1024 {
		t.Errorf("expected default max input size, got %d", cfg.JQ.MaxInputSize)
	}

	tc := cfg.TracingConfig()
	if tc.Exporter != "otlp" || tc.Endpoint != "localhost:4317" || !tc.Insecure {
		t.Errorf("unexpected tracing config %+v", tc)
	}
	if tc.ServiceName != "ruline" {
		t.Errorf("expected service name 'ruline', got %q", tc.ServiceName)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: warn\nrun:\n  max_concurrent_runs: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("LOG_LEVEL", "ERROR")
	t.Setenv("RULINE_MAX_CONCURRENT_RUNS", "16")
	t.Setenv("RULINE_JQ_TIMEOUT", "5s")
	t.Setenv("RULINE_TRACE_EXPORTER", "console")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("expected log level 'error', got %q", cfg.Log.Level)
	}
	if cfg.Run.MaxConcurrentRuns != 16 {
		t.Errorf("expected 16 concurrent runs, got %d", cfg.Run.MaxConcurrentRuns)
	}
	if cfg.JQ.Timeout != 5*time.Second {
		t.Errorf("expected jq timeout 5s, got %v", cfg.JQ.Timeout)
	}
	if cfg.Tracing.Exporter != "console" {
		t.Errorf("expected console exporter, got %q", cfg.Tracing.Exporter)
	}
}

func TestLoad_DebugWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("RULINE_LOG_LEVEL", "warn")
	t.Setenv("RULINE_DEBUG", "1")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" || !cfg.Log.AddSource {
		t.Errorf("expected debug logging with source, got %+v", cfg.Log)
	}

	lc := cfg.LoggerConfig()
	if lc.Level != "debug" || !lc.AddSource {
		t.Errorf("unexpected logger config %+v", lc)
	}
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.yaml"))
		var ce *rulineerrors.ConfigError
		if !errors.As(err, &ce) || ce.Key != "config_file" {
			t.Fatalf("expected config_file ConfigError, got %v", err)
		}
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(path, []byte("log: [unclosed"), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		if err == nil || !strings.Contains(err.Error(), "config_file") {
			t.Fatalf("expected parse failure, got %v", err)
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(dir, "invalid.yaml")
		content := "log:\n  level: loud\nrun:\n  max_concurrent_runs: -1\ntracing:\n  exporter: otlp\n"
		if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
		_, err := Load(path)
		var ce *rulineerrors.ConfigError
		if !errors.As(err, &ce) || ce.Key != "validation" {
			t.Fatalf("expected validation ConfigError, got %v", err)
		}
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig in chain")
		}
		for _, want := range []string{"log.level", "run.max_concurrent_runs", "requires an endpoint"} {
			if !strings.Contains(ce.Cause.Error(), want) {
				t.Errorf("expected %q in %v", want, ce.Cause)
			}
		}
	})
}

func TestJQExecutor(t *testing.T) {
	cfg := Default()
	if cfg.JQExecutor() == nil {
		t.Fatal("expected executor")
	}
}

func TestConfigPath(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path, err := ConfigPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join(dir, "ruline", "config.yaml"); path != want {
		t.Errorf("expected %s, got %s", want, path)
	}

	clearEnv(t)
	cfg, err := LoadDefault()
	if err != nil {
		t.Fatalf("LoadDefault without a file failed: %v", err)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected defaults, got %+v", cfg.Log)
	}
}
