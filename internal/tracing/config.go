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

package tracing

import (
	"fmt"

	"github.com/tombee/ruline/internal/tracing/export"
)

// Config holds observability configuration.
type Config struct {
	// Exporter selects where spans go: "console", "otlp", "otlp-http", or
	// empty to record spans without exporting them.
	Exporter string

	// Endpoint is the OTLP receiver address.
	Endpoint string

	// Insecure disables TLS for OTLP exporters.
	Insecure bool

	// CACertPath is an optional CA bundle for OTLP exporters.
	CACertPath string

	// Headers are additional OTLP headers, typically for authentication.
	Headers map[string]string

	// ServiceName identifies this service in traces.
	ServiceName string

	// ServiceVersion is the application version.
	ServiceVersion string

	// SampleRate is the fraction of runs to trace (0.0 - 1.0).
	SampleRate float64

	// AlwaysSampleErrors keeps spans marked as errors regardless of SampleRate.
	AlwaysSampleErrors bool
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ServiceName:        "ruline",
		ServiceVersion:     "unknown",
		SampleRate:         1.0,
		AlwaysSampleErrors: true,
	}
}

// Validate checks the exporter settings.
func (c Config) Validate() error {
	switch c.Exporter {
	case "", export.Console:
	case export.OTLP, export.OTLPHTTP:
		if c.Endpoint == "" {
			return fmt.Errorf("exporter %s requires an endpoint", c.Exporter)
		}
	default:
		return fmt.Errorf("unknown trace exporter %q", c.Exporter)
	}
	if c.SampleRate < 0 || c.SampleRate > 1 {
		return fmt.Errorf("sample rate must be between 0 and 1, got %g", c.SampleRate)
	}
	return nil
}
