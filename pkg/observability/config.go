// Copyright 2025 Kadir Pekel
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

// Package observability wires OpenTelemetry tracing and Prometheus metrics
// for the gateway. Every exported helper is safe to call on a nil receiver
// so callers never branch on whether observability is enabled.
package observability

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const defaultExportTimeout = 10 * time.Second

// Config is the observability section of the gateway configuration:
//
//	observability:
//	  tracing:
//	    enabled: true
//	    exporter: otlp          # or stdout
//	    endpoint: localhost:4317
//	    sampling_rate: 0.25
//	    insecure: true
//	    headers: {x-api-key: secret}
//	  metrics:
//	    enabled: true
//	    endpoint: /metrics
//	    const_labels: {env: prod}
type Config struct {
	Tracing TracingConfig `yaml:"tracing,omitempty"`
	Metrics MetricsConfig `yaml:"metrics,omitempty"`
}

// TracingConfig selects the span exporter and sampler.
type TracingConfig struct {
	Enabled        bool              `yaml:"enabled,omitempty"`
	Exporter       string            `yaml:"exporter,omitempty"`
	Endpoint       string            `yaml:"endpoint,omitempty"`
	SamplingRate   float64           `yaml:"sampling_rate,omitempty"`
	ServiceName    string            `yaml:"service_name,omitempty"`
	ServiceVersion string            `yaml:"service_version,omitempty"`
	Insecure       *bool             `yaml:"insecure,omitempty"` // nil means plaintext gRPC
	Headers        map[string]string `yaml:"headers,omitempty"`
	Timeout        time.Duration     `yaml:"timeout,omitempty"`
}

// MetricsConfig controls the Prometheus registry and its scrape path.
type MetricsConfig struct {
	Enabled     bool              `yaml:"enabled,omitempty"`
	Endpoint    string            `yaml:"endpoint,omitempty"`
	Namespace   string            `yaml:"namespace,omitempty"`
	ConstLabels map[string]string `yaml:"const_labels,omitempty"`
}

func (c *Config) SetDefaults() {
	c.Tracing.SetDefaults()
	c.Metrics.SetDefaults()
}

// Validate reports problems in both sections at once.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Tracing.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("tracing: %w", err))
	}
	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("metrics: %w", err))
	}
	return errors.Join(errs...)
}

func (c *TracingConfig) SetDefaults() {
	c.Exporter = orDefault(c.Exporter, ExporterOTLP)
	c.Endpoint = orDefault(c.Endpoint, DefaultOTLPEndpoint)
	c.ServiceName = orDefault(c.ServiceName, DefaultServiceName)
	if c.SamplingRate == 0 {
		c.SamplingRate = DefaultSamplingRate
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultExportTimeout
	}
	if c.Insecure == nil {
		plaintext := true
		c.Insecure = &plaintext
	}
}

// Validate is a no-op while tracing is disabled.
func (c *TracingConfig) Validate() error {
	if !c.Enabled {
		return nil
	}
	var errs []error
	if c.SamplingRate < 0 || c.SamplingRate > 1 {
		errs = append(errs, fmt.Errorf("sampling_rate %v outside [0, 1]", c.SamplingRate))
	}
	switch c.Exporter {
	case ExporterStdout:
	case ExporterOTLP:
		if c.Endpoint == "" {
			errs = append(errs, errors.New("otlp exporter needs an endpoint"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown exporter %q, expected %s or %s", c.Exporter, ExporterOTLP, ExporterStdout))
	}
	return errors.Join(errs...)
}

func (c *TracingConfig) IsInsecure() bool {
	return c.Insecure == nil || *c.Insecure
}

func (c *MetricsConfig) SetDefaults() {
	c.Endpoint = orDefault(c.Endpoint, DefaultMetricsPath)
	c.Namespace = orDefault(c.Namespace, DefaultServiceName)
}

func (c *MetricsConfig) Validate() error {
	if c.Enabled && !strings.HasPrefix(c.Endpoint, "/") {
		return fmt.Errorf("endpoint %q is not an absolute path", c.Endpoint)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
