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

package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

var durationBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30}

// Metrics records gateway metrics into a dedicated Prometheus registry.
// A nil *Metrics discards every observation.
type Metrics struct {
	registry *prometheus.Registry
	provider *sdkmetric.MeterProvider
	endpoint string

	httpRequests metric.Int64Counter
	httpDuration metric.Float64Histogram
	mcpCalls     metric.Int64Counter
	mcpDuration  metric.Float64Histogram
	tasks        metric.Int64Counter
}

// NewMetrics builds the meter provider and instruments described by cfg.
// It returns nil when metrics are disabled.
func NewMetrics(cfg *MetricsConfig) (*Metrics, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}
	cfg.SetDefaults()

	registry := prometheus.NewRegistry()
	var registerer prometheus.Registerer = registry
	if len(cfg.ConstLabels) > 0 {
		registerer = prometheus.WrapRegistererWith(prometheus.Labels(cfg.ConstLabels), registry)
	}

	exporter, err := otelprom.New(
		otelprom.WithRegisterer(registerer),
		otelprom.WithNamespace(cfg.Namespace),
		otelprom.WithoutScopeInfo(),
		otelprom.WithoutTargetInfo(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(DefaultServiceName)

	m := &Metrics{
		registry: registry,
		provider: provider,
		endpoint: cfg.Endpoint,
	}

	if m.httpRequests, err = meter.Int64Counter("http_requests",
		metric.WithDescription("Inbound HTTP requests")); err != nil {
		return nil, fmt.Errorf("failed to create http requests counter: %w", err)
	}
	if m.httpDuration, err = meter.Float64Histogram("http_request_duration",
		metric.WithDescription("Inbound HTTP request duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...)); err != nil {
		return nil, fmt.Errorf("failed to create http duration histogram: %w", err)
	}
	if m.mcpCalls, err = meter.Int64Counter("mcp_calls",
		metric.WithDescription("Outbound MCP calls by method and outcome")); err != nil {
		return nil, fmt.Errorf("failed to create mcp calls counter: %w", err)
	}
	if m.mcpDuration, err = meter.Float64Histogram("mcp_call_duration",
		metric.WithDescription("Outbound MCP call duration"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBuckets...)); err != nil {
		return nil, fmt.Errorf("failed to create mcp duration histogram: %w", err)
	}
	if m.tasks, err = meter.Int64Counter("tasks",
		metric.WithDescription("Tasks reaching a final state in a send call")); err != nil {
		return nil, fmt.Errorf("failed to create tasks counter: %w", err)
	}

	return m, nil
}

// Endpoint is the path the metrics handler should be mounted on.
func (m *Metrics) Endpoint() string {
	if m == nil {
		return ""
	}
	return m.endpoint
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest observes one inbound request. route is the router
// pattern, never the raw path.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.String("status", strconv.Itoa(status)),
	)
	m.httpRequests.Add(ctx, 1, attrs)
	m.httpDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCall observes one outbound MCP call.
func (m *Metrics) RecordCall(ctx context.Context, method, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.mcpCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("outcome", outcome),
	))
	m.mcpDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
	))
}

// RecordTask counts a task settling in state.
func (m *Metrics) RecordTask(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.tasks.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// Shutdown stops the meter provider.
func (m *Metrics) Shutdown(ctx context.Context) error {
	if m == nil || m.provider == nil {
		return nil
	}
	return m.provider.Shutdown(ctx)
}
