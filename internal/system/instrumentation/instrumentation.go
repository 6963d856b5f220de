/*
 * Copyright (c) 2025, WSO2 LLC. (https://www.wso2.com).
 *
 * WSO2 LLC. licenses this file to you under the Apache License,
 * Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.
 * You may obtain a copy of the License at
 *
 * http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing,
 * software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
 * KIND, either express or implied.  See the License for the
 * specific language governing permissions and limitations
 * under the License.
 */

// Package instrumentation provides OpenTelemetry tracing and metrics for the server.
package instrumentation

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/asgardeo/oidcengine/internal/system/config"
)

const (
	scopeName             = "github.com/asgardeo/oidcengine"
	defaultServiceName    = "oidcengine"
	defaultServiceVersion = "unknown"
)

// Option customises the providers created by New.
type Option func(*options)

type options struct {
	spanProcessors []sdktrace.SpanProcessor
	metricReaders  []sdkmetric.Reader
}

// WithSpanProcessor registers a span processor on the tracer provider.
func WithSpanProcessor(processor sdktrace.SpanProcessor) Option {
	return func(o *options) {
		o.spanProcessors = append(o.spanProcessors, processor)
	}
}

// WithMetricReader registers a metric reader on the meter provider.
func WithMetricReader(reader sdkmetric.Reader) Option {
	return func(o *options) {
		o.metricReaders = append(o.metricReaders, reader)
	}
}

// Instrumentation holds the tracer, the meter and the metric instruments of the server.
type Instrumentation struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
	tracer         trace.Tracer
	metrics        *Metrics

	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates the instrumentation. When disabled, no-op providers are used.
func New(cfg config.InstrumentationConfig, opts ...Option) (*Instrumentation, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	inst := &Instrumentation{}
	if cfg.Enabled {
		serviceName := cfg.ServiceName
		if serviceName == "" {
			serviceName = defaultServiceName
		}
		serviceVersion := cfg.ServiceVersion
		if serviceVersion == "" {
			serviceVersion = defaultServiceVersion
		}
		res := resource.NewSchemaless(
			attribute.String("service.name", serviceName),
			attribute.String("service.version", serviceVersion),
		)

		traceOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
		for _, p := range o.spanProcessors {
			traceOpts = append(traceOpts, sdktrace.WithSpanProcessor(p))
		}
		tp := sdktrace.NewTracerProvider(traceOpts...)

		meterOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
		for _, r := range o.metricReaders {
			meterOpts = append(meterOpts, sdkmetric.WithReader(r))
		}
		mp := sdkmetric.NewMeterProvider(meterOpts...)

		inst.tracerProvider = tp
		inst.meterProvider = mp
		inst.shutdownFuncs = append(inst.shutdownFuncs, tp.Shutdown, mp.Shutdown)
	} else {
		inst.tracerProvider = tracenoop.NewTracerProvider()
		inst.meterProvider = metricnoop.NewMeterProvider()
	}

	inst.tracer = inst.tracerProvider.Tracer(scopeName)
	metrics, err := newMetrics(inst.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	inst.metrics = metrics

	return inst, nil
}

// Tracer returns the tracer of the server.
func (i *Instrumentation) Tracer() trace.Tracer {
	return i.tracer
}

// Metrics returns the metric instruments of the server.
func (i *Instrumentation) Metrics() *Metrics {
	return i.metrics
}

// Shutdown flushes and stops the providers.
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	var err error
	i.shutdownOnce.Do(func() {
		for _, fn := range i.shutdownFuncs {
			err = errors.Join(err, fn(ctx))
		}
	})
	return err
}
