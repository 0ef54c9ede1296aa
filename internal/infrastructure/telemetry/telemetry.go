// Package telemetry wires OpenTelemetry traces, metrics and logs, and the
// instruments recorded by the sync layer and the database.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// ServiceVersion is reported on every resource
const ServiceVersion = "1.0.0"

const (
	shutdownTimeout        = 10 * time.Second
	defaultMetricsInterval = 60 * time.Second
)

// Config holds telemetry configuration. All three signals export to the
// same OTLP gRPC collector.
type Config struct {
	Enabled           bool // traces
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
}

func (c Config) metricsInterval() time.Duration {
	if c.MetricsInterval <= 0 {
		return defaultMetricsInterval
	}
	return c.MetricsInterval
}

func newResource(serviceName string) (*resource.Resource, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(ServiceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry resource: %w", err)
	}
	return res, nil
}

type sdkProvider interface {
	Shutdown(ctx context.Context) error
}

// signal is the lifecycle shared by the trace, metric and log providers.
// sdk stays nil while the signal is off.
type signal[P sdkProvider] struct {
	name   string
	sdk    P
	on     bool
	logger *zap.Logger
}

func (s *signal[P]) start(sdk P, fields ...zap.Field) {
	s.sdk = sdk
	s.on = true
	s.logger.Info("Telemetry signal exporting", append([]zap.Field{zap.String("signal", s.name)}, fields...)...)
}

// IsEnabled reports whether the signal exports to the collector
func (s *signal[P]) IsEnabled() bool {
	return s.on
}

// Shutdown flushes buffered data and stops the exporter. It is a no-op for
// a disabled signal.
func (s *signal[P]) Shutdown(ctx context.Context) error {
	if !s.on {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := s.sdk.Shutdown(ctx); err != nil {
		s.logger.Error("Telemetry signal shutdown failed", zap.String("signal", s.name), zap.Error(err))
		return fmt.Errorf("shutdown %s: %w", s.name, err)
	}
	s.logger.Info("Telemetry signal stopped", zap.String("signal", s.name))
	return nil
}

// Providers bundles the three signal providers
type Providers struct {
	Tracer *TracerProvider
	Meter  *MeterProvider
	Logs   *LoggerProvider
}

// Setup creates every provider. Disabled signals stay inert.
func Setup(ctx context.Context, cfg Config, logger *zap.Logger) (*Providers, error) {
	p := &Providers{}
	var err error
	if p.Tracer, err = NewTracerProvider(ctx, cfg, logger); err != nil {
		return nil, err
	}
	if p.Meter, err = NewMeterProvider(ctx, cfg, logger); err != nil {
		_ = p.Tracer.Shutdown(ctx)
		return nil, err
	}
	if p.Logs, err = NewLoggerProvider(ctx, cfg, logger); err != nil {
		_ = p.Tracer.Shutdown(ctx)
		_ = p.Meter.Shutdown(ctx)
		return nil, err
	}
	return p, nil
}

// Shutdown flushes and stops every provider
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Tracer.Shutdown(ctx),
		p.Meter.Shutdown(ctx),
		p.Logs.Shutdown(ctx),
	)
}
