// Package telemetry wires OpenTelemetry providers for eventbench.
//
// Telemetry is disabled by default. When disabled, Init returns no-op
// providers so instrumented code pays nothing.
//
// # Configuration
//
//	[telemetry]
//	enabled = true   # install SDK providers (default: off)
//	stdout  = true   # pretty-print spans and metrics to the writer
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/multierr"

	"github.com/dshills/eventcore/internal/config"
)

const instrumentationScope = "github.com/dshills/eventcore"

// Providers holds the tracer and meter providers for one process.
type Providers struct {
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider

	shutdownFns []func(context.Context) error
}

// Init builds providers from cfg. Exporters write to w when cfg.Stdout is
// set; otherwise spans and metrics are collected but not exported.
func Init(ctx context.Context, cfg config.TelemetryConfig, w io.Writer, serviceName, version string) (*Providers, error) {
	if !cfg.Enabled {
		return &Providers{
			TracerProvider: tracenoop.NewTracerProvider(),
			MeterProvider:  metricnoop.NewMeterProvider(),
		}, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: resource: %w", err)
	}

	p := &Providers{}

	tp, err := buildTraceProvider(cfg, w, res)
	if err != nil {
		return nil, fmt.Errorf("telemetry: trace provider: %w", err)
	}
	p.TracerProvider = tp
	p.shutdownFns = append(p.shutdownFns, tp.Shutdown)

	mp, err := buildMetricProvider(cfg, w, res)
	if err != nil {
		_ = p.Shutdown(ctx)
		return nil, fmt.Errorf("telemetry: metric provider: %w", err)
	}
	p.MeterProvider = mp
	p.shutdownFns = append(p.shutdownFns, mp.Shutdown)

	return p, nil
}

func buildTraceProvider(cfg config.TelemetryConfig, w io.Writer, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	}
	if cfg.Stdout {
		exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		opts = append(opts, sdktrace.WithBatcher(exp))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func buildMetricProvider(cfg config.TelemetryConfig, w io.Writer, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	if cfg.Stdout {
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, err
		}
		// Metrics are flushed once at shutdown; runs are short.
		opts = append(opts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)))
	}
	return sdkmetric.NewMeterProvider(opts...), nil
}

// Tracer returns a tracer for the eventcore instrumentation scope.
func (p *Providers) Tracer() trace.Tracer {
	return p.TracerProvider.Tracer(instrumentationScope)
}

// Meter returns a meter for the eventcore instrumentation scope.
func (p *Providers) Meter() metric.Meter {
	return p.MeterProvider.Meter(instrumentationScope)
}

// Shutdown flushes and stops every SDK provider. It is safe to call more
// than once.
func (p *Providers) Shutdown(ctx context.Context) error {
	var err error
	for _, fn := range p.shutdownFns {
		err = multierr.Append(err, fn(ctx))
	}
	p.shutdownFns = nil
	return err
}
