package profile

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/dshills/eventcore/internal/event"
)

// ScopeName is the instrumentation scope used by Telemetry.
const ScopeName = "github.com/dshills/eventcore/event"

// Telemetry is a Profiler that records OpenTelemetry metrics for every
// callback and wraps each fire in a span.
//
// A Telemetry tracks the in-flight fire of one manager; attach a separate
// instance to each manager.
type Telemetry[T any] struct {
	tracer trace.Tracer

	fires       metric.Int64Counter
	skipped     metric.Int64Counter
	lifecycle   metric.Int64Counter
	discoveries metric.Int64Counter
	discTime    metric.Float64Histogram
	duration    metric.Float64Histogram
	fanout      metric.Int64Histogram

	mu        sync.Mutex
	fireSpan  trace.Span
	fireStart time.Time
	discStart time.Time
}

// NewTelemetry creates instruments on meter and spans on tracer.
func NewTelemetry[T any](meter metric.Meter, tracer trace.Tracer) (*Telemetry[T], error) {
	t := &Telemetry[T]{tracer: tracer}

	var err error
	if t.fires, err = meter.Int64Counter("eventcore.fires",
		metric.WithDescription("Events delivered to at least one handler set"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: fires counter: %w", err)
	}
	if t.skipped, err = meter.Int64Counter("eventcore.skipped",
		metric.WithDescription("Events fired with no matching handler set"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: skipped counter: %w", err)
	}
	if t.lifecycle, err = meter.Int64Counter("eventcore.lifecycle",
		metric.WithDescription("Registration lifecycle operations by kind"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: lifecycle counter: %w", err)
	}
	if t.discoveries, err = meter.Int64Counter("eventcore.discoveries",
		metric.WithDescription("Listener scans"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: discoveries counter: %w", err)
	}
	if t.discTime, err = meter.Float64Histogram("eventcore.discovery.duration",
		metric.WithDescription("Time spent scanning one listener"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: discovery duration histogram: %w", err)
	}
	if t.duration, err = meter.Float64Histogram("eventcore.fire.duration",
		metric.WithDescription("Time spent invoking handlers for one fire"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: duration histogram: %w", err)
	}
	if t.fanout, err = meter.Int64Histogram("eventcore.fire.handlers",
		metric.WithDescription("Handler set size per fire"),
	); err != nil {
		return nil, fmt.Errorf("telemetry: fanout histogram: %w", err)
	}
	return t, nil
}

func (t *Telemetry[T]) op(kind Kind) {
	t.lifecycle.Add(context.Background(), 1, metric.WithAttributes(attribute.String("op", string(kind))))
}

func (t *Telemetry[T]) OnRegisterListener(any)   { t.op(KindRegister) }
func (t *Telemetry[T]) OnDeregisterListener(any) { t.op(KindDeregister) }
func (t *Telemetry[T]) OnDeregisterAll()         { t.op(KindDeregisterAll) }
func (t *Telemetry[T]) OnCleanup()               { t.op(KindCleanup) }

func (t *Telemetry[T]) PreListenerDiscovery(any) {
	t.mu.Lock()
	t.discStart = time.Now()
	t.mu.Unlock()
}

func (t *Telemetry[T]) PostListenerDiscovery(listener any) {
	t.mu.Lock()
	elapsed := time.Since(t.discStart)
	t.mu.Unlock()

	attrs := metric.WithAttributes(attribute.String("listener.type", typeName(listener)))
	t.discoveries.Add(context.Background(), 1, attrs)
	t.discTime.Record(context.Background(), float64(elapsed.Microseconds())/1000, attrs)
}

func (t *Telemetry[T]) OnSkippedEvent(e T, timing event.Timing) {
	t.skipped.Add(context.Background(), 1, metric.WithAttributes(eventAttrs(e, timing)...))
}

func (t *Telemetry[T]) PreFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	attrs := append(eventAttrs(e, timing), attribute.Int("event.handlers", handlers.Len()))
	_, span := t.tracer.Start(context.Background(), "event.fire",
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)

	t.mu.Lock()
	// A fire that failed fast never reached PostFireEvent.
	if t.fireSpan != nil {
		t.fireSpan.SetStatus(codes.Error, "fire aborted by handler failure")
		t.fireSpan.End()
	}
	t.fireSpan = span
	t.fireStart = time.Now()
	t.mu.Unlock()

	t.fires.Add(context.Background(), 1, metric.WithAttributes(eventAttrs(e, timing)...))
	t.fanout.Record(context.Background(), int64(handlers.Len()), metric.WithAttributes(eventAttrs(e, timing)...))
}

func (t *Telemetry[T]) PostFireEvent(e T, timing event.Timing, _ event.HandlerView[T]) {
	t.mu.Lock()
	span, start := t.fireSpan, t.fireStart
	t.fireSpan = nil
	t.mu.Unlock()

	ms := float64(time.Since(start).Microseconds()) / 1000
	t.duration.Record(context.Background(), ms, metric.WithAttributes(eventAttrs(e, timing)...))
	if span != nil {
		span.End()
	}
}

func eventAttrs[T any](e T, timing event.Timing) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("event.type", typeName(e)),
		attribute.String("event.timing", timing.String()),
	}
}
