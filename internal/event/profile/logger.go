package profile

import (
	"go.uber.org/zap"

	"github.com/dshills/eventcore/internal/event"
)

// Logger is a Profiler that writes callbacks to a zap logger. Dispatch
// callbacks are logged at debug level, bulk lifecycle operations at info.
type Logger[T any] struct {
	log *zap.Logger
}

// NewLogger creates a logging profiler. A nil logger discards everything.
func NewLogger[T any](log *zap.Logger) *Logger[T] {
	if log == nil {
		log = zap.NewNop()
	}
	return &Logger[T]{log: log.Named("event")}
}

func (l *Logger[T]) OnRegisterListener(listener any) {
	l.log.Debug("listener registered", zap.String("listener", listenerName(listener)))
}

func (l *Logger[T]) OnDeregisterListener(listener any) {
	l.log.Debug("listener deregistered", zap.String("listener", listenerName(listener)))
}

func (l *Logger[T]) OnDeregisterAll() {
	l.log.Info("all listeners deregistered")
}

func (l *Logger[T]) OnCleanup() {
	l.log.Info("manager cleaned up")
}

func (l *Logger[T]) PreListenerDiscovery(listener any) {
	l.log.Debug("discovering listener", zap.String("listener", listenerName(listener)))
}

func (l *Logger[T]) PostListenerDiscovery(listener any) {
	l.log.Debug("listener discovered", zap.String("listener", listenerName(listener)))
}

func (l *Logger[T]) OnSkippedEvent(e T, timing event.Timing) {
	l.log.Debug("event skipped",
		zap.String("event", typeName(e)),
		zap.Stringer("timing", timing),
	)
}

func (l *Logger[T]) PreFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	if ce := l.log.Check(zap.DebugLevel, "firing event"); ce != nil {
		ce.Write(
			zap.String("event", typeName(e)),
			zap.Stringer("timing", timing),
			zap.Int("handlers", handlers.Len()),
			zap.Int("enabled", handlers.EnabledLen()),
		)
	}
}

func (l *Logger[T]) PostFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	l.log.Debug("event fired",
		zap.String("event", typeName(e)),
		zap.Stringer("timing", timing),
		zap.Int("handlers", handlers.Len()),
	)
}
