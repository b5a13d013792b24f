// Package profile provides event.Profiler implementations.
//
//   - Recorder keeps an in-memory log of every callback.
//   - Logger writes callbacks as structured zap log entries.
//   - Telemetry records OpenTelemetry metrics and one span per fire.
//   - Multi fans callbacks out to several profilers.
//
// Profilers are attached with Manager.SetProfiler:
//
//	rec := profile.NewRecorder[Event]()
//	m.SetProfiler(profile.Multi[Event]{rec, profile.NewLogger[Event](logger)})
package profile

import (
	"fmt"
	"reflect"
)

// typeName returns the dynamic type name of v, or "<nil>".
func typeName(v any) string {
	if t := reflect.TypeOf(v); t != nil {
		return t.String()
	}
	return "<nil>"
}

// listenerName identifies a listener in logs and attributes.
func listenerName(listener any) string {
	if s, ok := listener.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T@%p", listener, listener)
}
