package dispatch

import (
	"fmt"
	"time"
)

// Handler is the interface for a single invocable handler.
// This mirrors the event handler record to avoid circular imports.
type Handler[E any] interface {
	Handle(event E) error
}

// HandlerFunc is a function adapter for Handler.
type HandlerFunc[E any] func(event E) error

// Handle implements the Handler interface.
func (f HandlerFunc[E]) Handle(event E) error {
	return f(event)
}

// Mode selects how a batch reacts to handler failures.
type Mode int

const (
	// FailFast stops the batch at the first failing handler.
	FailFast Mode = iota

	// Isolated runs every handler and reports all failures.
	Isolated
)

// String returns a human-readable mode name.
func (m Mode) String() string {
	switch m {
	case FailFast:
		return "fail-fast"
	case Isolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// Result represents the outcome of a handler execution.
type Result struct {
	// Success is true if the handler completed without error or panic.
	Success bool

	// Error is the error returned by the handler, or a *PanicError.
	Error error

	// Panicked is true if the handler panicked.
	Panicked bool

	// PanicValue is the value passed to panic(), if Panicked is true.
	PanicValue any

	// PanicStack is the stack trace at the point of panic.
	PanicStack []byte

	// Duration is how long the handler took to execute.
	Duration time.Duration
}

// IsSuccess returns true if the result indicates successful execution.
func (r Result) IsSuccess() bool {
	return r.Success && !r.Panicked && r.Error == nil
}

// IsError returns true if the result indicates an error (not panic).
func (r Result) IsError() bool {
	return r.Error != nil && !r.Panicked
}

// IsPanic returns true if the result indicates a panic.
func (r Result) IsPanic() bool {
	return r.Panicked
}

// PanicHandler is called when a handler panics in isolated mode.
// It receives the event being processed, the panic value, and the stack trace.
type PanicHandler func(event any, panicValue any, stack []byte)

// ErrorHandler is called for every failed handler in isolated mode.
type ErrorHandler func(event any, err error)

// describe returns a printable name for a handler.
func describe(h any) string {
	if s, ok := h.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%T", h)
}
