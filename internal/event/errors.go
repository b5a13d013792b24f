package event

import (
	"errors"
	"fmt"
)

// Sentinel errors for the event manager.
var (
	// ErrAlreadyRegistered is returned when a listener track that is
	// already enabled is registered again.
	ErrAlreadyRegistered = errors.New("listener already registered")

	// ErrNotRegistered is returned when a listener track that is not
	// enabled is deregistered.
	ErrNotRegistered = errors.New("listener not registered")

	// ErrNilListener is returned when a nil listener is provided.
	ErrNilListener = errors.New("listener cannot be nil")

	// ErrInvalidListener is returned when a listener's dynamic type cannot
	// be used as an identity key (slices, maps, funcs).
	ErrInvalidListener = errors.New("listener type is not comparable")

	// ErrNilEvent is returned when a nil event is fired.
	ErrNilEvent = errors.New("event cannot be nil")

	// ErrInvalidTiming is returned when an event is fired at an unknown phase.
	ErrInvalidTiming = errors.New("invalid timing")

	// ErrInvalidPersistence is returned for a track other than
	// NonPersistent or Persistent.
	ErrInvalidPersistence = errors.New("invalid persistence")
)

// ListenerError reports a rejected registration operation together with the
// offending listener.
type ListenerError struct {
	// Op is the rejected operation ("register" or "deregister").
	Op string

	// Listener is the listener that was passed in.
	Listener any

	// Persistence is the registration track that was addressed.
	Persistence Persistence

	// Err is the underlying sentinel error.
	Err error
}

// Error implements the error interface.
func (e *ListenerError) Error() string {
	return fmt.Sprintf("%s %T (%s): %v", e.Op, e.Listener, e.Persistence, e.Err)
}

// Unwrap returns the underlying error.
func (e *ListenerError) Unwrap() error {
	return e.Err
}

// HandlerError wraps an error returned by a handler with the handler that
// returned it.
type HandlerError struct {
	// Handler is the name of the failing handler ("*pkg.Type.Method").
	Handler string

	// Timing is the phase being fired.
	Timing Timing

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *HandlerError) Error() string {
	return "handler " + e.Handler + " (" + e.Timing.String() + "): " + e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *HandlerError) Unwrap() error {
	return e.Err
}
