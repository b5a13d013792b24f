package dispatch

import (
	"errors"
	"fmt"
)

// ErrHandlerPanic is matched by errors.Is for every *PanicError.
var ErrHandlerPanic = errors.New("handler panicked")

// PanicError wraps a recovered panic value as an error.
type PanicError struct {
	// Handler names the handler that panicked.
	Handler string

	// Value is the value passed to panic().
	Value any

	// Stack is the stack trace at the time of the panic.
	Stack []byte
}

// Error implements the error interface.
func (e *PanicError) Error() string {
	return fmt.Sprintf("handler %s panicked: %v", e.Handler, e.Value)
}

// Is allows errors.Is to match PanicError with ErrHandlerPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrHandlerPanic
}

// Unwrap exposes the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
