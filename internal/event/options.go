package event

import "github.com/dshills/eventcore/internal/event/dispatch"

// Option configures a Manager.
type Option func(*managerConfig)

// managerConfig contains configuration for the manager.
type managerConfig struct {
	// isolate runs every handler of a fire even if one fails.
	isolate bool

	// errorHandler is called for every failed handler in isolated mode.
	errorHandler dispatch.ErrorHandler

	// panicHandler is called for every recovered panic in isolated mode.
	panicHandler dispatch.PanicHandler
}

// WithIsolation makes Fire run every handler even when one returns an error
// or panics. Panics are recovered and all failures are returned together.
// By default the first failing handler aborts the rest.
func WithIsolation() Option {
	return func(c *managerConfig) {
		c.isolate = true
	}
}

// WithErrorHandler sets a callback for every failed handler in isolated
// mode.
func WithErrorHandler(h func(event any, err error)) Option {
	return func(c *managerConfig) {
		c.errorHandler = h
	}
}

// WithPanicHandler sets a callback for every recovered panic in isolated
// mode.
func WithPanicHandler(h func(event any, panicValue any, stack []byte)) Option {
	return func(c *managerConfig) {
		c.panicHandler = h
	}
}

// dispatchOptions translates c for the runner. The runner sees
// Delivery values; callbacks are handed the event itself.
func dispatchOptions[T any](c managerConfig) []dispatch.Option {
	mode := dispatch.FailFast
	if c.isolate {
		mode = dispatch.Isolated
	}
	opts := []dispatch.Option{dispatch.WithMode(mode)}

	if h := c.errorHandler; h != nil {
		opts = append(opts, dispatch.WithErrorHandler(func(ev any, err error) {
			h(unwrapDelivery[T](ev), err)
		}))
	}
	if h := c.panicHandler; h != nil {
		opts = append(opts, dispatch.WithPanicHandler(func(ev any, v any, stack []byte) {
			h(unwrapDelivery[T](ev), v, stack)
		}))
	}
	return opts
}

func unwrapDelivery[T any](ev any) any {
	if d, ok := ev.(Delivery[T]); ok {
		return d.Event
	}
	return ev
}
