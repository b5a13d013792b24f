package dispatch

import (
	"iter"
	"runtime/debug"
	"time"
)

// Executor runs a single handler with panic recovery and timing.
type Executor[E any] struct {
	panicHandler PanicHandler
}

// NewExecutor creates a new executor. A nil panic handler disables the
// callback; the panic is still recovered and reported in the Result.
func NewExecutor[E any](panicHandler PanicHandler) *Executor[E] {
	return &Executor[E]{panicHandler: panicHandler}
}

// Execute runs a handler with the given event and returns the result.
// It recovers from panics and captures timing information.
func (e *Executor[E]) Execute(event E, handler Handler[E]) (result Result) {
	start := time.Now()

	defer func() {
		result.Duration = time.Since(start)

		if r := recover(); r != nil {
			stack := debug.Stack()

			result.Success = false
			result.Panicked = true
			result.PanicValue = r
			result.PanicStack = stack
			result.Error = &PanicError{Handler: describe(handler), Value: r, Stack: stack}

			// A panicking panic handler must not take the batch down with it.
			if e.panicHandler != nil {
				func() {
					defer func() {
						_ = recover()
					}()
					e.panicHandler(event, r, stack)
				}()
			}
		}
	}()

	if err := handler.Handle(event); err != nil {
		result.Error = err
		return result
	}
	result.Success = true
	return result
}

// ExecuteAll runs every handler in order and returns all results.
func (e *Executor[E]) ExecuteAll(event E, handlers iter.Seq[Handler[E]]) []Result {
	var results []Result
	for h := range handlers {
		results = append(results, e.Execute(event, h))
	}
	return results
}
