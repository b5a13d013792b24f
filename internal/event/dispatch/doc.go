// Package dispatch runs an ordered batch of event handlers for a single
// delivery.
//
// The dispatch package is deliberately ignorant of how handlers were found
// or ordered; it receives an iterator over handlers that is already in
// invocation order and walks it.
//
// # Modes
//
// Two modes are provided:
//
//   - FailFast: the default. Handlers run in order; the first handler that
//     returns an error stops the batch and the error is returned. A panic is
//     not recovered and propagates to the caller of Run.
//
//   - Isolated: every handler runs even if an earlier one failed. Panics are
//     recovered and converted to *PanicError with the captured stack. All
//     failures are combined into a single error.
//
// # Usage
//
//	runner := dispatch.NewSequential[Delivery](
//	    dispatch.WithMode(dispatch.Isolated),
//	    dispatch.WithPanicHandler(func(event any, v any, stack []byte) {
//	        log.Printf("panic in handler: %v\n%s", v, stack)
//	    }),
//	)
//	if err := runner.Run(delivery, handlers); err != nil {
//	    // inspect with errors.Is / multierr.Errors
//	}
//
// # Result Handling
//
// Executor.Execute returns a Result capturing success, the returned error,
// panic information and the execution duration of a single handler.
package dispatch
