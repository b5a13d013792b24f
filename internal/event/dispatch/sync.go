package dispatch

import (
	"iter"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
)

// Sequential executes a batch of handlers one after another in the
// caller's goroutine.
type Sequential[E any] struct {
	mode         Mode
	panicHandler PanicHandler
	errorHandler ErrorHandler
	executor     *Executor[E]

	// Stats
	runs        atomic.Uint64
	invoked     atomic.Uint64
	succeeded   atomic.Uint64
	failed      atomic.Uint64
	panicked    atomic.Uint64
	aborted     atomic.Uint64
	totalTimeNs atomic.Int64
}

// Option configures a Sequential runner.
type Option func(*options)

type options struct {
	mode         Mode
	panicHandler PanicHandler
	errorHandler ErrorHandler
}

// WithMode sets the failure mode. The default is FailFast.
func WithMode(m Mode) Option {
	return func(o *options) {
		o.mode = m
	}
}

// WithPanicHandler sets the callback for recovered panics (isolated mode).
func WithPanicHandler(h PanicHandler) Option {
	return func(o *options) {
		o.panicHandler = h
	}
}

// WithErrorHandler sets the callback for failed handlers (isolated mode).
func WithErrorHandler(h ErrorHandler) Option {
	return func(o *options) {
		o.errorHandler = h
	}
}

// NewSequential creates a new sequential runner.
func NewSequential[E any](opts ...Option) *Sequential[E] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return &Sequential[E]{
		mode:         o.mode,
		panicHandler: o.panicHandler,
		errorHandler: o.errorHandler,
		executor:     NewExecutor[E](o.panicHandler),
	}
}

// Mode returns the runner's failure mode.
func (d *Sequential[E]) Mode() Mode {
	return d.mode
}

// Run invokes every handler yielded by handlers, in order, with event.
//
// In FailFast mode the first error stops iteration and is returned as-is,
// and panics are not recovered. In Isolated mode all handlers run and the
// failures are combined with multierr.
func (d *Sequential[E]) Run(event E, handlers iter.Seq[Handler[E]]) error {
	d.runs.Add(1)
	if d.mode == Isolated {
		return d.runIsolated(event, handlers)
	}
	return d.runFailFast(event, handlers)
}

func (d *Sequential[E]) runFailFast(event E, handlers iter.Seq[Handler[E]]) error {
	var failure error
	for h := range handlers {
		if failure != nil {
			d.aborted.Add(1)
			continue
		}

		d.invoked.Add(1)
		start := time.Now()
		err := h.Handle(event)
		d.totalTimeNs.Add(time.Since(start).Nanoseconds())

		if err != nil {
			d.failed.Add(1)
			failure = err
			continue
		}
		d.succeeded.Add(1)
	}
	return failure
}

func (d *Sequential[E]) runIsolated(event E, handlers iter.Seq[Handler[E]]) error {
	var errs error
	for h := range handlers {
		d.invoked.Add(1)
		result := d.executor.Execute(event, h)
		d.totalTimeNs.Add(result.Duration.Nanoseconds())

		switch {
		case result.Panicked:
			d.panicked.Add(1)
		case result.Error != nil:
			d.failed.Add(1)
		default:
			d.succeeded.Add(1)
			continue
		}

		errs = multierr.Append(errs, result.Error)
		if d.errorHandler != nil {
			d.errorHandler(event, result.Error)
		}
	}
	return errs
}

// Stats returns dispatch statistics.
// Stats are read without a mutex, so values may be slightly inconsistent
// if a batch is running concurrently.
func (d *Sequential[E]) Stats() Stats {
	invoked := d.invoked.Load()
	totalNs := d.totalTimeNs.Load()

	var avgNs int64
	if invoked > 0 {
		avgNs = totalNs / int64(invoked)
	}

	return Stats{
		Runs:          d.runs.Load(),
		Invoked:       invoked,
		Succeeded:     d.succeeded.Load(),
		Failed:        d.failed.Load(),
		Panicked:      d.panicked.Load(),
		Aborted:       d.aborted.Load(),
		TotalDuration: time.Duration(totalNs),
		AvgDuration:   time.Duration(avgNs),
	}
}

// ResetStats resets all statistics to zero.
func (d *Sequential[E]) ResetStats() {
	d.runs.Store(0)
	d.invoked.Store(0)
	d.succeeded.Store(0)
	d.failed.Store(0)
	d.panicked.Store(0)
	d.aborted.Store(0)
	d.totalTimeNs.Store(0)
}

// Stats contains statistics for a sequential runner.
type Stats struct {
	// Runs is the number of batches started.
	Runs uint64

	// Invoked is the number of handlers called.
	Invoked uint64

	// Succeeded is the number of handlers that returned nil.
	Succeeded uint64

	// Failed is the number of handlers that returned an error.
	Failed uint64

	// Panicked is the number of recovered panics (isolated mode only).
	Panicked uint64

	// Aborted is the number of handlers skipped after a fail-fast failure.
	Aborted uint64

	// TotalDuration is the cumulative time spent in handlers.
	TotalDuration time.Duration

	// AvgDuration is the average handler execution time.
	AvgDuration time.Duration
}
