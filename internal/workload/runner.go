package workload

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/eventcore/internal/config"
	"github.com/dshills/eventcore/internal/event"
)

// Summary reports the outcome of a run.
type Summary struct {
	Rounds        int
	Listeners     int
	Registrations int64
	Fired         uint64
	Skipped       uint64
	Deliveries    int64
	Failures      int64
	Elapsed       time.Duration
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (s Summary) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddInt("rounds", s.Rounds)
	enc.AddInt("listeners", s.Listeners)
	enc.AddInt64("registrations", s.Registrations)
	enc.AddUint64("fired", s.Fired)
	enc.AddUint64("skipped", s.Skipped)
	enc.AddInt64("deliveries", s.Deliveries)
	enc.AddInt64("failures", s.Failures)
	enc.AddDuration("elapsed", s.Elapsed)
	return nil
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger used for progress and handler failures.
func WithLogger(log *zap.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithProfiler attaches p to the manager of every run.
func WithProfiler(p event.Profiler[Event]) Option {
	return func(r *Runner) {
		r.profiler = p
	}
}

// Runner executes a synthetic workload against a fresh manager.
//
// Each round registers every listener concurrently, fires the configured
// number of events from Workers goroutines, then deregisters. The last
// round tears down with DeregisterAll instead of per-listener calls.
type Runner struct {
	cfg      config.WorkloadConfig
	log      *zap.Logger
	profiler event.Profiler[Event]
}

// NewRunner creates a Runner for cfg.
func NewRunner(cfg config.WorkloadConfig, opts ...Option) *Runner {
	r := &Runner{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the workload. In fail-fast mode the first handler error
// ends the run and is returned along with the partial summary.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()

	var hits, failures atomic.Int64
	m := event.New[Event](r.managerOptions()...)
	m.SetProfiler(r.profiler)
	defer m.Cleanup()

	listeners := make([]any, r.cfg.Listeners)
	for i := range listeners {
		name := fmt.Sprintf("listener-%d", i)
		if i%2 == 0 {
			listeners[i] = NewCounter(name, &hits)
		} else {
			listeners[i] = NewAuditor(name, &hits)
		}
	}

	var sum Summary
	var registrations atomic.Int64
	finish := func() Summary {
		stats := m.Stats()
		sum.Listeners = m.Listeners()
		sum.Registrations = registrations.Load()
		sum.Fired = stats.Fired
		sum.Skipped = stats.Skipped
		sum.Deliveries = hits.Load()
		sum.Failures = failures.Load()
		sum.Elapsed = time.Since(start)
		return sum
	}

	for round := 0; round < r.cfg.Rounds; round++ {
		if err := ctx.Err(); err != nil {
			return finish(), err
		}
		if err := r.register(ctx, m, listeners, &registrations); err != nil {
			return finish(), fmt.Errorf("round %d: %w", round, err)
		}
		r.log.Debug("listeners registered",
			zap.Int("round", round),
			zap.Int("active_handlers", m.ActiveHandlers()),
		)

		if err := r.fire(ctx, m, &failures); err != nil {
			return finish(), fmt.Errorf("round %d: %w", round, err)
		}

		if round == r.cfg.Rounds-1 {
			m.DeregisterAll()
		} else if err := r.deregister(ctx, m, listeners); err != nil {
			return finish(), fmt.Errorf("round %d: %w", round, err)
		}
		sum.Rounds++
	}

	return finish(), nil
}

func (r *Runner) managerOptions() []event.Option {
	if !r.cfg.Isolate {
		return nil
	}
	return []event.Option{
		event.WithIsolation(),
		event.WithErrorHandler(func(ev any, err error) {
			r.log.Debug("handler failed", zap.Any("event", ev), zap.Error(err))
		}),
		event.WithPanicHandler(func(ev any, v any, stack []byte) {
			r.log.Error("handler panicked",
				zap.Any("event", ev),
				zap.Any("panic", v),
				zap.ByteString("stack", stack),
			)
		}),
	}
}

func (r *Runner) persistent(i int) bool {
	return r.cfg.PersistentEvery > 0 && (i+1)%r.cfg.PersistentEvery == 0
}

func (r *Runner) register(ctx context.Context, m *event.Manager[Event], listeners []any, n *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, l := range listeners {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.Register(l, event.NonPersistent); err != nil {
				return err
			}
			n.Add(1)
			if r.persistent(i) {
				if err := m.Register(l, event.Persistent); err != nil {
					return err
				}
				n.Add(1)
			}
			return nil
		})
	}
	return g.Wait()
}

func (r *Runner) deregister(ctx context.Context, m *event.Manager[Event], listeners []any) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)
	for i, l := range listeners {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.Deregister(l, event.NonPersistent); err != nil {
				return err
			}
			if r.persistent(i) {
				return m.Deregister(l, event.Persistent)
			}
			return nil
		})
	}
	return g.Wait()
}

// fire splits the events of one round across Workers goroutines. The
// manager serializes the fires themselves.
func (r *Runner) fire(ctx context.Context, m *event.Manager[Event], failures *atomic.Int64) error {
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < r.cfg.Workers; w++ {
		g.Go(func() error {
			for i := w; i < r.cfg.Events; i += r.cfg.Workers {
				if err := gctx.Err(); err != nil {
					return err
				}
				ev, timing := r.eventAt(i)
				if _, err := m.FireTiming(ev, timing); err != nil {
					failures.Add(int64(len(multierr.Errors(err))))
					if !r.cfg.Isolate {
						return err
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// eventAt returns the i-th event of a round. The sequence cycles through a
// Tick, a Message at Pre, a Message at Post and an Idle event.
func (r *Runner) eventAt(i int) (Event, event.Timing) {
	text := fmt.Sprintf("message %d", i)
	if r.cfg.FailEvery > 0 && (i+1)%r.cfg.FailEvery == 0 {
		text = ""
	}

	switch i % 4 {
	case 0:
		return NewTick(i), event.Pre
	case 1:
		return NewMessage(text), event.Pre
	case 2:
		return NewMessage(text), event.Post
	default:
		return NewIdle(), event.Pre
	}
}
