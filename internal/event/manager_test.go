package event_test

import (
	"errors"
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/eventcore/internal/event"
	"github.com/dshills/eventcore/internal/event/dispatch"
	"github.com/dshills/eventcore/internal/event/profile"
)

func newManager(t *testing.T, opts ...event.Option) (*event.Manager[any], *profile.Recorder[any]) {
	t.Helper()
	m := event.New[any](opts...)
	rec := profile.NewRecorder[any]()
	m.SetProfiler(rec)
	return m, rec
}

func TestManager_PriorityOrder(t *testing.T) {
	m, rec := newManager(t)
	x := &listenerX{}
	require.NoError(t, m.Register(x, event.NonPersistent))

	e := &myEvent{}
	got, err := m.Fire(e)
	require.NoError(t, err)
	assert.Same(t, e, got)
	assert.Equal(t, []string{"a", "b"}, e.calls)

	_, err = m.FireTiming(e, event.Post)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, e.calls, "no handler reacts to Post")
	assert.Equal(t, 1, rec.Count(profile.KindSkipped))
}

func TestManager_FireWithoutHandlersIsSkipped(t *testing.T) {
	m, rec := newManager(t)

	e := &myEvent{}
	_, err := m.Fire(e)
	require.NoError(t, err)

	assert.Empty(t, e.calls)
	assert.Equal(t, 1, rec.Count(profile.KindSkipped))
	assert.Zero(t, rec.Count(profile.KindPreFire))
	assert.Zero(t, rec.Count(profile.KindPostFire))

	calls := rec.Calls()
	require.Len(t, calls, 1)
	assert.Same(t, e, calls[0].Event)
	assert.Equal(t, event.Pre, calls[0].Timing)
}

func TestManager_FireCallbacksReceiveOrderedHandlers(t *testing.T) {
	m, rec := newManager(t)
	require.NoError(t, m.Register(&listenerX{}, event.NonPersistent))

	_, err := m.Fire(&myEvent{})
	require.NoError(t, err)

	calls := rec.Calls()
	require.Len(t, calls, 5) // pre/post discovery, register, pre/post fire
	assert.Equal(t, profile.KindPreFire, calls[3].Kind)
	assert.Equal(t, []string{"A", "B"}, calls[3].Handlers)
	assert.Equal(t, profile.KindPostFire, calls[4].Kind)
}

func TestManager_RegisterTwice(t *testing.T) {
	m, _ := newManager(t)
	x := &listenerX{}
	require.NoError(t, m.Register(x, event.NonPersistent))

	err := m.Register(x, event.NonPersistent)
	require.ErrorIs(t, err, event.ErrAlreadyRegistered)

	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Same(t, x, le.Listener)
	assert.Equal(t, "register", le.Op)
	assert.Equal(t, event.NonPersistent, le.Persistence)

	// The other track is independent.
	require.NoError(t, m.Register(x, event.Persistent))
}

func TestManager_DeregisterNotRegistered(t *testing.T) {
	m, _ := newManager(t)
	x := &listenerX{}

	err := m.Deregister(x, event.NonPersistent)
	require.ErrorIs(t, err, event.ErrNotRegistered)

	var le *event.ListenerError
	require.ErrorAs(t, err, &le)
	assert.Same(t, x, le.Listener)

	require.NoError(t, m.Register(x, event.NonPersistent))
	require.NoError(t, m.Deregister(x, event.NonPersistent))
	assert.ErrorIs(t, m.Deregister(x, event.NonPersistent), event.ErrNotRegistered)
}

func TestManager_PersistentOnlyThenDeregisterNonPersistent(t *testing.T) {
	m, _ := newManager(t)
	x := &listenerX{}

	require.NoError(t, m.Register(x, event.Persistent))
	assert.ErrorIs(t, m.Deregister(x, event.NonPersistent), event.ErrNotRegistered)
	assert.Equal(t, event.Disabled, m.State(x, event.NonPersistent))
	assert.Equal(t, event.Enabled, m.State(x, event.Persistent))
}

func TestManager_DiscoveryRunsOnce(t *testing.T) {
	m, rec := newManager(t)
	l := &trackedListener{}

	require.NoError(t, m.Register(l, event.NonPersistent))
	require.NoError(t, m.Deregister(l, event.NonPersistent))
	require.NoError(t, m.Register(l, event.NonPersistent))
	require.NoError(t, m.Register(l, event.Persistent))
	m.DeregisterAll()
	require.NoError(t, m.Register(l, event.Persistent))

	assert.Equal(t, 1, rec.Count(profile.KindPreDiscovery))
	assert.Equal(t, 1, rec.Count(profile.KindPostDiscovery))
	assert.Equal(t, 1, m.Listeners())
}

func TestManager_ActiveHandlerCounter(t *testing.T) {
	m, _ := newManager(t)
	l := &trackedListener{}
	x := &listenerX{}

	steps := []struct {
		name string
		op   func() error
		want int
	}{
		{"register tracked non-persistent", func() error { return m.Register(l, event.NonPersistent) }, 2},
		{"register tracked persistent", func() error { return m.Register(l, event.Persistent) }, 3},
		{"register x non-persistent", func() error { return m.Register(x, event.NonPersistent) }, 5},
		{"register x persistent (no handlers)", func() error { return m.Register(x, event.Persistent) }, 5},
		{"deregister tracked non-persistent", func() error { return m.Deregister(l, event.NonPersistent) }, 3},
		{"deregister all", func() error { m.DeregisterAll(); return nil }, 0},
		{"register tracked persistent again", func() error { return m.Register(l, event.Persistent) }, 1},
		{"cleanup", func() error { m.Cleanup(); return nil }, 0},
	}
	for _, step := range steps {
		require.NoError(t, step.op(), step.name)
		assert.Equal(t, step.want, m.ActiveHandlers(), step.name)
	}
}

func TestManager_DeregisteredHandlersAreNotInvoked(t *testing.T) {
	m, rec := newManager(t)
	l := &trackedListener{}
	require.NoError(t, m.Register(l, event.NonPersistent))
	require.NoError(t, m.Register(l, event.Persistent))

	e := &myEvent{}
	_, err := m.Fire(e)
	require.NoError(t, err)
	assert.Equal(t, []string{"my", "keep"}, e.calls)

	require.NoError(t, m.Deregister(l, event.NonPersistent))
	e = &myEvent{}
	_, err = m.Fire(e)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, e.calls)

	// Disabled members stay in the set, so the fire is not skipped.
	assert.Zero(t, rec.Count(profile.KindSkipped))
	view := m.Handlers(event.Pre, reflect.TypeFor[*myEvent]())
	assert.Equal(t, 2, view.Len())
	assert.Equal(t, 1, view.EnabledLen())
}

func TestManager_DeregisterAllThenRegister(t *testing.T) {
	m, rec := newManager(t)
	l := &trackedListener{}
	require.NoError(t, m.Register(l, event.NonPersistent))
	require.NoError(t, m.Register(l, event.Persistent))
	before := m.ActiveHandlers()

	m.DeregisterAll()
	assert.Equal(t, 0, m.ActiveHandlers())
	assert.Equal(t, event.Disabled, m.State(l, event.NonPersistent))
	assert.Equal(t, event.Disabled, m.State(l, event.Persistent))
	assert.Equal(t, 1, rec.Count(profile.KindDeregisterAll))

	e := &myEvent{}
	_, err := m.Fire(e)
	require.NoError(t, err)
	assert.Empty(t, e.calls)
	assert.Equal(t, 1, rec.Count(profile.KindSkipped))

	require.NoError(t, m.Register(l, event.NonPersistent))
	require.NoError(t, m.Register(l, event.Persistent))
	assert.Equal(t, before, m.ActiveHandlers())
	assert.Equal(t, 1, rec.Count(profile.KindPreDiscovery))

	e = &myEvent{}
	_, err = m.Fire(e)
	require.NoError(t, err)
	assert.Equal(t, []string{"my", "keep"}, e.calls)
}

func TestManager_DeregisterAllRestoresOnlyRegisteredTrack(t *testing.T) {
	m, _ := newManager(t)
	l := &trackedListener{}
	require.NoError(t, m.Register(l, event.NonPersistent))
	require.NoError(t, m.Register(l, event.Persistent))
	m.DeregisterAll()

	require.NoError(t, m.Register(l, event.Persistent))
	view := m.Handlers(event.Pre, reflect.TypeFor[*myEvent]())
	require.Equal(t, 1, view.Len())
	assert.Equal(t, "OnMyKeep", view.Handlers()[0].Name())
}

func TestManager_Cleanup(t *testing.T) {
	m, rec := newManager(t)
	l := &trackedListener{}
	require.NoError(t, m.Register(l, event.NonPersistent))
	_, err := m.Fire(&myEvent{})
	require.NoError(t, err)

	m.Cleanup()

	assert.Equal(t, 1, rec.Count(profile.KindCleanup))
	assert.Equal(t, 0, m.ActiveHandlers())
	assert.Equal(t, 0, m.Listeners())
	assert.Equal(t, event.Undiscovered, m.State(l, event.NonPersistent))
	assert.Empty(t, m.EventTypes(event.Pre))
	assert.Empty(t, m.EventTypes(event.Post))
	assert.Zero(t, m.Stats().HandlerSets)

	e := &myEvent{}
	_, err = m.Fire(e)
	require.NoError(t, err)
	assert.Empty(t, e.calls)

	// A cleaned-up listener is scanned again.
	require.NoError(t, m.Register(l, event.NonPersistent))
	assert.Equal(t, 2, rec.Count(profile.KindPreDiscovery))
}

func TestManager_StateTransitions(t *testing.T) {
	m, _ := newManager(t)
	x := &listenerX{}

	assert.Equal(t, event.Undiscovered, m.State(x, event.NonPersistent))
	require.NoError(t, m.Register(x, event.NonPersistent))
	assert.Equal(t, event.Enabled, m.State(x, event.NonPersistent))
	assert.Equal(t, event.Disabled, m.State(x, event.Persistent), "discovery prepares both tracks")
	require.NoError(t, m.Deregister(x, event.NonPersistent))
	assert.Equal(t, event.Disabled, m.State(x, event.NonPersistent))
}

func TestManager_TieBreaks(t *testing.T) {
	m, _ := newManager(t)
	first := &namedListener{name: "first", prio: event.PriorityNormal}
	second := &namedListener{name: "second", prio: event.PriorityNormal}
	high := &namedListener{name: "high", prio: event.PriorityHigh}

	require.NoError(t, m.Register(first, event.NonPersistent))
	require.NoError(t, m.Register(second, event.NonPersistent))
	require.NoError(t, m.Register(high, event.NonPersistent))

	for range 3 {
		e := &myEvent{}
		_, err := m.Fire(e)
		require.NoError(t, err)
		assert.Equal(t, []string{"high", "first", "second"}, e.calls)
	}
}

func TestManager_DeclarationIndexBreaksTies(t *testing.T) {
	m, _ := newManager(t)
	l := &failingListener{}
	require.NoError(t, m.Register(l, event.NonPersistent))

	view := m.Handlers(event.Pre, reflect.TypeFor[*myEvent]())
	var names []string
	var indexes []int
	for h := range view.All() {
		names = append(names, h.Name())
		indexes = append(indexes, h.Index())
	}
	assert.Equal(t, []string{"first", "second", "third"}, names)
	assert.Equal(t, []int{0, 1, 2}, indexes)
}

func TestManager_TimingAwareHandler(t *testing.T) {
	m, _ := newManager(t)
	p := &phaseListener{}
	require.NoError(t, m.Register(p, event.NonPersistent))

	e := &myEvent{}
	_, err := m.FireTiming(e, event.Pre)
	require.NoError(t, err)
	_, err = m.FireTiming(e, event.Post)
	require.NoError(t, err)

	assert.Equal(t, []event.Timing{event.Pre, event.Post}, p.seen)
	assert.Equal(t, []string{"phase:pre", "phase:post"}, e.calls)
	assert.Equal(t, 1, m.ActiveHandlers(), "one record serves both phases")

	h := m.Handlers(event.Post, reflect.TypeFor[*myEvent]()).Handlers()
	require.Len(t, h, 1)
	assert.True(t, h[0].TimingAware())
}

func TestManager_ExactTypeLookup(t *testing.T) {
	m, rec := newManager(t)
	require.NoError(t, m.Register(&listenerX{}, event.NonPersistent))

	d := &derivedEvent{}
	_, err := m.Fire(d)
	require.NoError(t, err)

	assert.Empty(t, d.calls)
	assert.Equal(t, 1, rec.Count(profile.KindSkipped))
}

func TestManager_HandlersMutateSharedEvent(t *testing.T) {
	m := event.New[any]()
	var seenByLow int
	l := &struct{ event.Describer[any] }{}
	l.Describer = describerFunc(func() []event.Descriptor[any] {
		return []event.Descriptor[any]{
			event.On[any]("low", func(e *myEvent) error {
				seenByLow = len(e.calls)
				return nil
			}, event.Marker{Priority: event.PriorityLow}),
			event.On[any]("high", func(e *myEvent) error {
				e.record("high")
				return nil
			}, event.Marker{Priority: event.PriorityHigh}),
		}
	})
	require.NoError(t, m.Register(l, event.NonPersistent))

	_, err := m.Fire(&myEvent{})
	require.NoError(t, err)
	assert.Equal(t, 1, seenByLow)
}

type describerFunc func() []event.Descriptor[any]

func (f describerFunc) DescribeHandlers() []event.Descriptor[any] { return f() }

func TestManager_FailFast(t *testing.T) {
	m, rec := newManager(t)
	boom := errors.New("boom")
	l := &failingListener{err: boom}
	require.NoError(t, m.Register(l, event.NonPersistent))

	e := &myEvent{}
	got, err := m.Fire(e)
	require.ErrorIs(t, err, boom)
	assert.Same(t, e, got)
	assert.Equal(t, []string{"first"}, e.calls)

	var he *event.HandlerError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, event.Pre, he.Timing)
	assert.Contains(t, he.Handler, "first")

	assert.Equal(t, 1, rec.Count(profile.KindPreFire))
	assert.Zero(t, rec.Count(profile.KindPostFire))
	assert.Equal(t, uint64(2), m.Stats().Dispatch.Aborted)
}

func TestManager_FailFastPanicPropagates(t *testing.T) {
	m, _ := newManager(t)
	require.NoError(t, m.Register(&failingListener{panicVal: "kaboom"}, event.NonPersistent))

	assert.PanicsWithValue(t, "kaboom", func() {
		_, _ = m.Fire(&myEvent{})
	})

	// The fire lock was released by the unwinding panic.
	m.Cleanup()
	_, err := m.Fire(&myEvent{})
	assert.NoError(t, err)
}

func TestManager_Isolation(t *testing.T) {
	boom := errors.New("boom")
	var failed []error
	var panicEvent any

	m, rec := newManager(t,
		event.WithIsolation(),
		event.WithErrorHandler(func(_ any, err error) { failed = append(failed, err) }),
		event.WithPanicHandler(func(ev any, _ any, _ []byte) { panicEvent = ev }),
	)
	require.NoError(t, m.Register(&failingListener{err: boom, panicVal: "kaboom"}, event.NonPersistent))

	e := &myEvent{}
	_, err := m.Fire(e)
	require.Error(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, e.calls)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, dispatch.ErrHandlerPanic)
	assert.Len(t, failed, 2)
	assert.Same(t, e, panicEvent)
	assert.Equal(t, 1, rec.Count(profile.KindPostFire))

	stats := m.Stats().Dispatch
	assert.Equal(t, uint64(1), stats.Panicked)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestManager_InvalidArguments(t *testing.T) {
	m, _ := newManager(t)

	assert.ErrorIs(t, m.Register(nil, event.NonPersistent), event.ErrNilListener)
	assert.ErrorIs(t, m.Deregister(nil, event.NonPersistent), event.ErrNilListener)
	assert.ErrorIs(t, m.Register(mapListener{}, event.NonPersistent), event.ErrInvalidListener)
	assert.Equal(t, event.Undiscovered, m.State(mapListener{}, event.NonPersistent))

	_, err := m.Fire(nil)
	assert.ErrorIs(t, err, event.ErrNilEvent)

	x := &listenerX{}
	bad := event.Persistence(2)
	assert.NotPanics(t, func() {
		assert.ErrorIs(t, m.Register(x, bad), event.ErrInvalidPersistence)
	})
	assert.ErrorIs(t, m.Deregister(x, bad), event.ErrInvalidPersistence)
	assert.Equal(t, event.Undiscovered, m.State(x, bad))
	assert.Zero(t, m.Listeners(), "rejected before discovery")

	// The manager stays usable after a rejected track.
	require.NoError(t, m.Register(x, event.NonPersistent))
	assert.Equal(t, event.Enabled, m.State(x, event.NonPersistent))

	_, err = m.FireTiming(&myEvent{}, event.Timing(5))
	assert.ErrorIs(t, err, event.ErrInvalidTiming)
	assert.Empty(t, m.EventTypes(event.Timing(5)))
	assert.Zero(t, m.Handlers(event.Timing(5), reflect.TypeFor[*myEvent]()).Len())
}

func TestManager_RegisterListenerUsesNonPersistentTrack(t *testing.T) {
	m, _ := newManager(t)
	l := &trackedListener{}

	require.NoError(t, m.RegisterListener(l))
	assert.Equal(t, event.Enabled, m.State(l, event.NonPersistent))
	assert.Equal(t, event.Disabled, m.State(l, event.Persistent))
	assert.ErrorIs(t, m.RegisterListener(l), event.ErrAlreadyRegistered)

	require.NoError(t, m.DeregisterListener(l))
	assert.Equal(t, event.Disabled, m.State(l, event.NonPersistent))
	assert.ErrorIs(t, m.DeregisterListener(l), event.ErrNotRegistered)
}

func TestManager_SetProfilerNil(t *testing.T) {
	m, rec := newManager(t)
	m.SetProfiler(nil)

	require.NoError(t, m.Register(&listenerX{}, event.NonPersistent))
	_, err := m.Fire(&otherEvent{})
	require.NoError(t, err)
	assert.Empty(t, rec.Calls())
}

func TestManager_Stats(t *testing.T) {
	m, _ := newManager(t)
	require.NoError(t, m.Register(&trackedListener{}, event.NonPersistent))

	_, _ = m.Fire(&myEvent{})
	_, _ = m.Fire(&otherEvent{})
	_, _ = m.FireTiming(&otherEvent{}, event.Post)

	stats := m.Stats()
	assert.Equal(t, uint64(2), stats.Fired)
	assert.Equal(t, uint64(1), stats.Skipped)
	assert.Equal(t, 2, stats.ActiveHandlers)
	assert.Equal(t, 2, stats.HandlerSets)
	assert.Equal(t, uint64(2), stats.Dispatch.Runs)
}

func TestManager_ConcurrentRegistrationDuringFire(t *testing.T) {
	m := event.New[any]()
	var hits atomic.Int64

	const listeners = 50
	ls := make([]*countingListener, listeners)
	for i := range ls {
		ls[i] = &countingListener{hits: &hits}
	}

	var g errgroup.Group
	g.Go(func() error {
		for range 200 {
			if _, err := m.Fire(&myEvent{}); err != nil {
				return err
			}
		}
		return nil
	})
	for _, l := range ls {
		g.Go(func() error {
			if err := m.Register(l, event.NonPersistent); err != nil {
				return err
			}
			_, err := m.Fire(&otherEvent{})
			return err
		})
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, listeners, m.ActiveHandlers())
	assert.Equal(t, listeners, m.Listeners())

	hits.Store(0)
	_, err := m.Fire(&myEvent{})
	require.NoError(t, err)
	assert.Equal(t, int64(listeners), hits.Load())
}

type countingListener struct {
	hits *atomic.Int64
}

func (c *countingListener) EventHandlers() event.Markers {
	return event.Markers{"OnMy": {}}
}

func (c *countingListener) OnMy(*myEvent) { c.hits.Add(1) }
