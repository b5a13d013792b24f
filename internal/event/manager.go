package event

import (
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/dshills/eventcore/internal/event/dispatch"
)

// Manager discovers the handlers of listeners, tracks their registration
// state and fires events of base type T to them.
//
// A Manager is safe for concurrent use. Fire calls are serialized; a
// handler must not fire on the manager that is invoking it.
type Manager[T any] struct {
	base reflect.Type

	// mu guards listeners and nextSeq and serializes registration.
	mu        sync.Mutex
	listeners map[any]*listenerEntry[T]
	nextSeq   uint64
	table     *table[T]
	active    atomic.Int64

	// fireMu serializes Fire.
	fireMu sync.Mutex
	runner *dispatch.Sequential[Delivery[T]]

	profiler atomic.Pointer[profilerRef[T]]

	fired   atomic.Uint64
	skipped atomic.Uint64
}

// listenerEntry holds what is known about one discovered listener.
type listenerEntry[T any] struct {
	seq      uint64
	handlers [2][]*Handler[T]
	states   [2]ListenerState
}

// New creates a Manager for events whose type is T or, when T is an
// interface, implements T.
func New[T any](opts ...Option) *Manager[T] {
	var cfg managerConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	m := &Manager[T]{
		base:      reflect.TypeFor[T](),
		listeners: make(map[any]*listenerEntry[T]),
		table:     newTable[T](),
		runner:    dispatch.NewSequential[Delivery[T]](dispatchOptions[T](cfg)...),
	}
	m.profiler.Store(&profilerRef[T]{NopProfiler[T]{}})
	return m
}

// SetProfiler replaces the profiler. It takes effect for operations that
// start after the call. A nil profiler restores the no-op profiler.
func (m *Manager[T]) SetProfiler(p Profiler[T]) {
	if p == nil {
		p = NopProfiler[T]{}
	}
	m.profiler.Store(&profilerRef[T]{p})
}

func (m *Manager[T]) currentProfiler() Profiler[T] {
	return m.profiler.Load().Profiler
}

// Register enables the handlers of listener on track p.
//
// The first registration of a listener, on either track, scans it for
// handlers and caches both tracks; later registrations reuse the cache.
// Registering an enabled track fails with ErrAlreadyRegistered.
func (m *Manager[T]) Register(listener any, p Persistence) error {
	if err := checkListener(listener); err != nil {
		return err
	}
	if !p.valid() {
		return &ListenerError{Op: "register", Listener: listener, Persistence: p, Err: ErrInvalidPersistence}
	}
	prof := m.currentProfiler()

	m.mu.Lock()
	entry, discovered := m.listeners[listener]
	if discovered && entry.states[p] == Enabled {
		m.mu.Unlock()
		return &ListenerError{Op: "register", Listener: listener, Persistence: p, Err: ErrAlreadyRegistered}
	}
	if !discovered {
		entry = m.discover(listener, prof)
	}

	handlers := entry.handlers[p]
	for _, h := range handlers {
		h.SetEnabled(true)
		h.attach()
	}
	entry.states[p] = Enabled
	m.active.Add(int64(len(handlers)))
	m.mu.Unlock()

	prof.OnRegisterListener(listener)
	return nil
}

// Deregister disables the handlers of listener on track p. The handlers
// stay cached. Deregistering a track that is not enabled fails with
// ErrNotRegistered.
func (m *Manager[T]) Deregister(listener any, p Persistence) error {
	if err := checkListener(listener); err != nil {
		return err
	}
	if !p.valid() {
		return &ListenerError{Op: "deregister", Listener: listener, Persistence: p, Err: ErrInvalidPersistence}
	}
	prof := m.currentProfiler()

	m.mu.Lock()
	entry, ok := m.listeners[listener]
	if !ok || entry.states[p] != Enabled {
		m.mu.Unlock()
		return &ListenerError{Op: "deregister", Listener: listener, Persistence: p, Err: ErrNotRegistered}
	}

	handlers := entry.handlers[p]
	for _, h := range handlers {
		h.SetEnabled(false)
	}
	entry.states[p] = Disabled
	m.active.Add(-int64(len(handlers)))
	m.mu.Unlock()

	prof.OnDeregisterListener(listener)
	return nil
}

// RegisterListener registers listener on the NonPersistent track.
func (m *Manager[T]) RegisterListener(listener any) error {
	return m.Register(listener, NonPersistent)
}

// DeregisterListener deregisters listener from the NonPersistent track.
func (m *Manager[T]) DeregisterListener(listener any) error {
	return m.Deregister(listener, NonPersistent)
}

// DeregisterAll disables every known listener on both tracks and empties
// every handler set. Discovery caches are kept: registering a listener
// again restores its handlers without rescanning it.
func (m *Manager[T]) DeregisterAll() {
	prof := m.currentProfiler()

	m.mu.Lock()
	m.table.clearMembership()
	for _, entry := range m.listeners {
		for p := range entry.states {
			for _, h := range entry.handlers[p] {
				h.SetEnabled(false)
			}
			entry.states[p] = Disabled
		}
	}
	m.active.Store(0)
	m.mu.Unlock()

	prof.OnDeregisterAll()
}

// Cleanup discards every handler set, listener state and discovery cache,
// returning the manager to its freshly constructed state.
func (m *Manager[T]) Cleanup() {
	prof := m.currentProfiler()

	m.mu.Lock()
	for _, entry := range m.listeners {
		for _, handlers := range entry.handlers {
			for _, h := range handlers {
				h.SetEnabled(false)
			}
		}
	}
	m.table.reset()
	m.listeners = make(map[any]*listenerEntry[T])
	m.nextSeq = 0
	m.active.Store(0)
	m.mu.Unlock()

	prof.OnCleanup()
}

// discover scans listener, inserts its handlers into the dispatch table
// and caches them per track. Both tracks leave discovery Disabled.
// Must be called with mu held.
func (m *Manager[T]) discover(listener any, prof Profiler[T]) *listenerEntry[T] {
	prof.PreListenerDiscovery(listener)

	entry := &listenerEntry[T]{
		seq:    m.nextSeq,
		states: [2]ListenerState{Disabled, Disabled},
	}
	m.nextSeq++

	for _, c := range scan[T](listener, m.base) {
		h := newHandler(listener, entry.seq, c.index, c.Descriptor)
		if c.TimingAware {
			h.sets = []*HandlerSet[T]{
				m.table.getOrCreate(Pre, c.EventType),
				m.table.getOrCreate(Post, c.EventType),
			}
		} else {
			h.sets = []*HandlerSet[T]{m.table.getOrCreate(c.Timing, c.EventType)}
		}
		h.attach()

		track := NonPersistent
		if c.Persistent {
			track = Persistent
		}
		entry.handlers[track] = append(entry.handlers[track], h)
	}
	m.listeners[listener] = entry

	prof.PostListenerDiscovery(listener)
	return entry
}

// Fire delivers event at the Pre phase. See FireTiming.
func (m *Manager[T]) Fire(event T) (T, error) {
	return m.FireTiming(event, Pre)
}

// FireTiming delivers event to every handler registered for its exact
// dynamic type at timing, in priority order, and returns the event.
//
// By default the first handler error aborts the remaining handlers and is
// returned, and a handler panic propagates to the caller. With
// WithIsolation every handler runs and all failures are returned together.
func (m *Manager[T]) FireTiming(event T, timing Timing) (T, error) {
	if !timing.valid() {
		return event, ErrInvalidTiming
	}
	eventType := reflect.TypeOf(any(event))
	if eventType == nil {
		return event, ErrNilEvent
	}

	m.fireMu.Lock()
	defer m.fireMu.Unlock()

	prof := m.currentProfiler()
	view := m.table.view(timing, eventType)
	if view.Len() == 0 {
		m.skipped.Add(1)
		prof.OnSkippedEvent(event, timing)
		return event, nil
	}

	m.fired.Add(1)
	prof.PreFireEvent(event, timing, view)

	err := m.runner.Run(Delivery[T]{Event: event, Timing: timing}, view.runnable())
	if err != nil && m.runner.Mode() == dispatch.FailFast {
		return event, err
	}

	prof.PostFireEvent(event, timing, view)
	return event, err
}

// ActiveHandlers returns the number of handlers currently enabled across
// all listeners.
func (m *Manager[T]) ActiveHandlers() int {
	return int(m.active.Load())
}

// State returns the registration state of listener's track p.
func (m *Manager[T]) State(listener any, p Persistence) ListenerState {
	if checkListener(listener) != nil || !p.valid() {
		return Undiscovered
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.listeners[listener]
	if !ok {
		return Undiscovered
	}
	return entry.states[p]
}

// Listeners returns the number of discovered listeners.
func (m *Manager[T]) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}

// Handlers returns a snapshot of the handler set for (timing, eventType).
// The view is empty if no handler for that pair was ever discovered.
func (m *Manager[T]) Handlers(timing Timing, eventType reflect.Type) HandlerView[T] {
	if !timing.valid() {
		return HandlerView[T]{}
	}
	return m.table.view(timing, eventType)
}

// EventTypes returns the event types that have a handler set for timing.
func (m *Manager[T]) EventTypes(timing Timing) []reflect.Type {
	if !timing.valid() {
		return nil
	}
	return m.table.eventTypes(timing)
}

// Stats contains manager statistics.
type Stats struct {
	// Fired is the number of fires that reached at least one handler set.
	Fired uint64

	// Skipped is the number of fires with no matching handler set.
	Skipped uint64

	// ActiveHandlers is the current number of enabled handlers.
	ActiveHandlers int

	// HandlerSets is the number of (phase, event type) sets.
	HandlerSets int

	// Dispatch holds handler execution statistics.
	Dispatch dispatch.Stats
}

// Stats returns current manager statistics.
func (m *Manager[T]) Stats() Stats {
	return Stats{
		Fired:          m.fired.Load(),
		Skipped:        m.skipped.Load(),
		ActiveHandlers: m.ActiveHandlers(),
		HandlerSets:    m.table.sets(),
		Dispatch:       m.runner.Stats(),
	}
}

// checkListener rejects listeners that cannot serve as a map key.
func checkListener(listener any) error {
	if listener == nil {
		return ErrNilListener
	}
	if !reflect.TypeOf(listener).Comparable() {
		return ErrInvalidListener
	}
	return nil
}
