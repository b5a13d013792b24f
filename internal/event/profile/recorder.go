package profile

import (
	"sync"

	"github.com/dshills/eventcore/internal/event"
)

// Kind names a profiler callback.
type Kind string

const (
	KindRegister      Kind = "register"
	KindDeregister    Kind = "deregister"
	KindDeregisterAll Kind = "deregister_all"
	KindCleanup       Kind = "cleanup"
	KindPreDiscovery  Kind = "pre_discovery"
	KindPostDiscovery Kind = "post_discovery"
	KindSkipped       Kind = "skipped"
	KindPreFire       Kind = "pre_fire"
	KindPostFire      Kind = "post_fire"
)

// Call is one recorded callback. Fields not carried by the callback are
// left zero.
type Call[T any] struct {
	Kind     Kind
	Listener any
	Event    T
	Timing   event.Timing

	// Handlers lists the handler names passed to a fire callback, in
	// invocation order.
	Handlers []string
}

// Recorder is a Profiler that records every callback. It is safe for
// concurrent use.
type Recorder[T any] struct {
	mu    sync.Mutex
	calls []Call[T]
}

// NewRecorder creates an empty recorder.
func NewRecorder[T any]() *Recorder[T] {
	return &Recorder[T]{}
}

func (r *Recorder[T]) record(c Call[T]) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

// Calls returns a copy of the recorded callbacks in order.
func (r *Recorder[T]) Calls() []Call[T] {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Call[T], len(r.calls))
	copy(out, r.calls)
	return out
}

// Count returns how many callbacks of kind were recorded.
func (r *Recorder[T]) Count(kind Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, c := range r.calls {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Reset forgets all recorded callbacks.
func (r *Recorder[T]) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}

func (r *Recorder[T]) OnRegisterListener(listener any) {
	r.record(Call[T]{Kind: KindRegister, Listener: listener})
}

func (r *Recorder[T]) OnDeregisterListener(listener any) {
	r.record(Call[T]{Kind: KindDeregister, Listener: listener})
}

func (r *Recorder[T]) OnDeregisterAll() {
	r.record(Call[T]{Kind: KindDeregisterAll})
}

func (r *Recorder[T]) OnCleanup() {
	r.record(Call[T]{Kind: KindCleanup})
}

func (r *Recorder[T]) PreListenerDiscovery(listener any) {
	r.record(Call[T]{Kind: KindPreDiscovery, Listener: listener})
}

func (r *Recorder[T]) PostListenerDiscovery(listener any) {
	r.record(Call[T]{Kind: KindPostDiscovery, Listener: listener})
}

func (r *Recorder[T]) OnSkippedEvent(e T, timing event.Timing) {
	r.record(Call[T]{Kind: KindSkipped, Event: e, Timing: timing})
}

func (r *Recorder[T]) PreFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	r.record(Call[T]{Kind: KindPreFire, Event: e, Timing: timing, Handlers: names(handlers)})
}

func (r *Recorder[T]) PostFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	r.record(Call[T]{Kind: KindPostFire, Event: e, Timing: timing, Handlers: names(handlers)})
}

func names[T any](v event.HandlerView[T]) []string {
	out := make([]string, 0, v.Len())
	for h := range v.All() {
		out = append(out, h.Name())
	}
	return out
}
