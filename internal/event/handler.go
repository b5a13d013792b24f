package event

import (
	"fmt"
	"reflect"
	"sync/atomic"
)

// Handler is the runtime binding of one handler method to its listener.
//
// A Handler is created once, when its listener is discovered, and is
// inserted into the ordered set of every (phase, event type) it reacts to.
// Registration only flips its enabled flag.
type Handler[T any] struct {
	listener    any
	name        string
	eventType   reflect.Type
	index       int
	seq         uint64
	marker      Marker
	timingAware bool
	call        func(T, Timing) error

	// sets are the ordered sets this handler belongs to: one for a plain
	// handler, Pre and Post for a timing-aware one.
	sets []*HandlerSet[T]

	enabled atomic.Bool
}

func newHandler[T any](listener any, seq uint64, index int, d Descriptor[T]) *Handler[T] {
	return &Handler[T]{
		listener:    listener,
		name:        d.Name,
		eventType:   d.EventType,
		index:       index,
		seq:         seq,
		marker:      d.Marker,
		timingAware: d.TimingAware,
		call:        d.Call,
	}
}

// Invoke calls the handler with event. A disabled handler does nothing.
// A non-nil error from the handler is returned as a *HandlerError.
func (h *Handler[T]) Invoke(event T, timing Timing) error {
	if !h.enabled.Load() {
		return nil
	}
	if err := h.call(event, timing); err != nil {
		return &HandlerError{Handler: h.String(), Timing: timing, Err: err}
	}
	return nil
}

// Handle adapts Invoke to the dispatch runner.
func (h *Handler[T]) Handle(d Delivery[T]) error {
	return h.Invoke(d.Event, d.Timing)
}

// SetEnabled switches the handler on or off. It is safe to call while the
// handler is being dispatched; an in-flight dispatch sees either value.
func (h *Handler[T]) SetEnabled(enabled bool) {
	h.enabled.Store(enabled)
}

// Enabled reports whether the handler currently receives events.
func (h *Handler[T]) Enabled() bool {
	return h.enabled.Load()
}

// Listener returns the listener the handler is bound to.
func (h *Handler[T]) Listener() any { return h.listener }

// Name returns the handler's method or descriptor name.
func (h *Handler[T]) Name() string { return h.name }

// EventType returns the concrete event type the handler reacts to.
func (h *Handler[T]) EventType() reflect.Type { return h.eventType }

// Priority returns the declared priority.
func (h *Handler[T]) Priority() Priority { return h.marker.Priority }

// Persistent reports whether the handler is on the persistent track.
func (h *Handler[T]) Persistent() bool { return h.marker.Persistent }

// TimingAware reports whether the handler receives both phases.
func (h *Handler[T]) TimingAware() bool { return h.timingAware }

// Index returns the handler's declaration index within its listener.
func (h *Handler[T]) Index() int { return h.index }

// String returns "<listener type>.<name>".
func (h *Handler[T]) String() string {
	return fmt.Sprintf("%T.%s", h.listener, h.name)
}

// attach inserts the handler into its ordered sets. Sets ignore handlers
// that are already members.
func (h *Handler[T]) attach() {
	for _, s := range h.sets {
		s.add(h)
	}
}
