package event

import (
	"iter"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/google/btree"

	"github.com/dshills/eventcore/internal/event/dispatch"
)

// btreeDegree is the branching factor of handler set trees. Sets are small,
// so a low degree keeps copy-on-write clones cheap.
const btreeDegree = 8

// before is the invocation order of handlers: higher priority first, then
// lower declaration index, then earlier-discovered listener. No two distinct
// handlers compare equal, so a set never drops one as a duplicate.
func before[T any](a, b *Handler[T]) bool {
	if a.marker.Priority != b.marker.Priority {
		return a.marker.Priority > b.marker.Priority
	}
	if a.index != b.index {
		return a.index < b.index
	}
	return a.seq < b.seq
}

// HandlerSet is the ordered set of handlers for one (phase, event type).
//
// Writers serialize on the set's own mutex and publish an immutable
// copy-on-write clone of the tree after every change. Readers iterate the
// published clone without locking, so insertion never waits for an
// in-flight dispatch and a dispatch never observes a half-applied insert.
type HandlerSet[T any] struct {
	timing    Timing
	eventType reflect.Type

	mu   sync.Mutex
	tree *btree.BTreeG[*Handler[T]]
	snap atomic.Pointer[btree.BTreeG[*Handler[T]]]
}

func newHandlerSet[T any](timing Timing, eventType reflect.Type) *HandlerSet[T] {
	s := &HandlerSet[T]{
		timing:    timing,
		eventType: eventType,
		tree:      btree.NewG(btreeDegree, before[T]),
	}
	s.snap.Store(s.tree.Clone())
	return s
}

// add inserts h unless it is already a member. It reports whether the set
// changed.
func (s *HandlerSet[T]) add(h *Handler[T]) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tree.Has(h) {
		return false
	}
	s.tree.ReplaceOrInsert(h)
	s.snap.Store(s.tree.Clone())
	return true
}

// clear drops every member.
func (s *HandlerSet[T]) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tree.Clear(false)
	s.snap.Store(s.tree.Clone())
}

// View returns an immutable snapshot of the set's current members.
func (s *HandlerSet[T]) View() HandlerView[T] {
	return HandlerView[T]{
		timing:    s.timing,
		eventType: s.eventType,
		tree:      s.snap.Load(),
	}
}

// HandlerView is a point-in-time, ordered, read-only view of a HandlerSet.
// The zero value is an empty view.
type HandlerView[T any] struct {
	timing    Timing
	eventType reflect.Type
	tree      *btree.BTreeG[*Handler[T]]
}

// Timing returns the phase of the viewed set.
func (v HandlerView[T]) Timing() Timing { return v.timing }

// EventType returns the event type of the viewed set, or nil for the zero
// view.
func (v HandlerView[T]) EventType() reflect.Type { return v.eventType }

// Len returns the number of members, enabled or not.
func (v HandlerView[T]) Len() int {
	if v.tree == nil {
		return 0
	}
	return v.tree.Len()
}

// EnabledLen returns the number of members that are currently enabled.
func (v HandlerView[T]) EnabledLen() int {
	n := 0
	for h := range v.All() {
		if h.Enabled() {
			n++
		}
	}
	return n
}

// All iterates the members in invocation order.
func (v HandlerView[T]) All() iter.Seq[*Handler[T]] {
	return func(yield func(*Handler[T]) bool) {
		if v.tree == nil {
			return
		}
		v.tree.Ascend(func(h *Handler[T]) bool {
			return yield(h)
		})
	}
}

// Handlers returns the members in invocation order.
func (v HandlerView[T]) Handlers() []*Handler[T] {
	out := make([]*Handler[T], 0, v.Len())
	for h := range v.All() {
		out = append(out, h)
	}
	return out
}

// runnable adapts the view to the dispatch runner.
func (v HandlerView[T]) runnable() iter.Seq[dispatch.Handler[Delivery[T]]] {
	return func(yield func(dispatch.Handler[Delivery[T]]) bool) {
		for h := range v.All() {
			if !yield(h) {
				return
			}
		}
	}
}
