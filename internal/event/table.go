package event

import (
	"reflect"
	"sync"
)

// table is the two-level dispatch index: phase -> concrete event type ->
// ordered handler set. Both phase buckets always exist; event type sets
// are created on first use.
type table[T any] struct {
	mu      sync.RWMutex
	buckets [len(timings)]map[reflect.Type]*HandlerSet[T]
}

func newTable[T any]() *table[T] {
	t := &table[T]{}
	t.reset()
	return t
}

// lookup returns the set for (timing, eventType), or nil.
func (t *table[T]) lookup(timing Timing, eventType reflect.Type) *HandlerSet[T] {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.buckets[timing][eventType]
}

// view returns a snapshot of the set for (timing, eventType). A missing set
// yields the empty view.
func (t *table[T]) view(timing Timing, eventType reflect.Type) HandlerView[T] {
	if s := t.lookup(timing, eventType); s != nil {
		return s.View()
	}
	return HandlerView[T]{timing: timing, eventType: eventType}
}

// getOrCreate returns the set for (timing, eventType), creating it if
// needed.
func (t *table[T]) getOrCreate(timing Timing, eventType reflect.Type) *HandlerSet[T] {
	if s := t.lookup(timing, eventType); s != nil {
		return s
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// Double-check after acquiring write lock
	if s, ok := t.buckets[timing][eventType]; ok {
		return s
	}
	s := newHandlerSet[T](timing, eventType)
	t.buckets[timing][eventType] = s
	return s
}

// clearMembership empties every set but keeps the sets themselves.
func (t *table[T]) clearMembership() {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for _, bucket := range t.buckets {
		for _, s := range bucket {
			s.clear()
		}
	}
}

// reset discards every set.
func (t *table[T]) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.buckets {
		t.buckets[i] = make(map[reflect.Type]*HandlerSet[T])
	}
}

// eventTypes returns the event types that have a set for timing.
func (t *table[T]) eventTypes(timing Timing) []reflect.Type {
	t.mu.RLock()
	defer t.mu.RUnlock()

	types := make([]reflect.Type, 0, len(t.buckets[timing]))
	for et := range t.buckets[timing] {
		types = append(types, et)
	}
	return types
}

// sets returns the number of sets across both phases.
func (t *table[T]) sets() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, bucket := range t.buckets {
		n += len(bucket)
	}
	return n
}
