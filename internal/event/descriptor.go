package event

import "reflect"

// Descriptor describes one handler of a listener without relying on
// reflection over the listener's methods.
type Descriptor[T any] struct {
	// Name identifies the handler in logs and errors.
	Name string

	// EventType is the concrete event type the handler reacts to.
	EventType reflect.Type

	// Marker carries priority, phase and persistence.
	Marker

	// TimingAware handlers are inserted for both phases and receive the
	// phase being fired; Marker.Timing is ignored for them.
	TimingAware bool

	// Call invokes the handler. The event's dynamic type is always
	// EventType.
	Call func(event T, timing Timing) error
}

// Describer is implemented by listeners that list their handlers
// explicitly. A Describer is never scanned by reflection; the position of a
// descriptor in the returned slice is its declaration index.
type Describer[T any] interface {
	DescribeHandlers() []Descriptor[T]
}

// On builds a descriptor for a handler of events of type E on a manager
// with base type T.
func On[T, E any](name string, fn func(E) error, m Marker) Descriptor[T] {
	return Descriptor[T]{
		Name:      name,
		EventType: reflect.TypeFor[E](),
		Marker:    m,
		Call: func(event T, _ Timing) error {
			return fn(any(event).(E))
		},
	}
}

// OnTiming builds a timing-aware descriptor: fn is registered for both
// phases and receives the phase being fired.
func OnTiming[T, E any](name string, fn func(E, Timing) error, m Marker) Descriptor[T] {
	return Descriptor[T]{
		Name:        name,
		EventType:   reflect.TypeFor[E](),
		Marker:      m,
		TimingAware: true,
		Call: func(event T, timing Timing) error {
			return fn(any(event).(E), timing)
		},
	}
}
