package event

import (
	"reflect"
)

var (
	timingType = reflect.TypeFor[Timing]()
	errorType  = reflect.TypeFor[error]()
)

// candidate is an eligible handler together with its declaration index.
type candidate[T any] struct {
	index int
	Descriptor[T]
}

// scan finds the eligible handlers of listener. A Describer supplies its
// own descriptors; any other listener is inspected by reflection. Handlers
// that cannot be dispatched for base are skipped silently.
func scan[T any](listener any, base reflect.Type) []candidate[T] {
	if d, ok := listener.(Describer[T]); ok {
		return describedHandlers(d, base)
	}
	return reflectedHandlers[T](listener, base)
}

func describedHandlers[T any](d Describer[T], base reflect.Type) []candidate[T] {
	var out []candidate[T]
	for i, desc := range d.DescribeHandlers() {
		if desc.Call == nil || !dispatchable(desc.EventType, base) {
			continue
		}
		if !desc.TimingAware && !desc.Timing.valid() {
			continue
		}
		out = append(out, candidate[T]{index: i, Descriptor: desc})
	}
	return out
}

// reflectedHandlers walks the exported method set of the listener's
// dynamic type. Unexported methods are never listed by reflect, and only
// methods named in the listener's own Markers are considered. The method
// index is the declaration index.
func reflectedHandlers[T any](listener any, base reflect.Type) []candidate[T] {
	marked, ok := listener.(Marked)
	if !ok {
		return nil
	}
	markers := marked.EventHandlers()
	if len(markers) == 0 {
		return nil
	}

	v := reflect.ValueOf(listener)
	t := v.Type()

	var out []candidate[T]
	for i := 0; i < t.NumMethod(); i++ {
		method := t.Method(i)
		marker, ok := markers[method.Name]
		if !ok {
			continue
		}

		fn := v.Method(i)
		eventType, timingAware, returnsErr, ok := handlerSignature(fn.Type(), base)
		if !ok {
			continue
		}
		if !timingAware && !marker.Timing.valid() {
			continue
		}

		out = append(out, candidate[T]{
			index: i,
			Descriptor: Descriptor[T]{
				Name:        method.Name,
				EventType:   eventType,
				Marker:      marker,
				TimingAware: timingAware,
				Call:        reflectedCall[T](fn, timingAware, returnsErr),
			},
		})
	}
	return out
}

// handlerSignature accepts func(E), func(E, Timing), func(E) error and
// func(E, Timing) error where E is dispatchable for base.
func handlerSignature(ft reflect.Type, base reflect.Type) (eventType reflect.Type, timingAware, returnsErr, ok bool) {
	if ft.IsVariadic() {
		return nil, false, false, false
	}

	switch ft.NumIn() {
	case 1:
	case 2:
		if ft.In(1) != timingType {
			return nil, false, false, false
		}
		timingAware = true
	default:
		return nil, false, false, false
	}

	switch ft.NumOut() {
	case 0:
	case 1:
		if ft.Out(0) != errorType {
			return nil, false, false, false
		}
		returnsErr = true
	default:
		return nil, false, false, false
	}

	eventType = ft.In(0)
	if !dispatchable(eventType, base) {
		return nil, false, false, false
	}
	return eventType, timingAware, returnsErr, true
}

// dispatchable reports whether events of type et can be fired on a manager
// with base type base. Lookup is by exact dynamic type, so interface types
// can never match an event and are rejected.
func dispatchable(et, base reflect.Type) bool {
	if et == nil || et.Kind() == reflect.Interface {
		return false
	}
	return et.AssignableTo(base)
}

func reflectedCall[T any](fn reflect.Value, timingAware, returnsErr bool) func(T, Timing) error {
	return func(event T, timing Timing) error {
		args := make([]reflect.Value, 1, 2)
		args[0] = reflect.ValueOf(any(event))
		if timingAware {
			args = append(args, reflect.ValueOf(timing))
		}

		out := fn.Call(args)
		if !returnsErr {
			return nil
		}
		err, _ := out[0].Interface().(error)
		return err
	}
}
