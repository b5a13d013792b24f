package event_test

import (
	"fmt"
	"sync/atomic"

	"github.com/dshills/eventcore/internal/event"
)

// myEvent records the handlers that saw it, in order.
type myEvent struct {
	calls []string
}

func (e *myEvent) record(name string) {
	e.calls = append(e.calls, name)
}

type otherEvent struct{}

// derivedEvent embeds myEvent but is a distinct dispatch type.
type derivedEvent struct {
	myEvent
}

// listenerX has a HIGH and a LOW handler for myEvent at Pre.
type listenerX struct{}

func (x *listenerX) EventHandlers() event.Markers {
	return event.Markers{
		"A": {Priority: event.PriorityHigh},
		"B": {Priority: event.PriorityLow},
	}
}

func (x *listenerX) A(e *myEvent) { e.record("a") }
func (x *listenerX) B(e *myEvent) { e.record("b") }

// trackedListener has two non-persistent handlers and one persistent one.
type trackedListener struct {
	hits atomic.Int64
}

func (l *trackedListener) EventHandlers() event.Markers {
	return event.Markers{
		"OnMy":     {Priority: event.PriorityNormal},
		"OnOther":  {Priority: event.PriorityNormal},
		"OnMyKeep": {Priority: event.PriorityLowest, Persistent: true},
	}
}

func (l *trackedListener) OnMy(e *myEvent) {
	l.hits.Add(1)
	e.record("my")
}

func (l *trackedListener) OnOther(*otherEvent) {
	l.hits.Add(1)
}

func (l *trackedListener) OnMyKeep(e *myEvent) {
	l.hits.Add(1)
	e.record("keep")
}

// namedListener describes a single handler that records its name.
type namedListener struct {
	name string
	prio event.Priority
}

func (n *namedListener) String() string { return n.name }

func (n *namedListener) DescribeHandlers() []event.Descriptor[any] {
	return []event.Descriptor[any]{
		event.On[any]("handle", func(e *myEvent) error {
			e.record(n.name)
			return nil
		}, event.Marker{Priority: n.prio}),
	}
}

// phaseListener reacts to both phases of myEvent.
type phaseListener struct {
	seen []event.Timing
}

func (p *phaseListener) EventHandlers() event.Markers {
	return event.Markers{"OnMy": {Timing: event.Post}}
}

func (p *phaseListener) OnMy(e *myEvent, timing event.Timing) {
	p.seen = append(p.seen, timing)
	e.record("phase:" + timing.String())
}

// failingListener returns err from its high-priority handler and panics
// from its middle one when panicking is set.
type failingListener struct {
	err      error
	panicVal any
}

func (f *failingListener) DescribeHandlers() []event.Descriptor[any] {
	return []event.Descriptor[any]{
		event.On[any]("first", func(e *myEvent) error {
			e.record("first")
			return f.err
		}, event.Marker{Priority: event.PriorityHighest}),
		event.On[any]("second", func(e *myEvent) error {
			e.record("second")
			if f.panicVal != nil {
				panic(f.panicVal)
			}
			return nil
		}, event.Marker{Priority: event.PriorityNormal}),
		event.On[any]("third", func(e *myEvent) error {
			e.record("third")
			return nil
		}, event.Marker{Priority: event.PriorityLowest}),
	}
}

// mixedListener exercises every eligibility rule of reflective discovery.
type mixedListener struct{}

func (m *mixedListener) EventHandlers() event.Markers {
	return event.Markers{
		"Plain":       {},
		"WithTiming":  {Timing: event.Post},
		"WithError":   {Persistent: true},
		"TwoEvents":   {},
		"Variadic":    {},
		"ReturnsInt":  {},
		"Iface":       {},
		"WrongSecond": {},
		"NoArgs":      {},
		"BadTiming":   {Timing: event.Timing(7)},
		"Missing":     {},
		"hidden":      {},
	}
}

func (m *mixedListener) Plain(*myEvent)                    {}
func (m *mixedListener) WithTiming(*myEvent, event.Timing) {}
func (m *mixedListener) WithError(*myEvent) error          { return nil }
func (m *mixedListener) TwoEvents(*myEvent, *otherEvent)   {}
func (m *mixedListener) Variadic(...*myEvent)              {}
func (m *mixedListener) ReturnsInt(*myEvent) int           { return 0 }
func (m *mixedListener) Iface(fmt.Stringer)                {}
func (m *mixedListener) WrongSecond(*myEvent, int)         {}
func (m *mixedListener) NoArgs()                           {}
func (m *mixedListener) BadTiming(*myEvent)                {}
func (m *mixedListener) Unmarked(*myEvent)                 {}
func (m *mixedListener) hidden(*myEvent)                   {}

// mapListener cannot be used as a map key.
type mapListener map[string]int

func (mapListener) EventHandlers() event.Markers { return nil }
