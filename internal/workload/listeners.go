package workload

import (
	"errors"
	"sync/atomic"

	"github.com/dshills/eventcore/internal/event"
)

// ErrEmptyMessage is returned by message handlers for a Message without
// text.
var ErrEmptyMessage = errors.New("empty message")

// Counter is a listener whose handlers are found by reflection.
type Counter struct {
	name string
	hits *atomic.Int64
}

// NewCounter creates a Counter that adds every delivery to hits.
func NewCounter(name string, hits *atomic.Int64) *Counter {
	return &Counter{name: name, hits: hits}
}

func (c *Counter) String() string { return c.name }

// EventHandlers marks the handler methods.
func (c *Counter) EventHandlers() event.Markers {
	return event.Markers{
		"OnTick":         {Priority: event.PriorityHigh},
		"OnMessage":      {Priority: event.PriorityNormal},
		"OnMessagePhase": {Priority: event.PriorityLow, Persistent: true},
	}
}

// OnTick counts heartbeats.
func (c *Counter) OnTick(*Tick) {
	c.hits.Add(1)
}

// OnMessage counts messages at the Pre phase.
func (c *Counter) OnMessage(m *Message) error {
	if m.Text == "" {
		return ErrEmptyMessage
	}
	m.Seen++
	c.hits.Add(1)
	return nil
}

// OnMessagePhase sees messages at both phases.
func (c *Counter) OnMessagePhase(m *Message, _ event.Timing) {
	m.Seen++
	c.hits.Add(1)
}

// Auditor is a listener that describes its handlers explicitly.
type Auditor struct {
	name string
	hits *atomic.Int64
}

// NewAuditor creates an Auditor that adds every delivery to hits.
func NewAuditor(name string, hits *atomic.Int64) *Auditor {
	return &Auditor{name: name, hits: hits}
}

func (a *Auditor) String() string { return a.name }

// DescribeHandlers implements event.Describer.
func (a *Auditor) DescribeHandlers() []event.Descriptor[Event] {
	return []event.Descriptor[Event]{
		event.On[Event]("tick", a.tick, event.Marker{Priority: event.PriorityLowest}),
		event.OnTiming[Event]("message", a.message, event.Marker{Priority: event.PriorityHighest, Persistent: true}),
	}
}

func (a *Auditor) tick(*Tick) error {
	a.hits.Add(1)
	return nil
}

func (a *Auditor) message(m *Message, _ event.Timing) error {
	if m.Text == "" {
		return ErrEmptyMessage
	}
	m.Seen++
	a.hits.Add(1)
	return nil
}
