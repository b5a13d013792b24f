// Package workload drives an event manager with synthetic listeners and
// events. It backs the eventbench run command and doubles as an end-to-end
// exercise of the event package.
package workload

import (
	"github.com/google/uuid"
)

// Event is the base type of every workload event.
type Event interface {
	EventID() uuid.UUID
}

type header struct {
	id uuid.UUID
}

func newHeader() header {
	return header{id: uuid.New()}
}

// EventID returns the unique id assigned at construction.
func (h header) EventID() uuid.UUID {
	return h.id
}

// Tick is a periodic heartbeat.
type Tick struct {
	header
	Seq int
}

// NewTick creates a Tick with a fresh id.
func NewTick(seq int) *Tick {
	return &Tick{header: newHeader(), Seq: seq}
}

// Message carries text. Handlers increment Seen, so later handlers in the
// same fire observe earlier ones.
type Message struct {
	header
	Text string
	Seen int
}

// NewMessage creates a Message with a fresh id.
func NewMessage(text string) *Message {
	return &Message{header: newHeader(), Text: text}
}

// Idle has no handlers; firing it is always skipped.
type Idle struct {
	header
}

// NewIdle creates an Idle event with a fresh id.
func NewIdle() *Idle {
	return &Idle{header: newHeader()}
}
