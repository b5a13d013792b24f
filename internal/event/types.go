package event

import "strconv"

// Timing is the dispatch phase an event is fired at.
type Timing int

const (
	// Pre is the default phase, fired before the action an event describes.
	Pre Timing = iota

	// Post is fired after the action an event describes.
	Post
)

// timings lists every phase in table order.
var timings = [...]Timing{Pre, Post}

// String returns a human-readable phase name.
func (t Timing) String() string {
	switch t {
	case Pre:
		return "pre"
	case Post:
		return "post"
	default:
		return "timing(" + strconv.Itoa(int(t)) + ")"
	}
}

// valid reports whether t is one of the two known phases.
func (t Timing) valid() bool {
	return t == Pre || t == Post
}

// Priority determines handler execution order.
// Higher values execute first.
type Priority int

const (
	// PriorityLowest is for handlers that must observe the final state,
	// such as metrics and logging.
	PriorityLowest Priority = 0

	// PriorityLow runs after ordinary handlers.
	PriorityLow Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityHigh runs before ordinary handlers.
	PriorityHigh Priority = 300

	// PriorityHighest is for handlers that must see the event first.
	PriorityHighest Priority = 400
)

// String returns a human-readable priority name.
func (p Priority) String() string {
	switch {
	case p >= PriorityHighest:
		return "highest"
	case p >= PriorityHigh:
		return "high"
	case p >= PriorityNormal:
		return "normal"
	case p >= PriorityLow:
		return "low"
	default:
		return "lowest"
	}
}

// Persistence selects one of the two independent registration tracks of a
// listener.
type Persistence int

const (
	// NonPersistent selects handlers whose marker has Persistent == false.
	NonPersistent Persistence = iota

	// Persistent selects handlers whose marker has Persistent == true.
	Persistent
)

func (p Persistence) valid() bool {
	return p == NonPersistent || p == Persistent
}

// String returns a human-readable track name.
func (p Persistence) String() string {
	switch p {
	case NonPersistent:
		return "non-persistent"
	case Persistent:
		return "persistent"
	default:
		return "persistence(" + strconv.Itoa(int(p)) + ")"
	}
}

// ListenerState is the registration state of one persistence track of a
// listener.
type ListenerState int

const (
	// Undiscovered means the track was never registered.
	Undiscovered ListenerState = iota

	// Disabled means the track's handlers are known but inactive.
	Disabled

	// Enabled means the track's handlers receive events.
	Enabled
)

// String returns a human-readable state name.
func (s ListenerState) String() string {
	switch s {
	case Undiscovered:
		return "undiscovered"
	case Disabled:
		return "disabled"
	case Enabled:
		return "enabled"
	default:
		return "unknown"
	}
}

// Marker is the handler metadata a listener attaches to one of its methods.
type Marker struct {
	// Priority orders the handler among handlers of the same event type
	// and phase.
	Priority Priority

	// Timing is the phase the handler reacts to. It is ignored for
	// timing-aware handlers, which receive both phases.
	Timing Timing

	// Persistent places the handler on the persistent registration track.
	Persistent bool
}

// Markers maps method names to their handler metadata.
type Markers map[string]Marker

// Marked is implemented by listeners whose handlers are found by
// reflection. Only methods named in the returned map are eligible.
type Marked interface {
	EventHandlers() Markers
}

// Delivery is a single event at a single phase, as handed to handlers by
// the dispatcher.
type Delivery[T any] struct {
	Event  T
	Timing Timing
}
