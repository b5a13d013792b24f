// Package event provides the typed event dispatch core for eventcore.
//
// Listeners are ordinary Go values. Their handler methods are discovered
// once, bound into handler records, and inserted into ordered handler sets
// indexed by phase and concrete event type. Registration afterwards only
// switches records on and off.
//
// # Architecture
//
//	                    ┌──────────────────────────────────────────┐
//	                    │               Manager[T]                  │
//	                    │  - Registration lifecycle                 │
//	                    │  - Active handler counter                 │
//	                    │  - Serialized Fire                        │
//	                    └──────────────────────────────────────────┘
//	                                      │
//	          ┌───────────────────────────┼───────────────────────────┐
//	          ▼                           ▼                           ▼
//	┌─────────────────┐         ┌─────────────────┐         ┌─────────────────┐
//	│   Discovery     │         │ Dispatch table  │         │    Profiler     │
//	│  - Marked       │         │  - Pre / Post   │         │  - lifecycle    │
//	│  - Describer    │         │  - type -> set  │         │  - fire hooks   │
//	└─────────────────┘         └─────────────────┘         └─────────────────┘
//
// # Declaring Handlers
//
// A listener marks its handler methods by returning Markers from
// EventHandlers. A handler takes the event, and optionally the Timing, and
// returns nothing or an error:
//
//	type Chat struct{}
//
//	func (c *Chat) EventHandlers() event.Markers {
//	    return event.Markers{
//	        "OnMessage": {Priority: event.PriorityHigh},
//	        "OnAny":     {Priority: event.PriorityLow, Persistent: true},
//	    }
//	}
//
//	func (c *Chat) OnMessage(e *MessageEvent) error  { ... }
//	func (c *Chat) OnAny(e *MessageEvent, t event.Timing) { ... }
//
// Listeners that prefer not to rely on reflection implement Describer and
// build descriptors with On and OnTiming.
//
// # Phases
//
// Events are fired at Pre (the default) or Post. A plain handler reacts to
// the phase named in its marker; a handler taking a Timing argument reacts
// to both and is told which one is being fired.
//
// # Priority Ordering
//
// Handlers for the same phase and event type run from highest to lowest
// priority. Ties are broken by declaration index within the listener and
// then by discovery order of the listener, so the order is total and stable.
//
// # Registration
//
// Each listener has two independent tracks, NonPersistent and Persistent,
// selected by the marker's Persistent flag. Register and Deregister act on
// one track:
//
//	m := event.New[Event]()
//	if err := m.Register(chat, event.NonPersistent); err != nil { ... }
//	m.Fire(&MessageEvent{Text: "hi"})
//	m.Deregister(chat, event.NonPersistent)
//
// The first Register of a listener scans it; later cycles reuse the cached
// handlers. DeregisterAll disables everything but keeps the caches; Cleanup
// forgets everything.
//
// # Lookup
//
// Fire matches the exact dynamic type of the event. A handler for
// *MessageEvent is not called for a type that embeds *MessageEvent.
//
// # Failures
//
// By default the first handler error stops the fire and is returned, and
// panics propagate. WithIsolation runs all handlers, recovers panics and
// returns every failure.
//
// # Thread Safety
//
// Registration, queries and Fire may be called concurrently. Fire calls on
// one manager are serialized. Handler sets are copy-on-write, so discovery
// of new listeners never waits for a running Fire.
//
// # Subpackages
//
//   - dispatch: sequential handler runner with fail-fast and isolated modes
//   - profile: Profiler implementations (recorder, zap logger, OpenTelemetry)
package event
