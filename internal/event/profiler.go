package event

// Profiler observes the manager. Callbacks run synchronously on the
// goroutine performing the operation and cannot influence its outcome.
//
// Discovery callbacks run while the manager's registration lock is held;
// they must not register or deregister listeners on the same manager.
type Profiler[T any] interface {
	// OnRegisterListener is called after a listener track was enabled.
	OnRegisterListener(listener any)

	// OnDeregisterListener is called after a listener track was disabled.
	OnDeregisterListener(listener any)

	// OnDeregisterAll is called after every listener was deregistered.
	OnDeregisterAll()

	// OnCleanup is called after the manager was reset.
	OnCleanup()

	// PreListenerDiscovery is called before a listener is scanned.
	PreListenerDiscovery(listener any)

	// PostListenerDiscovery is called after a listener was scanned.
	PostListenerDiscovery(listener any)

	// OnSkippedEvent is called when no handler set exists for an event.
	OnSkippedEvent(event T, timing Timing)

	// PreFireEvent is called before handlers are invoked.
	PreFireEvent(event T, timing Timing, handlers HandlerView[T])

	// PostFireEvent is called after handlers were invoked.
	PostFireEvent(event T, timing Timing, handlers HandlerView[T])
}

// NopProfiler implements every Profiler callback as a no-op. Embed it to
// implement only the callbacks of interest.
type NopProfiler[T any] struct{}

func (NopProfiler[T]) OnRegisterListener(any)                  {}
func (NopProfiler[T]) OnDeregisterListener(any)                {}
func (NopProfiler[T]) OnDeregisterAll()                        {}
func (NopProfiler[T]) OnCleanup()                              {}
func (NopProfiler[T]) PreListenerDiscovery(any)                {}
func (NopProfiler[T]) PostListenerDiscovery(any)               {}
func (NopProfiler[T]) OnSkippedEvent(T, Timing)                {}
func (NopProfiler[T]) PreFireEvent(T, Timing, HandlerView[T])  {}
func (NopProfiler[T]) PostFireEvent(T, Timing, HandlerView[T]) {}

// profilerRef boxes a Profiler so it can be swapped atomically.
type profilerRef[T any] struct {
	Profiler[T]
}
