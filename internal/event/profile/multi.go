package profile

import "github.com/dshills/eventcore/internal/event"

// Multi forwards every callback to each profiler in order.
type Multi[T any] []event.Profiler[T]

func (m Multi[T]) OnRegisterListener(listener any) {
	for _, p := range m {
		p.OnRegisterListener(listener)
	}
}

func (m Multi[T]) OnDeregisterListener(listener any) {
	for _, p := range m {
		p.OnDeregisterListener(listener)
	}
}

func (m Multi[T]) OnDeregisterAll() {
	for _, p := range m {
		p.OnDeregisterAll()
	}
}

func (m Multi[T]) OnCleanup() {
	for _, p := range m {
		p.OnCleanup()
	}
}

func (m Multi[T]) PreListenerDiscovery(listener any) {
	for _, p := range m {
		p.PreListenerDiscovery(listener)
	}
}

func (m Multi[T]) PostListenerDiscovery(listener any) {
	for _, p := range m {
		p.PostListenerDiscovery(listener)
	}
}

func (m Multi[T]) OnSkippedEvent(e T, timing event.Timing) {
	for _, p := range m {
		p.OnSkippedEvent(e, timing)
	}
}

func (m Multi[T]) PreFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	for _, p := range m {
		p.PreFireEvent(e, timing, handlers)
	}
}

func (m Multi[T]) PostFireEvent(e T, timing event.Timing, handlers event.HandlerView[T]) {
	for _, p := range m {
		p.PostFireEvent(e, timing, handlers)
	}
}
