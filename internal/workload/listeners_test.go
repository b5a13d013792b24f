package workload

import (
	"reflect"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/eventcore/internal/event"
)

func TestListeners_MessageOrdering(t *testing.T) {
	var hits atomic.Int64
	m := event.New[Event]()
	c := NewCounter("c", &hits)
	a := NewAuditor("a", &hits)
	for _, l := range []any{c, a} {
		require.NoError(t, m.Register(l, event.NonPersistent))
		require.NoError(t, m.Register(l, event.Persistent))
	}

	msg := NewMessage("hello")
	_, err := m.Fire(msg)
	require.NoError(t, err)
	assert.Equal(t, 3, msg.Seen)
	assert.Equal(t, int64(3), hits.Load())

	var names []string
	for h := range m.Handlers(event.Pre, reflect.TypeFor[*Message]()).All() {
		names = append(names, h.Name())
	}
	assert.Equal(t, []string{"message", "OnMessage", "OnMessagePhase"}, names)
}

func TestListeners_EmptyMessageFails(t *testing.T) {
	var hits atomic.Int64
	m := event.New[Event]()
	require.NoError(t, m.Register(NewCounter("c", &hits), event.NonPersistent))

	_, err := m.Fire(NewMessage(""))
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Zero(t, hits.Load())
}

func TestEvents_HaveUniqueIDs(t *testing.T) {
	a, b := NewTick(1), NewTick(1)
	assert.NotEqual(t, a.EventID(), b.EventID())
	assert.NotEqual(t, NewIdle().EventID(), NewMessage("x").EventID())
}
