package host

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/tree"
)

func valueMsg(node int) Message {
	return Message{Kind: MessageValue, Value: engine.HostValue{Node: tree.NodeID(node), Endpoint: "gain"}}
}

func TestMessageQueue_FIFO(t *testing.T) {
	q := newMessageQueue()

	for i := 1; i <= 3; i++ {
		require.True(t, q.Enqueue(valueMsg(i)))
	}

	for i := 1; i <= 3; i++ {
		m, ok := q.TryDequeue()
		require.True(t, ok)
		assert.Equal(t, tree.NodeID(i), m.Value.Node)
	}

	_, ok := q.TryDequeue()
	assert.False(t, ok, "dequeue from empty queue should return false")
}

func TestMessageQueue_Len(t *testing.T) {
	q := newMessageQueue()
	assert.Equal(t, 0, q.Len())

	q.Enqueue(valueMsg(1))
	q.Enqueue(valueMsg(2))
	assert.Equal(t, 2, q.Len())

	q.TryDequeue()
	assert.Equal(t, 1, q.Len())
}

func TestMessageQueue_Close(t *testing.T) {
	q := newMessageQueue()
	q.Close()
	q.Close() // idempotent

	assert.False(t, q.Enqueue(valueMsg(1)), "enqueue after close should return false")

	select {
	case <-q.Wait():
	case <-time.After(100 * time.Millisecond):
		t.Fatal("wait channel not closed")
	}
}

func TestMessageQueue_ThreadSafe(t *testing.T) {
	q := newMessageQueue()

	const producers = 10
	const perProducer = 100

	var wg sync.WaitGroup
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Enqueue(valueMsg(id*1000 + i))
			}
		}(p)
	}
	wg.Wait()

	// Per-producer order survives interleaving.
	last := make(map[int]int)
	count := 0
	for {
		m, ok := q.TryDequeue()
		if !ok {
			break
		}
		count++
		producer, seq := int(m.Value.Node)/1000, int(m.Value.Node)%1000
		if prev, seen := last[producer]; seen {
			assert.Greater(t, seq, prev)
		}
		last[producer] = seq
	}
	assert.Equal(t, producers*perProducer, count)
}

func TestMessageKind_String(t *testing.T) {
	assert.Equal(t, "add", MessageAdd.String())
	assert.Equal(t, "remove", MessageRemove.String())
	assert.Equal(t, "value", MessageValue.String())
	assert.Equal(t, "unknown", MessageKind(0).String())
}
