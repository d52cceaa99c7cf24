package host

import (
	"sync"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// MessageKind distinguishes host messages.
type MessageKind int

const (
	// MessageAdd asks the host to instantiate a module.
	MessageAdd MessageKind = iota + 1
	// MessageRemove asks the host to release a module.
	MessageRemove
	// MessageValue forwards a committed endpoint value.
	MessageValue
)

func (k MessageKind) String() string {
	switch k {
	case MessageAdd:
		return "add"
	case MessageRemove:
		return "remove"
	case MessageValue:
		return "value"
	default:
		return "unknown"
	}
}

// Message is one queued host call.
type Message struct {
	Kind   MessageKind
	Module engine.HostModule // MessageAdd
	Node   tree.NodeID       // MessageRemove
	Path   ir.Path           // MessageRemove
	Value  engine.HostValue  // MessageValue
}

// messageQueue is a thread-safe FIFO queue for host messages.
//
// The queue is unbounded so the Server never blocks on a slow host while
// holding its lock.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the Run loop.
type messageQueue struct {
	mu       sync.Mutex
	messages []Message
	closed   bool
	signal   chan struct{} // Signals message availability (buffered, size 1)
}

func newMessageQueue() *messageQueue {
	return &messageQueue{
		messages: make([]Message, 0, 64),
		signal:   make(chan struct{}, 1),
	}
}

// Enqueue adds a message to the back of the queue.
// Returns false if the queue is closed.
func (q *messageQueue) Enqueue(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.messages = append(q.messages, m)

	// Non-blocking: a buffer of 1 coalesces signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front message without blocking.
func (q *messageQueue) TryDequeue() (Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.messages) == 0 {
		return Message{}, false
	}

	m := q.messages[0]

	// Clear the slot so the backing array does not pin the value.
	q.messages[0] = Message{}

	if len(q.messages) == 1 {
		q.messages = q.messages[:0]
	} else {
		q.messages = q.messages[1:]
	}

	return m, true
}

// Wait returns a channel that signals when messages may be available.
// It is closed once the queue is closed.
func (q *messageQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *messageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.messages)
}

// Close signals that no more messages will be enqueued.
func (q *messageQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}
