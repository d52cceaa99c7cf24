// Package host holds execution-host adapters for the engine.
//
// The Server calls its Host synchronously under its lock. Queued moves
// delivery onto its own goroutine so a slow or unreachable host never
// stalls command processing; Log is a backend that only records what a
// host would have received.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// ErrClosed is returned for messages offered after Close.
var ErrClosed = errors.New("host queue closed")

// ErrFull is returned when the pending limit set by WithMaxPending is
// reached. The message is dropped.
var ErrFull = errors.New("host queue full")

// Queued is an engine.Host that buffers messages and delivers them to a
// backend from Run, in the order the Server produced them.
//
// Thread-safety: the engine.Host methods may be called from any
// goroutine. Run must be called from exactly one.
type Queued struct {
	queue   *messageQueue
	backend engine.Host
	logger  *slog.Logger
	max     int
}

// QueuedOption configures a Queued host.
type QueuedOption func(*Queued)

// WithLogger sets the logger for delivery failures.
func WithLogger(l *slog.Logger) QueuedOption {
	return func(q *Queued) {
		q.logger = l
	}
}

// WithMaxPending bounds the number of undelivered messages. Zero means
// unbounded.
func WithMaxPending(n int) QueuedOption {
	return func(q *Queued) {
		q.max = n
	}
}

// NewQueued creates a queue in front of backend.
func NewQueued(backend engine.Host, opts ...QueuedOption) *Queued {
	q := &Queued{
		queue:   newMessageQueue(),
		backend: backend,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

func (q *Queued) offer(m Message) error {
	if q.max > 0 && q.queue.Len() >= q.max {
		return ErrFull
	}
	if !q.queue.Enqueue(m) {
		return ErrClosed
	}
	return nil
}

// AddModule queues a module instantiation.
func (q *Queued) AddModule(_ context.Context, m engine.HostModule) error {
	return q.offer(Message{Kind: MessageAdd, Module: m})
}

// RemoveModule queues a module release.
func (q *Queued) RemoveModule(_ context.Context, node tree.NodeID, path ir.Path) error {
	return q.offer(Message{Kind: MessageRemove, Node: node, Path: path})
}

// SendValue queues a value.
func (q *Queued) SendValue(_ context.Context, v engine.HostValue) error {
	return q.offer(Message{Kind: MessageValue, Value: v})
}

// Pending returns the number of undelivered messages.
func (q *Queued) Pending() int {
	return q.queue.Len()
}

// Run delivers messages until ctx is cancelled or the queue is closed and
// drained. Delivery failures are logged and the message is dropped; the
// Server has already committed the state it describes.
func (q *Queued) Run(ctx context.Context) error {
	q.logger.Info("host queue starting")

	for {
		m, ok := q.queue.TryDequeue()
		if ok {
			if err := q.deliver(ctx, m); err != nil {
				q.logger.Warn("host delivery failed", "kind", m.Kind.String(), "err", err)
			}
			continue
		}

		select {
		case <-ctx.Done():
			q.logger.Info("host queue stopping: context cancelled", "pending", q.queue.Len())
			q.queue.Close()
			return ctx.Err()

		case _, open := <-q.queue.Wait():
			// A receive may consume a signal left by a message already
			// dequeued above; only a closed channel ends the loop.
			if !open && q.queue.Len() == 0 {
				q.logger.Info("host queue stopping: queue closed")
				return nil
			}
		}
	}
}

// Close stops accepting messages. Run returns once the rest are delivered.
func (q *Queued) Close() {
	q.queue.Close()
}

func (q *Queued) deliver(ctx context.Context, m Message) error {
	switch m.Kind {
	case MessageAdd:
		return q.backend.AddModule(ctx, m.Module)
	case MessageRemove:
		return q.backend.RemoveModule(ctx, m.Node, m.Path)
	case MessageValue:
		return q.backend.SendValue(ctx, m.Value)
	default:
		return fmt.Errorf("unknown message kind %d", m.Kind)
	}
}
