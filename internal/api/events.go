package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// Event is one notification as sent over /events.
type Event struct {
	Kind     string           `json:"kind"`
	Path     string           `json:"path"`
	OldPath  string           `json:"old_path,omitempty"`
	Value    *ir.JSONValue    `json:"value,omitempty"`
	ModuleID *uuid.UUID       `json:"module_id,omitempty"`
	Source   ir.CommandSource `json:"source"`
}

// subscriberBuffer is how many events a slow client may fall behind
// before events are dropped for it.
const subscriberBuffer = 64

// StreamManager fans engine notifications out to SSE subscribers. It is
// an engine.NotificationSink; install it on the Server and serve it at
// /events.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan []byte]struct{}
	logger      *slog.Logger
}

var _ engine.NotificationSink = (*StreamManager)(nil)

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		subscribers: make(map[chan []byte]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a channel and returns it with its cancel func.
func (sm *StreamManager) Subscribe() (<-chan []byte, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan []byte, subscriberBuffer)
	sm.subscribers[ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if _, ok := sm.subscribers[ch]; ok {
			delete(sm.subscribers, ch)
			close(ch)
		}
	}
}

// Subscribers returns the number of live subscriptions.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Broadcast sends ev to every subscriber without blocking. It runs under
// the engine lock, so a full subscriber loses the event instead.
func (sm *StreamManager) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		sm.logger.Error("event encode failed", "kind", ev.Kind, "path", ev.Path, "error", err)
		return
	}

	sm.mu.RLock()
	defer sm.mu.RUnlock()
	for ch := range sm.subscribers {
		select {
		case ch <- data:
		default:
			sm.logger.Warn("SSE client buffer full, dropping event", "kind", ev.Kind, "path", ev.Path)
		}
	}
}

func (sm *StreamManager) OnSet(path ir.Path, value ir.Value, source ir.CommandSource) {
	ev := Event{Kind: "set", Path: path.String(), Source: source}
	if value != nil {
		ev.Value = &ir.JSONValue{Value: value}
	}
	sm.Broadcast(ev)
}

func (sm *StreamManager) OnNew(path ir.Path, moduleID uuid.UUID, source ir.CommandSource) {
	sm.Broadcast(Event{Kind: "new", Path: path.String(), ModuleID: &moduleID, Source: source})
}

func (sm *StreamManager) OnDelete(path ir.Path, source ir.CommandSource) {
	sm.Broadcast(Event{Kind: "delete", Path: path.String(), Source: source})
}

func (sm *StreamManager) OnRename(oldPath, newPath ir.Path, source ir.CommandSource) {
	sm.Broadcast(Event{Kind: "rename", Path: newPath.String(), OldPath: oldPath.String(), Source: source})
}

func (sm *StreamManager) OnMove(oldPath, newPath ir.Path, source ir.CommandSource) {
	sm.Broadcast(Event{Kind: "move", Path: newPath.String(), OldPath: oldPath.String(), Source: source})
}

// ServeHTTP streams events to one client until it disconnects.
func (sm *StreamManager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		sm.logger.Error("SSE: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := sm.Subscribe()
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	sm.logger.Debug("SSE client connected")

	for {
		select {
		case <-r.Context().Done():
			sm.logger.Debug("SSE client disconnected")
			return
		case data, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}
