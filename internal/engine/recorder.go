package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// Notification is one sink call captured by RecordingSink.
type Notification struct {
	Kind     string // "set", "new", "delete", "rename", "move"
	Path     ir.Path
	NewPath  ir.Path
	Value    ir.Value
	ModuleID uuid.UUID
	Source   ir.CommandSource
}

// String renders a notification on one line, for golden files.
func (n Notification) String() string {
	switch n.Kind {
	case "set":
		v := "<bang>"
		if n.Value != nil {
			v = formatValue(n.Value)
		}
		return fmt.Sprintf("set %s = %s (%s)", n.Path, v, n.Source)
	case "rename", "move":
		return fmt.Sprintf("%s %s -> %s (%s)", n.Kind, n.Path, n.NewPath, n.Source)
	default:
		return fmt.Sprintf("%s %s (%s)", n.Kind, n.Path, n.Source)
	}
}

// RecordingSink records notifications for tests and the scenario harness.
// Safe for concurrent use.
type RecordingSink struct {
	mu     sync.Mutex
	events []Notification
}

func (r *RecordingSink) record(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, n)
}

func (r *RecordingSink) OnSet(path ir.Path, value ir.Value, source ir.CommandSource) {
	r.record(Notification{Kind: "set", Path: path, Value: value, Source: source})
}

func (r *RecordingSink) OnNew(path ir.Path, moduleID uuid.UUID, source ir.CommandSource) {
	r.record(Notification{Kind: "new", Path: path, ModuleID: moduleID, Source: source})
}

func (r *RecordingSink) OnDelete(path ir.Path, source ir.CommandSource) {
	r.record(Notification{Kind: "delete", Path: path, Source: source})
}

func (r *RecordingSink) OnRename(oldPath, newPath ir.Path, source ir.CommandSource) {
	r.record(Notification{Kind: "rename", Path: oldPath, NewPath: newPath, Source: source})
}

func (r *RecordingSink) OnMove(oldPath, newPath ir.Path, source ir.CommandSource) {
	r.record(Notification{Kind: "move", Path: oldPath, NewPath: newPath, Source: source})
}

// Events returns a copy of everything recorded so far.
func (r *RecordingSink) Events() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.events))
	copy(out, r.events)
	return out
}

// Reset drops everything recorded so far.
func (r *RecordingSink) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// HostCall is one host call captured by RecordingHost.
type HostCall struct {
	Op       string // "add", "remove", "send"
	Node     tree.NodeID
	Path     ir.Path
	Endpoint string
	Value    ir.Value
}

// RecordingHost records host calls. A non-nil Err is returned from every
// call after it is recorded.
type RecordingHost struct {
	mu    sync.Mutex
	calls []HostCall
	Err   error
}

func (h *RecordingHost) record(c HostCall) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, c)
	return h.Err
}

func (h *RecordingHost) AddModule(_ context.Context, m HostModule) error {
	return h.record(HostCall{Op: "add", Node: m.Node, Path: m.Path})
}

func (h *RecordingHost) RemoveModule(_ context.Context, node tree.NodeID, path ir.Path) error {
	return h.record(HostCall{Op: "remove", Node: node, Path: path})
}

func (h *RecordingHost) SendValue(_ context.Context, v HostValue) error {
	return h.record(HostCall{Op: "send", Node: v.Node, Path: v.Path, Endpoint: v.Endpoint, Value: v.Value})
}

// Calls returns a copy of everything recorded so far.
func (h *RecordingHost) Calls() []HostCall {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]HostCall, len(h.calls))
	copy(out, h.calls)
	return out
}

// Sends returns only the SendValue calls.
func (h *RecordingHost) Sends() []HostCall {
	var out []HostCall
	for _, c := range h.Calls() {
		if c.Op == "send" {
			out = append(out, c)
		}
	}
	return out
}

// Reset drops everything recorded so far.
func (h *RecordingHost) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = nil
}

// MemorySnapshotStore keeps snapshots in a map, latest save per name wins.
type MemorySnapshotStore struct {
	mu    sync.Mutex
	snaps map[string]*ir.Snapshot
}

// NewMemorySnapshotStore creates an empty store.
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]*ir.Snapshot)}
}

func (m *MemorySnapshotStore) SaveSnapshot(_ context.Context, snap *ir.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[snap.Name] = snap
	return nil
}

func (m *MemorySnapshotStore) LoadSnapshot(_ context.Context, name string) (*ir.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	return snap, nil
}

func (m *MemorySnapshotStore) ListSnapshots(_ context.Context) ([]ir.SnapshotInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]ir.SnapshotInfo, 0, len(m.snaps))
	for _, snap := range m.snaps {
		out = append(out, snap.Info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemorySnapshotStore) DeleteSnapshot(_ context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.snaps[name]; !ok {
		return fmt.Errorf("%w: %s", ErrSnapshotNotFound, name)
	}
	delete(m.snaps, name)
	return nil
}
