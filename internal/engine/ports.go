package engine

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// ModuleRegistry is the Server's read-only view of the loaded interfaces.
type ModuleRegistry interface {
	// Lookup returns the interface with the given module id.
	Lookup(id uuid.UUID) (*ir.InterfaceDefinition, bool)

	// Interfaces returns every loaded interface.
	Interfaces() []*ir.InterfaceDefinition
}

// HostModule describes a node the execution host must instantiate.
type HostModule struct {
	Node     tree.NodeID
	Path     ir.Path
	ModuleID uuid.UUID
	Checksum string
}

// HostValue is one committed value forwarded to the execution host.
// Value is nil for bangs.
type HostValue struct {
	Node     tree.NodeID
	Endpoint string
	Path     ir.Path
	Value    ir.Value
}

// Host is the execution-host collaborator. The host addresses nodes by
// id, so moves and renames need no host message.
//
// Calls are made synchronously under the Server lock and are
// fire-and-forget: a failure is logged but never rolls back a commit.
type Host interface {
	AddModule(ctx context.Context, m HostModule) error
	RemoveModule(ctx context.Context, node tree.NodeID, path ir.Path) error
	SendValue(ctx context.Context, v HostValue) error
}

// NotificationSink is informed after every successful mutating command,
// exactly once, after path repropagation. The one exception is a Set of
// an input-file endpoint whose file gets staged: OnSet is called with the
// client's path and the command's source, then again with the staged path
// and SourceSystem.
type NotificationSink interface {
	OnSet(path ir.Path, value ir.Value, source ir.CommandSource)
	OnNew(path ir.Path, moduleID uuid.UUID, source ir.CommandSource)
	OnDelete(path ir.Path, source ir.CommandSource)
	OnRename(oldPath, newPath ir.Path, source ir.CommandSource)
	OnMove(oldPath, newPath ir.Path, source ir.CommandSource)
}

// ErrSnapshotNotFound is returned by SnapshotStore.LoadSnapshot for an
// unknown name.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// SnapshotStore persists Save/Load snapshots.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, snap *ir.Snapshot) error
	LoadSnapshot(ctx context.Context, name string) (*ir.Snapshot, error)
	ListSnapshots(ctx context.Context) ([]ir.SnapshotInfo, error)
}

// FileStager copies an input file chosen through the external API into
// server-managed storage and returns the path the host should read.
type FileStager interface {
	Stage(ctx context.Context, node ir.Path, file string) (string, error)
}

// IDGenerator generates snapshot ids.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type IDGenerator interface {
	Generate() string
}

// MultiSink fans notifications out to several sinks in order.
type MultiSink []NotificationSink

func (m MultiSink) OnSet(path ir.Path, value ir.Value, source ir.CommandSource) {
	for _, s := range m {
		s.OnSet(path, value, source)
	}
}

func (m MultiSink) OnNew(path ir.Path, moduleID uuid.UUID, source ir.CommandSource) {
	for _, s := range m {
		s.OnNew(path, moduleID, source)
	}
}

func (m MultiSink) OnDelete(path ir.Path, source ir.CommandSource) {
	for _, s := range m {
		s.OnDelete(path, source)
	}
}

func (m MultiSink) OnRename(oldPath, newPath ir.Path, source ir.CommandSource) {
	for _, s := range m {
		s.OnRename(oldPath, newPath, source)
	}
}

func (m MultiSink) OnMove(oldPath, newPath ir.Path, source ir.CommandSource) {
	for _, s := range m {
		s.OnMove(oldPath, newPath, source)
	}
}
