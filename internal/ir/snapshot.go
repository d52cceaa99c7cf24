package ir

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is a saved subtree. Node paths are relative to the saved
// node's parent, so the saved node itself has a one-element path.
// Parents precede children in Nodes.
type Snapshot struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	SchemaVersion string         `json:"schema_version"`
	Hash          string         `json:"hash"`
	CreatedAt     time.Time      `json:"created_at"`
	Nodes         []SnapshotNode `json:"nodes"`
}

// SnapshotNode records one node and its saved endpoint values.
type SnapshotNode struct {
	Path     Path                 `json:"path"`
	ModuleID uuid.UUID            `json:"module_id"`
	Values   map[string]JSONValue `json:"values"`
}

// Roots returns the top-level nodes of the snapshot.
func (s *Snapshot) Roots() []SnapshotNode {
	var out []SnapshotNode
	for _, n := range s.Nodes {
		if n.Path.Len() == 1 {
			out = append(out, n)
		}
	}
	return out
}

// SnapshotInfo summarizes a stored snapshot for listings.
type SnapshotInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Hash      string    `json:"hash"`
	NodeCount int       `json:"node_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Info summarizes s.
func (s *Snapshot) Info() SnapshotInfo {
	return SnapshotInfo{ID: s.ID, Name: s.Name, Hash: s.Hash, NodeCount: len(s.Nodes), CreatedAt: s.CreatedAt}
}
