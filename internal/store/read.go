package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

func notFound(name string) error {
	return fmt.Errorf("%w: %s", engine.ErrSnapshotNotFound, name)
}

// LoadSnapshot reads the named snapshot with its nodes in saved order.
// Returns an error wrapping engine.ErrSnapshotNotFound for unknown names.
func (s *Store) LoadSnapshot(ctx context.Context, name string) (*ir.Snapshot, error) {
	snap := &ir.Snapshot{Name: name}
	var createdAt string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, schema_version, hash, created_at
		FROM snapshots
		WHERE name = ?
	`, name).Scan(&snap.ID, &snap.SchemaVersion, &snap.Hash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	nodes, err := s.readNodes(ctx, name)
	if err != nil {
		return nil, err
	}
	snap.Nodes = nodes
	return snap, nil
}

func (s *Store) readNodes(ctx context.Context, name string) ([]ir.SnapshotNode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, module_id, endpoint_values
		FROM snapshot_nodes
		WHERE snapshot_name = ?
		ORDER BY position ASC
	`, name)
	if err != nil {
		return nil, fmt.Errorf("query snapshot nodes: %w", err)
	}
	defer rows.Close()

	nodes := []ir.SnapshotNode{}
	for rows.Next() {
		var path, moduleID, values string
		if err := rows.Scan(&path, &moduleID, &values); err != nil {
			return nil, fmt.Errorf("scan snapshot node: %w", err)
		}
		n, err := decodeNode(path, moduleID, values)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot nodes: %w", err)
	}
	return nodes, nil
}

func decodeNode(path, moduleID, values string) (ir.SnapshotNode, error) {
	var n ir.SnapshotNode
	var err error
	if n.Path, err = ir.ParsePath(path); err != nil {
		return n, fmt.Errorf("snapshot node path: %w", err)
	}
	if n.ModuleID, err = uuid.Parse(moduleID); err != nil {
		return n, fmt.Errorf("snapshot node %s module_id: %w", path, err)
	}
	if n.Values, err = unmarshalValues(values); err != nil {
		return n, fmt.Errorf("snapshot node %s: %w", path, err)
	}
	return n, nil
}

// ListSnapshots returns a summary of every stored snapshot, by name.
// Returns an empty slice (not nil) when there are none.
func (s *Store) ListSnapshots(ctx context.Context) ([]ir.SnapshotInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, id, hash, node_count, created_at
		FROM snapshots
		ORDER BY name COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	infos := []ir.SnapshotInfo{}
	for rows.Next() {
		var info ir.SnapshotInfo
		var createdAt string
		if err := rows.Scan(&info.Name, &info.ID, &info.Hash, &info.NodeCount, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if info.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		infos = append(infos, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return infos, nil
}
