package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// SaveSnapshot stores snap under snap.Name, replacing any snapshot of the
// same name. The replacement is atomic.
func (s *Store) SaveSnapshot(ctx context.Context, snap *ir.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteRows(ctx, tx, snap.Name); err != nil {
		return fmt.Errorf("save snapshot: replace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (name, id, schema_version, hash, node_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		snap.Name,
		snap.ID,
		snap.SchemaVersion,
		snap.Hash,
		len(snap.Nodes),
		formatTime(snap.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	for i, n := range snap.Nodes {
		values, err := marshalValues(n.Values)
		if err != nil {
			return fmt.Errorf("save snapshot: node %s: %w", n.Path, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO snapshot_nodes (snapshot_name, position, path, module_id, endpoint_values)
			VALUES (?, ?, ?, ?, ?)
		`,
			snap.Name,
			i,
			n.Path.String(),
			n.ModuleID.String(),
			values,
		)
		if err != nil {
			return fmt.Errorf("save snapshot: node %s: %w", n.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// DeleteSnapshot removes the named snapshot. Deleting an unknown name
// returns engine.ErrSnapshotNotFound.
func (s *Store) DeleteSnapshot(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("delete snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE name = ?`, name).Scan(&exists)
	if err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	if exists == 0 {
		return notFound(name)
	}
	if err := deleteRows(ctx, tx, name); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return tx.Commit()
}

// deleteRows removes a snapshot and its nodes. Nodes go first so the
// delete does not depend on foreign key enforcement being on.
func deleteRows(ctx context.Context, tx *sql.Tx, name string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_nodes WHERE snapshot_name = ?`, name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name)
	return err
}
