// Package storetest holds the behavior every engine.SnapshotStore must
// share, runnable against any backend.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// Deleter is implemented by stores that can remove snapshots.
type Deleter interface {
	DeleteSnapshot(ctx context.Context, name string) error
}

var (
	oscModule  = uuid.MustParse("0190a5b4-0000-7000-8000-000000000001")
	gainModule = uuid.MustParse("0190a5b4-0000-7000-8000-000000000002")
)

// Fixture builds a two-node snapshot with one value of each type.
func Fixture(name string) *ir.Snapshot {
	nodes := []ir.SnapshotNode{
		{
			Path:     ir.MustParsePath("Group"),
			ModuleID: gainModule,
			Values:   map[string]ir.JSONValue{"gain": {Value: ir.Int(3)}},
		},
		{
			Path:     ir.MustParsePath("Group.Osc"),
			ModuleID: oscModule,
			Values: map[string]ir.JSONValue{
				"frequency": {Value: ir.Float(880.5)},
				"waveform":  {Value: ir.String("saw")},
			},
		},
	}
	return &ir.Snapshot{
		ID:            "snap-" + name,
		Name:          name,
		SchemaVersion: ir.SchemaVersion,
		Hash:          ir.MustSnapshotHash(nodes),
		CreatedAt:     time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Nodes:         nodes,
	}
}

// RunSnapshotStoreContract verifies that store adheres to the
// engine.SnapshotStore contract.
func RunSnapshotStoreContract(t *testing.T, store engine.SnapshotStore) {
	ctx := context.Background()
	prefix := "contract-" + time.Now().Format("20060102150405") + "-"

	t.Run("Save and Load", func(t *testing.T) {
		want := Fixture(prefix + "roundtrip")
		require.NoError(t, store.SaveSnapshot(ctx, want))

		got, err := store.LoadSnapshot(ctx, want.Name)
		require.NoError(t, err)
		assertSnapshot(t, want, got)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.LoadSnapshot(ctx, prefix+"missing")
		assert.ErrorIs(t, err, engine.ErrSnapshotNotFound)
	})

	t.Run("Save Replaces", func(t *testing.T) {
		name := prefix + "replace"
		require.NoError(t, store.SaveSnapshot(ctx, Fixture(name)))

		second := Fixture(name)
		second.ID = "snap-second"
		second.Nodes = second.Nodes[:1]
		second.Hash = ir.MustSnapshotHash(second.Nodes)
		require.NoError(t, store.SaveSnapshot(ctx, second))

		got, err := store.LoadSnapshot(ctx, name)
		require.NoError(t, err)
		assertSnapshot(t, second, got)
	})

	t.Run("Empty Snapshot", func(t *testing.T) {
		want := Fixture(prefix + "empty")
		want.Nodes = []ir.SnapshotNode{}
		want.Hash = ir.MustSnapshotHash(want.Nodes)
		require.NoError(t, store.SaveSnapshot(ctx, want))

		got, err := store.LoadSnapshot(ctx, want.Name)
		require.NoError(t, err)
		assert.Empty(t, got.Nodes)
		assert.Equal(t, want.Hash, got.Hash)
	})

	t.Run("List", func(t *testing.T) {
		b := Fixture(prefix + "list-b")
		a := Fixture(prefix + "list-a")
		a.Nodes = a.Nodes[:1]
		require.NoError(t, store.SaveSnapshot(ctx, b))
		require.NoError(t, store.SaveSnapshot(ctx, a))

		infos, err := store.ListSnapshots(ctx)
		require.NoError(t, err)
		require.NotNil(t, infos)

		var mine []ir.SnapshotInfo
		for i, info := range infos {
			if i > 0 {
				assert.Less(t, infos[i-1].Name, info.Name, "listing must be sorted by name")
			}
			if info.Name == a.Name || info.Name == b.Name {
				mine = append(mine, info)
			}
		}
		require.Len(t, mine, 2)
		assert.Equal(t, a.Name, mine[0].Name)
		assert.Equal(t, 1, mine[0].NodeCount)
		assert.Equal(t, b.Name, mine[1].Name)
		assert.Equal(t, 2, mine[1].NodeCount)
		assert.Equal(t, b.ID, mine[1].ID)
		assert.Equal(t, b.Hash, mine[1].Hash)
		assert.True(t, b.CreatedAt.Equal(mine[1].CreatedAt))
	})

	t.Run("Delete", func(t *testing.T) {
		d, ok := store.(Deleter)
		if !ok {
			t.Skip("store does not support delete")
		}
		name := prefix + "delete"
		require.NoError(t, store.SaveSnapshot(ctx, Fixture(name)))
		require.NoError(t, d.DeleteSnapshot(ctx, name))

		_, err := store.LoadSnapshot(ctx, name)
		assert.ErrorIs(t, err, engine.ErrSnapshotNotFound, "Load after Delete should return ErrSnapshotNotFound")

		err = d.DeleteSnapshot(ctx, name)
		assert.ErrorIs(t, err, engine.ErrSnapshotNotFound)
	})
}

func assertSnapshot(t *testing.T, want, got *ir.Snapshot) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Name, got.Name)
	assert.Equal(t, want.SchemaVersion, got.SchemaVersion)
	assert.Equal(t, want.Hash, got.Hash)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "created_at: want %v, got %v", want.CreatedAt, got.CreatedAt)
	require.Len(t, got.Nodes, len(want.Nodes))
	for i := range want.Nodes {
		w, g := want.Nodes[i], got.Nodes[i]
		assert.Equal(t, w.Path.String(), g.Path.String(), "node %d path", i)
		assert.Equal(t, w.ModuleID, g.ModuleID, "node %d module", i)
		assert.Equal(t, w.Values, g.Values, "node %d values", i)
	}

	hash, err := ir.SnapshotHash(got.Nodes)
	require.NoError(t, err)
	assert.Equal(t, want.Hash, hash, "stored nodes must hash to the saved hash")
}
