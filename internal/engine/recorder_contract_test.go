package engine_test

import (
	"testing"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/store/storetest"
)

func TestMemorySnapshotStore_Contract(t *testing.T) {
	storetest.RunSnapshotStoreContract(t, engine.NewMemorySnapshotStore())
}
