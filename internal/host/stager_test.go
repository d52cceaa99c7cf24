package host

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
)

func TestDirStager_CopiesPerNode(t *testing.T) {
	src := filepath.Join(t.TempDir(), "kick.wav")
	require.NoError(t, os.WriteFile(src, []byte("RIFF"), 0o644))
	root := t.TempDir()

	staged, err := DirStager{Root: root}.Stage(context.Background(), ir.MustParsePath("Group.Player"), src)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(root, "Group", "Player", "kick.wav"), staged)
	data, err := os.ReadFile(staged)
	require.NoError(t, err)
	assert.Equal(t, "RIFF", string(data))
}

func TestDirStager_FileAlreadyStaged(t *testing.T) {
	root := t.TempDir()
	inside := filepath.Join(root, "Player", "loop.wav")
	require.NoError(t, os.MkdirAll(filepath.Dir(inside), 0o755))
	require.NoError(t, os.WriteFile(inside, []byte("x"), 0o644))

	staged, err := DirStager{Root: root}.Stage(context.Background(), ir.MustParsePath("Player"), inside)
	require.NoError(t, err)
	assert.Equal(t, inside, staged)
}

func TestDirStager_Errors(t *testing.T) {
	root := t.TempDir()

	_, err := DirStager{Root: root}.Stage(context.Background(), ir.MustParsePath("Player"), filepath.Join(root+"-missing", "x.wav"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "open input file")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DirStager{Root: root}.Stage(ctx, ir.MustParsePath("Player"), "x.wav")
	assert.ErrorIs(t, err, context.Canceled)
}
