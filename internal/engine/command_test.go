package engine

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
)

func TestCommand_NamesAndTargets(t *testing.T) {
	tests := []struct {
		cmd    Command
		name   string
		target string
	}{
		{Set{Path: p("Osc.gain")}, "set", "Osc.gain"},
		{New{ModuleID: uuid.Nil, Name: "Osc", Parent: p("Group")}, "new", "Group"},
		{Delete{Path: p("Osc")}, "delete", "Osc"},
		{Move{Path: p("Osc"), NewParent: p("Group")}, "move", "Osc"},
		{Rename{Path: p("Osc"), NewName: "Lead"}, "rename", "Osc"},
		{Save{Path: p("Group"), Name: "patch"}, "save", "Group"},
		{Load{Name: "patch", Parent: p("Group")}, "load", "Group"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.cmd.CommandName())
			assert.Equal(t, tt.target, tt.cmd.Target().String())
		})
	}
}

func TestNewServer_StartsEmpty(t *testing.T) {
	ts := newTestServer(t)
	var state strings.Builder
	require.NoError(t, ts.PrintState(&state))
	assert.Empty(t, state.String())
	assert.Equal(t, 0, ts.ReentranceDepth())

	res := ts.create("Oscillator", "", "")
	assert.Equal(t, "Oscillator1", res.Path.String())
	assert.Equal(t, ir.Float(440), ts.get("Oscillator1.frequency"))
}
