package engine

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/testutil"
	"github.com/roach88/patchbay/internal/tree"
)

func TestNew_CreatesNodeWithDefaults(t *testing.T) {
	ts := newTestServer(t)

	res := ts.create("Oscillator", "Osc", "")

	require.NotNil(t, res.Node)
	assert.Equal(t, "Osc", res.Node.Name)
	assert.Equal(t, "Oscillator", res.Node.Interface)
	assert.Equal(t, testutil.OscillatorID, res.Node.ModuleID)
	assert.Equal(t, "Osc", res.Path.String())

	assert.Equal(t, ir.Float(440), ts.get("Osc.frequency"))
	assert.Equal(t, ir.String("sine"), ts.get("Osc.waveform"))

	calls := ts.host.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "add", calls[0].Op)
	assert.Equal(t, res.Node.ID, calls[0].Node)
	assert.Equal(t, []string{"Osc.frequency=440", "Osc.waveform=sine", "Osc.gain=5"}, ts.sends(),
		"defaults sent to host in definition order, skipping endpoints not sent to host")
	assert.Equal(t, []string{"new Osc (host_api)"}, ts.events())
	require.NoError(t, ts.CheckInvariants())
}

func TestNew_WithoutImplementationTouchesNoHost(t *testing.T) {
	ts := newTestServer(t)
	ts.create("Container", "Group", "")
	ts.create("Control", "Ctl", "Group")

	assert.Empty(t, ts.host.Calls())
	assert.Equal(t, ir.Int(1), ts.get("Group.active"))
	assert.Equal(t, ir.Float(0), ts.get("Group.Ctl.value"))
}

func TestNew_GeneratedNames(t *testing.T) {
	ts := newTestServer(t, WithTree(tree.New(tree.WithClock(tree.NewClockAt(6)))))

	res := ts.do(New{ModuleID: testutil.OscillatorID})
	assert.Equal(t, "Oscillator7", res.Node.Name)
	assert.Equal(t, tree.NodeID(7), res.Node.ID)

	// A user already took the next generated name.
	ts.do(New{ModuleID: testutil.ControlID, Name: "Oscillator9"})
	res = ts.do(New{ModuleID: testutil.OscillatorID})
	assert.Equal(t, "Oscillator9_2", res.Node.Name)
}

func TestNew_Rejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  New
		code ErrorCode
	}{
		{"unknown module", New{ModuleID: uuid.New(), Name: "X"}, CodeInputError},
		{"missing parent", New{ModuleID: testutil.ControlID, Name: "X", Parent: p("Nope")}, CodePathError},
		{"invalid name", New{ModuleID: testutil.ControlID, Name: "has space"}, CodeInputError},
		{"dotted name", New{ModuleID: testutil.ControlID, Name: "a.b"}, CodeInputError},
		{"sibling collision", New{ModuleID: testutil.ControlID, Name: "Osc"}, CodePathError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.create("Oscillator", "Osc", "")
			ts.reset()

			assert.Equal(t, tt.code, ts.try(tt.cmd, ir.SourceHostAPI))
			assert.Empty(t, ts.events())
			assert.Empty(t, ts.host.Calls())
			list, _ := ts.NodeList(ir.Path{})
			assert.Len(t, list, 1)
		})
	}
}

func TestDelete_Recursive(t *testing.T) {
	ts := newTestServer(t)
	ts.create("Container", "Group", "")
	osc := ts.create("Oscillator", "Osc", "Group")
	ts.create("Container", "Inner", "Group")
	inner := ts.create("Oscillator", "Deep", "Group.Inner")
	ts.create("Oscillator", "Other", "")
	ts.reset()

	res := ts.do(Delete{Path: p("Group")})
	assert.Equal(t, "Group", res.Path.String())

	_, ok := ts.Node(p("Group.Osc"))
	assert.False(t, ok)
	_, ok = ts.Node(p("Group.Inner.Deep"))
	assert.False(t, ok)
	_, ok = ts.Node(p("Other"))
	assert.True(t, ok)

	assert.Equal(t, []string{"delete Group (host_api)"}, ts.events(), "one notification for the whole subtree")

	calls := ts.host.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, HostCall{Op: "remove", Node: inner.Node.ID, Path: calls[0].Path}, calls[0], "children before parents")
	assert.Equal(t, "Group.Inner.Deep", calls[0].Path.String())
	assert.Equal(t, osc.Node.ID, calls[1].Node)
	assert.Equal(t, "Group.Osc", calls[1].Path.String())

	require.NoError(t, ts.CheckInvariants())
	assert.Equal(t, CodePathError, ts.try(Delete{Path: p("Group")}, ir.SourceHostAPI))
}

func TestDelete_IdsAreNotReused(t *testing.T) {
	ts := newTestServer(t)
	first := ts.create("Control", "A", "")
	ts.do(Delete{Path: p("A")})
	second := ts.create("Control", "A", "")
	assert.Greater(t, second.Node.ID, first.Node.ID)
}

func TestDelete_InFlightEndpointIsRejected(t *testing.T) {
	ts := newTestServer(t)
	ts.create("Container", "Group", "")
	osc := ts.create("Oscillator", "Osc", "Group")
	ts.reset()

	ts.mu.Lock()
	release, ok := ts.reentrance.Push(EndpointKey{Node: osc.Node.ID, Endpoint: "gain"}, ir.SourceScript)
	require.True(t, ok)
	_, err := ts.run(context.Background(), Delete{Path: p("Group")}, ir.SourceScript)
	release()
	ts.mu.Unlock()

	assert.Equal(t, CodeReentranceError, CodeOf(err))
	_, ok = ts.Node(p("Group.Osc"))
	assert.True(t, ok)
	assert.Empty(t, ts.events())
}

func TestMove(t *testing.T) {
	ts := newTestServer(t)
	ts.create("Container", "Group", "")
	osc := ts.create("Oscillator", "Osc", "")
	ts.reset()

	res := ts.do(Move{Path: p("Osc"), NewParent: p("Group")})

	assert.Equal(t, "Group.Osc", res.Path.String())
	assert.Equal(t, []string{"move Osc -> Group.Osc (host_api)"}, ts.events())
	assert.Empty(t, ts.host.Calls(), "the host addresses nodes by id")

	info, ok := ts.Node(p("Group.Osc"))
	require.True(t, ok)
	assert.Equal(t, osc.Node.ID, info.ID)
	assert.Equal(t, ir.Float(440), ts.get("Group.Osc.frequency"))

	// Back to the top level.
	res = ts.do(Move{Path: p("Group.Osc"), NewParent: ir.Path{}})
	assert.Equal(t, "Osc", res.Path.String())
	require.NoError(t, ts.CheckInvariants())
}

func TestMove_Rejections(t *testing.T) {
	tests := []struct {
		name string
		cmd  Move
		code ErrorCode
	}{
		{"missing node", Move{Path: p("Nope"), NewParent: p("Group")}, CodePathError},
		{"missing parent", Move{Path: p("Osc"), NewParent: p("Nope")}, CodePathError},
		{"into itself", Move{Path: p("Group"), NewParent: p("Group")}, CodePathError},
		{"into descendant", Move{Path: p("Group"), NewParent: p("Group.Inner")}, CodePathError},
		{"name collision", Move{Path: p("Osc"), NewParent: p("Group")}, CodePathError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.create("Container", "Group", "")
			ts.create("Container", "Inner", "Group")
			ts.create("Control", "Osc", "Group")
			ts.create("Oscillator", "Osc", "")
			ts.reset()

			assert.Equal(t, tt.code, ts.try(tt.cmd, ir.SourceHostAPI))
			assert.Empty(t, ts.events())
			_, ok := ts.Node(p("Group.Inner"))
			assert.True(t, ok)
		})
	}
}

func TestRename(t *testing.T) {
	ts := newTestServer(t)
	ts.create("Container", "Group", "")
	ts.create("Oscillator", "Osc", "Group")
	ts.reset()

	res := ts.do(Rename{Path: p("Group"), NewName: "Voices"})

	assert.Equal(t, "Voices", res.Path.String())
	assert.Equal(t, []string{"rename Group -> Voices (host_api)"}, ts.events())
	assert.Equal(t, ir.Float(440), ts.get("Voices.Osc.frequency"), "descendant paths follow the rename")
	_, ok := ts.Get(p("Group.Osc.frequency"))
	assert.False(t, ok)
	require.NoError(t, ts.CheckInvariants())
}

func TestRename_Rejections(t *testing.T) {
	ts := newTestServer(t)
	ts.create("Oscillator", "Osc", "")
	ts.create("Oscillator", "Osc2", "")
	ts.reset()

	assert.Equal(t, CodePathError, ts.try(Rename{Path: p("Nope"), NewName: "X"}, ir.SourceHostAPI))
	assert.Equal(t, CodePathError, ts.try(Rename{Path: p("Osc"), NewName: "Osc2"}, ir.SourceHostAPI))
	assert.Equal(t, CodeInputError, ts.try(Rename{Path: p("Osc"), NewName: ""}, ir.SourceHostAPI))
	assert.Equal(t, CodeInputError, ts.try(Rename{Path: p("Osc"), NewName: "a-b"}, ir.SourceHostAPI))
	assert.Empty(t, ts.events())
}
