package tree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/testutil"
)

// buildTree creates:
//
//	Group            (container)
//	  Osc            (oscillator)
//	    Inner        (container)
//	      Leaf       (oscillator)
//	Other            (container)
func buildTree(t *testing.T) (*Tree, map[string]*Node) {
	t.Helper()
	tr := New()
	osc := testutil.OscillatorInterface()
	ctr := testutil.ContainerInterface()

	nodes := map[string]*Node{}
	var err error
	nodes["Group"], err = tr.Create(ctr, "Group", RootID)
	require.NoError(t, err)
	nodes["Osc"], err = tr.Create(osc, "Osc", nodes["Group"].ID)
	require.NoError(t, err)
	nodes["Inner"], err = tr.Create(ctr, "Inner", nodes["Osc"].ID)
	require.NoError(t, err)
	nodes["Leaf"], err = tr.Create(osc, "Leaf", nodes["Inner"].ID)
	require.NoError(t, err)
	nodes["Other"], err = tr.Create(ctr, "Other", RootID)
	require.NoError(t, err)
	require.NoError(t, tr.CheckInvariants())
	return tr, nodes
}

func TestCreate_PathsAndDefaults(t *testing.T) {
	tr, nodes := buildTree(t)

	leaf := nodes["Leaf"]
	assert.Equal(t, "Group.Osc.Inner.Leaf", leaf.Path().String())
	assert.Equal(t, nodes["Inner"].ID, leaf.Parent())

	freq, ok := leaf.Endpoint("frequency")
	require.True(t, ok)
	assert.Equal(t, "Group.Osc.Inner.Leaf.frequency", freq.Path().String())
	assert.Equal(t, ir.Float(440), freq.Value)
	assert.Equal(t, leaf.ID, freq.Node)

	reset := leaf.MustEndpoint("reset")
	assert.Nil(t, reset.Value, "bangs hold no value")
	out := leaf.MustEndpoint("out1")
	assert.Nil(t, out.Value, "streams hold no value")

	assert.Equal(t, 5, tr.Len())
}

func TestCreate_EndpointOrderFollowsInterface(t *testing.T) {
	_, nodes := buildTree(t)
	var names []string
	for _, ep := range nodes["Osc"].Endpoints() {
		names = append(names, ep.Name())
	}
	assert.Equal(t, []string{"frequency", "waveform", "gain", "label", "reset", "out1"}, names)
}

func TestCreate_ConvertsDefaultIntoEndpointType(t *testing.T) {
	def := &ir.InterfaceDefinition{
		Info:      ir.InterfaceInfo{Name: "X"},
		Endpoints: []ir.EndpointDefinition{testutil.State("f", ir.StateInfo{Type: ir.TypeFloat, Default: ir.Int(3)})},
	}
	n, err := New().Create(def, "X1", RootID)
	require.NoError(t, err)
	assert.Equal(t, ir.Float(3), n.MustEndpoint("f").Value)
}

func TestCreate_Errors(t *testing.T) {
	tr, nodes := buildTree(t)
	osc := testutil.OscillatorInterface()

	_, err := tr.Create(osc, "Osc", nodes["Group"].ID)
	assert.ErrorIs(t, err, ErrNameCollision)

	_, err = tr.Create(osc, "bad name", RootID)
	assert.ErrorIs(t, err, ErrInvalidName)

	_, err = tr.Create(osc, "X", NodeID(999))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreate_IDsNeverReused(t *testing.T) {
	tr := New()
	osc := testutil.OscillatorInterface()

	a, err := tr.Create(osc, "A", RootID)
	require.NoError(t, err)
	_, err = tr.Delete(a.ID)
	require.NoError(t, err)

	b, err := tr.Create(osc, "A", RootID)
	require.NoError(t, err)
	assert.Greater(t, b.ID, a.ID)
}

func TestWithClock(t *testing.T) {
	tr := New(WithClock(NewClockAt(100)))
	n, err := tr.Create(testutil.ControlInterface(), "C", RootID)
	require.NoError(t, err)
	assert.Equal(t, NodeID(101), n.ID)
}

func TestRename_RepropagatesSubtree(t *testing.T) {
	tr, nodes := buildTree(t)

	require.NoError(t, tr.Rename(nodes["Osc"].ID, "Synth"))
	require.NoError(t, tr.CheckInvariants())

	assert.Equal(t, "Group.Synth", nodes["Osc"].Path().String())
	assert.Equal(t, "Group.Synth.Inner.Leaf", nodes["Leaf"].Path().String())
	assert.Equal(t, "Group.Synth.Inner.Leaf.gain", nodes["Leaf"].MustEndpoint("gain").Path().String())

	_, ok := tr.NodeByPath(ir.MustParsePath("Group.Osc"))
	assert.False(t, ok, "old path no longer resolves")
	found, ok := tr.NodeByPath(ir.MustParsePath("Group.Synth.Inner.Leaf"))
	require.True(t, ok)
	assert.Equal(t, nodes["Leaf"].ID, found.ID)
}

func TestRename_Collision(t *testing.T) {
	tr, nodes := buildTree(t)
	err := tr.Rename(nodes["Other"].ID, "Group")
	assert.ErrorIs(t, err, ErrNameCollision)
	assert.Equal(t, "Other", nodes["Other"].Name())
}

func TestRename_SameNameIsNoop(t *testing.T) {
	tr, nodes := buildTree(t)
	require.NoError(t, tr.Rename(nodes["Other"].ID, "Other"))
	require.NoError(t, tr.CheckInvariants())
}

func TestMove_RepropagatesSubtree(t *testing.T) {
	tr, nodes := buildTree(t)

	require.NoError(t, tr.Move(nodes["Inner"].ID, nodes["Other"].ID))
	require.NoError(t, tr.CheckInvariants())

	assert.Equal(t, "Other.Inner.Leaf", nodes["Leaf"].Path().String())
	assert.Equal(t, "Other.Inner.Leaf.frequency", nodes["Leaf"].MustEndpoint("frequency").Path().String())
	assert.False(t, nodes["Osc"].HasChildren())

	ep, ok := tr.EndpointByPath(ir.MustParsePath("Other.Inner.Leaf.waveform"))
	require.True(t, ok)
	assert.Equal(t, ir.String("sine"), ep.Value)
}

func TestMove_ToTopLevel(t *testing.T) {
	tr, nodes := buildTree(t)
	require.NoError(t, tr.Move(nodes["Leaf"].ID, RootID))
	require.NoError(t, tr.CheckInvariants())
	assert.Equal(t, "Leaf", nodes["Leaf"].Path().String())
	assert.Len(t, tr.Children(RootID), 3)
}

func TestMove_CycleRejected(t *testing.T) {
	tr, nodes := buildTree(t)

	err := tr.Move(nodes["Group"].ID, nodes["Leaf"].ID)
	assert.ErrorIs(t, err, ErrCycle)

	err = tr.Move(nodes["Group"].ID, nodes["Group"].ID)
	assert.ErrorIs(t, err, ErrCycle)

	require.NoError(t, tr.CheckInvariants())
	assert.Equal(t, "Group.Osc.Inner.Leaf", nodes["Leaf"].Path().String(), "tree unchanged")
}

func TestMove_Collision(t *testing.T) {
	tr, nodes := buildTree(t)
	dup, err := tr.Create(testutil.ContainerInterface(), "Inner", nodes["Other"].ID)
	require.NoError(t, err)

	err = tr.Move(nodes["Inner"].ID, nodes["Other"].ID)
	assert.ErrorIs(t, err, ErrNameCollision)
	assert.Equal(t, "Other.Inner", dup.Path().String())
}

func TestDelete_Recursive(t *testing.T) {
	tr, nodes := buildTree(t)

	removed, err := tr.Delete(nodes["Osc"].ID)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{nodes["Leaf"].ID, nodes["Inner"].ID, nodes["Osc"].ID}, removed, "children before parents")

	for _, p := range []string{"Group.Osc", "Group.Osc.Inner", "Group.Osc.Inner.Leaf"} {
		_, ok := tr.NodeByPath(ir.MustParsePath(p))
		assert.False(t, ok, p)
	}
	_, ok := tr.EndpointByPath(ir.MustParsePath("Group.Osc.Inner.Leaf.gain"))
	assert.False(t, ok)
	_, ok = tr.Node(nodes["Leaf"].ID)
	assert.False(t, ok)

	assert.Equal(t, 2, tr.Len())
	assert.False(t, nodes["Group"].HasChildren())
	require.NoError(t, tr.CheckInvariants())
}

func TestDelete_NotFound(t *testing.T) {
	_, err := New().Delete(NodeID(7))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLookup_AbsenceIsNotError(t *testing.T) {
	tr, nodes := buildTree(t)

	_, ok := tr.Child(nodes["Group"].ID, "nope")
	assert.False(t, ok)
	_, ok = nodes["Osc"].Endpoint("nope")
	assert.False(t, ok)
	_, ok = tr.NodeByPath(ir.Path{})
	assert.False(t, ok)
	_, ok = tr.EndpointByPath(ir.MustParsePath("Group"))
	assert.False(t, ok, "a single element cannot name an endpoint")

	id, ok := tr.ParentByPath(ir.Path{})
	assert.True(t, ok)
	assert.Equal(t, RootID, id)
}

func TestWalk_DepthFirstOrder(t *testing.T) {
	tr, _ := buildTree(t)
	var paths []string
	tr.Walk(func(n *Node) bool {
		paths = append(paths, n.Path().String())
		return true
	})
	assert.Equal(t, []string{"Group", "Group.Osc", "Group.Osc.Inner", "Group.Osc.Inner.Leaf", "Other"}, paths)
}

func TestWalk_SkipSubtree(t *testing.T) {
	tr, _ := buildTree(t)
	var names []string
	tr.Walk(func(n *Node) bool {
		names = append(names, n.Name())
		return n.Name() != "Osc"
	})
	assert.Equal(t, []string{"Group", "Osc", "Other"}, names)
}

func TestAncestors(t *testing.T) {
	tr, nodes := buildTree(t)
	var names []string
	for _, a := range tr.Ancestors(nodes["Leaf"].ID) {
		names = append(names, a.Name())
	}
	assert.Equal(t, []string{"Inner", "Osc", "Group"}, names)
	assert.Empty(t, tr.Ancestors(nodes["Group"].ID))
}

func TestMustEndpoint_PanicsOnMissing(t *testing.T) {
	_, nodes := buildTree(t)
	assert.Panics(t, func() { nodes["Osc"].MustEndpoint("missing") })
}
