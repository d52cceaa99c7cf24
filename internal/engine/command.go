package engine

import (
	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
)

// Command is a request to mutate the tree. Commands carry only their
// parameters; Server.ProcessCommand is the single place they execute.
//
// The set of commands is closed.
type Command interface {
	// CommandName is the command's wire name ("set", "new", ...).
	CommandName() string

	// Target is the path the command addresses, for logs and spans.
	Target() ir.Path

	command()
}

// Set assigns Value to the endpoint at Path. Value must be nil for bangs
// and non-nil for stateful endpoints.
type Set struct {
	Path  ir.Path
	Value ir.Value
}

// New instantiates the interface ModuleID as a child of Parent (the root
// path for top level). An empty Name is replaced by a generated one.
type New struct {
	ModuleID uuid.UUID
	Name     string
	Parent   ir.Path
}

// Delete removes the node at Path and all of its descendants.
type Delete struct {
	Path ir.Path
}

// Move reparents the node at Path under NewParent.
type Move struct {
	Path      ir.Path
	NewParent ir.Path
}

// Rename changes the name of the node at Path.
type Rename struct {
	Path    ir.Path
	NewName string
}

// Save writes the subtree at Path (the whole tree for the root path) to the
// snapshot store under Name.
type Save struct {
	Path ir.Path
	Name string
}

// Load instantiates the snapshot Name under Parent.
type Load struct {
	Name   string
	Parent ir.Path
}

func (Set) command()    {}
func (New) command()    {}
func (Delete) command() {}
func (Move) command()   {}
func (Rename) command() {}
func (Save) command()   {}
func (Load) command()   {}

func (Set) CommandName() string    { return "set" }
func (New) CommandName() string    { return "new" }
func (Delete) CommandName() string { return "delete" }
func (Move) CommandName() string   { return "move" }
func (Rename) CommandName() string { return "rename" }
func (Save) CommandName() string   { return "save" }
func (Load) CommandName() string   { return "load" }

func (c Set) Target() ir.Path    { return c.Path }
func (c New) Target() ir.Path    { return c.Parent }
func (c Delete) Target() ir.Path { return c.Path }
func (c Move) Target() ir.Path   { return c.Path }
func (c Rename) Target() ir.Path { return c.Path }
func (c Save) Target() ir.Path   { return c.Path }
func (c Load) Target() ir.Path   { return c.Parent }

// Result reports what a successful command did. Which fields are set
// depends on the command.
type Result struct {
	// Path is the affected path after the command: the endpoint for Set,
	// the node for New, Move and Rename.
	Path ir.Path

	// Previous is the value an endpoint held before a Set.
	Previous ir.Value

	// Skipped is true when a Set from the execution host was dropped
	// because the node is inactive.
	Skipped bool

	// Node describes the node created by New.
	Node *NodeInfo

	// Paths lists the top-level nodes created by Load.
	Paths []ir.Path

	// Dropped lists the endpoints whose stored values Load could not
	// restore, sorted. The endpoints keep their defaults.
	Dropped []ir.Path

	// Snapshot describes the snapshot written by Save or read by Load.
	Snapshot *ir.SnapshotInfo
}
