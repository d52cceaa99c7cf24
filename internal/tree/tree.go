package tree

import (
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// Tree is the arena owning every live node.
type Tree struct {
	clock *Clock
	nodes map[NodeID]*Node

	roots     map[string]NodeID
	rootOrder []NodeID
}

// Option configures a Tree.
type Option func(*Tree)

// WithClock sets the id source. Tests use NewClockAt for stable ids.
func WithClock(c *Clock) Option {
	return func(t *Tree) {
		t.clock = c
	}
}

// New creates an empty tree.
func New(opts ...Option) *Tree {
	t := &Tree{
		clock: NewClock(),
		nodes: make(map[NodeID]*Node),
		roots: make(map[string]NodeID),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Len returns the number of live nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Node returns a node by id.
func (t *Tree) Node(id NodeID) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Create instantiates def as a new child of parent (RootID for top level).
// One endpoint is created per endpoint definition, stateful ones holding
// the definition's default converted into the endpoint type.
func (t *Tree) Create(def *ir.InterfaceDefinition, name string, parent NodeID) (*Node, error) {
	if !ir.ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	parentPath, err := t.pathOf(parent)
	if err != nil {
		return nil, err
	}
	if _, taken := t.child(parent, name); taken {
		return nil, fmt.Errorf("%w: %s", ErrNameCollision, parentPath.Append(name))
	}

	n := newNode(t.clock.Next(), def, name, parent, parentPath)
	t.nodes[n.ID] = n
	t.attach(n, parent)
	return n, nil
}

// Rename changes a node's name and repropagates paths through its subtree.
func (t *Tree) Rename(id NodeID, name string) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if !ir.ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if name == n.name {
		return nil
	}
	if _, taken := t.child(n.parent, name); taken {
		return fmt.Errorf("%w: %s", ErrNameCollision, n.path.Parent().Append(name))
	}

	siblings, _ := t.childIndex(n.parent)
	delete(siblings, n.name)
	siblings[name] = n.ID
	n.name = name

	parentPath, _ := t.pathOf(n.parent)
	t.updatePaths(n, parentPath)
	return nil
}

// Move reparents a node and repropagates paths through its subtree.
// Moving a node under itself or one of its descendants fails with ErrCycle.
func (t *Tree) Move(id, newParent NodeID) error {
	n, ok := t.nodes[id]
	if !ok {
		return fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	parentPath, err := t.pathOf(newParent)
	if err != nil {
		return err
	}
	if newParent != RootID && t.isSelfOrDescendant(newParent, id) {
		return fmt.Errorf("%w: %s under %s", ErrCycle, n.path, parentPath)
	}
	if newParent == n.parent {
		return nil
	}
	if _, taken := t.child(newParent, n.name); taken {
		return fmt.Errorf("%w: %s", ErrNameCollision, parentPath.Append(n.name))
	}

	t.detach(n)
	t.attach(n, newParent)
	t.updatePaths(n, parentPath)
	return nil
}

// Delete removes a node and, recursively, all of its descendants.
// It returns the removed ids, children before parents.
func (t *Tree) Delete(id NodeID) ([]NodeID, error) {
	n, ok := t.nodes[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	t.detach(n)

	var removed []NodeID
	t.destroy(n, &removed)
	return removed, nil
}

// destroy releases children first, then the node's endpoints, then the node.
func (t *Tree) destroy(n *Node, removed *[]NodeID) {
	for _, cid := range n.childOrder {
		t.destroy(t.nodes[cid], removed)
	}
	n.children = nil
	n.childOrder = nil
	for name, ep := range n.endpoints {
		ep.Definition = nil
		ep.Value = nil
		delete(n.endpoints, name)
	}
	n.endpointOrder = nil
	delete(t.nodes, n.ID)
	*removed = append(*removed, n.ID)
}

// Child returns the named child of parent (RootID for top level).
func (t *Tree) Child(parent NodeID, name string) (*Node, bool) {
	id, ok := t.child(parent, name)
	if !ok {
		return nil, false
	}
	return t.nodes[id], true
}

// Children returns the children of parent in insertion order.
func (t *Tree) Children(parent NodeID) []*Node {
	var ids []NodeID
	if parent == RootID {
		ids = t.rootOrder
	} else if n, ok := t.nodes[parent]; ok {
		ids = n.childOrder
	}
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		out = append(out, t.nodes[id])
	}
	return out
}

// NodeByPath resolves a node path. The root path resolves to nothing.
func (t *Tree) NodeByPath(p ir.Path) (*Node, bool) {
	if p.IsRoot() {
		return nil, false
	}
	parent := RootID
	var n *Node
	for i := 0; i < p.Len(); i++ {
		var ok bool
		n, ok = t.Child(parent, p.Elem(i))
		if !ok {
			return nil, false
		}
		parent = n.ID
	}
	return n, true
}

// ParentByPath resolves a path that names a parent: the root path
// resolves to RootID.
func (t *Tree) ParentByPath(p ir.Path) (NodeID, bool) {
	if p.IsRoot() {
		return RootID, true
	}
	n, ok := t.NodeByPath(p)
	if !ok {
		return 0, false
	}
	return n.ID, true
}

// EndpointByPath resolves node path + endpoint name.
func (t *Tree) EndpointByPath(p ir.Path) (*Endpoint, bool) {
	if p.Len() < 2 {
		return nil, false
	}
	n, ok := t.NodeByPath(p.Parent())
	if !ok {
		return nil, false
	}
	return n.Endpoint(p.Leaf())
}

// Walk visits every node depth-first, parents before children, siblings in
// insertion order. Returning false from fn skips that node's subtree.
func (t *Tree) Walk(fn func(n *Node) bool) {
	for _, id := range t.rootOrder {
		t.walk(t.nodes[id], fn)
	}
}

// WalkFrom is Walk restricted to the subtree rooted at id.
func (t *Tree) WalkFrom(id NodeID, fn func(n *Node) bool) {
	if n, ok := t.nodes[id]; ok {
		t.walk(n, fn)
	}
}

func (t *Tree) walk(n *Node, fn func(n *Node) bool) {
	if !fn(n) {
		return
	}
	for _, cid := range n.childOrder {
		t.walk(t.nodes[cid], fn)
	}
}

// Ancestors returns the node's ancestors, nearest first.
func (t *Tree) Ancestors(id NodeID) []*Node {
	var out []*Node
	n, ok := t.nodes[id]
	for ok && n.parent != RootID {
		n, ok = t.nodes[n.parent]
		if ok {
			out = append(out, n)
		}
	}
	return out
}

// CheckInvariants verifies the path invariant and parent/child symmetry
// for every node. It is meant for tests and debug builds.
func (t *Tree) CheckInvariants() error {
	for id, n := range t.nodes {
		parentPath, err := t.pathOf(n.parent)
		if err != nil {
			return fmt.Errorf("node %d: dangling parent %d", id, n.parent)
		}
		if !n.path.Equal(parentPath.Append(n.name)) {
			return fmt.Errorf("node %d: path %s, want %s", id, n.path, parentPath.Append(n.name))
		}
		if cid, ok := t.child(n.parent, n.name); !ok || cid != id {
			return fmt.Errorf("node %d: not registered under its parent", id)
		}
		for name, ep := range n.endpoints {
			if !ep.path.Equal(n.path.Append(name)) {
				return fmt.Errorf("endpoint %s: path %s, want %s", name, ep.path, n.path.Append(name))
			}
			if ep.Node != id {
				return fmt.Errorf("endpoint %s: owner %d, want %d", ep.path, ep.Node, id)
			}
		}
	}
	return nil
}

func (t *Tree) pathOf(id NodeID) (ir.Path, error) {
	if id == RootID {
		return ir.Path{}, nil
	}
	n, ok := t.nodes[id]
	if !ok {
		return ir.Path{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	return n.path, nil
}

func (t *Tree) childIndex(parent NodeID) (map[string]NodeID, bool) {
	if parent == RootID {
		return t.roots, true
	}
	n, ok := t.nodes[parent]
	if !ok {
		return nil, false
	}
	return n.children, true
}

func (t *Tree) child(parent NodeID, name string) (NodeID, bool) {
	idx, ok := t.childIndex(parent)
	if !ok {
		return 0, false
	}
	id, ok := idx[name]
	return id, ok
}

func (t *Tree) attach(n *Node, parent NodeID) {
	n.parent = parent
	if parent == RootID {
		t.roots[n.name] = n.ID
		t.rootOrder = append(t.rootOrder, n.ID)
		return
	}
	p := t.nodes[parent]
	p.children[n.name] = n.ID
	p.childOrder = append(p.childOrder, n.ID)
}

func (t *Tree) detach(n *Node) {
	if n.parent == RootID {
		delete(t.roots, n.name)
		t.rootOrder = removeID(t.rootOrder, n.ID)
		return
	}
	if p, ok := t.nodes[n.parent]; ok {
		delete(p.children, n.name)
		p.childOrder = removeID(p.childOrder, n.ID)
	}
}

// updatePaths recomputes n's path from parentPath, then its endpoints'
// paths, then recurses into children: one depth-first pass.
func (t *Tree) updatePaths(n *Node, parentPath ir.Path) {
	n.path = parentPath.Append(n.name)
	for name, ep := range n.endpoints {
		ep.path = n.path.Append(name)
	}
	for _, cid := range n.childOrder {
		t.updatePaths(t.nodes[cid], n.path)
	}
}

// isSelfOrDescendant reports whether candidate is id or lies below it.
func (t *Tree) isSelfOrDescendant(candidate, id NodeID) bool {
	for cur := candidate; cur != RootID; {
		if cur == id {
			return true
		}
		n, ok := t.nodes[cur]
		if !ok {
			return false
		}
		cur = n.parent
	}
	return false
}

func removeID(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}

// PeekID returns the id the next Create will assign.
func (t *Tree) PeekID() NodeID {
	return t.clock.Current() + 1
}
