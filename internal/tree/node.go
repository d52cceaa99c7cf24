package tree

import (
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
)

// NodeID identifies a node for the lifetime of the process.
// The zero NodeID denotes the (implicit) root.
type NodeID int64

// RootID is the parent id of top-level nodes.
const RootID NodeID = 0

// Node is a live module instance.
//
// Fields other than those documented as mutable are fixed at creation.
// Name, Path and Parent change only through Tree.Rename and Tree.Move.
type Node struct {
	ID        NodeID
	Interface *ir.InterfaceDefinition

	name   string
	path   ir.Path
	parent NodeID

	children   map[string]NodeID
	childOrder []NodeID

	endpoints     map[string]*Endpoint
	endpointOrder []string
}

// Name returns the node's current name.
func (n *Node) Name() string { return n.name }

// Path returns the node's current path.
func (n *Node) Path() ir.Path { return n.path }

// Parent returns the parent id, RootID for top-level nodes.
func (n *Node) Parent() NodeID { return n.parent }

// ChildIDs returns child ids in insertion order.
func (n *Node) ChildIDs() []NodeID {
	out := make([]NodeID, len(n.childOrder))
	copy(out, n.childOrder)
	return out
}

// HasChildren reports whether the node has any children.
func (n *Node) HasChildren() bool {
	return len(n.childOrder) > 0
}

// Endpoint returns the named endpoint. Absence is not an error.
func (n *Node) Endpoint(name string) (*Endpoint, bool) {
	ep, ok := n.endpoints[name]
	return ep, ok
}

// Endpoints returns endpoints in interface declaration order.
func (n *Node) Endpoints() []*Endpoint {
	out := make([]*Endpoint, 0, len(n.endpointOrder))
	for _, name := range n.endpointOrder {
		out = append(out, n.endpoints[name])
	}
	return out
}

// MustEndpoint returns the named endpoint and panics if the node does not
// have it. Use only for endpoints the interface is known to declare.
func (n *Node) MustEndpoint(name string) *Endpoint {
	ep, ok := n.endpoints[name]
	if !ok {
		panic(fmt.Sprintf("tree: node %s has no endpoint %q", n.path, name))
	}
	return ep
}

// Endpoint is a live endpoint instance on a node.
type Endpoint struct {
	// Node is the owning node's id (a non-owning back-reference).
	Node NodeID

	// Definition is borrowed from the node's interface.
	Definition *ir.EndpointDefinition

	path ir.Path

	// Value is the current value of a stateful endpoint. It is nil for
	// bangs and streams.
	Value ir.Value
}

// Name returns the endpoint name.
func (e *Endpoint) Name() string { return e.Definition.Name }

// Path returns node path + endpoint name.
func (e *Endpoint) Path() ir.Path { return e.path }

func newNode(id NodeID, def *ir.InterfaceDefinition, name string, parent NodeID, parentPath ir.Path) *Node {
	n := &Node{
		ID:            id,
		Interface:     def,
		name:          name,
		parent:        parent,
		path:          parentPath.Append(name),
		children:      make(map[string]NodeID),
		endpoints:     make(map[string]*Endpoint, len(def.Endpoints)),
		endpointOrder: make([]string, 0, len(def.Endpoints)),
	}
	for i := range def.Endpoints {
		epDef := &def.Endpoints[i]
		ep := &Endpoint{
			Node:       id,
			Definition: epDef,
			path:       n.path.Append(epDef.Name),
		}
		if s := epDef.State(); s != nil {
			v, err := ir.Convert(s.Default, s.Type)
			if err != nil {
				// Definitions are validated on load; a bad default is a loader bug.
				panic(fmt.Sprintf("tree: endpoint %s default: %v", ep.path, err))
			}
			ep.Value = v
		}
		n.endpoints[epDef.Name] = ep
		n.endpointOrder = append(n.endpointOrder, epDef.Name)
	}
	return n
}
