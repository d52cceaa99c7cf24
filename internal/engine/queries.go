package engine

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// NodeInfo describes a live node.
type NodeInfo struct {
	ID        tree.NodeID `json:"id"`
	Name      string      `json:"name"`
	Path      ir.Path     `json:"path"`
	ModuleID  uuid.UUID   `json:"module_id"`
	Interface string      `json:"interface"`
}

func describeNode(n *tree.Node) NodeInfo {
	return NodeInfo{
		ID:        n.ID,
		Name:      n.Name(),
		Path:      n.Path(),
		ModuleID:  n.Interface.ModuleID,
		Interface: n.Interface.Info.Name,
	}
}

// Get returns the value of the endpoint at path. ok is false when the
// endpoint does not exist; bangs and streams exist but hold nil.
func (s *Server) Get(path ir.Path) (value ir.Value, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ep, ok := s.tree.EndpointByPath(path)
	if !ok {
		return nil, false
	}
	return ep.Value, true
}

// Node describes the node at path.
func (s *Server) Node(path ir.Path) (NodeInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.tree.NodeByPath(path)
	if !ok {
		return NodeInfo{}, false
	}
	return describeNode(n), true
}

// NodeList lists the nodes below path depth-first, parents before
// children. The root path lists the whole tree.
func (s *Server) NodeList(path ir.Path) ([]NodeInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []NodeInfo{}
	collect := func(n *tree.Node) bool {
		out = append(out, describeNode(n))
		return true
	}
	if path.IsRoot() {
		s.tree.Walk(collect)
		return out, true
	}
	n, ok := s.tree.NodeByPath(path)
	if !ok {
		return nil, false
	}
	for _, c := range s.tree.Children(n.ID) {
		s.tree.WalkFrom(c.ID, collect)
	}
	return out, true
}

// Values returns the current stateful endpoint values of the node at path.
func (s *Server) Values(path ir.Path) (map[string]ir.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.tree.NodeByPath(path)
	if !ok {
		return nil, false
	}
	out := make(map[string]ir.Value)
	for _, ep := range n.Endpoints() {
		if ep.Value != nil {
			out[ep.Name()] = ep.Value
		}
	}
	return out, true
}

// Interfaces returns every interface the registry knows.
func (s *Server) Interfaces() []*ir.InterfaceDefinition {
	return s.modules.Interfaces()
}

// Interface returns one interface by module id.
func (s *Server) Interface(id uuid.UUID) (*ir.InterfaceDefinition, bool) {
	return s.modules.Lookup(id)
}

// Snapshots lists stored snapshots.
func (s *Server) Snapshots(ctx context.Context) ([]ir.SnapshotInfo, error) {
	if s.snapshots == nil {
		return nil, newError(CodeFailed, ir.Path{}, "no snapshot store configured")
	}
	return s.snapshots.ListSnapshots(ctx)
}

// Version returns the server version.
func (s *Server) Version() string {
	return ir.ServerVersion
}

// ReentranceDepth returns the number of in-flight sets. Outside a command
// it is always 0.
func (s *Server) ReentranceDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reentrance.Depth()
}

// CheckInvariants verifies the tree and that every node carries logic.
func (s *Server) CheckInvariants() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.tree.CheckInvariants(); err != nil {
		return err
	}
	if len(s.logic) != s.tree.Len() {
		return fmt.Errorf("%d logic entries for %d nodes", len(s.logic), s.tree.Len())
	}
	for id := range s.logic {
		if _, ok := s.tree.Node(id); !ok {
			return fmt.Errorf("logic entry for deleted node %d", id)
		}
	}
	return nil
}

// PrintState writes an indented dump of every node and its stateful
// values:
//
//	Group [Container]
//	  active = 1
//	  Osc [Oscillator]
//	    frequency = 440
//	    waveform = "sine"
func (s *Server) PrintState(w io.Writer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var b strings.Builder
	s.tree.Walk(func(n *tree.Node) bool {
		indent := strings.Repeat("  ", n.Path().Len()-1)
		fmt.Fprintf(&b, "%s%s [%s]\n", indent, n.Name(), n.Interface.Info.Name)
		for _, ep := range n.Endpoints() {
			if ep.Value == nil {
				continue
			}
			fmt.Fprintf(&b, "%s  %s = %s\n", indent, ep.Name(), formatValue(ep.Value))
		}
		return true
	})
	_, err := io.WriteString(w, b.String())
	return err
}

func formatValue(v ir.Value) string {
	if str, ok := v.(ir.String); ok {
		return fmt.Sprintf("%q", string(str))
	}
	return v.String()
}
