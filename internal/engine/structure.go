package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

func (s *Server) newNode(ctx context.Context, cmd New, source ir.CommandSource) (Result, error) {
	def, ok := s.modules.Lookup(cmd.ModuleID)
	if !ok {
		return Result{}, newError(CodeInputError, cmd.Parent, "unknown module id %s", cmd.ModuleID)
	}
	parent, ok := s.tree.ParentByPath(cmd.Parent)
	if !ok {
		return Result{}, newError(CodePathError, cmd.Parent, "parent not found")
	}

	name := cmd.Name
	if name == "" {
		name = s.generateName(def, parent)
	}
	n, err := s.tree.Create(def, name, parent)
	if err != nil {
		return Result{}, treeError(err, cmd.Parent)
	}
	s.logic[n.ID] = logicFor(def)

	if def.HasImplementation() && s.host != nil {
		s.metrics.HostSend("add")
		err := s.host.AddModule(ctx, HostModule{Node: n.ID, Path: n.Path(), ModuleID: def.ModuleID, Checksum: def.Implementation.Checksum})
		if err != nil {
			s.logger.Warn("host add module failed", "path", n.Path().String(), "err", err)
		}
	}

	// Load forwards every value in one batch once the whole subtree exists.
	if source != ir.SourceLoad {
		for _, ep := range n.Endpoints() {
			if ep.Definition.IsStateful() && s.shouldSendToHost(n, ep, ir.SourceInitialization) {
				s.sendValue(ctx, n, ep)
			}
		}
	}

	if s.sink != nil {
		s.sink.OnNew(n.Path(), def.ModuleID, source)
	}

	info := describeNode(n)
	return Result{Path: n.Path(), Node: &info}, nil
}

// generateName names a node after its interface and id, falling back to a
// suffix when a sibling already took that name.
func (s *Server) generateName(def *ir.InterfaceDefinition, parent tree.NodeID) string {
	base := def.Info.Name
	if !ir.ValidName(base) {
		base = "Node"
	}
	name := fmt.Sprintf("%s%d", base, s.tree.PeekID())
	for i := 2; ; i++ {
		if _, taken := s.tree.Child(parent, name); !taken {
			return name
		}
		name = fmt.Sprintf("%s%d_%d", base, s.tree.PeekID(), i)
	}
}

func (s *Server) deleteNode(ctx context.Context, cmd Delete, source ir.CommandSource) (Result, error) {
	n, ok := s.tree.NodeByPath(cmd.Path)
	if !ok {
		return Result{}, newError(CodePathError, cmd.Path, "node not found")
	}

	type hosted struct {
		id   tree.NodeID
		path ir.Path
	}
	subtree := make(map[tree.NodeID]bool)
	var hostedNodes []hosted
	s.tree.WalkFrom(n.ID, func(d *tree.Node) bool {
		subtree[d.ID] = true
		if d.Interface.HasImplementation() {
			hostedNodes = append(hostedNodes, hosted{id: d.ID, path: d.Path()})
		}
		return true
	})

	// An endpoint still being set below this node would outlive its owner.
	if s.reentrance.ContainsNode(func(id tree.NodeID) bool { return subtree[id] }) {
		return Result{}, newError(CodeReentranceError, cmd.Path, "node has an endpoint in the current call chain")
	}

	path := n.Path()
	removed, err := s.tree.Delete(n.ID)
	if err != nil {
		return Result{}, wrapError(CodeFailed, cmd.Path, err, "delete failed")
	}
	for _, id := range removed {
		delete(s.logic, id)
	}

	if s.host != nil {
		// Children before parents, matching the tree's release order.
		for i := len(hostedNodes) - 1; i >= 0; i-- {
			h := hostedNodes[i]
			s.metrics.HostSend("remove")
			if err := s.host.RemoveModule(ctx, h.id, h.path); err != nil {
				s.logger.Warn("host remove module failed", "path", h.path.String(), "err", err)
			}
		}
	}

	if s.sink != nil {
		s.sink.OnDelete(path, source)
	}
	return Result{Path: path}, nil
}

func (s *Server) move(_ context.Context, cmd Move, source ir.CommandSource) (Result, error) {
	n, ok := s.tree.NodeByPath(cmd.Path)
	if !ok {
		return Result{}, newError(CodePathError, cmd.Path, "node not found")
	}
	parent, ok := s.tree.ParentByPath(cmd.NewParent)
	if !ok {
		return Result{}, newError(CodePathError, cmd.NewParent, "new parent not found")
	}

	oldPath := n.Path()
	if err := s.tree.Move(n.ID, parent); err != nil {
		return Result{}, treeError(err, cmd.Path)
	}

	if s.sink != nil {
		s.sink.OnMove(oldPath, n.Path(), source)
	}
	return Result{Path: n.Path()}, nil
}

func (s *Server) rename(_ context.Context, cmd Rename, source ir.CommandSource) (Result, error) {
	n, ok := s.tree.NodeByPath(cmd.Path)
	if !ok {
		return Result{}, newError(CodePathError, cmd.Path, "node not found")
	}

	oldPath := n.Path()
	if err := s.tree.Rename(n.ID, cmd.NewName); err != nil {
		return Result{}, treeError(err, cmd.Path)
	}

	if s.sink != nil {
		s.sink.OnRename(oldPath, n.Path(), source)
	}
	return Result{Path: n.Path()}, nil
}

// treeError maps tree failures onto command codes.
func treeError(err error, path ir.Path) *CommandError {
	switch {
	case errors.Is(err, tree.ErrInvalidName):
		return wrapError(CodeInputError, path, err, "invalid node name")
	case errors.Is(err, tree.ErrNameCollision):
		return wrapError(CodePathError, path, err, "name already used by a sibling")
	case errors.Is(err, tree.ErrCycle):
		return wrapError(CodePathError, path, err, "cannot move a node below itself")
	case errors.Is(err, tree.ErrNotFound):
		return wrapError(CodePathError, path, err, "node not found")
	default:
		return wrapError(CodeFailed, path, err, "tree mutation failed")
	}
}
