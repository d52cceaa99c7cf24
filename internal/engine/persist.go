package engine

import (
	"context"
	"errors"
	"sort"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// save serializes a subtree, or every top-level node for the root path,
// and hands it to the snapshot store.
func (s *Server) save(ctx context.Context, cmd Save) (Result, error) {
	if s.snapshots == nil {
		return Result{}, newError(CodeFailed, cmd.Path, "no snapshot store configured")
	}
	if cmd.Name == "" {
		return Result{}, newError(CodeInputError, cmd.Path, "snapshot name required")
	}

	var roots []*tree.Node
	base := ir.Path{}
	if cmd.Path.IsRoot() {
		roots = s.tree.Children(tree.RootID)
	} else {
		n, ok := s.tree.NodeByPath(cmd.Path)
		if !ok {
			return Result{}, newError(CodePathError, cmd.Path, "node not found")
		}
		roots = []*tree.Node{n}
		base = n.Path().Parent()
	}

	nodes := []ir.SnapshotNode{}
	for _, r := range roots {
		s.tree.WalkFrom(r.ID, func(n *tree.Node) bool {
			rel, _ := n.Path().RelativeTo(base)
			nodes = append(nodes, snapshotNode(rel, n))
			return true
		})
	}

	hash, err := ir.SnapshotHash(nodes)
	if err != nil {
		return Result{}, wrapError(CodeFailed, cmd.Path, err, "snapshot hash failed")
	}
	snap := &ir.Snapshot{
		ID:            s.ids.Generate(),
		Name:          cmd.Name,
		SchemaVersion: ir.SchemaVersion,
		Hash:          hash,
		CreatedAt:     s.now().UTC(),
		Nodes:         nodes,
	}
	if err := s.snapshots.SaveSnapshot(ctx, snap); err != nil {
		return Result{}, wrapError(CodeFailed, cmd.Path, err, "snapshot store failed: %v", err)
	}

	info := snap.Info()
	return Result{Path: cmd.Path, Snapshot: &info}, nil
}

func snapshotNode(rel ir.Path, n *tree.Node) ir.SnapshotNode {
	sn := ir.SnapshotNode{Path: rel, ModuleID: n.Interface.ModuleID, Values: map[string]ir.JSONValue{}}
	for _, ep := range n.Endpoints() {
		state := ep.Definition.State()
		if state == nil || !state.IsSavedToFile || ep.Value == nil {
			continue
		}
		sn.Values[ep.Name()] = ir.JSONValue{Value: ep.Value}
	}
	return sn
}

// load instantiates a snapshot under cmd.Parent in two phases: first every
// node is created and every saved value set with source Load, which the
// host policy never forwards; then the loaded values go to the host in
// one batch.
func (s *Server) load(ctx context.Context, cmd Load, source ir.CommandSource) (Result, error) {
	if s.snapshots == nil {
		return Result{}, newError(CodeFailed, cmd.Parent, "no snapshot store configured")
	}
	parent, ok := s.tree.ParentByPath(cmd.Parent)
	if !ok {
		return Result{}, newError(CodePathError, cmd.Parent, "parent not found")
	}
	snap, err := s.snapshots.LoadSnapshot(ctx, cmd.Name)
	if errors.Is(err, ErrSnapshotNotFound) {
		return Result{}, wrapError(CodeInputError, cmd.Parent, err, "snapshot %q not found", cmd.Name)
	}
	if err != nil {
		return Result{}, wrapError(CodeFailed, cmd.Parent, err, "snapshot store failed: %v", err)
	}
	if err := s.checkSnapshot(snap, parent, cmd.Parent); err != nil {
		return Result{}, err
	}

	var created []*tree.Node
	var tops, dropped []ir.Path
	for _, sn := range snap.Nodes {
		res, err := s.run(ctx, New{
			ModuleID: sn.ModuleID,
			Name:     sn.Path.Leaf(),
			Parent:   cmd.Parent.Join(sn.Path.Parent()),
		}, ir.SourceLoad)
		if err != nil {
			// checkSnapshot rules out every expected failure.
			return Result{}, wrapError(CodeFailed, cmd.Parent, err, "load stopped at %s", sn.Path)
		}
		n := s.mustNode(res.Node.ID)
		created = append(created, n)
		if sn.Path.Len() == 1 {
			tops = append(tops, n.Path())
		}

		names := make([]string, 0, len(sn.Values))
		for name := range sn.Values {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			path := n.Path().Append(name)
			if _, err := s.run(ctx, Set{Path: path, Value: sn.Values[name].Value}, ir.SourceLoad); err != nil {
				s.logger.Warn("snapshot value skipped", "snapshot", cmd.Name, "path", path.String(), "err", err)
				dropped = append(dropped, path)
			}
		}
	}

	for _, n := range created {
		for _, ep := range n.Endpoints() {
			if ep.Definition.IsStateful() && hostForwardable(n, ep) {
				s.sendValue(ctx, n, ep)
			}
		}
	}

	s.logger.Info("snapshot loaded", "snapshot", cmd.Name, "nodes", len(created), "dropped", len(dropped), "source", source.String())
	info := snap.Info()
	return Result{Path: cmd.Parent, Paths: tops, Dropped: dropped, Snapshot: &info}, nil
}

// checkSnapshot rejects a snapshot before anything is created: unknown
// modules and malformed paths are INPUT_ERROR, top-level collisions with
// existing nodes are PATH_ERROR.
func (s *Server) checkSnapshot(snap *ir.Snapshot, parent tree.NodeID, parentPath ir.Path) error {
	seen := make(map[string]bool, len(snap.Nodes))
	for _, sn := range snap.Nodes {
		if sn.Path.IsRoot() {
			return newError(CodeInputError, parentPath, "snapshot %q has a node with an empty path", snap.Name)
		}
		for _, elem := range sn.Path.Elems() {
			if !ir.ValidName(elem) {
				return newError(CodeInputError, parentPath, "snapshot %q has invalid node name %q", snap.Name, elem)
			}
		}
		key := sn.Path.String()
		if seen[key] {
			return newError(CodeInputError, parentPath, "snapshot %q lists %s twice", snap.Name, key)
		}
		if up := sn.Path.Parent(); !up.IsRoot() && !seen[up.String()] {
			return newError(CodeInputError, parentPath, "snapshot %q lists %s before its parent", snap.Name, key)
		}
		seen[key] = true

		if _, ok := s.modules.Lookup(sn.ModuleID); !ok {
			return newError(CodeInputError, parentPath, "snapshot %q uses unknown module id %s", snap.Name, sn.ModuleID)
		}
		if sn.Path.Len() == 1 {
			if _, taken := s.tree.Child(parent, sn.Path.Leaf()); taken {
				return newError(CodePathError, parentPath.Append(sn.Path.Leaf()), "a node with this name already exists")
			}
		}
	}
	return nil
}
