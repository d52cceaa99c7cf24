package engine

import (
	"context"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// Endpoint names the built-in logic variants rely on.
const (
	EndpointActive     = "active"
	EndpointTrigger    = "trigger"
	EndpointText       = "text"
	EndpointInfo       = "info"
	EndpointSourcePath = "sourcePath"
	EndpointTargetPath = "targetPath"
)

// LogicKind selects per-interface behavior from the interface's system
// class. The set is closed; dispatch is a switch on the kind.
type LogicKind int

const (
	LogicDefault LogicKind = iota
	LogicContainer
	LogicScript
	LogicConnection
)

func (k LogicKind) String() string {
	switch k {
	case LogicContainer:
		return "container"
	case LogicScript:
		return "script"
	case LogicConnection:
		return "connection"
	default:
		return "default"
	}
}

// Logic is the behavior attached to one node.
type Logic struct {
	Kind LogicKind
}

func logicFor(def *ir.InterfaceDefinition) Logic {
	switch def.Info.SystemClass {
	case ir.ClassContainer:
		return Logic{Kind: LogicContainer}
	case ir.ClassScript:
		return Logic{Kind: LogicScript}
	case ir.ClassConnection:
		return Logic{Kind: LogicConnection}
	default:
		return Logic{Kind: LogicDefault}
	}
}

func (s *Server) logicOf(n *tree.Node) Logic {
	lg, ok := s.logic[n.ID]
	if !ok {
		panic("engine: node without logic: " + n.Path().String())
	}
	return lg
}

// nodeIsActive reports false when n or any ancestor is a container whose
// "active" endpoint is 0.
func (s *Server) nodeIsActive(n *tree.Node) bool {
	if !s.containerActive(n) {
		return false
	}
	for _, a := range s.tree.Ancestors(n.ID) {
		if !s.containerActive(a) {
			return false
		}
	}
	return true
}

func (s *Server) containerActive(n *tree.Node) bool {
	if s.logicOf(n).Kind != LogicContainer {
		return true
	}
	ep, ok := n.Endpoint(EndpointActive)
	if !ok || ep.Value == nil {
		return true
	}
	v, err := ir.Convert(ep.Value, ir.TypeInteger)
	return err != nil || v.(ir.Int) != 0
}

// shouldCopyInputFile reports whether the node's logic stages input files
// itself instead of letting the host read the client's path. Every
// variant does so for files chosen through the external API when a
// stager is configured.
func (s *Server) shouldCopyInputFile(_ *tree.Node, source ir.CommandSource) bool {
	return source == ir.SourceHostAPI && s.stager != nil
}

// handleSet runs the node's logic after a committed Set. It is called
// with the endpoint still on the reentrance stack.
func (s *Server) handleSet(ctx context.Context, n *tree.Node, ep *tree.Endpoint, previous ir.Value, source ir.CommandSource) {
	if ep.Definition.IsInputFile() && s.shouldCopyInputFile(n, source) {
		s.stageInputFile(ctx, n, ep)
	}

	switch s.logicOf(n).Kind {
	case LogicContainer:
		if ep.Name() == EndpointActive && !ir.Equal(previous, ep.Value) {
			s.logger.Debug("container activity changed", "path", n.Path().String(), "active", ep.Value.String())
		}
	case LogicScript:
		if ep.Name() == EndpointTrigger {
			s.runScript(ctx, n)
		}
	}
}

// stageInputFile copies the file through the stager and commits the
// staged path in place. The endpoint is still on the reentrance stack, so
// this cannot go through a nested Set.
func (s *Server) stageInputFile(ctx context.Context, n *tree.Node, ep *tree.Endpoint) {
	file, ok := ep.Value.(ir.String)
	if !ok || file == "" {
		return
	}
	staged, err := s.stager.Stage(ctx, n.Path(), string(file))
	if err != nil {
		s.logger.Warn("input file staging failed", "path", ep.Path().String(), "file", string(file), "err", err)
		return
	}
	ep.Value = ir.String(staged)
	if hostForwardable(n, ep) {
		s.sendValue(ctx, n, ep)
	}
	if s.sink != nil {
		s.sink.OnSet(ep.Path(), ep.Value, ir.SourceSystem)
	}
}
