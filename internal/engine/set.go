package engine

import (
	"context"

	"github.com/roach88/patchbay/internal/ir"
)

// set runs the Set state machine. Every validation happens before the
// reentrance push, and the push happens before the commit, so a rejected
// Set never changes the endpoint.
func (s *Server) set(ctx context.Context, cmd Set, source ir.CommandSource) (Result, error) {
	ep, ok := s.tree.EndpointByPath(cmd.Path)
	if !ok {
		return Result{}, newError(CodePathError, cmd.Path, "endpoint not found")
	}
	def := ep.Definition

	switch {
	case def.IsStream():
		return Result{}, newError(CodeTypeError, cmd.Path, "stream endpoints cannot be set")
	case def.IsBang():
		if cmd.Value != nil {
			return Result{}, newError(CodeTypeError, cmd.Path, "bang endpoint takes no value, got %s", cmd.Value.Type())
		}
	default:
		state := def.State()
		if cmd.Value == nil {
			return Result{}, newError(CodeTypeError, cmd.Path, "%s endpoint requires a value", state.Type)
		}
		if !ir.Compatible(cmd.Value.Type(), state.Type) {
			return Result{}, newError(CodeTypeError, cmd.Path, "cannot set %s endpoint to %s value", state.Type, cmd.Value.Type())
		}
		if f, ok := cmd.Value.(ir.Float); ok && !f.IsFinite() {
			return Result{}, newError(CodeTypeError, cmd.Path, "non-finite value %s", f)
		}
	}

	n := s.mustNode(ep.Node)

	// Host feedback must not overwrite the cached state of inactive nodes.
	if source == ir.SourceModuleImplementation && !s.nodeIsActive(n) {
		return Result{Path: ep.Path(), Skipped: true}, nil
	}

	var value ir.Value
	if cmd.Value != nil {
		state := def.State()
		converted, err := ir.Convert(cmd.Value, state.Type)
		if err != nil {
			return Result{}, wrapError(CodeTypeError, cmd.Path, err, "cannot convert %s to %s", cmd.Value.Type(), state.Type)
		}
		if !state.Constraint.Test(converted, state.Type) {
			return Result{}, newError(CodeConstraintError, cmd.Path, "value %s violates constraint", converted)
		}
		value = converted
	}

	release, ok := s.reentrance.Push(EndpointKey{Node: ep.Node, Endpoint: ep.Name()}, source)
	if !ok {
		s.metrics.ReentranceRejected()
		return Result{}, newError(CodeReentranceError, cmd.Path, "endpoint is already being set in this call chain")
	}
	defer release()

	previous := ir.Clone(ep.Value)
	if value != nil {
		ep.Value = value
	}

	if s.shouldSendToHost(n, ep, source) {
		s.sendValue(ctx, n, ep)
	}

	if s.sink != nil {
		s.sink.OnSet(ep.Path(), ep.Value, source)
	}

	s.handleSet(ctx, n, ep, previous, source)

	if source != ir.SourceLoad {
		s.propagateConnections(ctx, ep)
	}

	return Result{Path: ep.Path(), Previous: previous}, nil
}
