package engine

import (
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// shouldSendToHost decides whether a committed value is forwarded to the
// execution host. The value is committed either way.
func (s *Server) shouldSendToHost(n *tree.Node, ep *tree.Endpoint, source ir.CommandSource) bool {
	switch source {
	case ir.SourceModuleImplementation, ir.SourceLoad:
		// Never echo host feedback; Load forwards in its own batch.
		return false
	}
	if ep.Definition.IsInputFile() && s.shouldCopyInputFile(n, source) {
		return false
	}
	return hostForwardable(n, ep)
}

// hostForwardable holds the source-independent half of the policy.
func hostForwardable(n *tree.Node, ep *tree.Endpoint) bool {
	return n.Interface.HasImplementation() && ep.Definition.IsSentToHost()
}
