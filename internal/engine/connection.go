package engine

import (
	"context"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

type route struct {
	connection ir.Path
	target     ir.Path
}

// propagateConnections forwards a committed set on ep through every
// connection whose sourcePath resolves to it. Connections resolve their
// paths relative to their own parent, and a connection sees every
// endpoint below that parent. Loops through connections end at the
// reentrance guard.
func (s *Server) propagateConnections(ctx context.Context, ep *tree.Endpoint) {
	for _, r := range s.routesFrom(ep) {
		target, ok := s.tree.EndpointByPath(r.target)
		if !ok {
			s.logger.Debug("connection target not found", "connection", r.connection.String(), "target", r.target.String())
			continue
		}
		value, ok := connectionValue(ep.Value, target.Definition)
		if !ok {
			s.logger.Debug("connection value not convertible", "connection", r.connection.String(), "target", r.target.String())
			continue
		}
		if _, err := s.run(ctx, Set{Path: r.target, Value: value}, ir.SourceConnection); err != nil {
			s.logger.Warn("connection forward failed", "connection", r.connection.String(), "err", err)
		}
	}
}

func (s *Server) routesFrom(ep *tree.Endpoint) []route {
	var routes []route
	owner := s.mustNode(ep.Node)
	scope := owner.Parent()
	for {
		for _, c := range s.tree.Children(scope) {
			if s.logicOf(c).Kind != LogicConnection {
				continue
			}
			base := c.Path().Parent()
			src, ok := connectionPath(c, EndpointSourcePath)
			if !ok || !base.Join(src).Equal(ep.Path()) {
				continue
			}
			dst, ok := connectionPath(c, EndpointTargetPath)
			if !ok {
				continue
			}
			routes = append(routes, route{connection: c.Path(), target: base.Join(dst)})
		}
		if scope == tree.RootID {
			return routes
		}
		scope = s.mustNode(scope).Parent()
	}
}

func connectionPath(c *tree.Node, name string) (ir.Path, bool) {
	ep, ok := c.Endpoint(name)
	if !ok {
		return ir.Path{}, false
	}
	str, ok := ep.Value.(ir.String)
	if !ok || str == "" {
		return ir.Path{}, false
	}
	p, err := ir.ParsePath(string(str))
	if err != nil || p.Len() < 2 {
		return ir.Path{}, false
	}
	return p, true
}

// connectionValue converts a forwarded value into something the target
// accepts. Bangs forward as bangs; a bang source cannot drive a stateful
// target.
func connectionValue(v ir.Value, target *ir.EndpointDefinition) (ir.Value, bool) {
	switch {
	case target.IsStream():
		return nil, false
	case target.IsBang():
		return nil, true
	}
	if v == nil {
		return nil, false
	}
	to := target.State().Type
	if ir.Compatible(v.Type(), to) {
		out, err := ir.Convert(v, to)
		return out, err == nil
	}
	if to == ir.TypeString {
		return ir.String(v.String()), true
	}
	out, err := ir.ParseValue(string(v.(ir.String)), to)
	return out, err == nil
}
