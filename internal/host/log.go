package host

import (
	"context"
	"log/slog"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/tree"
)

// Log is an engine.Host that writes every call to a logger. It stands in
// for an execution host during development.
type Log struct {
	Logger *slog.Logger
}

func (l Log) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l Log) AddModule(ctx context.Context, m engine.HostModule) error {
	l.logger().InfoContext(ctx, "host add module",
		"node", int64(m.Node),
		"path", m.Path.String(),
		"module_id", m.ModuleID.String(),
		"checksum", m.Checksum,
	)
	return nil
}

func (l Log) RemoveModule(ctx context.Context, node tree.NodeID, path ir.Path) error {
	l.logger().InfoContext(ctx, "host remove module", "node", int64(node), "path", path.String())
	return nil
}

func (l Log) SendValue(ctx context.Context, v engine.HostValue) error {
	value := "<bang>"
	if v.Value != nil {
		value = v.Value.String()
	}
	l.logger().DebugContext(ctx, "host value",
		"node", int64(v.Node),
		"path", v.Path.String(),
		"value", value,
	)
	return nil
}
