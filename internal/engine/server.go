package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/metrics"
	"github.com/roach88/patchbay/internal/tree"
)

// Server owns the node tree and is the only sanctioned way to mutate it.
//
// Thread-safety model:
//   - ProcessCommand and the query methods take the server lock for their
//     whole duration, so commands never interleave.
//   - Logic hooks issue nested commands through run, which assumes the
//     lock is already held.
//   - Collaborators (host, sink, store) are called synchronously under
//     the lock.
type Server struct {
	mu sync.Mutex

	tree       *tree.Tree
	logic      map[tree.NodeID]Logic
	reentrance *ReentranceChecker

	modules   ModuleRegistry
	host      Host
	sink      NotificationSink
	snapshots SnapshotStore
	stager    FileStager
	ids       IDGenerator
	now       func() time.Time

	tracer  trace.Tracer
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// ServerOption configures a Server.
type ServerOption func(*Server)

// WithHost sets the execution host. Without one, nothing is forwarded.
func WithHost(h Host) ServerOption {
	return func(s *Server) {
		s.host = h
	}
}

// WithSink sets the notification sink. Use MultiSink for several.
func WithSink(sink NotificationSink) ServerOption {
	return func(s *Server) {
		s.sink = sink
	}
}

// WithSnapshotStore enables Save and Load.
func WithSnapshotStore(st SnapshotStore) ServerOption {
	return func(s *Server) {
		s.snapshots = st
	}
}

// WithFileStager makes input-file endpoints set through the external API
// copy their file before the host sees it.
func WithFileStager(fs FileStager) ServerOption {
	return func(s *Server) {
		s.stager = fs
	}
}

// WithIDGenerator sets the snapshot id source.
// Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) ServerOption {
	return func(s *Server) {
		s.ids = g
	}
}

// WithNow sets the wall clock used to stamp snapshots.
func WithNow(now func() time.Time) ServerOption {
	return func(s *Server) {
		s.now = now
	}
}

// WithTree replaces the empty tree, typically to pin node ids in tests.
func WithTree(t *tree.Tree) ServerOption {
	return func(s *Server) {
		s.tree = t
	}
}

// WithTracer sets the tracer for command spans. Default: noop.
func WithTracer(t trace.Tracer) ServerOption {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithMetrics sets the Prometheus collectors. Default: none.
func WithMetrics(m *metrics.Metrics) ServerOption {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer creates a Server with an empty tree over the given module registry.
func NewServer(modules ModuleRegistry, opts ...ServerOption) *Server {
	s := &Server{
		tree:       tree.New(),
		logic:      make(map[tree.NodeID]Logic),
		reentrance: NewReentranceChecker(),
		modules:    modules,
		ids:        UUIDv7Generator{},
		now:        time.Now,
		tracer:     noop.NewTracerProvider().Tracer("patchbay/engine"),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ProcessCommand executes cmd on behalf of source. It is the single entry
// point for transports, scripts and the host.
//
// A nil error means SUCCESS. Otherwise the error is a *CommandError and
// nothing was committed.
func (s *Server) ProcessCommand(ctx context.Context, cmd Command, source ir.CommandSource) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.run(ctx, cmd, source)
}

// run executes cmd with the lock held, wrapped in a span and metrics.
// Logic hooks call it directly for nested commands.
func (s *Server) run(ctx context.Context, cmd Command, source ir.CommandSource) (Result, error) {
	ctx, span := s.tracer.Start(ctx, "patchbay.command", trace.WithAttributes(
		attribute.String("command", cmd.CommandName()),
		attribute.String("source", source.String()),
		attribute.String("path", cmd.Target().String()),
	))
	defer span.End()
	start := time.Now()

	res, err := s.execute(ctx, cmd, source)

	code := CodeOf(err)
	span.SetAttributes(attribute.String("code", string(code)))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		level := slog.LevelWarn
		if code == CodeReentranceError {
			level = slog.LevelError
		}
		s.logger.Log(ctx, level, "command rejected",
			"command", cmd.CommandName(),
			"path", cmd.Target().String(),
			"source", source.String(),
			"code", string(code),
			"err", err,
		)
	}
	s.metrics.ObserveCommand(cmd.CommandName(), source.String(), string(code), time.Since(start))
	s.metrics.SetNodes(s.tree.Len())
	return res, err
}

func (s *Server) execute(ctx context.Context, cmd Command, source ir.CommandSource) (Result, error) {
	switch c := cmd.(type) {
	case Set:
		return s.set(ctx, c, source)
	case New:
		return s.newNode(ctx, c, source)
	case Delete:
		return s.deleteNode(ctx, c, source)
	case Move:
		return s.move(ctx, c, source)
	case Rename:
		return s.rename(ctx, c, source)
	case Save:
		return s.save(ctx, c)
	case Load:
		return s.load(ctx, c, source)
	default:
		panic(fmt.Sprintf("engine: unknown command %T", cmd))
	}
}

// mustNode returns a node that an endpoint or logic entry refers to. A
// miss means the arena and its references disagree.
func (s *Server) mustNode(id tree.NodeID) *tree.Node {
	n, ok := s.tree.Node(id)
	if !ok {
		panic(fmt.Sprintf("engine: node %d referenced but not in tree", id))
	}
	return n
}

func (s *Server) sendValue(ctx context.Context, n *tree.Node, ep *tree.Endpoint) {
	if s.host == nil {
		return
	}
	s.metrics.HostSend("value")
	err := s.host.SendValue(ctx, HostValue{Node: n.ID, Endpoint: ep.Name(), Path: ep.Path(), Value: ep.Value})
	if err != nil {
		s.logger.Warn("host send failed", "path", ep.Path().String(), "err", err)
	}
}
