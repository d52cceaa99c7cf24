package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/roach88/patchbay/internal/api"
	"github.com/roach88/patchbay/internal/config"
	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/host"
	"github.com/roach88/patchbay/internal/ir"
	"github.com/roach88/patchbay/internal/logging"
	"github.com/roach88/patchbay/internal/metrics"
	"github.com/roach88/patchbay/internal/module"
	"github.com/roach88/patchbay/internal/store"
	"github.com/roach88/patchbay/internal/store/redisstore"
)

// ServeOptions holds flags for the serve command.
type ServeOptions struct {
	*RootOptions
	ConfigPath string
	Listen     string
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ServeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the patch server",
		Long: `Load interface definitions, open the snapshot store and serve the
HTTP command API until interrupted.

Example:
  patchbay serve --config patchbay.yaml
  patchbay serve --listen :8090 --verbose`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "path to YAML config (defaults apply when empty)")
	cmd.Flags().StringVar(&opts.Listen, "listen", "", "override the configured listen address")

	return cmd
}

func loadConfig(path string) (config.Config, error) {
	if path == "" {
		cfg := config.Default()
		return cfg, cfg.Validate()
	}
	return config.Load(path)
}

func runServe(opts *ServeOptions, cmd *cobra.Command) error {
	cfg, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config", err)
	}
	if opts.Listen != "" {
		cfg.Listen = opts.Listen
	}

	// Validated with the config.
	level, _ := logging.ParseLevel(cfg.Log.Level)
	if opts.Verbose {
		level = slog.LevelDebug
	}
	format, _ := logging.ParseFormat(cfg.Log.Format)
	logger := logging.New(cmd.ErrOrStderr(), level, format)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, stop := signal.NotifyContext(parentCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to start", err)
	}
	defer rt.close()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           rt.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hostDone := make(chan error, 1)
	go func() {
		if rt.queue == nil {
			hostDone <- nil
			return
		}
		hostDone <- rt.queue.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Listen, "interfaces", rt.registry.Len())
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server error", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down", "timeout", cfg.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown", "err", err)
		}
	}

	if err := <-hostDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("host queue", "err", err)
	}
	logger.Info("server stopped")
	return nil
}

// snapshotBackend is a SnapshotStore the CLI also manages and deletes from.
type snapshotBackend interface {
	engine.SnapshotStore
	DeleteSnapshot(ctx context.Context, name string) error
	Close() error
}

func openStore(ctx context.Context, cfg config.Store) (snapshotBackend, error) {
	switch cfg.Driver {
	case config.StoreSQLite:
		st, err := store.Open(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		return st, nil
	case config.StoreRedis:
		st := redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redisstore.WithPrefix(cfg.Redis.Prefix),
			redisstore.WithTTL(cfg.Redis.TTL),
		)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := st.Ping(pingCtx); err != nil {
			st.Close()
			return nil, fmt.Errorf("connect redis store: %w", err)
		}
		return st, nil
	default:
		return nil, nil
	}
}

// runtime is everything serve wires together.
type runtime struct {
	registry *module.Registry
	server   *engine.Server
	handler  http.Handler
	queue    *host.Queued
	closers  []func() error
	logger   *slog.Logger
}

func newRuntime(ctx context.Context, cfg config.Config, logger *slog.Logger) (*runtime, error) {
	rt := &runtime{logger: logger}
	ok := false
	defer func() {
		if !ok {
			rt.close()
		}
	}()

	rt.registry = module.NewRegistry()
	rt.closers = append(rt.closers, func() error { rt.registry.Close(); return nil })
	for _, err := range rt.registry.LoadDirs(cfg.Modules.SystemDir, cfg.Modules.ThirdPartyDir) {
		logger.Warn("module not loaded", "err", err)
	}
	if rt.registry.Len() == 0 {
		return nil, errors.New("no interfaces loaded")
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	streams := api.NewStreamManager(logger)

	opts := []engine.ServerOption{
		engine.WithSink(streams),
		engine.WithMetrics(metrics.New(reg)),
		engine.WithLogger(logger),
	}

	st, err := openStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}
	if st != nil {
		rt.closers = append(rt.closers, st.Close)
		opts = append(opts, engine.WithSnapshotStore(st))
	}

	if cfg.Host.Mode == config.HostLog {
		rt.queue = host.NewQueued(host.Log{Logger: logger.With("component", "host")},
			host.WithLogger(logger),
			host.WithMaxPending(cfg.Host.QueueSize),
		)
		rt.closers = append(rt.closers, func() error { rt.queue.Close(); return nil })
		opts = append(opts, engine.WithHost(rt.queue))
	}
	if cfg.Host.DataDir != "" {
		opts = append(opts, engine.WithFileStager(host.DirStager{Root: cfg.Host.DataDir}))
	}
	if cfg.Log.Spans {
		tp := logging.NewTracerProvider(logger)
		rt.closers = append(rt.closers, func() error { return tp.Shutdown(context.Background()) })
		opts = append(opts, engine.WithTracer(tp.Tracer("github.com/roach88/patchbay/engine", trace.WithInstrumentationVersion(ir.ServerVersion))))
	}

	rt.server = engine.NewServer(rt.registry, opts...)
	rt.handler = api.NewHandler(rt.server,
		api.WithStreams(streams),
		api.WithGatherer(reg),
		api.WithLogger(logger),
	)
	ok = true
	return rt, nil
}

// close releases resources in reverse order of acquisition.
func (rt *runtime) close() {
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			rt.logger.Warn("close", "err", err)
		}
	}
	rt.closers = nil
}
