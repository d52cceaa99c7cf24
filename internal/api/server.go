// Package api exposes the engine over HTTP+JSON.
//
// Every command endpoint answers 200 with an envelope carrying the
// numeric result code, so clients branch on "code" rather than on the
// HTTP status. Only bodies that cannot be decoded get a 400.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// Handler serves the command, query and system endpoints of one Server.
type Handler struct {
	server   *engine.Server
	streams  *StreamManager
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

type Option func(*Handler)

// WithStreams sets the notification stream served at /events. The same
// manager must be installed as a sink on the Server.
func WithStreams(sm *StreamManager) Option {
	return func(h *Handler) {
		h.streams = sm
	}
}

// WithGatherer serves g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(h *Handler) {
		h.gatherer = g
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = l
	}
}

// NewHandler creates the HTTP handler for server.
func NewHandler(server *engine.Server, opts ...Option) http.Handler {
	h := &Handler{
		server: server,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h.routes()
}

func (h *Handler) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/command", func(r chi.Router) {
		r.Post("/set", handleCommand(h, ir.SourceHostAPI, setRequest.command))
		r.Post("/new", handleCommand(h, ir.SourceHostAPI, newRequest.command))
		r.Post("/delete", handleCommand(h, ir.SourceHostAPI, pathRequest.delete))
		r.Post("/move", handleCommand(h, ir.SourceHostAPI, moveRequest.command))
		r.Post("/rename", handleCommand(h, ir.SourceHostAPI, renameRequest.command))
		r.Post("/save", handleCommand(h, ir.SourceHostAPI, saveRequest.command))
		r.Post("/load", handleCommand(h, ir.SourceHostAPI, loadRequest.command))
	})

	// Feedback from the execution host.
	r.Post("/host/set", handleCommand(h, ir.SourceModuleImplementation, setRequest.command))

	r.Route("/query", func(r chi.Router) {
		r.Get("/value", h.getValue)
		r.Get("/values", h.getValues)
		r.Get("/node", h.getNode)
		r.Get("/nodes", h.getNodes)
		r.Get("/interfaces", h.getInterfaces)
		r.Get("/interfaces/{id}", h.getInterface)
		r.Get("/snapshots", h.getSnapshots)
	})

	r.Get("/system/version", h.getVersion)
	r.Get("/system/printstate", h.getPrintState)
	r.Get("/health", h.getHealth)

	if h.streams != nil {
		r.Get("/events", h.streams.ServeHTTP)
	}
	if h.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// response is the envelope of every command and query answer.
type response struct {
	Code   int              `json:"code"`
	Status engine.ErrorCode `json:"status"`
	Error  string           `json:"error,omitempty"`
	Result any              `json:"result,omitempty"`
}

func (h *Handler) writeResult(w http.ResponseWriter, result any) {
	h.writeJSON(w, http.StatusOK, response{Status: engine.CodeSuccess, Result: result})
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	code := engine.CodeOf(err)
	h.writeJSON(w, status, response{Code: code.Wire(), Status: code, Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("response encode failed", "error", err)
	}
}
