package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// queryPath parses the "path" query parameter. Missing means root.
func (h *Handler) queryPath(w http.ResponseWriter, r *http.Request) (ir.Path, bool) {
	p, err := parsePath(r.URL.Query().Get("path"))
	if err != nil {
		h.writeError(w, http.StatusOK, err)
		return ir.Path{}, false
	}
	return p, true
}

func notFound(p ir.Path, what string) error {
	return &engine.CommandError{Code: engine.CodePathError, Message: what + " not found", Path: p}
}

type valueResult struct {
	Path  string        `json:"path"`
	Value *ir.JSONValue `json:"value"`
}

func (h *Handler) getValue(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryPath(w, r)
	if !ok {
		return
	}
	v, ok := h.server.Get(p)
	if !ok {
		h.writeError(w, http.StatusOK, notFound(p, "endpoint"))
		return
	}
	res := valueResult{Path: p.String()}
	if v != nil {
		res.Value = &ir.JSONValue{Value: v}
	}
	h.writeResult(w, res)
}

func (h *Handler) getValues(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryPath(w, r)
	if !ok {
		return
	}
	values, ok := h.server.Values(p)
	if !ok {
		h.writeError(w, http.StatusOK, notFound(p, "node"))
		return
	}
	out := make(map[string]ir.JSONValue, len(values))
	for name, v := range values {
		out[name] = ir.JSONValue{Value: v}
	}
	h.writeResult(w, out)
}

func (h *Handler) getNode(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryPath(w, r)
	if !ok {
		return
	}
	n, ok := h.server.Node(p)
	if !ok {
		h.writeError(w, http.StatusOK, notFound(p, "node"))
		return
	}
	h.writeResult(w, n)
}

func (h *Handler) getNodes(w http.ResponseWriter, r *http.Request) {
	p, ok := h.queryPath(w, r)
	if !ok {
		return
	}
	nodes, ok := h.server.NodeList(p)
	if !ok {
		h.writeError(w, http.StatusOK, notFound(p, "node"))
		return
	}
	h.writeResult(w, nodes)
}

func (h *Handler) getInterfaces(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, h.server.Interfaces())
}

func (h *Handler) getInterface(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := uuid.Parse(raw)
	if err != nil {
		h.writeError(w, http.StatusOK, engine.NewInputError("module id %q: %v", raw, err))
		return
	}
	def, ok := h.server.Interface(id)
	if !ok {
		h.writeError(w, http.StatusOK, engine.NewInputError("unknown module id %s", id))
		return
	}
	h.writeResult(w, def)
}

func (h *Handler) getSnapshots(w http.ResponseWriter, r *http.Request) {
	infos, err := h.server.Snapshots(r.Context())
	if err != nil {
		h.writeError(w, http.StatusOK, err)
		return
	}
	h.writeResult(w, infos)
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	h.writeResult(w, map[string]string{"version": h.server.Version()})
}

func (h *Handler) getPrintState(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.server.PrintState(&buf); err != nil {
		h.logger.Error("print state failed", "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handler) getHealth(w http.ResponseWriter, r *http.Request) {
	if err := h.server.CheckInvariants(); err != nil {
		h.logger.Error("health check failed", "error", err)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
