package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/engine"
	"github.com/roach88/patchbay/internal/ir"
)

// handleCommand decodes a request of type T, builds the command and runs
// it on behalf of source.
func handleCommand[T any](h *Handler, source ir.CommandSource, build func(T) (engine.Command, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req T
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.logger.Warn("invalid request body", "url", r.URL.Path, "error", err)
			h.writeError(w, http.StatusBadRequest, engine.NewInputError("invalid request body: %v", err))
			return
		}
		cmd, err := build(req)
		if err != nil {
			h.writeError(w, http.StatusOK, err)
			return
		}
		res, err := h.server.ProcessCommand(r.Context(), cmd, source)
		if err != nil {
			h.writeError(w, http.StatusOK, err)
			return
		}
		h.writeResult(w, newCommandResult(res))
	}
}

// parsePath parses a request path. A malformed path cannot name a node,
// so it is reported as PATH_ERROR.
func parsePath(s string) (ir.Path, error) {
	p, err := ir.ParsePath(s)
	if err != nil {
		return ir.Path{}, &engine.CommandError{Code: engine.CodePathError, Message: err.Error()}
	}
	return p, nil
}

type setRequest struct {
	Path  string       `json:"path"`
	Value ir.JSONValue `json:"value"`
}

// command builds a Set. A null or missing value is a bang.
func (r setRequest) command() (engine.Command, error) {
	p, err := parsePath(r.Path)
	if err != nil {
		return nil, err
	}
	return engine.Set{Path: p, Value: r.Value.Value}, nil
}

type newRequest struct {
	ModuleID string `json:"module_id"`
	Name     string `json:"name"`
	Parent   string `json:"parent"`
}

func (r newRequest) command() (engine.Command, error) {
	id, err := uuid.Parse(r.ModuleID)
	if err != nil {
		return nil, engine.NewInputError("module_id %q: %v", r.ModuleID, err)
	}
	parent, err := parsePath(r.Parent)
	if err != nil {
		return nil, err
	}
	return engine.New{ModuleID: id, Name: r.Name, Parent: parent}, nil
}

type pathRequest struct {
	Path string `json:"path"`
}

func (r pathRequest) delete() (engine.Command, error) {
	p, err := parsePath(r.Path)
	if err != nil {
		return nil, err
	}
	return engine.Delete{Path: p}, nil
}

type moveRequest struct {
	Path      string `json:"path"`
	NewParent string `json:"new_parent"`
}

func (r moveRequest) command() (engine.Command, error) {
	p, err := parsePath(r.Path)
	if err != nil {
		return nil, err
	}
	parent, err := parsePath(r.NewParent)
	if err != nil {
		return nil, err
	}
	return engine.Move{Path: p, NewParent: parent}, nil
}

type renameRequest struct {
	Path    string `json:"path"`
	NewName string `json:"new_name"`
}

func (r renameRequest) command() (engine.Command, error) {
	p, err := parsePath(r.Path)
	if err != nil {
		return nil, err
	}
	return engine.Rename{Path: p, NewName: r.NewName}, nil
}

type saveRequest struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

func (r saveRequest) command() (engine.Command, error) {
	p, err := parsePath(r.Path)
	if err != nil {
		return nil, err
	}
	return engine.Save{Path: p, Name: r.Name}, nil
}

type loadRequest struct {
	Name   string `json:"name"`
	Parent string `json:"parent"`
}

func (r loadRequest) command() (engine.Command, error) {
	parent, err := parsePath(r.Parent)
	if err != nil {
		return nil, err
	}
	return engine.Load{Name: r.Name, Parent: parent}, nil
}

type commandResult struct {
	Path     string           `json:"path,omitempty"`
	Previous *ir.JSONValue    `json:"previous,omitempty"`
	Skipped  bool             `json:"skipped,omitempty"`
	Node     *engine.NodeInfo `json:"node,omitempty"`
	Paths    []string         `json:"paths,omitempty"`
	Dropped  []string         `json:"dropped,omitempty"`
	Snapshot *ir.SnapshotInfo `json:"snapshot,omitempty"`
}

func newCommandResult(res engine.Result) commandResult {
	out := commandResult{
		Path:     res.Path.String(),
		Skipped:  res.Skipped,
		Node:     res.Node,
		Snapshot: res.Snapshot,
	}
	if res.Previous != nil {
		out.Previous = &ir.JSONValue{Value: res.Previous}
	}
	for _, p := range res.Paths {
		out.Paths = append(out.Paths, p.String())
	}
	for _, p := range res.Dropped {
		out.Dropped = append(out.Dropped, p.String())
	}
	return out
}
