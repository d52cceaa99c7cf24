package module

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/roach88/patchbay/internal/ir"
)

// ErrRegistryClosed is returned by Add after Close.
var ErrRegistryClosed = errors.New("module registry closed")

// Registry is the process-scoped set of loaded interfaces. Definitions
// are immutable once added; callers may hold them for as long as the
// registry is open.
//
// Thread-safety: Registry is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byID   map[uuid.UUID]*ir.InterfaceDefinition
	order  []uuid.UUID
	closed bool
}

// NewRegistry creates a registry holding defs. It panics on an invalid or
// duplicate definition; use Add to handle those as errors.
func NewRegistry(defs ...*ir.InterfaceDefinition) *Registry {
	r := &Registry{byID: make(map[uuid.UUID]*ir.InterfaceDefinition)}
	for _, def := range defs {
		if err := r.Add(def); err != nil {
			panic(err)
		}
	}
	return r
}

// Add validates def and registers it.
func (r *Registry) Add(def *ir.InterfaceDefinition) error {
	if verrs := Validate(def); len(verrs) > 0 {
		return verrs[0]
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return ErrRegistryClosed
	}
	if existing, ok := r.byID[def.ModuleID]; ok {
		return ValidationError{
			Interface: def.Info.Name,
			Field:     "module_id",
			Message:   fmt.Sprintf("module id %s already registered by %s", def.ModuleID, existing.Info.Name),
			Code:      ErrDuplicateModuleID,
		}
	}
	r.byID[def.ModuleID] = def
	r.order = append(r.order, def.ModuleID)
	return nil
}

// LoadDirs loads the system and third-party module directories, in that
// order. An empty directory path is skipped. Every problem is collected;
// interfaces that loaded cleanly are registered regardless.
func (r *Registry) LoadDirs(systemDir, thirdPartyDir string) []error {
	var errs []error
	for _, d := range []struct {
		dir    string
		source ir.ModuleSource
	}{
		{systemDir, ir.ModuleShipped},
		{thirdPartyDir, ir.ModuleThirdParty},
	} {
		if d.dir == "" {
			continue
		}
		res, loadErrs := LoadDir(d.dir, d.source, LoadModeCollectAll)
		errs = append(errs, loadErrs...)
		if res == nil {
			continue
		}
		for _, def := range res.Interfaces {
			if err := r.Add(def); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// Lookup returns the interface with the given module id.
func (r *Registry) Lookup(id uuid.UUID) (*ir.InterfaceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.byID[id]
	return def, ok
}

// LookupName returns the first interface registered under name.
func (r *Registry) LookupName(name string) (*ir.InterfaceDefinition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, id := range r.order {
		if def := r.byID[id]; def.Info.Name == name {
			return def, true
		}
	}
	return nil, false
}

// Interfaces returns every interface in registration order.
func (r *Registry) Interfaces() []*ir.InterfaceDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ir.InterfaceDefinition, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// Names returns the interface names, sorted.
func (r *Registry) Names() []string {
	defs := r.Interfaces()
	names := make([]string, 0, len(defs))
	for _, def := range defs {
		names = append(names, def.Info.Name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered interfaces.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

// Close tears the registry down. Lookups after Close find nothing, so
// Close must run only after the server has stopped.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.byID = make(map[uuid.UUID]*ir.InterfaceDefinition)
	r.order = nil
}
