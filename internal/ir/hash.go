package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix allows a future algorithm migration.
const (
	DomainImplementation = "patchbay/implementation/v1"
	DomainSnapshot       = "patchbay/snapshot/v1"
)

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ImplementationChecksum computes a content checksum for an interface
// definition. It covers identity and endpoints but not descriptive text,
// so relabelling a module does not change it.
func ImplementationChecksum(def *InterfaceDefinition) (string, error) {
	canonical, err := MarshalCanonical(def.canonicalMap())
	if err != nil {
		return "", fmt.Errorf("ImplementationChecksum: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainImplementation, canonical), nil
}

// SnapshotHash computes the content hash of a snapshot's nodes.
// The snapshot's name and id are excluded so identical trees hash equal.
func SnapshotHash(nodes []SnapshotNode) (string, error) {
	list := make([]any, len(nodes))
	for i, n := range nodes {
		list[i] = n.canonicalMap()
	}
	canonical, err := MarshalCanonical(map[string]any{
		"schema_version": SchemaVersion,
		"nodes":          list,
	})
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

func (d *InterfaceDefinition) canonicalMap() map[string]any {
	endpoints := make([]any, len(d.Endpoints))
	for i := range d.Endpoints {
		endpoints[i] = d.Endpoints[i].canonicalMap()
	}
	return map[string]any{
		"module_id":    d.ModuleID.String(),
		"origin_id":    d.OriginID.String(),
		"name":         d.Info.Name,
		"system_class": d.Info.SystemClass,
		"endpoints":    endpoints,
	}
}

func (e *EndpointDefinition) canonicalMap() map[string]any {
	m := map[string]any{
		"name": e.Name,
		"kind": string(e.Kind),
	}
	if e.Stream != nil {
		m["stream"] = map[string]any{
			"type":      e.Stream.Type,
			"direction": string(e.Stream.Direction),
		}
	}
	if e.Control != nil {
		c := map[string]any{"kind": string(e.Control.Kind)}
		if s := e.Control.State; s != nil {
			state := map[string]any{
				"type":            s.Type.String(),
				"default":         s.Default,
				"is_input_file":   s.IsInputFile,
				"is_saved":        s.IsSavedToFile,
				"is_sent_to_host": s.IsSentToHost,
			}
			if s.Constraint.Range != nil {
				state["range"] = []any{s.Constraint.Range.Min, s.Constraint.Range.Max}
			}
			if len(s.Constraint.Allowed) > 0 {
				allowed := make([]any, len(s.Constraint.Allowed))
				for i, a := range s.Constraint.Allowed {
					allowed[i] = a
				}
				state["allowed"] = allowed
			}
			c["state"] = state
		}
		m["control"] = c
	}
	return m
}

func (n SnapshotNode) canonicalMap() map[string]any {
	values := make(map[string]any, len(n.Values))
	for k, v := range n.Values {
		values[k] = v.Value
	}
	return map[string]any{
		"path":      n.Path,
		"module_id": n.ModuleID.String(),
		"values":    values,
	}
}

// MustImplementationChecksum is like ImplementationChecksum but panics on error.
// Use only in tests or when the definition is known to be valid.
func MustImplementationChecksum(def *InterfaceDefinition) string {
	sum, err := ImplementationChecksum(def)
	if err != nil {
		panic(err)
	}
	return sum
}

// MustSnapshotHash is like SnapshotHash but panics on error.
// For fixtures built from known-good values.
func MustSnapshotHash(nodes []SnapshotNode) string {
	sum, err := SnapshotHash(nodes)
	if err != nil {
		panic(err)
	}
	return sum
}
