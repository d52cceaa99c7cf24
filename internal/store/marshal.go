package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/patchbay/internal/ir"
)

// marshalValues converts a node's saved values to canonical JSON TEXT.
// Each value keeps its type tag: {"gain":{"integer":5}}.
func marshalValues(values map[string]ir.JSONValue) (string, error) {
	m := make(map[string]any, len(values))
	for name, v := range values {
		if v.Value == nil {
			return "", fmt.Errorf("marshal values: %s has no value", name)
		}
		m[name] = map[string]any{v.Value.Type().String(): v.Value}
	}
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal values: %w", err)
	}
	return string(data), nil
}

// unmarshalValues parses the TEXT written by marshalValues.
func unmarshalValues(data string) (map[string]ir.JSONValue, error) {
	values := map[string]ir.JSONValue{}
	if data == "" || data == "{}" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(data), &values); err != nil {
		return nil, fmt.Errorf("unmarshal values: %w", err)
	}
	return values, nil
}

// Timestamps are stored as RFC 3339 text in UTC with nanoseconds, which
// sorts lexically in time order.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse created_at %q: %w", s, err)
	}
	return t.UTC(), nil
}
