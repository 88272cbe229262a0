package metastore

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// decodeCollection accepts either a bare JSON array or an object holding the
// array under one of names. A JSON null decodes to an empty collection.
func decodeCollection[T any](data []byte, names ...string) ([]T, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}
	if trimmed[0] == '[' {
		var items []T
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, err
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, err
	}
	for _, name := range names {
		if name == "" {
			continue
		}
		raw, ok := envelope[name]
		if !ok {
			continue
		}
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		if items == nil {
			items = []T{}
		}
		return items, nil
	}
	return nil, fmt.Errorf("no collection field among %v", names)
}

// encodeCollection writes items as an indented array, wrapped in an envelope
// object when envelope is non-empty.
func encodeCollection[T any](items []T, envelope string) ([]byte, error) {
	if items == nil {
		items = []T{}
	}
	if envelope == "" {
		return json.MarshalIndent(items, "", "  ")
	}
	return json.MarshalIndent(map[string][]T{envelope: items}, "", "  ")
}

// Merge overlays the top-level fields of patch onto a copy of v. Fields
// unknown to T are dropped; a value of the wrong type is an error.
func Merge[T any](v T, patch map[string]any) (T, error) {
	var zero T
	raw, err := json.Marshal(v)
	if err != nil {
		return zero, err
	}
	fields := make(map[string]any)
	if err := json.Unmarshal(raw, &fields); err != nil {
		return zero, err
	}
	for k, val := range patch {
		fields[k] = val
	}
	merged, err := json.Marshal(fields)
	if err != nil {
		return zero, err
	}
	var out T
	if err := json.Unmarshal(merged, &out); err != nil {
		return zero, err
	}
	return out, nil
}
