package store

import (
	"bytes"
	"encoding/json"
	"fmt"
)

func encodeValue(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("store: encode value: %w", err)
	}
	return b, nil
}

func decodeValue(b []byte) (any, error) {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, fmt.Errorf("store: decode value: %w", err)
	}
	return v, nil
}

// cloneValue returns a deep copy of v by round-tripping through JSON.
func cloneValue(v any) (any, error) {
	b, err := encodeValue(v)
	if err != nil {
		return nil, err
	}
	return decodeValue(b)
}

// sameValue reports whether a and b have the same JSON encoding.
func sameValue(a, b any) bool {
	ab, err1 := json.Marshal(a)
	bb, err2 := json.Marshal(b)
	if err1 != nil || err2 != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// diffSet builds the change batch for writing items over old.
func diffSet(old, items map[string]any) ChangeSet {
	changes := ChangeSet{}
	for k, nv := range items {
		ov, existed := old[k]
		if existed && sameValue(ov, nv) {
			continue
		}
		changes[k] = Change{OldValue: ov, NewValue: nv}
	}
	return changes
}

// diffRemove builds the change batch for removing keys from old.
func diffRemove(old map[string]any, keys []string) ChangeSet {
	changes := ChangeSet{}
	for _, k := range keys {
		if ov, ok := old[k]; ok {
			changes[k] = Change{OldValue: ov}
		}
	}
	return changes
}
