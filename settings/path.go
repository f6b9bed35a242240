package settings

import (
	"fmt"
	"strconv"
	"strings"
)

// KeyPath addresses a value inside a document. The first segment is the
// root key stored in the backend; the rest name nested object properties.
type KeyPath []string

// ParseKeyPath splits a dot-delimited path such as "athlete_info.1234".
// Empty paths and empty segments are rejected.
func ParseKeyPath(s string) (KeyPath, error) {
	if s == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	p := KeyPath(strings.Split(s, "."))
	for i, seg := range p {
		if seg == "" {
			return nil, fmt.Errorf("%w: empty segment %d in %q", ErrInvalidPath, i, s)
		}
	}
	return p, nil
}

// Root returns the root key.
func (p KeyPath) Root() string {
	return p[0]
}

// Nested returns the segments below the root key.
func (p KeyPath) Nested() []string {
	return p[1:]
}

// Child returns a new path with seg appended.
func (p KeyPath) Child(seg string) KeyPath {
	out := make(KeyPath, len(p), len(p)+1)
	copy(out, p)
	return append(out, seg)
}

func (p KeyPath) String() string {
	return strings.Join(p, ".")
}

// asObject returns v as a container. A nil value becomes a new empty object;
// any other non-object is an error.
func asObject(v any, where string) (map[string]any, error) {
	switch o := v.(type) {
	case nil:
		return map[string]any{}, nil
	case map[string]any:
		return o, nil
	default:
		return nil, fmt.Errorf("%w: %s holds %T", ErrNotObject, where, v)
	}
}

// vivify walks p.Nested() from root, creating missing or null containers,
// and returns the object at the end of the path.
func vivify(root map[string]any, p KeyPath) (map[string]any, error) {
	ref := root
	for i, seg := range p.Nested() {
		child, err := asObject(ref[seg], KeyPath(p[:i+2]).String())
		if err != nil {
			return nil, err
		}
		ref[seg] = child
		ref = child
	}
	return ref, nil
}

// lookup walks segs from v and returns whatever it finds. Objects are
// indexed by key and arrays by decimal index. It stops at the first nil and
// returns nil when it meets anything else.
func lookup(v any, segs []string) any {
	ref := v
	for _, seg := range segs {
		switch c := ref.(type) {
		case map[string]any:
			ref = c[seg]
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(c) || strconv.Itoa(i) != seg {
				return nil
			}
			ref = c[i]
		default:
			return nil
		}
		if ref == nil {
			return nil
		}
	}
	return ref
}
