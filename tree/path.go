package tree

import (
	"strconv"
	"strings"
)

// Path is a parsed dotted path. Each element addresses a map key or, when the
// container is a slice, a decimal index.
type Path []string

// ParsePath splits a dot-delimited path into segments. The empty string maps
// to an empty Path.
func ParsePath(path string) Path {
	if path == "" {
		return nil
	}
	return Path(strings.Split(path, "."))
}

// String joins the segments back into dotted form.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Depth returns the number of segments.
func (p Path) Depth() int {
	return len(p)
}

// Child returns a new path with segment appended. The receiver is never
// aliased by the result.
func (p Path) Child(segment string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, segment)
}

// HasPrefix reports whether every segment of prefix matches the leading
// segments of p. Segment comparison keeps "a.bc" from matching "a.b".
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (p Path) key() string {
	return strings.Join(p, "\x00")
}

// Get walks root along path and returns the value found there.
func Get(root any, path Path) (any, bool) {
	current := root
	for _, segment := range path {
		next, ok := lookup(current, segment)
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// GetString is Get with a dotted path.
func GetString(root any, path string) (any, bool) {
	return Get(root, ParsePath(path))
}

// Has reports whether a non-nil value exists at path.
func Has(root any, path Path) bool {
	value, ok := Get(root, path)
	return ok && !isNil(value)
}

func lookup(container any, segment string) (any, bool) {
	switch typed := container.(type) {
	case map[string]any:
		value, ok := typed[segment]
		return value, ok
	case []any:
		index, err := strconv.Atoi(segment)
		if err != nil || index < 0 || index >= len(typed) {
			return nil, false
		}
		return typed[index], true
	default:
		return nil, false
	}
}
