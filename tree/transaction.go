package tree

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	// ErrCommitted is returned by any call on a transaction after Commit.
	ErrCommitted = errors.New("tree: transaction already committed")
	// ErrInvalidPath indicates an empty path or a segment that cannot address
	// the container it lands on.
	ErrInvalidPath = errors.New("tree: invalid path")
	// ErrNotContainer indicates an edit that expected a slice or map found a
	// different value.
	ErrNotContainer = errors.New("tree: value is not a container")
)

// Transaction batches copy-on-write edits over a nested tree of
// map[string]any and []any values. The source is never mutated. Only the
// containers along edited paths are cloned, each at most once, so untouched
// siblings keep their identity in the committed result.
//
// A Transaction is single use: every call after Commit fails with
// ErrCommitted.
type Transaction struct {
	source    map[string]any
	result    map[string]any
	owned     map[string]struct{}
	rootOwned bool
	committed bool
}

// NewTransaction starts a transaction over source. A nil source behaves like
// an empty map.
func NewTransaction(source map[string]any) *Transaction {
	return &Transaction{
		source: source,
		owned:  map[string]struct{}{},
	}
}

// Set stores value at the dotted path, creating intermediate maps as needed.
func (t *Transaction) Set(path string, value any) error {
	return t.SetIn(ParsePath(path), value)
}

// SetIn stores value at path.
func (t *Transaction) SetIn(path Path, value any) error {
	if err := t.check("set", path); err != nil {
		return err
	}
	return t.apply(path, func(parent any, key string, at Path) (any, error) {
		t.disown(at)
		return put(parent, key, value)
	})
}

// Delete removes the value at the dotted path. Slice elements are spliced out.
// Deleting a missing key is not an error.
func (t *Transaction) Delete(path string) error {
	return t.DeleteIn(ParsePath(path))
}

// DeleteIn removes the value at path.
func (t *Transaction) DeleteIn(path Path) error {
	if err := t.check("delete", path); err != nil {
		return err
	}
	return t.apply(path, func(parent any, key string, at Path) (any, error) {
		switch typed := parent.(type) {
		case map[string]any:
			delete(typed, key)
			t.disown(at)
			return typed, nil
		case []any:
			index, err := strconv.Atoi(key)
			if err != nil {
				return nil, fmt.Errorf("%w: %q is not an index", ErrInvalidPath, at.String())
			}
			if index < 0 || index >= len(typed) {
				return typed, nil
			}
			// indices shift after a splice, so nothing below the parent stays owned
			t.disownChildren(at[:len(at)-1])
			return append(typed[:index], typed[index+1:]...), nil
		default:
			return nil, fmt.Errorf("%w: %q", ErrNotContainer, at[:len(at)-1].String())
		}
	})
}

// Append pushes value onto the slice at the dotted path, creating the slice
// when the path is empty.
func (t *Transaction) Append(path string, value any) error {
	return t.AppendIn(ParsePath(path), value)
}

// AppendIn pushes value onto the slice at path.
func (t *Transaction) AppendIn(path Path, value any) error {
	if err := t.check("append", path); err != nil {
		return err
	}
	return t.apply(path, func(parent any, key string, at Path) (any, error) {
		existing, _ := lookup(parent, key)
		var next []any
		switch typed := existing.(type) {
		case nil:
			next = []any{value}
		case []any:
			if t.isOwned(at) {
				next = append(typed, value)
			} else {
				next = make([]any, len(typed), len(typed)+1)
				copy(next, typed)
				next = append(next, value)
			}
		default:
			return nil, fmt.Errorf("%w: %q holds %T", ErrNotContainer, at.String(), existing)
		}
		updated, err := put(parent, key, next)
		if err != nil {
			return nil, err
		}
		t.owned[at.key()] = struct{}{}
		return updated, nil
	})
}

// Assign expands values into one Set per key below the dotted path. Keys are
// applied in sorted order. An empty path assigns at the root.
func (t *Transaction) Assign(path string, values map[string]any) error {
	return t.AssignIn(ParsePath(path), values)
}

// AssignIn expands values into one SetIn per key below path.
func (t *Transaction) AssignIn(path Path, values map[string]any) error {
	if t.committed {
		return fmt.Errorf("%w: assign", ErrCommitted)
	}
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if err := t.SetIn(path.Child(key), values[key]); err != nil {
			return err
		}
	}
	return nil
}

// Commit finalises the transaction and returns the edited tree. When no edit
// was made the source itself is returned.
func (t *Transaction) Commit() (map[string]any, error) {
	if t.committed {
		return nil, fmt.Errorf("%w: commit", ErrCommitted)
	}
	t.committed = true
	if !t.rootOwned {
		if t.source == nil {
			return map[string]any{}, nil
		}
		return t.source, nil
	}
	return t.result, nil
}

func (t *Transaction) check(op string, path Path) error {
	if t.committed {
		return fmt.Errorf("%w: %s", ErrCommitted, op)
	}
	if len(path) == 0 {
		return fmt.Errorf("%w: %s requires a non-empty path", ErrInvalidPath, op)
	}
	return nil
}

type leafFunc func(parent any, key string, at Path) (any, error)

func (t *Transaction) apply(path Path, leaf leafFunc) error {
	if !t.rootOwned {
		t.result = make(map[string]any, len(t.source)+1)
		for key, value := range t.source {
			t.result[key] = value
		}
		t.rootOwned = true
	}
	_, err := t.edit(t.result, nil, path, leaf)
	return err
}

// edit descends from node (already owned by the transaction) along rest and
// returns node after the leaf edit, which may be a new slice header.
func (t *Transaction) edit(node any, prefix, rest Path, leaf leafFunc) (any, error) {
	key := rest[0]
	at := prefix.Child(key)
	if len(rest) == 1 {
		return leaf(node, key, at)
	}
	child, _ := lookup(node, key)
	child = t.own(at, child)
	updated, err := t.edit(child, at, rest[1:], leaf)
	if err != nil {
		return nil, err
	}
	return put(node, key, updated)
}

// own returns a transaction-private copy of child, cloning it the first time
// the path is touched. Values that are neither maps nor slices are replaced by
// an empty map.
func (t *Transaction) own(at Path, child any) any {
	key := at.key()
	if _, ok := t.owned[key]; ok {
		return child
	}
	t.owned[key] = struct{}{}
	return shallowClone(child)
}

func (t *Transaction) isOwned(at Path) bool {
	_, ok := t.owned[at.key()]
	return ok
}

func (t *Transaction) disown(at Path) {
	key := at.key()
	delete(t.owned, key)
	prefix := key + "\x00"
	for owned := range t.owned {
		if strings.HasPrefix(owned, prefix) {
			delete(t.owned, owned)
		}
	}
}

func (t *Transaction) disownChildren(parent Path) {
	prefix := parent.key() + "\x00"
	if len(parent) == 0 {
		prefix = ""
	}
	for owned := range t.owned {
		if strings.HasPrefix(owned, prefix) {
			delete(t.owned, owned)
		}
	}
}

func shallowClone(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed)+1)
		for key, item := range typed {
			out[key] = item
		}
		return out
	case []any:
		out := make([]any, len(typed))
		copy(out, typed)
		return out
	default:
		return map[string]any{}
	}
}

func put(container any, key string, value any) (any, error) {
	switch typed := container.(type) {
	case map[string]any:
		typed[key] = value
		return typed, nil
	case []any:
		index, err := strconv.Atoi(key)
		if err != nil || index < 0 {
			return nil, fmt.Errorf("%w: %q is not an index", ErrInvalidPath, key)
		}
		if index < len(typed) {
			typed[index] = value
			return typed, nil
		}
		for len(typed) < index {
			typed = append(typed, nil)
		}
		return append(typed, value), nil
	default:
		return nil, fmt.Errorf("%w: cannot set %q on %T", ErrNotContainer, key, container)
	}
}

// Set is a one-shot transaction storing value at the dotted path.
func Set(source map[string]any, path string, value any) (map[string]any, error) {
	tx := NewTransaction(source)
	if err := tx.Set(path, value); err != nil {
		return nil, err
	}
	return tx.Commit()
}

// Delete is a one-shot transaction removing the value at the dotted path.
func Delete(source map[string]any, path string) (map[string]any, error) {
	tx := NewTransaction(source)
	if err := tx.Delete(path); err != nil {
		return nil, err
	}
	return tx.Commit()
}
