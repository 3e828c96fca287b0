package mountstore

import (
	"github.com/goliatone/go-mountstore/internal/hydrate"
)

// Decode converts a state map into T through its JSON representation.
func Decode[T any](state map[string]any) (T, error) {
	return hydrate.NewDecoder[T]().Decode(hydrate.Context{}, state)
}

// StateAs decodes the merged state of m into T.
func StateAs[T any](m *Mounted) (T, error) {
	if !m.Active() {
		var zero T
		return zero, ErrUnmounted
	}
	ctx := hydrate.Context{Path: m.node.full, Host: m.node.host}
	return hydrate.NewDecoder[T]().Decode(ctx, m.GetState())
}
