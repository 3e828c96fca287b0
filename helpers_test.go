package mountstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func identity(state map[string]any, _ Action) map[string]any {
	return state
}

// setter copies state and stores the payload of the named event under key.
func setter(event, key string) Reducer {
	return func(state map[string]any, action Action) map[string]any {
		e, ok := action.(Event)
		if !ok || e.Name != event {
			return state
		}
		next := make(map[string]any, len(state)+1)
		for k, v := range state {
			next[k] = v
		}
		next[key] = e.Payload
		return next
	}
}

func newTestStore(t *testing.T, reducer Reducer, initial map[string]any, opts ...Option) *Store {
	t.Helper()
	store, err := New(reducer, initial, opts...)
	require.NoError(t, err)
	return store
}

type mounter interface {
	Mount(path string, view View) (*Creator, error)
}

func mustMount(t *testing.T, host mounter, path string, view View, reducer Reducer, initial map[string]any) *Mounted {
	t.Helper()
	creator, err := host.Mount(path, view)
	require.NoError(t, err)
	handle, err := creator.Create(reducer, initial)
	require.NoError(t, err)
	return handle
}
