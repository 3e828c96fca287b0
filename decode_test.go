package mountstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type todoView struct {
	Items []string `json:"items"`
	Owner string   `json:"owner"`
}

func TestStateAsDecodesMergedState(t *testing.T) {
	store := newTestStore(t, identity, map[string]any{"session": map[string]any{"user": "tom"}})
	node := mustMount(t, store, "todos", View{"owner": "session.user"}, identity, map[string]any{
		"items": []any{"milk", "eggs"},
	})

	view, err := StateAs[todoView](node)
	require.NoError(t, err)
	assert.Equal(t, todoView{Items: []string{"milk", "eggs"}, Owner: "tom"}, view)

	require.NoError(t, store.Unmount("todos"))
	_, err = StateAs[todoView](node)
	assert.ErrorIs(t, err, ErrUnmounted)
}

func TestDecodeRootState(t *testing.T) {
	decoded, err := Decode[map[string]int](map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"a": 1, "b": 2}, decoded)

	_, err = Decode[todoView](nil)
	assert.Error(t, err)
}
