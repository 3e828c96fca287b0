package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counter(state int, action string) (int, error) {
	switch action {
	case "inc":
		return state + 1, nil
	case "fail":
		return 0, errors.New("boom")
	default:
		return state, nil
	}
}

func TestNewRequiresReducer(t *testing.T) {
	_, err := New[int, string](nil, 0)
	assert.Error(t, err)
}

func TestDispatchCommitsAndNotifies(t *testing.T) {
	store, err := New(counter, 0)
	require.NoError(t, err)

	var calls []int
	unsubscribe := store.Subscribe(func() { calls = append(calls, store.State()) })

	require.NoError(t, store.Dispatch("inc"))
	require.NoError(t, store.Dispatch("inc"))
	assert.Equal(t, []int{1, 2}, calls)

	unsubscribe()
	unsubscribe()
	require.NoError(t, store.Dispatch("inc"))
	assert.Equal(t, []int{1, 2}, calls)
	assert.Equal(t, 3, store.State())
}

func TestDispatchErrorKeepsState(t *testing.T) {
	store, err := New(counter, 5)
	require.NoError(t, err)

	notified := false
	store.Subscribe(func() { notified = true })

	assert.EqualError(t, store.Dispatch("fail"), "boom")
	assert.Equal(t, 5, store.State())
	assert.False(t, notified)
	assert.False(t, store.Dispatching())
}

func TestDispatchRejectsReentrancy(t *testing.T) {
	var store *Store[int, string]
	var inner error
	store, err := New(func(state int, action string) (int, error) {
		if action == "outer" {
			inner = store.Dispatch("inc")
		}
		return state, nil
	}, 0)
	require.NoError(t, err)

	require.NoError(t, store.Dispatch("outer"))
	assert.ErrorIs(t, inner, ErrReentrantDispatch)
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	store, err := New(counter, 0)
	require.NoError(t, err)

	var order []string
	var unsubscribeSecond func()
	store.Subscribe(func() {
		order = append(order, "first")
		unsubscribeSecond()
	})
	unsubscribeSecond = store.Subscribe(func() { order = append(order, "second") })

	require.NoError(t, store.Dispatch("inc"))
	require.NoError(t, store.Dispatch("inc"))
	assert.Equal(t, []string{"first", "second", "first"}, order)
}

func TestDispatchWithRunsHookBeforeListeners(t *testing.T) {
	store, err := New(counter, 0)
	require.NoError(t, err)

	var order []string
	store.Subscribe(func() { order = append(order, "listener") })

	require.NoError(t, store.DispatchWith("inc", func(state int) {
		assert.Equal(t, 1, store.State())
		assert.Equal(t, 1, state)
		order = append(order, "committed")
	}))
	assert.Equal(t, []string{"committed", "listener"}, order)

	order = nil
	require.Error(t, store.DispatchWith("fail", func(int) { order = append(order, "committed") }))
	assert.Empty(t, order)
}
