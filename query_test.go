package mountstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bearsState() map[string]any {
	return map[string]any{"care": map[string]any{"bears": map[string]any{"care": true}}}
}

func TestQueryIsRewrittenToQueryResult(t *testing.T) {
	var results []QueryResult
	store := newTestStore(t, func(state map[string]any, action Action) map[string]any {
		switch typed := action.(type) {
		case QueryResult:
			results = append(results, typed)
		case Query:
			t.Fatalf("reducers must never see raw queries")
		}
		return state
	}, bearsState())
	_, err := store.Mount("some.path", nil)
	require.NoError(t, err)

	query := map[string]string{"bearsCare": "care.bears.care"}
	require.NoError(t, store.Dispatch(Query{Path: "some.path", Query: query}))

	require.Len(t, results, 1)
	assert.Equal(t, "some.path", results[0].Path)
	assert.Equal(t, query, results[0].Result)

	query["bearsCare"] = "changed"
	assert.Equal(t, "care.bears.care", results[0].Result["bearsCare"])
}

func TestQueryResultResolvesAgainstRootState(t *testing.T) {
	store := newTestStore(t, identity, bearsState())
	host := mustMount(t, store, "host", View{"narrowed": "care"}, identity, map[string]any{"care": "host owned"})
	node := mustMount(t, host, "some.path", nil, identity, nil)

	require.NoError(t, node.Query(map[string]string{"bearsCare": "care.bears.care"}))

	assert.Equal(t, true, node.GetState()["bearsCare"])
	assert.Equal(t, map[string]any{"bearsCare": true}, node.GetState())
}

func TestQueryValidation(t *testing.T) {
	store := newTestStore(t, identity, bearsState())

	assert.ErrorIs(t, store.Dispatch(Query{Query: map[string]string{}}), ErrConfiguration)
	assert.ErrorIs(t, store.Dispatch(Query{Path: "some.path"}), ErrConfiguration)
	assert.ErrorIs(t, store.Dispatch(QueryResult{Path: "unknown", Result: map[string]string{}}), ErrConfiguration)
	assert.ErrorIs(t, store.Dispatch(nil), ErrConfiguration)

	node := mustMount(t, store, "node", nil, identity, nil)
	assert.ErrorIs(t, node.Query(map[string]string{"": "care"}), ErrConfiguration)
	assert.ErrorIs(t, node.Query(map[string]string{"x": "care..bears"}), ErrConfiguration)
}

func TestFailedQueryRestoresBindings(t *testing.T) {
	store := newTestStore(t, identity, bearsState())
	node := mustMount(t, store, "node", View{"bears": "care.bears"}, identity, nil)
	before := node.GetState()

	err := node.Query(map[string]string{"missing": "no.such.path"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUndefined)

	var resolveErr *ResolveError
	require.ErrorAs(t, err, &resolveErr)
	assert.Equal(t, SourceRoot, resolveErr.Source)

	require.Len(t, node.Trace().Fields, 1)
	assert.Equal(t, "bears", node.Trace().Fields[0].Alias)
	require.NoError(t, store.Dispatch(Event{Name: "noop"}))
	assert.Equal(t, before, node.GetState())
}

func TestQueryHandler(t *testing.T) {
	denied := errors.New("query denied")
	handler := func(query Query) (map[string]string, bool, error) {
		switch query.Query["mode"] {
		case "deny":
			return nil, false, denied
		case "rewrite":
			return map[string]string{"bears": "care.bears"}, true, nil
		}
		return nil, false, nil
	}
	store := newTestStore(t, identity, map[string]any{"care": map[string]any{"bears": "yes"}, "mode": "x"}, WithQueryHandler(handler))
	node := mustMount(t, store, "node", nil, identity, nil)

	assert.ErrorIs(t, node.Query(map[string]string{"mode": "deny"}), denied)

	require.NoError(t, node.Query(map[string]string{"mode": "rewrite"}))
	assert.Equal(t, map[string]any{"bears": "yes"}, node.GetState())

	require.NoError(t, node.Query(map[string]string{"mode": "mode"}))
	assert.Equal(t, map[string]any{"bears": "yes", "mode": "x"}, node.GetState())
}
