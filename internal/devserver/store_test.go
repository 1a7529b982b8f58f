package devserver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore("")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SessionPending(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	missing, err := store.MissingHashes(ctx, []string{"h1", "h2", "h3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"h1", "h2", "h3"}, missing)

	id, err := store.CreateSession(ctx, "site", "{}", missing)
	require.NoError(t, err)

	pending, err := store.IsPending(ctx, id, "h2")
	require.NoError(t, err)
	assert.True(t, pending)

	remaining, err := store.StoreAssets(ctx, id, []assetRow{{Hash: "h1", Content: []byte("1")}, {Hash: "h2", Content: []byte("2")}})
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)

	missing, err = store.MissingHashes(ctx, []string{"h1", "h2", "h3"})
	require.NoError(t, err)
	assert.Equal(t, []string{"h3"}, missing)

	remaining, err = store.StoreAssets(ctx, id, []assetRow{{Hash: "h3", Content: []byte("3")}})
	require.NoError(t, err)
	assert.Equal(t, 0, remaining)

	asset, err := store.GetAsset(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, "2", string(asset.Content))
}

func TestStore_ListKeysPrefixAndCursor(t *testing.T) {
	store := newTestStore(t)
	ctx := t.Context()

	ns, err := store.CreateNamespace(ctx, "ns")
	require.NoError(t, err)
	require.NoError(t, store.PutValues(ctx, ns.ID, []kvPair{
		{Key: "a/1", Value: []byte("x")},
		{Key: "a/2", Value: []byte("x")},
		{Key: "a/3", Value: []byte("x")},
		{Key: "b/1", Value: []byte("x")},
	}))

	keys, cursor, err := store.ListKeys(ctx, ns.ID, "a/", "", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "a/2"}, keys)
	assert.Equal(t, "a/2", cursor)

	keys, cursor, err = store.ListKeys(ctx, ns.ID, "a/", cursor, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/3"}, keys)
	assert.Empty(t, cursor)

	require.NoError(t, store.DeleteKeys(ctx, ns.ID, []string{"a/1", "b/1"}))
	keys, _, err = store.ListKeys(ctx, ns.ID, "", "", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/2", "a/3"}, keys)

	_, _, err = store.ListKeys(ctx, "missing", "", "", 10)
	assert.ErrorIs(t, err, ErrNamespaceNotFound)
}
