package cfapi

import (
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// kvMux is a minimal in-memory KV namespace.
func kvMux(t *testing.T, objects map[string]string) *http.ServeMux {
	var mu sync.Mutex
	mux := http.NewServeMux()
	mux.HandleFunc("GET /accounts/acc/storage/kv/namespaces/ns/keys", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		keys := []KeyInfo{}
		for k := range objects {
			keys = append(keys, KeyInfo{Name: k})
		}
		writeEnvelope(w, 200, keys, &ResultInfo{})
	})
	mux.HandleFunc("PUT /accounts/acc/storage/kv/namespaces/ns/bulk", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		var items []KeyValue
		require.NoError(t, json.NewDecoder(r.Body).Decode(&items))
		for _, item := range items {
			assert.True(t, item.Base64)
			objects[item.Key] = item.Value
		}
		writeEnvelope(w, 200, nil, nil)
	})
	mux.HandleFunc("DELETE /accounts/acc/storage/kv/namespaces/ns/bulk", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		var keys []string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&keys))
		for _, k := range keys {
			delete(objects, k)
		}
		writeEnvelope(w, 200, nil, nil)
	})
	return mux
}

func TestKVStore_SyncsTree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<h1>"), 0o644))

	objects := map[string]string{"old.0123456789.html": "b2xk"}
	client := newTestClient(t, kvMux(t, objects))
	store := NewKVStore(client.KV, &Namespace{ID: "ns", Title: SiteNamespaceTitle("blog", false)})

	engine := assets.NewEngine(assets.DefaultLimits(), nil)
	engine.Hash = assets.HashXXH64
	result, err := engine.Sync(t.Context(), assets.SyncOptions{Root: root}, assets.NewIndexProtocol(store, assets.DefaultLimits()))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Uploaded)
	assert.Equal(t, 1, result.Deleted)
	require.NotNil(t, result.Binding)
	assert.Equal(t, BindingKindKV, result.Binding.Kind)
	assert.Equal(t, "ns", result.Binding.Namespace)

	key := result.Binding.Manifest["index.html"]
	require.Contains(t, objects, key)
	content, err := assets.DecodeContent(objects[key])
	require.NoError(t, err)
	assert.Equal(t, "<h1>", string(content))
	assert.NotContains(t, objects, "old.0123456789.html")
}

func TestSiteKVStore_ResolvesOnFirstListing(t *testing.T) {
	var (
		mu      sync.Mutex
		lists   int
		creates int
	)
	objects := map[string]string{}
	mux := kvMux(t, objects)
	mux.HandleFunc("GET /accounts/acc/storage/kv/namespaces", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		lists++
		namespaces := []Namespace{}
		if creates > 0 {
			namespaces = append(namespaces, Namespace{ID: "ns", Title: "__blog-workers_sites_assets"})
		}
		writeEnvelope(w, 200, namespaces, nil)
	})
	mux.HandleFunc("POST /accounts/acc/storage/kv/namespaces", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		defer mu.Unlock()
		creates++
		writeEnvelope(w, 200, Namespace{ID: "ns", Title: "__blog-workers_sites_assets"}, nil)
	})
	client := newTestClient(t, mux)
	title := SiteNamespaceTitle("blog", false)

	lookup := NewSiteKVStore(client.KV, title, false)
	assert.Equal(t, 0, lists, "construction makes no request")
	keys, err := lookup.ListKeys(t.Context())
	require.NoError(t, err)
	assert.Empty(t, keys)
	assert.Equal(t, 0, creates, "lookup only never creates")
	assert.ErrorIs(t, lookup.BulkPut(t.Context(), []assets.Entry{{Key: "a"}}), errNamespaceUnresolved)

	store := NewSiteKVStore(client.KV, title, true)
	_, err = store.ListKeys(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, creates)
	assert.Equal(t, "ns", store.Descriptor().Namespace)

	_, err = store.ListKeys(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, lists, "the namespace is resolved once per store")
}
