package cfapi

import (
	"errors"
	"io"
	"net/http"
	"testing"

	"github.com/cloudflare/workers-sdk-sub005/internal/assets"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssets_CreateUploadSession(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts/acc/workers/scripts/site/assets-upload-session", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Manifest map[string]assets.ManifestRecord `json:"manifest"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, assets.ManifestRecord{Hash: "h1", Size: 3}, body.Manifest["/a.txt"])
		writeEnvelope(w, 200, UploadSession{JWT: "session", Buckets: [][]string{{"h1"}}}, nil)
	})

	client := newTestClient(t, mux)
	session, err := client.Assets.CreateUploadSession(t.Context(), "site", []byte(`{"/a.txt":{"hash":"h1","size":3}}`))
	require.NoError(t, err)
	assert.Equal(t, "session", session.JWT)
	assert.Equal(t, [][]string{{"h1"}}, session.Buckets)
}

func TestAssets_UploadMultipart(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts/acc/workers/assets/upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer session", r.Header.Get("Authorization"), "session token replaces the api token")
		assert.Equal(t, "true", r.URL.Query().Get("base64"))

		require.NoError(t, r.ParseMultipartForm(1<<20))
		fh := r.MultipartForm.File["h1"]
		require.Len(t, fh, 1)
		assert.Equal(t, "h1", fh[0].Filename)
		assert.Equal(t, "text/plain", fh[0].Header.Get("Content-Type"))

		f, err := fh[0].Open()
		require.NoError(t, err)
		defer f.Close()
		raw, err := io.ReadAll(f)
		require.NoError(t, err)
		decoded, err := assets.DecodeContent(string(raw))
		require.NoError(t, err)
		assert.Equal(t, "abc", string(decoded))

		writeEnvelope(w, 201, UploadResponse{JWT: "done"}, nil)
	})

	client := newTestClient(t, mux)
	resp, err := client.Assets.Upload(t.Context(), "session", []AssetFile{{Hash: "h1", Content: []byte("abc"), ContentType: "text/plain"}})
	require.NoError(t, err)
	assert.Equal(t, "done", resp.JWT)
}

func TestAssets_UploadNeedsToken(t *testing.T) {
	client := newTestClient(t, http.NewServeMux())
	_, err := client.Assets.Upload(t.Context(), "", nil)
	assert.ErrorIs(t, err, ErrNoUploadToken)
}

func TestAssets_UploadIsNotRetried(t *testing.T) {
	calls := 0
	mux := http.NewServeMux()
	mux.HandleFunc("POST /accounts/acc/workers/assets/upload", func(w http.ResponseWriter, r *http.Request) {
		calls++
		writeError(w, 502, CodeInternalError, "bad gateway")
	})

	client := newTestClient(t, mux)
	_, err := client.Assets.Upload(t.Context(), "session", []AssetFile{{Hash: "h", Content: []byte("x")}})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsGatewayError())
	assert.Equal(t, 1, calls)
}
