package cfapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func writeEnvelope(w http.ResponseWriter, status int, result any, info *ResultInfo) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":     status < 300,
		"errors":      []ResponseInfo{},
		"messages":    []ResponseInfo{},
		"result":      result,
		"result_info": info,
	})
}

func writeError(w http.ResponseWriter, status, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"errors":  []ResponseInfo{{Code: code, Message: msg}},
	})
}

func newTestClient(t *testing.T, mux *http.ServeMux) *Client {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := New(&Config{BaseURL: srv.URL, AccountID: "acc", APIToken: "tok"})
	require.NoError(t, err)
	return client
}
