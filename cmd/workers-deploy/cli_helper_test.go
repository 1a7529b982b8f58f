package main

import (
	"bytes"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/cloudflare/workers-sdk-sub005/internal/devserver"
	"github.com/stretchr/testify/require"
)

var ansiRE = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripANSI(s string) string {
	return ansiRE.ReplaceAllString(s, "")
}

// runCLI executes the root command in-process and returns stdout and stderr
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	cmd.SetContext(t.Context())

	err := cmd.Execute()
	return stdout.String(), stripANSI(stderr.String()), err
}

// startDevserver points the CLI environment at a fresh emulator
func startDevserver(t *testing.T) *devserver.Server {
	t.Helper()

	srv, err := devserver.New(&devserver.Config{AccountID: "acc", APIToken: "tok"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Store().Close()
	})

	t.Setenv("CLOUDFLARE_API_BASE_URL", ts.URL+devserver.APIPrefix)
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "acc")
	t.Setenv("CLOUDFLARE_API_TOKEN", "tok")
	return srv
}

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}
