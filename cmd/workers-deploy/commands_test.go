package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAssetsManifest_JSONAndYAML(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.html": "<h1>", "css/a.css": "a{}"})

	stdout, _, err := runCLI(t, "assets", "manifest", root)
	require.NoError(t, err)

	var manifest map[string]struct {
		Hash string `json:"hash"`
		Size int64  `json:"size"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &manifest))
	require.Contains(t, manifest, "/index.html")
	assert.EqualValues(t, 4, manifest["/index.html"].Size)
	assert.Len(t, manifest["/css/a.css"].Hash, 32)

	stdout, _, err = runCLI(t, "assets", "manifest", "--format", "yaml", root)
	require.NoError(t, err)

	var fromYAML map[string]map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(stdout), &fromYAML))
	assert.Equal(t, manifest["/index.html"].Hash, fromYAML["/index.html"]["hash"])
	assert.Less(t, strings.Index(stdout, "/css/a.css"), strings.Index(stdout, "/index.html"), "walk order is kept")

	_, _, err = runCLI(t, "assets", "manifest", "--format", "toml", root)
	assert.ErrorContains(t, err, "unknown format")
}

func TestAssetsManifest_ValidationError(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"_worker.js": "export default {}"})

	_, _, err := runCLI(t, "assets", "manifest", root)
	assert.ErrorContains(t, err, "_worker.js")
}

func TestAssetsSync(t *testing.T) {
	startDevserver(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.html": "<h1>", "app.js": "1"})

	stdout, stderr, err := runCLI(t, "assets", "sync", "--name", "site", "--assets", root)
	require.NoError(t, err)
	assert.Len(t, strings.Split(strings.TrimSpace(stdout), "."), 3, "prints the completion jwt")
	assert.Contains(t, stderr, "+ ")
	assert.Contains(t, stderr, "Uploaded 2 files (0 already uploaded)")

	_, stderr, err = runCLI(t, "assets", "sync", "--name", "site", "--assets", root)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Uploaded 0 files (2 already uploaded)")
}

func TestAssetsSync_RequiresCredentials(t *testing.T) {
	t.Setenv("CLOUDFLARE_ACCOUNT_ID", "")
	t.Setenv("CLOUDFLARE_API_TOKEN", "")
	_, _, err := runCLI(t, "assets", "sync", "--name", "site", "--assets", t.TempDir())
	assert.ErrorContains(t, err, "account id missing")
}

func TestSiteSync_DryRunThenSync(t *testing.T) {
	srv := startDevserver(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.html": "<h1>", "about.html": "<p>"})

	stdout, stderr, err := runCLI(t, "site", "sync", "--name", "blog", "--site", root, "--dry-run")
	require.NoError(t, err)
	assert.Empty(t, strings.TrimSpace(stdout))
	assert.Contains(t, stderr, "Dry run: would upload 2 files")

	namespaces, err := srv.Store().ListNamespaces(t.Context(), 0, 100)
	require.NoError(t, err)
	assert.Empty(t, namespaces, "a dry run creates nothing")

	stdout, _, err = runCLI(t, "site", "sync", "--name", "blog", "--site", root)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(strings.TrimSpace(stdout), "kv_namespace:"))

	_, stderr, err = runCLI(t, "site", "sync", "--name", "blog", "--site", root)
	require.NoError(t, err)
	assert.Contains(t, stderr, "Uploaded 0 files (2 already uploaded)")
}

func TestSiteSync_ValidationFailsBeforeAnyRequest(t *testing.T) {
	srv := startDevserver(t)
	root := t.TempDir()
	writeTree(t, root, map[string]string{"index.html": "<h1>", "_worker.js": "export default {}"})

	_, _, err := runCLI(t, "site", "sync", "--name", "blog", "--site", root)
	require.Error(t, err)
	assert.ErrorContains(t, err, "_worker.js")

	namespaces, err := srv.Store().ListNamespaces(t.Context(), 0, 100)
	require.NoError(t, err)
	assert.Empty(t, namespaces)
}

func TestDeploy_WithConfigFile(t *testing.T) {
	startDevserver(t)
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"deploy.yaml":       "name: shop\nmain: src/index.js\nassets: public\ncompatibility_date: \"2026-01-01\"\n",
		"src/index.js":      "export default {}",
		"public/index.html": "<h1>shop</h1>",
	})

	stdout, stderr, err := runCLI(t, "deploy", "--config", filepath.Join(dir, "deploy.yaml"))
	require.NoError(t, err, stderr)
	assert.Contains(t, stripANSI(stdout), "Deployed shop")
	assert.Contains(t, stripANSI(stdout), "Current version: ")
}

func TestDeploy_AssetsAndSiteConflict(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"deploy.yaml": "name: x\nassets: public\nsite:\n  bucket: site\n"})

	_, _, err := runCLI(t, "deploy", "--config", filepath.Join(dir, "deploy.yaml"))
	assert.ErrorContains(t, err, "cannot use assets and sites")
}
