package assets

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsBuiltinExcluded(t *testing.T) {
	assert.True(t, IsBuiltinExcluded("node_modules"))
	assert.True(t, IsBuiltinExcluded(".git"))
	assert.True(t, IsBuiltinExcluded(".DS_Store"))
	assert.True(t, IsBuiltinExcluded(".assetsignore"))
	assert.False(t, IsBuiltinExcluded(".well-known"))
	assert.False(t, IsBuiltinExcluded("index.html"))
	assert.False(t, IsBuiltinExcluded("node_modules.txt"))
}

func TestIgnoreMatcher_NoFile(t *testing.T) {
	root := t.TempDir()
	m := LoadIgnoreMatcher(root, "")

	assert.False(t, m.HasIgnoreFile())
	assert.Equal(t, 0, m.Rules())
	assert.False(t, m.Ignored("index.html"))
	assert.False(t, m.IgnoredDir("css"))
}

func TestIgnoreMatcher_Rules(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		IgnoreFileName: `
# build leftovers
*.map
drafts/
!drafts/keep.html
/secret.txt
`,
	})

	m := LoadIgnoreMatcher(root, "")
	require.True(t, m.HasIgnoreFile())
	assert.Equal(t, 3, m.Rules(), "comments, blanks and negations are dropped")

	assert.True(t, m.Ignored("app.js.map"))
	assert.True(t, m.Ignored("js/deep/app.js.map"), "bare pattern matches at any depth")
	assert.True(t, m.IgnoredDir("drafts"))
	assert.True(t, m.Ignored("drafts/keep.html"), "negation is not supported")
	assert.True(t, m.Ignored("secret.txt"))
	assert.True(t, m.Ignored(IgnoreFileName), "the ignore file never uploads itself")

	assert.False(t, m.Ignored("app.js"))
	assert.False(t, m.Ignored("docs/secret.txt"), "anchored pattern only matches at the root")
}

func TestIgnoreMatcher_EmptyFileStillCounts(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{IgnoreFileName: ""})

	m := LoadIgnoreMatcher(root, "")
	assert.True(t, m.HasIgnoreFile())
	assert.Equal(t, 0, m.Rules())
	assert.False(t, m.Ignored("index.html"))
}

func TestIgnoreMatcher_CustomPath(t *testing.T) {
	root := t.TempDir()
	custom := filepath.Join(t.TempDir(), "deploy.ignore")
	require.NoError(t, os.WriteFile(custom, []byte("*.txt\n"), 0o644))

	m := LoadIgnoreMatcher(root, custom)
	assert.True(t, m.HasIgnoreFile())
	assert.True(t, m.Ignored("notes.txt"))
	assert.True(t, m.Ignored("deploy.ignore"))
}

func TestIgnoreMatcher_Nil(t *testing.T) {
	var m *IgnoreMatcher
	assert.False(t, m.HasIgnoreFile())
	assert.False(t, m.Ignored("a"))
	assert.False(t, m.IgnoredDir("a"))
}

func TestIncludeFilter(t *testing.T) {
	f, err := NewIncludeFilter([]string{"*.html", "static/**", " "})
	require.NoError(t, err)

	assert.True(t, f.Included("index.html"))
	assert.True(t, f.Included("docs/guide/intro.html"))
	assert.True(t, f.Included("static/img/logo.png"))
	assert.False(t, f.Included("js/app.js"))

	empty, err := NewIncludeFilter(nil)
	require.NoError(t, err)
	assert.True(t, empty.Included("anything/at/all.bin"))

	_, err = NewIncludeFilter([]string{"[unclosed"})
	assert.Error(t, err)
}

func TestPatternFilter_Exclude(t *testing.T) {
	f, err := NewPatternFilter(nil, []string{"*.map", "drafts/**"})
	require.NoError(t, err)

	assert.True(t, f.Included("app.js"))
	assert.False(t, f.Included("js/app.js.map"))
	assert.False(t, f.Included("drafts/a/b.html"))

	both, err := NewPatternFilter([]string{"*.html"}, []string{"private/**"})
	require.NoError(t, err)
	assert.True(t, both.Included("index.html"))
	assert.False(t, both.Included("private/index.html"), "exclude wins over include")
	assert.False(t, both.Included("app.js"))

	_, err = NewPatternFilter(nil, []string{"[unclosed"})
	assert.ErrorContains(t, err, "exclude")
}
