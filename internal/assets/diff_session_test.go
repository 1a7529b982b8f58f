package assets

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionManifest(t *testing.T, files map[string]string) *Manifest {
	t.Helper()
	root := t.TempDir()
	writeTree(t, root, files)
	m, err := BuildManifest(t.Context(), root, ManifestOptions{Keys: KeyByHash})
	require.NoError(t, err)
	return m
}

func TestSessionProtocol_Negotiate(t *testing.T) {
	m := sessionManifest(t, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c", "dup.txt": "a"})
	a, _ := m.Lookup("a.txt")

	remote := newMemSession(1)
	remote.stored[a.Hash] = []byte("a")

	proto := NewSessionProtocol(remote, DefaultLimits())
	plan, err := proto.Negotiate(t.Context(), m)
	require.NoError(t, err)

	assert.Equal(t, "session-token", plan.Token)
	assert.Equal(t, []string{"a.txt", "dup.txt"}, entryPaths(plan.Unchanged))
	assert.Equal(t, []string{"b.txt", "c.txt"}, entryPaths(plan.Pending))
	require.Len(t, plan.Buckets, 2)
	assert.Equal(t, 1, plan.Buckets[1].Index)
}

func TestSessionProtocol_UnknownHash(t *testing.T) {
	m := sessionManifest(t, map[string]string{"a.txt": "a"})
	remote := newMemSession(10)
	remote.extraHash = "ffffffffffffffffffffffffffffffff"

	_, err := NewSessionProtocol(remote, DefaultLimits()).Negotiate(t.Context(), m)
	require.ErrorIs(t, err, ErrUnknownHash)

	var nerr *NegotiationError
	require.True(t, errors.As(err, &nerr))
	assert.Contains(t, err.Error(), remote.extraHash)
}

func TestSessionProtocol_NothingToUpload(t *testing.T) {
	m := sessionManifest(t, map[string]string{"a.txt": "a"})
	a, _ := m.Lookup("a.txt")
	remote := newMemSession(10)
	remote.stored[a.Hash] = []byte("a")

	proto := NewSessionProtocol(remote, DefaultLimits())
	plan, err := proto.Negotiate(t.Context(), m)
	require.NoError(t, err)
	assert.Empty(t, plan.Buckets)

	result, err := proto.Finalize(t.Context(), plan)
	require.NoError(t, err)
	assert.Equal(t, "session-token", result.Credential, "the session token is the credential")
	assert.Equal(t, 0, remote.uploads)
}

func TestSessionProtocol_CompletionToken(t *testing.T) {
	m := sessionManifest(t, map[string]string{"a.txt": "a", "b.txt": "b"})
	remote := newMemSession(1)

	proto := NewSessionProtocol(remote, DefaultLimits())
	plan, err := proto.Negotiate(t.Context(), m)
	require.NoError(t, err)

	for _, b := range plan.Buckets {
		require.NoError(t, proto.UploadBucket(t.Context(), plan, b))
	}
	assert.Equal(t, []string{"session-token", "session-token"}, remote.tokens)

	result, err := proto.Finalize(t.Context(), plan)
	require.NoError(t, err)
	assert.Equal(t, "completion-token", result.Credential)
	assert.Nil(t, result.Binding)
}

func TestSessionProtocol_MissingCompletion(t *testing.T) {
	m := sessionManifest(t, map[string]string{"a.txt": "a"})
	remote := newMemSession(1)
	remote.noCompletion = true

	proto := NewSessionProtocol(remote, DefaultLimits())
	plan, err := proto.Negotiate(t.Context(), m)
	require.NoError(t, err)
	require.NoError(t, proto.UploadBucket(t.Context(), plan, plan.Buckets[0]))

	_, err = proto.Finalize(t.Context(), plan)
	var cerr *CredentialError
	require.True(t, errors.As(err, &cerr))
	assert.ErrorIs(t, err, ErrMissingToken)
}

func TestSessionProtocol_ExpiredToken(t *testing.T) {
	m := sessionManifest(t, map[string]string{"a.txt": "a"})
	remote := newMemSession(1)
	remote.failUploadAt = 1

	proto := NewSessionProtocol(remote, DefaultLimits())
	proto.TokenExpired = func(token string) bool { return token == "session-token" }
	plan, err := proto.Negotiate(t.Context(), m)
	require.NoError(t, err)

	err = proto.UploadBucket(t.Context(), plan, plan.Buckets[0])
	assert.ErrorIs(t, err, ErrTokenExpired)
}
