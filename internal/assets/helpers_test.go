package assets

import (
	"context"
	"errors"
	"maps"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		abs := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
}

func removeTree(t *testing.T, root string, rels ...string) {
	t.Helper()
	for _, rel := range rels {
		require.NoError(t, os.RemoveAll(filepath.Join(root, filepath.FromSlash(rel))))
	}
}

func entryPaths(entries []*ManifestEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Path
	}
	return out
}

// memStore is an in-memory ObjectStore that records calls.
type memStore struct {
	objects map[string][]byte

	lists   int
	puts    int
	deletes int
	putKeys []string
	deleted []string

	failPutAt int // 1-based put call that fails, 0 never
	deleteErr error
}

func newMemStore() *memStore {
	return &memStore{objects: map[string][]byte{}}
}

func (s *memStore) ListKeys(ctx context.Context) ([]string, error) {
	s.lists++
	return slices.Sorted(maps.Keys(s.objects)), nil
}

func (s *memStore) BulkPut(ctx context.Context, entries []Entry) error {
	s.puts++
	if s.failPutAt == s.puts {
		return errors.New("bulk put: 500 internal error")
	}
	for _, e := range entries {
		s.objects[e.Key] = e.Content
		s.putKeys = append(s.putKeys, e.Key)
	}
	return nil
}

func (s *memStore) BulkDelete(ctx context.Context, keys []string) error {
	s.deletes++
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for _, k := range keys {
		delete(s.objects, k)
		s.deleted = append(s.deleted, k)
	}
	return nil
}

func (s *memStore) Descriptor() BindingDescriptor {
	return BindingDescriptor{Kind: "memory", Namespace: "test"}
}

// pathsOf strips the embedded fingerprint from upload keys so tests can compare paths.
func pathsOf(keys []string) []string {
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		dir, base := path.Split(k)
		parts := strings.Split(base, ".")
		if len(parts) >= 3 {
			parts = append(parts[:len(parts)-2], parts[len(parts)-1])
		} else if len(parts) == 2 {
			parts = parts[:1]
		}
		out = append(out, dir+strings.Join(parts, "."))
	}
	slices.Sort(out)
	return out
}

// memSession emulates the upload-session API: it groups missing hashes by a fixed
// count and issues a completion token with the last bucket.
type memSession struct {
	stored    map[Fingerprint][]byte
	perBucket int

	sessions int
	uploads  int
	tokens   []string

	failUploadAt int
	noCompletion bool
	extraHash    string
}

func newMemSession(perBucket int) *memSession {
	return &memSession{stored: map[Fingerprint][]byte{}, perBucket: perBucket}
}

func (s *memSession) CreateSession(ctx context.Context, m *Manifest) (*Session, error) {
	s.sessions++
	var (
		missing []string
		seen    = map[Fingerprint]bool{}
	)
	for _, e := range m.Entries() {
		if _, ok := s.stored[e.Hash]; ok || seen[e.Hash] {
			continue
		}
		seen[e.Hash] = true
		missing = append(missing, string(e.Hash))
	}
	if s.extraHash != "" {
		missing = append(missing, s.extraHash)
	}

	session := &Session{Token: "session-token"}
	for chunk := range slices.Chunk(missing, s.perBucket) {
		session.Buckets = append(session.Buckets, chunk)
	}
	return session, nil
}

func (s *memSession) UploadBucket(ctx context.Context, token string, files []UploadFile) (string, error) {
	s.uploads++
	s.tokens = append(s.tokens, token)
	if s.failUploadAt == s.uploads {
		return "", errors.New("upload: connection reset")
	}
	for _, f := range files {
		s.stored[f.Hash] = f.Content
	}
	if s.noCompletion {
		return "", nil
	}
	return "completion-token", nil
}
