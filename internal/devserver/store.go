package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudflare/workers-sdk-sub005/internal/cfapi"
	"github.com/cloudflare/workers-sdk-sub005/internal/db"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNamespaceExists   = errors.New("namespace title already in use")
	ErrNamespaceNotFound = errors.New("namespace not found")
	ErrSessionNotFound   = errors.New("upload session not found")
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS namespaces (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS kv (
	namespace_id TEXT NOT NULL REFERENCES namespaces(id) ON DELETE CASCADE,
	key TEXT NOT NULL,
	value BLOB NOT NULL,
	PRIMARY KEY (namespace_id, key)
);

CREATE TABLE IF NOT EXISTS assets (
	hash TEXT PRIMARY KEY,
	content BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	script TEXT NOT NULL,
	manifest TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS session_pending (
	session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	hash TEXT NOT NULL,
	PRIMARY KEY (session_id, hash)
);

CREATE TABLE IF NOT EXISTS scripts (
	name TEXT PRIMARY KEY,
	version_id TEXT NOT NULL,
	metadata TEXT NOT NULL,
	manifest TEXT NOT NULL DEFAULT ''
);
`

// Store keeps the emulated control-plane state in sqlite
type Store struct {
	db *sqlx.DB
}

func NewStore(path string) (*Store, error) {
	opts := []db.Option{db.WithSchema(schemaSQL)}
	if path != "" {
		opts = append(opts, db.WithPath(path))
	}

	conn, err := db.Open(opts...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return &Store{db: conn}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ListNamespaces(ctx context.Context, offset, limit int) ([]cfapi.Namespace, error) {
	var out []cfapi.Namespace
	err := s.db.SelectContext(ctx, &out,
		"SELECT id, title FROM namespaces ORDER BY title LIMIT ? OFFSET ?", limit, offset)
	return out, err
}

func (s *Store) CreateNamespace(ctx context.Context, title string) (*cfapi.Namespace, error) {
	ns := &cfapi.Namespace{ID: strings.ReplaceAll(uuid.NewString(), "-", ""), Title: title}
	_, err := s.db.ExecContext(ctx, "INSERT INTO namespaces (id, title) VALUES (?, ?)", ns.ID, ns.Title)
	if err != nil {
		var n int
		if qerr := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM namespaces WHERE title = ?", title); qerr == nil && n > 0 {
			return nil, ErrNamespaceExists
		}
		return nil, err
	}
	return ns, nil
}

func (s *Store) namespaceExists(ctx context.Context, id string) error {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM namespaces WHERE id = ?", id); err != nil {
		return err
	}
	if n == 0 {
		return ErrNamespaceNotFound
	}
	return nil
}

// ListKeys returns up to limit keys after cursor. The returned cursor is empty on the
// last page
func (s *Store) ListKeys(ctx context.Context, namespaceID, prefix, cursor string, limit int) ([]string, string, error) {
	if err := s.namespaceExists(ctx, namespaceID); err != nil {
		return nil, "", err
	}

	var keys []string
	err := s.db.SelectContext(ctx, &keys, `
		SELECT key FROM kv
		WHERE namespace_id = ? AND key > ? AND substr(key, 1, ?) = ?
		ORDER BY key LIMIT ?`,
		namespaceID, cursor, len(prefix), prefix, limit+1)
	if err != nil {
		return nil, "", err
	}

	if len(keys) > limit {
		keys = keys[:limit]
		return keys, keys[limit-1], nil
	}
	return keys, "", nil
}

func (s *Store) GetValue(ctx context.Context, namespaceID, key string) ([]byte, error) {
	var value []byte
	err := s.db.GetContext(ctx, &value, "SELECT value FROM kv WHERE namespace_id = ? AND key = ?", namespaceID, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return value, err
}

type kvPair struct {
	Key   string
	Value []byte
}

func (s *Store) PutValues(ctx context.Context, namespaceID string, pairs []kvPair) error {
	if err := s.namespaceExists(ctx, namespaceID); err != nil {
		return err
	}

	return db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, "INSERT OR REPLACE INTO kv (namespace_id, key, value) VALUES (?, ?, ?)")
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range pairs {
			if _, err := stmt.ExecContext(ctx, namespaceID, p.Key, p.Value); err != nil {
				return fmt.Errorf("put %s: %w", p.Key, err)
			}
		}
		return nil
	})
}

func (s *Store) DeleteKeys(ctx context.Context, namespaceID string, keys []string) error {
	if err := s.namespaceExists(ctx, namespaceID); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	query, args, err := sqlx.In("DELETE FROM kv WHERE namespace_id = ? AND key IN (?)", namespaceID, keys)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	return err
}

// MissingHashes returns the hashes with no stored content, in input order
func (s *Store) MissingHashes(ctx context.Context, hashes []string) ([]string, error) {
	if len(hashes) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT hash FROM assets WHERE hash IN (?)", hashes)
	if err != nil {
		return nil, err
	}
	var present []string
	if err := s.db.SelectContext(ctx, &present, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}

	have := make(map[string]struct{}, len(present))
	for _, h := range present {
		have[h] = struct{}{}
	}

	var missing []string
	for _, h := range hashes {
		if _, ok := have[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing, nil
}

type assetRow struct {
	Hash        string `db:"hash"`
	Content     []byte `db:"content"`
	ContentType string `db:"content_type"`
}

func (s *Store) GetAsset(ctx context.Context, hash string) (*assetRow, error) {
	var row assetRow
	err := s.db.GetContext(ctx, &row, "SELECT hash, content, content_type FROM assets WHERE hash = ?", hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &row, err
}

func (s *Store) CreateSession(ctx context.Context, script, manifest string, pending []string) (string, error) {
	id := uuid.NewString()
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO sessions (id, script, manifest) VALUES (?, ?, ?)", id, script, manifest); err != nil {
			return err
		}
		for _, h := range pending {
			if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO session_pending (session_id, hash) VALUES (?, ?)", id, h); err != nil {
				return err
			}
		}
		return nil
	})
	return id, err
}

// SessionManifest returns the script and manifest a session was opened with
func (s *Store) SessionManifest(ctx context.Context, id string) (script, manifest string, err error) {
	row := struct {
		Script   string `db:"script"`
		Manifest string `db:"manifest"`
	}{}
	err = s.db.GetContext(ctx, &row, "SELECT script, manifest FROM sessions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", "", ErrSessionNotFound
	}
	return row.Script, row.Manifest, err
}

// IsPending reports whether the session still waits for hash
func (s *Store) IsPending(ctx context.Context, sessionID, hash string) (bool, error) {
	var n int
	err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM session_pending WHERE session_id = ? AND hash = ?", sessionID, hash)
	return n > 0, err
}

// StoreAssets saves uploaded content and returns how many hashes the session still
// waits for
func (s *Store) StoreAssets(ctx context.Context, sessionID string, rows []assetRow) (int, error) {
	var remaining int
	err := db.WithTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for _, r := range rows {
			if _, err := tx.ExecContext(ctx,
				"INSERT OR REPLACE INTO assets (hash, content, content_type) VALUES (?, ?, ?)",
				r.Hash, r.Content, r.ContentType); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"DELETE FROM session_pending WHERE session_id = ? AND hash = ?", sessionID, r.Hash); err != nil {
				return err
			}
		}
		return tx.GetContext(ctx, &remaining, "SELECT COUNT(*) FROM session_pending WHERE session_id = ?", sessionID)
	})
	return remaining, err
}

type scriptRow struct {
	Name      string `db:"name"`
	VersionID string `db:"version_id"`
	Metadata  string `db:"metadata"`
	Manifest  string `db:"manifest"`
}

func (s *Store) PutScript(ctx context.Context, row *scriptRow) error {
	_, err := s.db.NamedExecContext(ctx,
		`INSERT OR REPLACE INTO scripts (name, version_id, metadata, manifest)
		VALUES (:name, :version_id, :metadata, :manifest)`, row)
	return err
}

func (s *Store) GetScript(ctx context.Context, name string) (*scriptRow, error) {
	var row scriptRow
	err := s.db.GetContext(ctx, &row, "SELECT name, version_id, metadata, manifest FROM scripts WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return &row, err
}
