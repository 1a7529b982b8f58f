package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `CREATE TABLE IF NOT EXISTS t (id INTEGER PRIMARY KEY, v TEXT NOT NULL);`

func TestOpen_MemoryWithSchema(t *testing.T) {
	database, err := Open(WithSchema(testSchema))
	require.NoError(t, err)
	defer database.Close()

	_, err = database.Exec("INSERT INTO t (v) VALUES (?)", "a")
	require.NoError(t, err)

	var n int
	require.NoError(t, database.Get(&n, "SELECT COUNT(*) FROM t"))
	assert.Equal(t, 1, n)
}

func TestOpen_FileCreatesParent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "state.db")

	database, err := Open(WithPath(dbPath), WithSchema(testSchema))
	require.NoError(t, err)
	defer database.Close()

	assert.DirExists(t, filepath.Dir(dbPath))
	assert.FileExists(t, dbPath)
}

func TestOpen_BadSchema(t *testing.T) {
	_, err := Open(WithSchema("CREATE TABLE ("))
	assert.ErrorContains(t, err, "apply schema")
}

func TestWithTx(t *testing.T) {
	database, err := Open(WithSchema(testSchema))
	require.NoError(t, err)
	defer database.Close()

	err = WithTx(t.Context(), database, func(tx *sqlx.Tx) error {
		_, err := tx.Exec("INSERT INTO t (v) VALUES ('kept')")
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = WithTx(t.Context(), database, func(tx *sqlx.Tx) error {
		if _, err := tx.Exec("INSERT INTO t (v) VALUES ('dropped')"); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var values []string
	require.NoError(t, database.Select(&values, "SELECT v FROM t"))
	assert.Equal(t, []string{"kept"}, values)
}
