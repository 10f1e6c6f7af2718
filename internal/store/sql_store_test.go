package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/01moynul/orderdesk/internal/database"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// newTestSQLStore opens a migrated SQLite file under t.TempDir.
func newTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	ctx := context.Background()

	dsn := filepath.Join(t.TempDir(), "orders.db") + "?_pragma=busy_timeout(5000)"
	db, err := database.OpenDBWithDriver(ctx, "sqlite", dsn)
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(ctx, db, database.SQLite))

	s := NewSQLStore(db)
	t.Cleanup(func() { s.Close(ctx) })
	return s
}

func TestSQLStore(t *testing.T) {
	runStoreContract(t, newTestSQLStore(t))
}
