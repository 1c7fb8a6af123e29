// Package storetest opens throwaway SQLite databases carrying the
// production schema, for tests of packages that talk to the store.
package storetest

import (
	"context"
	"database/sql"
	"fmt"
	"sync/atomic"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/iliyamo/event-ticket-reservation/internal/database"
)

var seq atomic.Int64

// Open returns a migrated in-memory database that is closed when the test
// ends.  A single connection is used so every statement sees the same
// in-memory database and transactions are serialized the way row locks
// serialize them in MySQL.
func Open(t testing.TB) *sql.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:storetest%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", seq.Add(1))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
