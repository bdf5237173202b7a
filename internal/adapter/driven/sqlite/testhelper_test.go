package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/myk-org/prreview/internal/domain/model"
)

// setupTestDB creates a named shared in-memory SQLite database for testing.
// Writer and reader connections share the same in-memory database via
// cache=shared; a unique name derived from t.Name() keeps parallel tests
// isolated.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	safeName := url.PathEscape(t.Name())
	// WAL mode is not applicable to in-memory databases; omit the
	// journal_mode pragma.
	dsn := fmt.Sprintf(
		"file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)&_pragma=foreign_keys(ON)",
		safeName,
	)

	writer, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("create test db writer: %v", err)
	}
	writer.SetMaxOpenConns(1)
	if err := writer.PingContext(context.Background()); err != nil {
		_ = writer.Close()
		t.Fatalf("ping test db writer: %v", err)
	}

	reader, err := sql.Open("sqlite", dsn)
	if err != nil {
		_ = writer.Close()
		t.Fatalf("create test db reader: %v", err)
	}
	reader.SetMaxOpenConns(4)
	if err := reader.PingContext(context.Background()); err != nil {
		_ = reader.Close()
		_ = writer.Close()
		t.Fatalf("ping test db reader: %v", err)
	}

	db := &DB{Writer: writer, Reader: reader, path: dsn}

	if err := RunMigrations(db.Writer); err != nil {
		_ = db.Close()
		t.Fatalf("run migrations: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })

	return db
}

// storeTestRun inserts one review run and returns its ID.
func storeTestRun(t *testing.T, repo *HistoryRepo, owner, name string, prNumber int, comments ...model.Comment) int64 {
	t.Helper()

	review := model.Review{
		Owner:     owner,
		Repo:      name,
		PRNumber:  prNumber,
		CommitSHA: "abc123",
		CreatedAt: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC),
	}

	id, err := repo.StoreRun(context.Background(), review, comments)
	require.NoError(t, err)
	require.NotZero(t, id)
	return id
}

// dismissed builds a dismissed comment fixture.
func dismissed(path string, line int, body, reason string) model.Comment {
	return model.Comment{
		Source:     model.SourceQodo,
		Author:     "qodo-merge-pro",
		Path:       path,
		Line:       line,
		Body:       body,
		Status:     model.StatusSkipped,
		SkipReason: reason,
	}
}
