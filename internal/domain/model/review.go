package model

import "time"

// Review represents one PR-review run persisted to the history store.
// Rows are append-only: reviewing the same PR again at a different commit
// inserts a new Review rather than updating an existing one.
type Review struct {
	ID        int64
	Owner     string
	Repo      string
	PRNumber  int
	CommitSHA string
	CreatedAt time.Time
}
