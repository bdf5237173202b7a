package driven

import (
	"context"

	"github.com/myk-org/prreview/internal/domain/model"
)

// ReviewStore defines the driven port for the local review-history database.
// Read methods tolerate a missing database file by returning empty results;
// StoreRun is the only write path and is append-only.
type ReviewStore interface {
	// GetDismissedComments returns all historical comments for the repository
	// whose final status was not_addressed or skipped, ordered by (path, line).
	GetDismissedComments(ctx context.Context, owner, repo string) ([]model.Comment, error)

	// FindSimilarComment returns the historical dismissed comment at the exact
	// path whose body scores highest against body, provided the score is at
	// least threshold; nil when none qualifies.
	FindSimilarComment(ctx context.Context, owner, repo, path, body string, threshold float64) (*model.Comment, error)

	// StatsBySource aggregates comment outcomes grouped by source.
	StatsBySource(ctx context.Context) ([]model.SourceStats, error)

	// StatsByReviewer aggregates comment outcomes grouped by comment author.
	StatsByReviewer(ctx context.Context) ([]model.ReviewerStats, error)

	// DuplicatePatterns clusters historical dismissed comments per path and
	// reports clusters with at least minOccurrences members.
	DuplicatePatterns(ctx context.Context, minOccurrences int) ([]model.DuplicatePattern, error)

	// StoreRun inserts one new Review row plus its comments in a single
	// transaction and returns the new review ID. It never updates an existing
	// Review, even for a repeated (owner, repo, pr_number).
	StoreRun(ctx context.Context, review model.Review, comments []model.Comment) (int64, error)

	// Query executes a validated read-only SQL statement. Mutating statements
	// are rejected before reaching the database engine.
	Query(ctx context.Context, query string) (*model.QueryResult, error)
}
