package driven

import (
	"context"

	"github.com/myk-org/prreview/internal/domain/model"
)

// ThreadClient defines the driven port for the remote review-thread service.
// Fetch methods return normalized Comment records (thread's first comment as
// the primary record, the rest as replies); write methods mutate thread state.
type ThreadClient interface {
	// FetchUnresolvedThreads pages through the PR's review threads and returns
	// the unresolved ones. A page failure stops fetching and returns the
	// threads collected so far rather than failing the whole call.
	FetchUnresolvedThreads(ctx context.Context, owner, repo string, prNumber int) ([]model.Comment, error)

	// FetchReviewComments returns the comments belonging to one specific
	// review, via a single non-paginated lookup.
	FetchReviewComments(ctx context.Context, owner, repo string, prNumber int, reviewID int64) ([]model.Comment, error)

	// ReplyToThread posts a reply on the given review thread.
	ReplyToThread(ctx context.Context, threadID, body string) error

	// ResolveThread marks the given review thread as resolved.
	ResolveThread(ctx context.Context, threadID string) error

	// ThreadIDForComment looks up the thread containing the comment with the
	// given node ID. Returns empty string when no thread matches.
	ThreadIDForComment(ctx context.Context, owner, repo string, prNumber int, nodeID string) (string, error)
}
