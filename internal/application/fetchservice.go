package application

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/workfile"
)

// reviewURLPattern matches a PR review URL such as
// https://github.com/owner/repo/pull/123#pullrequestreview-456789
var reviewURLPattern = regexp.MustCompile(`github\.com/([^/]+)/([^/]+)/pull/(\d+)#pullrequestreview-(\d+)`)

// ReviewRef identifies one specific review parsed from a URL.
type ReviewRef struct {
	Owner    string
	Repo     string
	PRNumber int
	ReviewID int64
}

// ParseReviewURL extracts owner, repo, PR number, and review ID from a PR
// review URL.
func ParseReviewURL(url string) (*ReviewRef, error) {
	m := reviewURLPattern.FindStringSubmatch(url)
	if m == nil {
		return nil, fmt.Errorf("cannot parse review URL %q", url)
	}

	prNumber, err := strconv.Atoi(m[3])
	if err != nil {
		return nil, fmt.Errorf("invalid PR number in %q: %w", url, err)
	}

	reviewID, err := strconv.ParseInt(m[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid review ID in %q: %w", url, err)
	}

	return &ReviewRef{Owner: m[1], Repo: m[2], PRNumber: prNumber, ReviewID: reviewID}, nil
}

// FetchService retrieves unresolved review threads, categorizes them, and
// produces the working file for the current run.
type FetchService struct {
	client driven.ThreadClient
	cat    *Categorizer
}

// NewFetchService creates a FetchService.
func NewFetchService(client driven.ThreadClient, cat *Categorizer) *FetchService {
	return &FetchService{client: client, cat: cat}
}

// Fetch returns a working file holding the PR's unresolved threads bucketed
// by source. When reviewID is non-zero, that review's comments are fetched
// directly and merged into the paginated thread set with key-based
// deduplication.
func (s *FetchService) Fetch(ctx context.Context, owner, repo string, prNumber int, reviewID int64) (*workfile.File, error) {
	threads, err := s.client.FetchUnresolvedThreads(ctx, owner, repo, prNumber)
	if err != nil {
		return nil, fmt.Errorf("fetch unresolved threads: %w", err)
	}

	if reviewID != 0 {
		extra, err := s.client.FetchReviewComments(ctx, owner, repo, prNumber, reviewID)
		if err != nil {
			slog.Warn("review comment fetch failed, continuing with thread results only",
				"error", err,
				"review_id", reviewID,
			)
		} else {
			threads = MergeByKey(threads, extra)
		}
	}

	human, qodo, coderabbit := s.cat.Categorize(ctx, owner, repo, threads)

	return &workfile.File{
		Metadata: workfile.Metadata{
			Owner:    owner,
			Repo:     repo,
			PRNumber: prNumber,
		},
		Human:      human,
		Qodo:       qodo,
		Coderabbit: coderabbit,
	}, nil
}

// MergeByKey appends the comments from extra that are not already present in
// base, following the identifying-key precedence (thread_id, then node_id,
// then comment_id). A thread record and a direct review-comment record for
// the same remark carry different primary keys, so membership is checked
// against every identifier a base entry exposes. Entries already present are
// never replaced; keyless extras are dropped since they cannot be
// deduplicated or acted on.
func MergeByKey(base, extra []model.Comment) []model.Comment {
	seen := make(map[model.CommentKey]bool, len(base))
	for _, c := range base {
		for _, key := range allKeys(c) {
			seen[key] = true
		}
	}

	merged := base
	for _, c := range extra {
		keys := allKeys(c)
		if len(keys) == 0 {
			slog.Warn("dropping comment without any identifier during merge", "path", c.Path)
			continue
		}

		present := false
		for _, key := range keys {
			if seen[key] {
				present = true
				break
			}
		}
		if present {
			continue
		}

		for _, key := range keys {
			seen[key] = true
		}
		merged = append(merged, c)
	}

	return merged
}

// allKeys returns every identifier key the comment exposes, in precedence
// order.
func allKeys(c model.Comment) []model.CommentKey {
	var keys []model.CommentKey
	if c.ThreadID != "" {
		keys = append(keys, model.CommentKey{Kind: model.KeyKindThread, Value: c.ThreadID})
	}
	if c.NodeID != "" {
		keys = append(keys, model.CommentKey{Kind: model.KeyKindNode, Value: c.NodeID})
	}
	if c.CommentID != 0 {
		keys = append(keys, model.CommentKey{Kind: model.KeyKindComment, Value: strconv.FormatInt(c.CommentID, 10)})
	}
	return keys
}
