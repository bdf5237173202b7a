package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/similarity"
)

// qodoLogins and coderabbitLogins are the bot identities recognized for
// source classification. Anything else, including an empty author, is human.
var qodoLogins = map[string]bool{
	"qodo-merge-pro":      true,
	"qodo-merge-pro[bot]": true,
	"qodo-code":           true,
	"qodo-ai":             true,
}

var coderabbitLogins = map[string]bool{
	"coderabbitai":      true,
	"coderabbitai[bot]": true,
}

// highPriorityKeywords flag a comment as HIGH priority; checked before the
// low set so a body matching both stays HIGH.
var highPriorityKeywords = []string{
	"security", "vulnerab", "critical", "bug", "crash", "injection",
	"auth", "race condition", "leak", "panic", "overflow", "exploit",
	"data loss", "deadlock",
}

var lowPriorityKeywords = []string{
	"style", "typo", "nit", "cosmetic", "whitespace", "formatting",
	"naming", "spelling", "grammar", "readability", "doc comment",
}

// Categorizer classifies fetched comments by source and priority and
// auto-skips comments matching previously dismissed ones. The review store is
// injected at construction and may be nil, in which case auto-skip is
// disabled for the run.
type Categorizer struct {
	store     driven.ReviewStore
	threshold float64
}

// NewCategorizer creates a Categorizer. Pass a nil store to disable
// auto-skip.
func NewCategorizer(store driven.ReviewStore) *Categorizer {
	return &Categorizer{
		store:     store,
		threshold: similarity.DefaultThreshold,
	}
}

// Categorize enriches each comment with source and priority, applies
// auto-skip against the repository's dismissed-comment history, and buckets
// the results by source. Bucket membership is exhaustive and disjoint.
//
// A store failure disables auto-skip for the run with a warning; it never
// aborts categorization.
func (c *Categorizer) Categorize(ctx context.Context, owner, repo string, comments []model.Comment) (human, qodo, coderabbit []model.Comment) {
	dismissed := c.loadDismissedIndex(ctx, owner, repo)

	for _, comment := range comments {
		comment.Source = ClassifySource(comment.Author)
		comment.Priority = ClassifyPriority(comment.Body)
		if comment.Status == "" {
			comment.Status = model.StatusPending
		}

		if comment.Status == model.StatusPending && comment.Path != "" && comment.Body != "" {
			if match := similarity.BestMatch(dismissed[comment.Path], comment.Body, c.threshold); match != nil && match.SkipReason != "" {
				comment.Status = model.StatusSkipped
				comment.SkipReason = match.SkipReason
				comment.Reply = fmt.Sprintf(
					"Automatically skipped: a similar comment on this file was dismissed in a previous review. Reason: %s",
					match.SkipReason,
				)
				comment.AutoSkipped = true
			}
		}

		switch comment.Source {
		case model.SourceQodo:
			qodo = append(qodo, comment)
		case model.SourceCoderabbit:
			coderabbit = append(coderabbit, comment)
		default:
			human = append(human, comment)
		}
	}

	return human, qodo, coderabbit
}

// loadDismissedIndex fetches the repository's dismissed comments once and
// groups them by path. Returns an empty index when the store is unavailable.
func (c *Categorizer) loadDismissedIndex(ctx context.Context, owner, repo string) map[string][]model.Comment {
	index := map[string][]model.Comment{}

	if c.store == nil {
		return index
	}

	dismissed, err := c.store.GetDismissedComments(ctx, owner, repo)
	if err != nil {
		slog.Warn("review history unavailable, auto-skip disabled for this run",
			"error", err,
			"owner", owner,
			"repo", repo,
		)
		return index
	}

	for _, comment := range dismissed {
		if comment.Path != "" {
			index[comment.Path] = append(index[comment.Path], comment)
		}
	}

	return index
}

// ClassifySource maps a comment author to its source via the bot allow-lists.
func ClassifySource(author string) model.Source {
	login := strings.ToLower(author)
	switch {
	case qodoLogins[login]:
		return model.SourceQodo
	case coderabbitLogins[login]:
		return model.SourceCoderabbit
	default:
		return model.SourceHuman
	}
}

// ClassifyPriority assigns a priority from keyword matches in the body.
// High-severity keywords win over low-severity ones; no match means MEDIUM.
func ClassifyPriority(body string) model.Priority {
	lower := strings.ToLower(body)

	for _, kw := range highPriorityKeywords {
		if strings.Contains(lower, kw) {
			return model.PriorityHigh
		}
	}

	for _, kw := range lowPriorityKeywords {
		if strings.Contains(lower, kw) {
			return model.PriorityLow
		}
	}

	return model.PriorityMedium
}
