package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/workfile"
)

// maxReplyLen caps reply bodies to respect the remote payload limit. Longer
// bodies are cut and marked.
const maxReplyLen = 60000

const truncationMarker = "\n\n[reply truncated]"

// PostReport summarizes one post run. Failed > 0 means the run should exit
// non-zero; re-running is safe and retries only the unfinished subset.
type PostReport struct {
	Resolved      int `json:"resolved"`
	Replied       int `json:"replied"`
	Pending       int `json:"pending"`
	NoIdentifier  int `json:"no_identifier"`
	AlreadyPosted int `json:"already_posted"`
	Failed        int `json:"failed"`
}

// PostService replies to and resolves decided review threads. Processing is
// idempotent: comments that already carry the relevant timestamps are
// skipped, so re-running after a partial failure retries only what is left.
type PostService struct {
	client driven.ThreadClient
	now    func() time.Time
}

// NewPostService creates a PostService.
func NewPostService(client driven.ThreadClient) *PostService {
	return &PostService{client: client, now: time.Now}
}

// Post walks every comment in the working file, posts replies and resolves
// threads according to the per-comment state machine, then writes the
// accumulated timestamp updates back to path atomically. Individual comment
// failures are counted, never fatal for the batch.
func (s *PostService) Post(ctx context.Context, f *workfile.File, path string) (*PostReport, error) {
	report := &PostReport{}
	var updates []workfile.TimestampUpdate

	for _, category := range workfile.Categories() {
		bucket := f.Bucket(category)
		for i := range *bucket {
			updates = append(updates, s.processComment(ctx, f, category, i, (*bucket)[i], report)...)
		}
	}

	for _, u := range updates {
		if err := f.ApplyUpdate(u); err != nil {
			slog.Warn("skipping invalid timestamp update", "error", err)
		}
	}

	if err := f.Save(path); err != nil {
		return report, fmt.Errorf("write back working file: %w", err)
	}

	return report, nil
}

// processComment runs the state machine for one comment and returns the
// timestamp updates earned by the remote actions that succeeded.
func (s *PostService) processComment(ctx context.Context, f *workfile.File, category string, index int, comment model.Comment, report *PostReport) []workfile.TimestampUpdate {
	switch {
	case comment.Status == model.StatusPending || comment.Status == "":
		// Not yet decided; leave untouched.
		report.Pending++
		return nil

	case comment.PostedAt != "" && comment.ResolvedAt != "":
		report.AlreadyPosted++
		return nil

	case comment.PostedAt != "":
		// Reply already went out; only resolution is outstanding. Threads the
		// policy wants left open are already complete.
		if !shouldResolve(comment) {
			report.AlreadyPosted++
			return nil
		}
		return s.resolveOnly(ctx, f, category, index, comment, report)

	default:
		return s.postAndResolve(ctx, f, category, index, comment, report)
	}
}

func (s *PostService) resolveOnly(ctx context.Context, f *workfile.File, category string, index int, comment model.Comment, report *PostReport) []workfile.TimestampUpdate {
	threadID, ok := s.threadID(ctx, f, comment)
	if !ok {
		slog.Warn("no usable identifier, cannot resolve", "category", category, "index", index, "path", comment.Path)
		report.NoIdentifier++
		return nil
	}

	if err := s.client.ResolveThread(ctx, threadID); err != nil {
		slog.Warn("resolve retry failed", "thread_id", threadID, "error", err)
		report.Failed++
		return nil
	}

	report.Resolved++
	return []workfile.TimestampUpdate{
		{Category: category, Index: index, Field: "resolved_at", Value: s.timestamp()},
	}
}

func (s *PostService) postAndResolve(ctx context.Context, f *workfile.File, category string, index int, comment model.Comment, report *PostReport) []workfile.TimestampUpdate {
	threadID, ok := s.threadID(ctx, f, comment)
	if !ok {
		slog.Warn("no usable identifier, skipping comment", "category", category, "index", index, "path", comment.Path)
		report.NoIdentifier++
		return nil
	}

	reply := composeReply(comment)
	if err := s.client.ReplyToThread(ctx, threadID, reply); err != nil {
		slog.Warn("reply failed", "thread_id", threadID, "error", err)
		report.Failed++
		return nil
	}

	updates := []workfile.TimestampUpdate{
		{Category: category, Index: index, Field: "posted_at", Value: s.timestamp()},
	}

	if !shouldResolve(comment) {
		// Human threads not marked addressed stay open for reviewer follow-up.
		report.Replied++
		return updates
	}

	if err := s.client.ResolveThread(ctx, threadID); err != nil {
		slog.Warn("resolve failed after reply", "thread_id", threadID, "error", err)
		report.Failed++
		return updates
	}

	report.Resolved++
	return append(updates, workfile.TimestampUpdate{
		Category: category, Index: index, Field: "resolved_at", Value: s.timestamp(),
	})
}

// threadID returns the comment's thread identifier, deriving it from the
// node ID when absent.
func (s *PostService) threadID(ctx context.Context, f *workfile.File, comment model.Comment) (string, bool) {
	if comment.ThreadID != "" {
		return comment.ThreadID, true
	}

	if comment.NodeID != "" {
		id, err := s.client.ThreadIDForComment(ctx, f.Metadata.Owner, f.Metadata.Repo, f.Metadata.PRNumber, comment.NodeID)
		if err != nil {
			slog.Warn("thread lookup by node id failed", "node_id", comment.NodeID, "error", err)
			return "", false
		}
		if id != "" {
			return id, true
		}
	}

	return "", false
}

func (s *PostService) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// shouldResolve implements the resolution policy: AI-sourced threads are
// always resolved after a successful post; human threads only when the
// comment was actually addressed.
func shouldResolve(comment model.Comment) bool {
	return comment.Source.IsBot() || comment.Status == model.StatusAddressed
}

// composeReply returns the reply text to post, preferring an explicit reply
// and falling back to a status-based default.
func composeReply(comment model.Comment) string {
	reply := comment.Reply
	if reply == "" {
		switch comment.Status {
		case model.StatusSkipped:
			if comment.SkipReason != "" {
				reply = "Skipped: " + comment.SkipReason
			} else {
				reply = "Skipped."
			}
		case model.StatusNotAddressed:
			reply = "Not addressed - see reply for details."
		default:
			reply = "Addressed."
		}
	}

	if len(reply) > maxReplyLen {
		reply = reply[:maxReplyLen] + truncationMarker
	}

	return reply
}
