package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/similarity"
)

// Compile-time interface satisfaction check.
var _ driven.ReviewStore = (*HistoryRepo)(nil)

// HistoryRepo is the SQLite implementation of the ReviewStore port.
type HistoryRepo struct {
	db *DB
}

// NewHistoryRepo creates a HistoryRepo backed by the given DB. A DB opened
// with OpenReadOnly supports every method except StoreRun.
func NewHistoryRepo(db *DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

const dismissedStatuses = `('not_addressed', 'skipped')`

// GetDismissedComments returns all historical comments for the repository
// whose final status was not_addressed or skipped, ordered by (path, line).
func (r *HistoryRepo) GetDismissedComments(ctx context.Context, owner, repo string) ([]model.Comment, error) {
	const query = `
		SELECT c.thread_id, c.node_id, c.comment_id, c.author, c.path, c.line,
		       c.body, c.source, c.priority, c.status, c.reply, c.skip_reason,
		       c.posted_at, c.resolved_at
		FROM comments c
		JOIN reviews r ON r.id = c.review_id
		WHERE r.owner = ? AND r.repo = ? AND c.status IN ` + dismissedStatuses + `
		ORDER BY c.path, c.line
	`

	return r.queryComments(ctx, query, owner, repo)
}

// FindSimilarComment scores historical dismissed comments at the exact path
// against body and returns the best match at or above threshold, or nil.
// Candidates are ordered by id ascending so the first-wins tie-break is
// stable across runs.
func (r *HistoryRepo) FindSimilarComment(ctx context.Context, owner, repo, path, body string, threshold float64) (*model.Comment, error) {
	const query = `
		SELECT c.thread_id, c.node_id, c.comment_id, c.author, c.path, c.line,
		       c.body, c.source, c.priority, c.status, c.reply, c.skip_reason,
		       c.posted_at, c.resolved_at
		FROM comments c
		JOIN reviews r ON r.id = c.review_id
		WHERE r.owner = ? AND r.repo = ? AND c.path = ? AND c.status IN ` + dismissedStatuses + `
		ORDER BY c.id
	`

	candidates, err := r.queryComments(ctx, query, owner, repo, path)
	if err != nil {
		return nil, err
	}

	return similarity.BestMatch(candidates, body, threshold), nil
}

// StatsBySource aggregates comment outcomes grouped by source.
func (r *HistoryRepo) StatsBySource(ctx context.Context) ([]model.SourceStats, error) {
	const query = `
		SELECT source,
		       COUNT(*),
		       SUM(status = 'addressed'),
		       SUM(status = 'not_addressed'),
		       SUM(status = 'skipped')
		FROM comments
		GROUP BY source
		ORDER BY source
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stats by source: %w", err)
	}
	defer rows.Close()

	var stats []model.SourceStats
	for rows.Next() {
		var s model.SourceStats
		if err := rows.Scan(&s.Source, &s.Total, &s.Addressed, &s.NotAddressed, &s.Skipped); err != nil {
			return nil, fmt.Errorf("scan source stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source stats: %w", err)
	}

	return stats, nil
}

// StatsByReviewer aggregates comment outcomes grouped by comment author.
func (r *HistoryRepo) StatsByReviewer(ctx context.Context) ([]model.ReviewerStats, error) {
	const query = `
		SELECT COALESCE(author, ''),
		       COUNT(*),
		       SUM(status = 'addressed'),
		       SUM(status = 'not_addressed'),
		       SUM(status = 'skipped')
		FROM comments
		GROUP BY COALESCE(author, '')
		ORDER BY COUNT(*) DESC, COALESCE(author, '')
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stats by reviewer: %w", err)
	}
	defer rows.Close()

	var stats []model.ReviewerStats
	for rows.Next() {
		var s model.ReviewerStats
		if err := rows.Scan(&s.Author, &s.Total, &s.Addressed, &s.NotAddressed, &s.Skipped); err != nil {
			return nil, fmt.Errorf("scan reviewer stats: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reviewer stats: %w", err)
	}

	return stats, nil
}

// DuplicatePatterns clusters historical dismissed comments per path using
// single-linkage against each cluster's first member, and reports clusters
// with at least minOccurrences members. The representative reason is the most
// frequent non-empty dismissal reason within the cluster.
func (r *HistoryRepo) DuplicatePatterns(ctx context.Context, minOccurrences int) ([]model.DuplicatePattern, error) {
	const query = `
		SELECT c.path, c.body, COALESCE(c.skip_reason, '')
		FROM comments c
		WHERE c.path IS NOT NULL AND c.path != '' AND c.status IN ` + dismissedStatuses + `
		ORDER BY c.path, c.id
	`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query dismissed comments: %w", err)
	}
	defer rows.Close()

	type cluster struct {
		path    string
		first   string
		reasons map[string]int
		count   int
	}

	var clusters []*cluster
	for rows.Next() {
		var path, body, reason string
		if err := rows.Scan(&path, &body, &reason); err != nil {
			return nil, fmt.Errorf("scan dismissed comment: %w", err)
		}

		// A comment joins the first cluster in its path whose first member is
		// similar enough, else starts its own.
		var joined *cluster
		for _, cl := range clusters {
			if cl.path == path && similarity.Score(cl.first, body) >= similarity.DefaultThreshold {
				joined = cl
				break
			}
		}
		if joined == nil {
			joined = &cluster{path: path, first: body, reasons: map[string]int{}}
			clusters = append(clusters, joined)
		}

		joined.count++
		if reason != "" {
			joined.reasons[reason]++
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate dismissed comments: %w", err)
	}

	var patterns []model.DuplicatePattern
	for _, cl := range clusters {
		if cl.count < minOccurrences {
			continue
		}

		topReason := ""
		topCount := 0
		for reason, n := range cl.reasons {
			if n > topCount || (n == topCount && (topReason == "" || reason < topReason)) {
				topReason, topCount = reason, n
			}
		}

		patterns = append(patterns, model.DuplicatePattern{
			Path:        cl.path,
			Occurrences: cl.count,
			Example:     cl.first,
			Reason:      topReason,
		})
	}

	return patterns, nil
}

// StoreRun inserts one new Review row plus its comments in a single
// transaction and returns the new review ID. Append-only: a repeated
// (owner, repo, pr_number) still inserts a fresh row.
func (r *HistoryRepo) StoreRun(ctx context.Context, review model.Review, comments []model.Comment) (int64, error) {
	if r.db.Writer == nil {
		return 0, fmt.Errorf("store run: database opened read-only")
	}

	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin store transaction: %w", err)
	}
	defer tx.Rollback()

	createdAt := review.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	res, err := tx.ExecContext(ctx,
		`INSERT INTO reviews (owner, repo, pr_number, commit_sha, created_at) VALUES (?, ?, ?, ?, ?)`,
		review.Owner, review.Repo, review.PRNumber, review.CommitSHA, createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("insert review: %w", err)
	}

	reviewID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("review id: %w", err)
	}

	const insertComment = `
		INSERT INTO comments (
			review_id, source, thread_id, node_id, comment_id, author, path,
			line, body, priority, status, reply, skip_reason, posted_at, resolved_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, c := range comments {
		status := c.Status
		if status == "" {
			status = model.StatusPending
		}

		_, err := tx.ExecContext(ctx, insertComment,
			reviewID, string(c.Source),
			nullString(c.ThreadID), nullString(c.NodeID), nullInt64(c.CommentID),
			nullString(c.Author), nullString(c.Path), nullInt(c.Line),
			c.Body, nullString(string(c.Priority)), string(status),
			nullString(c.Reply), nullString(c.SkipReason),
			nullString(c.PostedAt), nullString(c.ResolvedAt),
		)
		if err != nil {
			return 0, fmt.Errorf("insert comment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit store transaction: %w", err)
	}

	return reviewID, nil
}

func (r *HistoryRepo) queryComments(ctx context.Context, query string, args ...any) ([]model.Comment, error) {
	rows, err := r.db.Reader.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	var comments []model.Comment
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, *comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanComment(s scanner) (*model.Comment, error) {
	var c model.Comment
	var threadID, nodeID, author, path, priority, reply, skipReason, postedAt, resolvedAt sql.NullString
	var commentID, line sql.NullInt64
	var source, status string

	err := s.Scan(
		&threadID, &nodeID, &commentID, &author, &path, &line,
		&c.Body, &source, &priority, &status, &reply, &skipReason,
		&postedAt, &resolvedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ThreadID = threadID.String
	c.NodeID = nodeID.String
	c.CommentID = commentID.Int64
	c.Author = author.String
	c.Path = path.String
	c.Line = int(line.Int64)
	c.Source = model.Source(source)
	c.Priority = model.Priority(priority.String)
	c.Status = model.Status(status)
	c.Reply = reply.String
	c.SkipReason = skipReason.String
	c.PostedAt = postedAt.String
	c.ResolvedAt = resolvedAt.String

	return &c, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(n int64) any {
	if n == 0 {
		return nil
	}
	return n
}

func nullInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
