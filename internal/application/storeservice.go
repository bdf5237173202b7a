package application

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
	"github.com/myk-org/prreview/internal/workfile"
)

// StoreService persists a completed review run into the history database.
type StoreService struct {
	store driven.ReviewStore
}

// NewStoreService creates a StoreService.
func NewStoreService(store driven.ReviewStore) *StoreService {
	return &StoreService{store: store}
}

// Store inserts the working file's comments as one new Review row and, only
// after the transaction commits, deletes the working file. A store failure
// leaves the file intact so the step can be retried.
func (s *StoreService) Store(ctx context.Context, f *workfile.File, path, commitSHA string) (int64, int, error) {
	var comments []model.Comment
	for _, category := range workfile.Categories() {
		source := model.Source(category)
		for _, comment := range *f.Bucket(category) {
			comment.Source = source
			comments = append(comments, comment)
		}
	}

	review := model.Review{
		Owner:     f.Metadata.Owner,
		Repo:      f.Metadata.Repo,
		PRNumber:  f.Metadata.PRNumber,
		CommitSHA: commitSHA,
		CreatedAt: time.Now().UTC(),
	}

	reviewID, err := s.store.StoreRun(ctx, review, comments)
	if err != nil {
		return 0, 0, fmt.Errorf("store review run: %w", err)
	}

	if err := os.Remove(path); err != nil {
		return reviewID, len(comments), fmt.Errorf("review stored but working file not removed: %w", err)
	}

	return reviewID, len(comments), nil
}
