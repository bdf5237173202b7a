package application

import (
	"context"
	"errors"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
)

// fakeThreadClient records calls and returns canned data.
type fakeThreadClient struct {
	threads        []model.Comment
	reviewComments []model.Comment
	threadIDByNode map[string]string

	fetchErr       error
	reviewErr      error
	replyErrFor    map[string]error
	resolveErrFor  map[string]error

	fetchCalls   int
	reviewCalls  int
	replyCalls   []string
	resolveCalls []string
	lookupCalls  int
}

var _ driven.ThreadClient = (*fakeThreadClient)(nil)

func (f *fakeThreadClient) FetchUnresolvedThreads(_ context.Context, _, _ string, _ int) ([]model.Comment, error) {
	f.fetchCalls++
	return f.threads, f.fetchErr
}

func (f *fakeThreadClient) FetchReviewComments(_ context.Context, _, _ string, _ int, _ int64) ([]model.Comment, error) {
	f.reviewCalls++
	return f.reviewComments, f.reviewErr
}

func (f *fakeThreadClient) ReplyToThread(_ context.Context, threadID, _ string) error {
	f.replyCalls = append(f.replyCalls, threadID)
	if err := f.replyErrFor[threadID]; err != nil {
		return err
	}
	return nil
}

func (f *fakeThreadClient) ResolveThread(_ context.Context, threadID string) error {
	f.resolveCalls = append(f.resolveCalls, threadID)
	if err := f.resolveErrFor[threadID]; err != nil {
		return err
	}
	return nil
}

func (f *fakeThreadClient) ThreadIDForComment(_ context.Context, _, _ string, _ int, nodeID string) (string, error) {
	f.lookupCalls++
	return f.threadIDByNode[nodeID], nil
}

func (f *fakeThreadClient) remoteCalls() int {
	return len(f.replyCalls) + len(f.resolveCalls) + f.lookupCalls
}

// fakeStore serves a fixed dismissed-comment list and records StoreRun
// calls; the remaining methods are unused by the services under test.
type fakeStore struct {
	dismissed []model.Comment
	err       error
	calls     int

	storeErr       error
	storedReview   model.Review
	storedComments []model.Comment
}

var _ driven.ReviewStore = (*fakeStore)(nil)

func (f *fakeStore) GetDismissedComments(_ context.Context, _, _ string) ([]model.Comment, error) {
	f.calls++
	return f.dismissed, f.err
}

func (f *fakeStore) FindSimilarComment(_ context.Context, _, _, _, _ string, _ float64) (*model.Comment, error) {
	return nil, errors.New("not implemented in fake")
}

func (f *fakeStore) StatsBySource(_ context.Context) ([]model.SourceStats, error) {
	return nil, errors.New("not implemented in fake")
}

func (f *fakeStore) StatsByReviewer(_ context.Context) ([]model.ReviewerStats, error) {
	return nil, errors.New("not implemented in fake")
}

func (f *fakeStore) DuplicatePatterns(_ context.Context, _ int) ([]model.DuplicatePattern, error) {
	return nil, errors.New("not implemented in fake")
}

func (f *fakeStore) StoreRun(_ context.Context, review model.Review, comments []model.Comment) (int64, error) {
	if f.storeErr != nil {
		return 0, f.storeErr
	}
	f.storedReview = review
	f.storedComments = comments
	return 42, nil
}

func (f *fakeStore) Query(_ context.Context, _ string) (*model.QueryResult, error) {
	return nil, errors.New("not implemented in fake")
}
