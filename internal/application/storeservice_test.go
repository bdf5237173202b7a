package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/workfile"
)

func TestStore_PersistsRunAndRemovesFile(t *testing.T) {
	f := newTestFile(
		model.Comment{Source: model.SourceHuman, ThreadID: "T1", Body: "human", Status: model.StatusAddressed},
		model.Comment{Source: model.SourceQodo, ThreadID: "T2", Body: "bot", Status: model.StatusSkipped},
	)
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, f.Save(path))

	store := &fakeStore{}
	reviewID, count, err := NewStoreService(store).Store(context.Background(), f, path, "abc123")
	require.NoError(t, err)

	assert.Equal(t, int64(42), reviewID)
	assert.Equal(t, 2, count)
	assert.Equal(t, "octocat", store.storedReview.Owner)
	assert.Equal(t, "abc123", store.storedReview.CommitSHA)
	assert.False(t, store.storedReview.CreatedAt.IsZero())

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "working file should be removed after a successful store")
}

func TestStore_SetsSourceFromBucket(t *testing.T) {
	f := &workfile.File{
		Metadata:   workfile.Metadata{Owner: "o", Repo: "r", PRNumber: 1},
		Human:      []model.Comment{{ThreadID: "T1", Body: "a"}},
		Qodo:       []model.Comment{{ThreadID: "T2", Body: "b"}},
		Coderabbit: []model.Comment{{ThreadID: "T3", Body: "c"}},
	}
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, f.Save(path))

	store := &fakeStore{}
	_, _, err := NewStoreService(store).Store(context.Background(), f, path, "")
	require.NoError(t, err)

	sources := map[string]model.Source{}
	for _, c := range store.storedComments {
		sources[c.ThreadID] = c.Source
	}
	assert.Equal(t, model.SourceHuman, sources["T1"])
	assert.Equal(t, model.SourceQodo, sources["T2"])
	assert.Equal(t, model.SourceCoderabbit, sources["T3"])
}

func TestStore_FailureLeavesFileIntact(t *testing.T) {
	f := newTestFile(
		model.Comment{Source: model.SourceHuman, ThreadID: "T1", Body: "human", Status: model.StatusAddressed},
	)
	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, f.Save(path))

	store := &fakeStore{storeErr: errors.New("disk full")}
	_, _, err := NewStoreService(store).Store(context.Background(), f, path, "abc123")
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.NoError(t, statErr, "working file must survive a failed store for retry")
}
