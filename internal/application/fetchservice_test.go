package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myk-org/prreview/internal/domain/model"
)

func TestParseReviewURL(t *testing.T) {
	ref, err := ParseReviewURL("https://github.com/octocat/hello-world/pull/42#pullrequestreview-123456")
	require.NoError(t, err)
	assert.Equal(t, "octocat", ref.Owner)
	assert.Equal(t, "hello-world", ref.Repo)
	assert.Equal(t, 42, ref.PRNumber)
	assert.Equal(t, int64(123456), ref.ReviewID)
}

func TestParseReviewURL_Invalid(t *testing.T) {
	for _, url := range []string{
		"https://github.com/octocat/hello-world/pull/42",
		"https://example.com/not/github",
		"",
	} {
		_, err := ParseReviewURL(url)
		assert.Error(t, err, "url: %s", url)
	}
}

func TestMergeByKey_NoDuplicateThreadIDs(t *testing.T) {
	base := []model.Comment{
		{ThreadID: "T1", Body: "original"},
	}
	extra := []model.Comment{
		{ThreadID: "T1", Body: "replacement attempt"},
		{ThreadID: "T2", Body: "new"},
	}

	merged := MergeByKey(base, extra)
	require.Len(t, merged, 2)
	assert.Equal(t, "original", merged[0].Body)
	assert.Equal(t, "T2", merged[1].ThreadID)
}

func TestMergeByKey_MatchesAcrossIdentifierKinds(t *testing.T) {
	// The thread record and the direct review-comment record describe the
	// same remark but expose different primary keys.
	base := []model.Comment{
		{ThreadID: "T1", NodeID: "N1", CommentID: 100, Body: "thread form"},
	}
	extra := []model.Comment{
		{NodeID: "N1", CommentID: 100, Body: "review form"},
	}

	merged := MergeByKey(base, extra)
	require.Len(t, merged, 1)
	assert.Equal(t, "thread form", merged[0].Body)
}

func TestMergeByKey_DropsKeylessEntries(t *testing.T) {
	merged := MergeByKey(nil, []model.Comment{{Body: "orphan"}})
	assert.Empty(t, merged)
}

func TestFetch_MergesReviewCommentsAndBuckets(t *testing.T) {
	client := &fakeThreadClient{
		threads: []model.Comment{
			{ThreadID: "T1", NodeID: "N1", Author: "alice", Body: "human comment"},
			{ThreadID: "T2", NodeID: "N2", Author: "qodo-merge-pro", Body: "bot comment"},
		},
		reviewComments: []model.Comment{
			{NodeID: "N2", Body: "duplicate of the bot comment"},
			{NodeID: "N3", CommentID: 300, Author: "coderabbitai", Body: "extra rabbit comment"},
		},
	}

	svc := NewFetchService(client, NewCategorizer(nil))

	f, err := svc.Fetch(context.Background(), "octocat", "hello-world", 42, 99)
	require.NoError(t, err)

	assert.Equal(t, "octocat", f.Metadata.Owner)
	assert.Equal(t, 42, f.Metadata.PRNumber)
	assert.Len(t, f.Human, 1)
	assert.Len(t, f.Qodo, 1)
	assert.Len(t, f.Coderabbit, 1)
	assert.Equal(t, 1, client.fetchCalls)
	assert.Equal(t, 1, client.reviewCalls)

	// The duplicate review comment did not displace the thread record.
	assert.Equal(t, "bot comment", f.Qodo[0].Body)
}

func TestFetch_WithoutReviewIDSkipsDirectLookup(t *testing.T) {
	client := &fakeThreadClient{
		threads: []model.Comment{{ThreadID: "T1", Author: "alice", Body: "hi"}},
	}
	svc := NewFetchService(client, NewCategorizer(nil))

	_, err := svc.Fetch(context.Background(), "o", "r", 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, client.reviewCalls)
}
