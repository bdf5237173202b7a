package application

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myk-org/prreview/internal/domain/model"
)

func TestClassifySource(t *testing.T) {
	assert.Equal(t, model.SourceQodo, ClassifySource("qodo-merge-pro"))
	assert.Equal(t, model.SourceQodo, ClassifySource("Qodo-Merge-Pro[bot]"))
	assert.Equal(t, model.SourceCoderabbit, ClassifySource("coderabbitai"))
	assert.Equal(t, model.SourceCoderabbit, ClassifySource("coderabbitai[bot]"))
	assert.Equal(t, model.SourceHuman, ClassifySource("alice"))
	assert.Equal(t, model.SourceHuman, ClassifySource(""))
}

func TestClassifyPriority(t *testing.T) {
	assert.Equal(t, model.PriorityHigh, ClassifyPriority("Possible SQL injection here"))
	assert.Equal(t, model.PriorityHigh, ClassifyPriority("this can CRASH under load"))
	assert.Equal(t, model.PriorityLow, ClassifyPriority("typo in the docstring"))
	assert.Equal(t, model.PriorityLow, ClassifyPriority("whitespace inconsistency"))
	assert.Equal(t, model.PriorityMedium, ClassifyPriority("consider extracting a helper"))

	// A body matching both sets stays HIGH.
	assert.Equal(t, model.PriorityHigh, ClassifyPriority("typo that causes a security issue"))
}

func TestCategorize_BucketsAreExhaustiveAndDisjoint(t *testing.T) {
	cat := NewCategorizer(nil)

	comments := []model.Comment{
		{ThreadID: "T1", Author: "alice", Body: "please fix"},
		{ThreadID: "T2", Author: "qodo-merge-pro", Body: "bot says"},
		{ThreadID: "T3", Author: "coderabbitai[bot]", Body: "rabbit says"},
		{ThreadID: "T4", Author: "", Body: "anonymous"},
	}

	human, qodo, coderabbit := cat.Categorize(context.Background(), "o", "r", comments)

	assert.Len(t, human, 2)
	assert.Len(t, qodo, 1)
	assert.Len(t, coderabbit, 1)
	assert.Equal(t, model.SourceQodo, qodo[0].Source)
	assert.Equal(t, model.StatusPending, human[0].Status)
	assert.NotEmpty(t, human[0].Priority)
}

func TestCategorize_AutoSkipInheritsDismissalReason(t *testing.T) {
	store := &fakeStore{dismissed: []model.Comment{
		{Path: "src/x.py", Body: "Add input validation", Status: model.StatusSkipped, SkipReason: "too generic"},
	}}
	cat := NewCategorizer(store)

	comments := []model.Comment{
		{ThreadID: "T1", Author: "qodo-merge-pro", Path: "src/x.py", Body: "Add input validation for field"},
	}

	_, qodo, _ := cat.Categorize(context.Background(), "octocat", "hello-world", comments)
	require.Len(t, qodo, 1)

	got := qodo[0]
	assert.Equal(t, model.StatusSkipped, got.Status)
	assert.Equal(t, "too generic", got.SkipReason)
	assert.True(t, got.AutoSkipped)
	assert.Contains(t, got.Reply, "too generic")
	assert.Contains(t, got.Reply, "dismissed")
}

func TestCategorize_NoAutoSkipWithoutReason(t *testing.T) {
	store := &fakeStore{dismissed: []model.Comment{
		{Path: "src/x.py", Body: "Add input validation", Status: model.StatusNotAddressed},
	}}
	cat := NewCategorizer(store)

	comments := []model.Comment{
		{ThreadID: "T1", Path: "src/x.py", Body: "Add input validation"},
	}

	human, _, _ := cat.Categorize(context.Background(), "o", "r", comments)
	require.Len(t, human, 1)
	assert.Equal(t, model.StatusPending, human[0].Status)
	assert.False(t, human[0].AutoSkipped)
}

func TestCategorize_AutoSkipNeedsMatchingPath(t *testing.T) {
	store := &fakeStore{dismissed: []model.Comment{
		{Path: "src/other.py", Body: "Add input validation", Status: model.StatusSkipped, SkipReason: "too generic"},
	}}
	cat := NewCategorizer(store)

	comments := []model.Comment{
		{ThreadID: "T1", Path: "src/x.py", Body: "Add input validation"},
	}

	human, _, _ := cat.Categorize(context.Background(), "o", "r", comments)
	require.Len(t, human, 1)
	assert.Equal(t, model.StatusPending, human[0].Status)
}

func TestCategorize_StoreFailureDisablesAutoSkipOnly(t *testing.T) {
	store := &fakeStore{err: errors.New("database locked")}
	cat := NewCategorizer(store)

	comments := []model.Comment{
		{ThreadID: "T1", Author: "alice", Path: "src/x.py", Body: "Add input validation"},
	}

	human, _, _ := cat.Categorize(context.Background(), "o", "r", comments)
	require.Len(t, human, 1)
	assert.Equal(t, model.StatusPending, human[0].Status)
	assert.Equal(t, 1, store.calls)
}

func TestCategorize_LoadsDismissedIndexOnce(t *testing.T) {
	store := &fakeStore{dismissed: []model.Comment{
		{Path: "src/x.py", Body: "Add input validation", Status: model.StatusSkipped, SkipReason: "too generic"},
	}}
	cat := NewCategorizer(store)

	comments := []model.Comment{
		{ThreadID: "T1", Path: "src/x.py", Body: "Add input validation"},
		{ThreadID: "T2", Path: "src/x.py", Body: "Add input validation again"},
		{ThreadID: "T3", Path: "src/y.py", Body: "unrelated"},
	}

	cat.Categorize(context.Background(), "o", "r", comments)
	assert.Equal(t, 1, store.calls)
}

func TestCategorize_DecidedCommentsAreNotRevisited(t *testing.T) {
	store := &fakeStore{dismissed: []model.Comment{
		{Path: "src/x.py", Body: "Add input validation", Status: model.StatusSkipped, SkipReason: "too generic"},
	}}
	cat := NewCategorizer(store)

	comments := []model.Comment{
		{ThreadID: "T1", Path: "src/x.py", Body: "Add input validation", Status: model.StatusAddressed},
	}

	human, _, _ := cat.Categorize(context.Background(), "o", "r", comments)
	require.Len(t, human, 1)
	assert.Equal(t, model.StatusAddressed, human[0].Status)
	assert.False(t, human[0].AutoSkipped)
}
