package application

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/workfile"
)

func newTestFile(comments ...model.Comment) *workfile.File {
	f := &workfile.File{
		Metadata: workfile.Metadata{Owner: "octocat", Repo: "hello-world", PRNumber: 7},
	}
	for _, c := range comments {
		bucket := f.Bucket(string(c.Source))
		if bucket == nil {
			bucket = &f.Human
		}
		*bucket = append(*bucket, c)
	}
	return f
}

func postToTemp(t *testing.T, client *fakeThreadClient, f *workfile.File) (*PostReport, string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "wf.json")
	require.NoError(t, f.Save(path))

	report, err := NewPostService(client).Post(context.Background(), f, path)
	require.NoError(t, err)
	return report, path
}

func TestPost_FullyProcessedFileMakesNoRemoteCalls(t *testing.T) {
	client := &fakeThreadClient{}
	f := newTestFile(
		model.Comment{Source: model.SourceQodo, ThreadID: "T1", Body: "done", Status: model.StatusAddressed,
			PostedAt: "2026-02-01T12:00:00Z", ResolvedAt: "2026-02-01T12:00:05Z"},
		model.Comment{Source: model.SourceHuman, ThreadID: "T2", Body: "open", Status: model.StatusNotAddressed,
			PostedAt: "2026-02-01T12:00:00Z"},
	)

	report, _ := postToTemp(t, client, f)

	assert.Equal(t, 0, client.remoteCalls())
	assert.Equal(t, 2, report.AlreadyPosted)
	assert.Equal(t, 0, report.Failed)
}

func TestPost_PendingCommentsAreSkipped(t *testing.T) {
	client := &fakeThreadClient{}
	f := newTestFile(
		model.Comment{Source: model.SourceHuman, ThreadID: "T1", Body: "undecided", Status: model.StatusPending},
	)

	report, _ := postToTemp(t, client, f)

	assert.Equal(t, 1, report.Pending)
	assert.Equal(t, 0, client.remoteCalls())
}

func TestPost_ResolveOnlyRetryDoesNotRepost(t *testing.T) {
	client := &fakeThreadClient{}
	f := newTestFile(
		model.Comment{Source: model.SourceQodo, ThreadID: "T1", Body: "bot", Status: model.StatusSkipped,
			SkipReason: "noise", PostedAt: "2026-02-01T12:00:00Z"},
	)

	report, path := postToTemp(t, client, f)

	assert.Empty(t, client.replyCalls)
	assert.Equal(t, []string{"T1"}, client.resolveCalls)
	assert.Equal(t, 1, report.Resolved)

	loaded, err := workfile.Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.Qodo[0].ResolvedAt)
}

func TestPost_BotThreadsAreResolvedAfterReply(t *testing.T) {
	client := &fakeThreadClient{}
	f := newTestFile(
		model.Comment{Source: model.SourceCoderabbit, ThreadID: "T1", Body: "bot", Status: model.StatusSkipped, SkipReason: "stale"},
	)

	report, path := postToTemp(t, client, f)

	assert.Equal(t, []string{"T1"}, client.replyCalls)
	assert.Equal(t, []string{"T1"}, client.resolveCalls)
	assert.Equal(t, 1, report.Resolved)

	loaded, err := workfile.Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.Coderabbit[0].PostedAt)
	assert.NotEmpty(t, loaded.Coderabbit[0].ResolvedAt)
}

func TestPost_HumanThreadLeftOpenUnlessAddressed(t *testing.T) {
	client := &fakeThreadClient{}
	f := newTestFile(
		model.Comment{Source: model.SourceHuman, ThreadID: "T1", Body: "a", Status: model.StatusNotAddressed},
		model.Comment{Source: model.SourceHuman, ThreadID: "T2", Body: "b", Status: model.StatusAddressed},
	)

	report, _ := postToTemp(t, client, f)

	assert.ElementsMatch(t, []string{"T1", "T2"}, client.replyCalls)
	assert.Equal(t, []string{"T2"}, client.resolveCalls)
	assert.Equal(t, 1, report.Replied)
	assert.Equal(t, 1, report.Resolved)
}

func TestPost_DerivesThreadIDFromNodeID(t *testing.T) {
	client := &fakeThreadClient{threadIDByNode: map[string]string{"N1": "T9"}}
	f := newTestFile(
		model.Comment{Source: model.SourceQodo, NodeID: "N1", Body: "bot", Status: model.StatusAddressed},
	)

	report, _ := postToTemp(t, client, f)

	assert.Equal(t, 1, client.lookupCalls)
	assert.Equal(t, []string{"T9"}, client.replyCalls)
	assert.Equal(t, 1, report.Resolved)
}

func TestPost_NoIdentifierIsCountedNotFatal(t *testing.T) {
	client := &fakeThreadClient{}
	f := newTestFile(
		model.Comment{Source: model.SourceHuman, Body: "orphan", Status: model.StatusAddressed},
		model.Comment{Source: model.SourceHuman, ThreadID: "T1", Body: "ok", Status: model.StatusAddressed},
	)

	report, _ := postToTemp(t, client, f)

	assert.Equal(t, 1, report.NoIdentifier)
	assert.Equal(t, 1, report.Resolved)
}

func TestPost_ReplyFailureCountedAndTimestampsWithheld(t *testing.T) {
	client := &fakeThreadClient{replyErrFor: map[string]error{"T1": errors.New("boom")}}
	f := newTestFile(
		model.Comment{Source: model.SourceQodo, ThreadID: "T1", Body: "bot", Status: model.StatusAddressed},
	)

	report, path := postToTemp(t, client, f)

	assert.Equal(t, 1, report.Failed)
	assert.Empty(t, client.resolveCalls)

	loaded, err := workfile.Load(path)
	require.NoError(t, err)
	assert.Empty(t, loaded.Qodo[0].PostedAt)
	assert.Empty(t, loaded.Qodo[0].ResolvedAt)
}

func TestPost_ResolveFailureKeepsPostedTimestamp(t *testing.T) {
	client := &fakeThreadClient{resolveErrFor: map[string]error{"T1": errors.New("boom")}}
	f := newTestFile(
		model.Comment{Source: model.SourceQodo, ThreadID: "T1", Body: "bot", Status: model.StatusAddressed},
	)

	report, path := postToTemp(t, client, f)

	assert.Equal(t, 1, report.Failed)

	// A re-run would go down the resolve-only path thanks to posted_at.
	loaded, err := workfile.Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, loaded.Qodo[0].PostedAt)
	assert.Empty(t, loaded.Qodo[0].ResolvedAt)
}

func TestComposeReply_Defaults(t *testing.T) {
	assert.Equal(t, "Addressed.", composeReply(model.Comment{Status: model.StatusAddressed}))
	assert.Equal(t, "Addressed.", composeReply(model.Comment{Status: model.StatusFailed}))
	assert.Equal(t, "Skipped: noise", composeReply(model.Comment{Status: model.StatusSkipped, SkipReason: "noise"}))
	assert.Equal(t, "Skipped.", composeReply(model.Comment{Status: model.StatusSkipped}))
	assert.Equal(t, "Not addressed - see reply for details.", composeReply(model.Comment{Status: model.StatusNotAddressed}))
	assert.Equal(t, "custom text", composeReply(model.Comment{Status: model.StatusAddressed, Reply: "custom text"}))
}

func TestComposeReply_CapsLength(t *testing.T) {
	long := strings.Repeat("x", maxReplyLen+500)
	got := composeReply(model.Comment{Status: model.StatusAddressed, Reply: long})

	assert.Len(t, got, maxReplyLen+len(truncationMarker))
	assert.True(t, strings.HasSuffix(got, truncationMarker))
}
