package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/myk-org/prreview/internal/domain/model"
)

const reviewThreadsQuery = `query($owner: String!, $repo: String!, $pr: Int!, $cursor: String) {
	repository(owner: $owner, name: $repo) {
		pullRequest(number: $pr) {
			reviewThreads(first: 100, after: $cursor) {
				pageInfo {
					hasNextPage
					endCursor
				}
				nodes {
					id
					isResolved
					comments(first: 50) {
						nodes {
							id
							databaseId
							author { login }
							path
							line
							body
						}
					}
				}
			}
		}
	}
}`

const replyToThreadMutation = `mutation($threadID: ID!, $body: String!) {
	addPullRequestReviewThreadReply(input: {pullRequestReviewThreadId: $threadID, body: $body}) {
		comment { id }
	}
}`

const resolveThreadMutation = `mutation($threadID: ID!) {
	resolveReviewThread(input: {threadId: $threadID}) {
		thread { isResolved }
	}
}`

// graphqlRequest is the JSON body sent to the GitHub GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphqlError struct {
	Message string `json:"message"`
}

// threadComment mirrors the comment node shape in the reviewThreads query.
type threadComment struct {
	ID         string `json:"id"`
	DatabaseID int64  `json:"databaseId"`
	Author     struct {
		Login string `json:"login"`
	} `json:"author"`
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

type threadNode struct {
	ID         string `json:"id"`
	IsResolved bool   `json:"isResolved"`
	Comments   struct {
		Nodes []threadComment `json:"nodes"`
	} `json:"comments"`
}

type reviewThreadsResponse struct {
	Data struct {
		Repository struct {
			PullRequest struct {
				ReviewThreads struct {
					PageInfo struct {
						HasNextPage bool   `json:"hasNextPage"`
						EndCursor   string `json:"endCursor"`
					} `json:"pageInfo"`
					Nodes []threadNode `json:"nodes"`
				} `json:"reviewThreads"`
			} `json:"pullRequest"`
		} `json:"repository"`
	} `json:"data"`
	Errors []graphqlError `json:"errors"`
}

// FetchUnresolvedThreads pages through the PR's review threads and returns
// the unresolved ones as normalized Comment records: the thread's first
// comment is the primary record, later comments become replies.
//
// A page failure stops fetching and returns the threads collected so far with
// a warning rather than failing the call; a partial thread set is still
// useful to the workflow that follows.
func (c *Client) FetchUnresolvedThreads(ctx context.Context, owner, repo string, prNumber int) ([]model.Comment, error) {
	var comments []model.Comment
	cursor := ""

	for {
		nodes, pageInfo, err := c.fetchThreadPage(ctx, owner, repo, prNumber, cursor)
		if err != nil {
			slog.Warn("thread page fetch failed, returning partial results",
				"error", err,
				"owner", owner,
				"repo", repo,
				"pr", prNumber,
				"collected", len(comments),
			)
			return comments, nil
		}

		for _, thread := range nodes {
			if thread.IsResolved || len(thread.Comments.Nodes) == 0 {
				continue
			}
			comments = append(comments, normalizeThread(thread))
		}

		if !pageInfo.hasNextPage {
			break
		}
		cursor = pageInfo.endCursor
	}

	return comments, nil
}

// ReplyToThread posts a reply on the given review thread.
func (c *Client) ReplyToThread(ctx context.Context, threadID, body string) error {
	var resp struct {
		Errors []graphqlError `json:"errors"`
	}

	err := c.doGraphQL(ctx, replyToThreadMutation, map[string]any{
		"threadID": threadID,
		"body":     body,
	}, &resp)
	if err != nil {
		return fmt.Errorf("replying to thread %s: %w", threadID, err)
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("replying to thread %s: %s", threadID, resp.Errors[0].Message)
	}

	return nil
}

// ResolveThread marks the given review thread as resolved.
func (c *Client) ResolveThread(ctx context.Context, threadID string) error {
	var resp struct {
		Errors []graphqlError `json:"errors"`
	}

	err := c.doGraphQL(ctx, resolveThreadMutation, map[string]any{
		"threadID": threadID,
	}, &resp)
	if err != nil {
		return fmt.Errorf("resolving thread %s: %w", threadID, err)
	}
	if len(resp.Errors) > 0 {
		return fmt.Errorf("resolving thread %s: %s", threadID, resp.Errors[0].Message)
	}

	return nil
}

// ThreadIDForComment pages through the PR's review threads looking for the
// one containing the comment with the given node ID. Returns empty string
// when no thread matches.
func (c *Client) ThreadIDForComment(ctx context.Context, owner, repo string, prNumber int, nodeID string) (string, error) {
	cursor := ""

	for {
		nodes, pageInfo, err := c.fetchThreadPage(ctx, owner, repo, prNumber, cursor)
		if err != nil {
			return "", fmt.Errorf("looking up thread for comment %s: %w", nodeID, err)
		}

		for _, thread := range nodes {
			for _, comment := range thread.Comments.Nodes {
				if comment.ID == nodeID {
					return thread.ID, nil
				}
			}
		}

		if !pageInfo.hasNextPage {
			break
		}
		cursor = pageInfo.endCursor
	}

	return "", nil
}

type pageInfo struct {
	hasNextPage bool
	endCursor   string
}

func (c *Client) fetchThreadPage(ctx context.Context, owner, repo string, prNumber int, cursor string) ([]threadNode, pageInfo, error) {
	variables := map[string]any{
		"owner": owner,
		"repo":  repo,
		"pr":    prNumber,
	}
	if cursor != "" {
		variables["cursor"] = cursor
	}

	var resp reviewThreadsResponse
	if err := c.doGraphQL(ctx, reviewThreadsQuery, variables, &resp); err != nil {
		return nil, pageInfo{}, err
	}
	if len(resp.Errors) > 0 {
		return nil, pageInfo{}, fmt.Errorf("graphql: %s", resp.Errors[0].Message)
	}

	threads := resp.Data.Repository.PullRequest.ReviewThreads
	return threads.Nodes, pageInfo{
		hasNextPage: threads.PageInfo.HasNextPage,
		endCursor:   threads.PageInfo.EndCursor,
	}, nil
}

func (c *Client) doGraphQL(ctx context.Context, query string, variables map[string]any, out any) error {
	bodyBytes, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("marshal graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("create graphql request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("bearer %s", c.token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.graphqlCli.Do(req)
	if err != nil {
		return fmt.Errorf("graphql request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphql: unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode graphql response: %w", err)
	}

	return nil
}

func normalizeThread(thread threadNode) model.Comment {
	first := thread.Comments.Nodes[0]

	comment := model.Comment{
		ThreadID:  thread.ID,
		NodeID:    first.ID,
		CommentID: first.DatabaseID,
		Author:    first.Author.Login,
		Path:      first.Path,
		Line:      first.Line,
		Body:      first.Body,
		Status:    model.StatusPending,
	}

	for _, reply := range thread.Comments.Nodes[1:] {
		comment.Replies = append(comment.Replies, model.ThreadReply{
			Author: reply.Author.Login,
			Body:   reply.Body,
		})
	}

	return comment
}
