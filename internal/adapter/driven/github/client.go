// Package github implements the ThreadClient port using the go-github
// library for REST calls and raw GraphQL for review-thread operations.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"

	"github.com/myk-org/prreview/internal/domain/model"
	"github.com/myk-org/prreview/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ThreadClient = (*Client)(nil)

// Client implements the driven.ThreadClient port. The REST transport stack is
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client with PAT auth)
//
// Review-thread reads and mutations go through the GraphQL API directly since
// go-github does not cover thread resolution.
type Client struct {
	gh         *gh.Client
	token      string // For the GraphQL Authorization header.
	graphqlURL string
	graphqlCli *http.Client
}

// NewClient creates a GitHub API client authenticated with the given token.
// remoteTimeout bounds each GraphQL request; it defaults to 2 minutes when
// zero, generous because thread pagination on large PRs can be slow. Context
// cancellation still applies.
func NewClient(token string, remoteTimeout time.Duration) *Client {
	if remoteTimeout <= 0 {
		remoteTimeout = 2 * time.Minute
	}

	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)
	client := gh.NewClient(rateLimitClient).WithAuthToken(token)

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: "https://api.github.com/graphql",
		graphqlCli: &http.Client{Timeout: remoteTimeout},
	}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. Intended for tests, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL, token string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	// Derive graphqlURL from baseURL so httptest servers can intercept
	// GraphQL requests too.
	graphqlU := *u
	graphqlU.Path = "/graphql"

	return &Client{
		gh:         client,
		token:      token,
		graphqlURL: graphqlU.String(),
		graphqlCli: httpClient,
	}, nil
}

// FetchReviewComments returns the comments belonging to one specific review
// via a single non-paginated REST lookup, normalized to pending Comment
// records.
func (c *Client) FetchReviewComments(ctx context.Context, owner, repo string, prNumber int, reviewID int64) ([]model.Comment, error) {
	opts := &gh.ListOptions{PerPage: 100}

	comments, _, err := c.gh.PullRequests.ListReviewComments(ctx, owner, repo, prNumber, reviewID, opts)
	if err != nil {
		return nil, fmt.Errorf("listing comments for review %d on %s/%s#%d: %w", reviewID, owner, repo, prNumber, err)
	}

	result := make([]model.Comment, 0, len(comments))
	for _, comment := range comments {
		result = append(result, model.Comment{
			NodeID:    comment.GetNodeID(),
			CommentID: comment.GetID(),
			Author:    comment.GetUser().GetLogin(),
			Path:      comment.GetPath(),
			Line:      comment.GetLine(),
			Body:      comment.GetBody(),
			Status:    model.StatusPending,
		})
	}

	return result, nil
}
