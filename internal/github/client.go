// Package github implements the remote pull-request source: a thin client
// for the one GraphQL query this system needs.
//
// WHY NO GRAPHQL LIBRARY?
// We send exactly one fixed query and read exactly one shape back. A GraphQL
// client library would buy us schema handling we never use; a plain POST with
// encoding/json mirrors how the rest of the app talks to GitHub (see
// internal/auth/oauth.go, which calls the REST /user endpoint the same way).
//
// ERROR CONTRACT (matters to the sync orchestrator):
//   - HTTP 401            → apperror.Unauthenticated — the stored token is
//     dead, the user must re-authenticate; retrying is pointless.
//   - any other failure   → apperror.TransportFailure — network error,
//     non-success status, GraphQL errors, undecodable body. Retryable later.
//   - login unknown to GitHub → apperror.NotFound.
//
// The distinction is the whole reason this client exists as its own layer:
// the orchestrator aborts before any local writes on either, but only
// Unauthenticated tells the frontend to restart the OAuth flow.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/mergequest/mergequest/internal/apperror"
)

// DefaultAPIBaseURL is GitHub's GraphQL endpoint.
const DefaultAPIBaseURL = "https://api.github.com/graphql"

// Config holds the client's external configuration. Nothing in this package
// reads ambient process state — the caller (cmd/server) resolves env vars and
// passes an explicit Config at construction.
type Config struct {
	APIBaseURL   string        // GraphQL endpoint; DefaultAPIBaseURL if empty
	PageSize     int           // max PRs fetched per sync; default 100 (GitHub's cap)
	FetchTimeout time.Duration // budget for the remote fetch; default 15s
	HTTPClient   *http.Client  // injectable for tests; http.DefaultClient if nil
}

func (c Config) withDefaults() Config {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.PageSize <= 0 || c.PageSize > 100 {
		c.PageSize = 100
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.HTTPClient == nil {
		c.HTTPClient = http.DefaultClient
	}
	return c
}

// RemotePullRequest is the portion of a GraphQL pull-request node we care
// about. GitHub returns a larger object — we only unmarshal what we score
// and mirror.
type RemotePullRequest struct {
	Title     string     `json:"title"`
	URL       string     `json:"url"` // e.g. "https://github.com/acme/widgets/pull/42"
	State     string     `json:"state"`
	Merged    bool       `json:"merged"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	MergedAt  *time.Time `json:"mergedAt"`
	Additions int        `json:"additions"`
	Deletions int        `json:"deletions"`
}

// Client fetches a user's recent pull requests from GitHub.
type Client struct {
	cfg Config
}

func NewClient(cfg Config) *Client {
	return &Client{cfg: cfg.withDefaults()}
}

// FetchTimeout exposes the configured fetch budget so the orchestrator can
// scope its timeout context to the fetch phase only.
func (c *Client) FetchTimeout() time.Duration {
	return c.cfg.FetchTimeout
}

// prQuery asks for the user's most recent PRs in every lifecycle state.
// The login is passed as a GraphQL variable, never interpolated into the
// query text.
const prQuery = `
query($login: String!, $pageSize: Int!) {
  user(login: $login) {
    pullRequests(first: $pageSize, states: [OPEN, CLOSED, MERGED], orderBy: {field: CREATED_AT, direction: DESC}) {
      nodes {
        title
        url
        state
        merged
        createdAt
        updatedAt
        mergedAt
        additions
        deletions
      }
    }
  }
}`

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type graphQLResponse struct {
	Data struct {
		User *struct {
			PullRequests struct {
				Nodes []RemotePullRequest `json:"nodes"`
			} `json:"pullRequests"`
		} `json:"user"`
	} `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// FetchPullRequests returns up to PageSize most recent pull requests authored
// by login, authenticated with the user's own OAuth token.
func (c *Client) FetchPullRequests(ctx context.Context, login, token string) ([]RemotePullRequest, error) {
	body, err := json.Marshal(graphQLRequest{
		Query: prQuery,
		Variables: map[string]any{
			"login":    login,
			"pageSize": c.cfg.PageSize,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("github: encoding query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("github: building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return nil, apperror.TransportFailure(fmt.Sprintf("github api unreachable: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperror.Unauthenticated("GitHub rejected the stored access token; re-authentication required")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperror.TransportFailure(fmt.Sprintf("github api returned status %d", resp.StatusCode))
	}

	var gql graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&gql); err != nil {
		return nil, apperror.TransportFailure(fmt.Sprintf("decoding github response: %v", err))
	}

	if len(gql.Errors) > 0 {
		return nil, apperror.TransportFailure(fmt.Sprintf("github graphql error: %s", gql.Errors[0].Message))
	}
	if gql.Data.User == nil {
		return nil, apperror.NotFound("github user", login)
	}

	return gql.Data.User.PullRequests.Nodes, nil
}
