// Package ghclient fetches pull request timelines and reviewer teams from GitHub.
package ghclient

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-github/v56/github"
	"golang.org/x/oauth2"

	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

// Options configure a Client.
type Options struct {
	Token string
	// APIURL overrides https://api.github.com/.
	APIURL string
	// PageSize is the number of pull requests per GraphQL query, at most 100.
	PageSize int
	// IgnoredLogins extend the built-in automation accounts.
	IgnoredLogins []string
	HTTPClient    *http.Client
	Logger        *slog.Logger
}

// Client talks to the GitHub REST and GraphQL APIs.
type Client struct {
	gh         *github.Client
	classifier *timeline.Classifier
	pageSize   int
	log        *slog.Logger
}

func New(ctx context.Context, opts Options) (*Client, error) {
	hc := opts.HTTPClient
	if opts.Token != "" {
		if hc != nil {
			ctx = context.WithValue(ctx, oauth2.HTTPClient, hc)
		}
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		hc = oauth2.NewClient(ctx, ts)
	}

	gh := github.NewClient(hc)
	if opts.APIURL != "" {
		u, err := url.Parse(opts.APIURL)
		if err != nil {
			return nil, fmt.Errorf("invalid api url %q: %w", opts.APIURL, err)
		}
		if !strings.HasSuffix(u.Path, "/") {
			u.Path += "/"
		}
		gh.BaseURL = u
	}

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 100
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		gh:         gh,
		classifier: timeline.NewClassifier(opts.IgnoredLogins...),
		pageSize:   pageSize,
		log:        logger,
	}, nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// GraphQLError is one entry of a GraphQL "errors" array.
type GraphQLError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Path    []any  `json:"path"`
}

// GraphQLErrors is returned when the API answers with query errors.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Message)
	}
	return "graphql: " + strings.Join(msgs, "; ")
}

// query posts a GraphQL query through the go-github transport, so auth,
// rate-limit and HTTP error handling match the REST calls.
func (c *Client) query(ctx context.Context, q string, vars map[string]any, data any) error {
	req, err := c.gh.NewRequest(http.MethodPost, "graphql", graphQLRequest{Query: q, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to build graphql request: %w", err)
	}

	var resp graphQLResponse
	if _, err := c.gh.Do(ctx, req, &resp); err != nil {
		return fmt.Errorf("graphql request failed: %w", err)
	}
	if len(resp.Errors) > 0 {
		return GraphQLErrors(resp.Errors)
	}
	if err := json.Unmarshal(resp.Data, data); err != nil {
		return fmt.Errorf("failed to decode graphql data: %w", err)
	}
	return nil
}
