package ghclient

import (
	"context"
	"errors"
	"fmt"

	"github.com/SatelliteQE/repo-metrics/internal/review"
	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

// ErrRepositoryNotFound is returned when GraphQL resolves no repository.
var ErrRepositoryNotFound = errors.New("repository not found")

// timelineItemsLimit is the GraphQL maximum for a connection page.
const timelineItemsLimit = 100

// ghostLogin stands in for deleted accounts, as on github.com.
const ghostLogin = "ghost"

const pullRequestsQuery = `query($owner: String!, $name: String!, $blockCount: Int!, $prCursor: String) {
  repository(owner: $owner, name: $name) {
    pullRequests(first: $blockCount, after: $prCursor, orderBy: {field: CREATED_AT, direction: DESC}) {
      pageInfo {
        endCursor
        hasNextPage
      }
      nodes {
        number
        url
        createdAt
        isDraft
        state
        changedFiles
        additions
        deletions
        author { login }
        mergedBy { login }
        timelineItems(first: 100, itemTypes: [PULL_REQUEST_REVIEW, ISSUE_COMMENT, CONVERT_TO_DRAFT_EVENT, READY_FOR_REVIEW_EVENT]) {
          totalCount
          nodes {
            __typename
            ... on ConvertToDraftEvent {
              createdAt
              actor { login }
            }
            ... on ReadyForReviewEvent {
              createdAt
              actor { login }
            }
            ... on PullRequestReview {
              createdAt
              state
              author { login }
              comments { totalCount }
            }
            ... on IssueComment {
              createdAt
              author { login }
            }
          }
        }
      }
    }
  }
}`

type pageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

type pullRequestNode struct {
	Number        int             `json:"number"`
	URL           string          `json:"url"`
	CreatedAt     string          `json:"createdAt"`
	IsDraft       bool            `json:"isDraft"`
	State         string          `json:"state"`
	ChangedFiles  int             `json:"changedFiles"`
	Additions     int             `json:"additions"`
	Deletions     int             `json:"deletions"`
	Author        *timeline.Login `json:"author"`
	MergedBy      *timeline.Login `json:"mergedBy"`
	TimelineItems struct {
		TotalCount int                 `json:"totalCount"`
		Nodes      []timeline.RawEvent `json:"nodes"`
	} `json:"timelineItems"`
}

type pullRequestsData struct {
	Repository *struct {
		PullRequests struct {
			PageInfo pageInfo          `json:"pageInfo"`
			Nodes    []pullRequestNode `json:"nodes"`
		} `json:"pullRequests"`
	} `json:"repository"`
}

// PullRequests fetches up to count pull requests of org/repo, newest first.
// Pull requests opened by automation accounts are skipped after fetching,
// so fewer than count may be returned.
func (c *Client) PullRequests(ctx context.Context, org, repo string, count int) ([]review.PullRequest, error) {
	var (
		nodes  []pullRequestNode
		cursor *string
	)
	for len(nodes) < count {
		block := min(c.pageSize, count-len(nodes))
		vars := map[string]any{
			"owner":      org,
			"name":       repo,
			"blockCount": block,
			"prCursor":   cursor,
		}

		var data pullRequestsData
		if err := c.query(ctx, pullRequestsQuery, vars, &data); err != nil {
			return nil, fmt.Errorf("failed to fetch pull requests: %w", err)
		}
		if data.Repository == nil {
			return nil, fmt.Errorf("%w: %s/%s", ErrRepositoryNotFound, org, repo)
		}

		page := data.Repository.PullRequests
		nodes = append(nodes, page.Nodes...)
		c.log.Debug("fetched pull request page", "repo", org+"/"+repo, "page_size", len(page.Nodes), "total", len(nodes))

		if !page.PageInfo.HasNextPage || len(page.Nodes) == 0 {
			break
		}
		next := page.PageInfo.EndCursor
		cursor = &next
	}
	if len(nodes) > count {
		nodes = nodes[:count]
	}

	prs := make([]review.PullRequest, 0, len(nodes))
	for _, n := range nodes {
		author := loginOrGhost(n.Author)
		if c.classifier.Excluded(author) {
			c.log.Debug("skipping automation pull request", "pr", n.Number, "author", author)
			continue
		}
		pr, err := c.convert(n, author)
		if err != nil {
			return nil, fmt.Errorf("pull request #%d: %w", n.Number, err)
		}
		prs = append(prs, pr)
	}

	c.log.Info("found pull requests", "repo", org+"/"+repo, "count", len(prs))
	return prs, nil
}

func (c *Client) convert(n pullRequestNode, author string) (review.PullRequest, error) {
	createdAt, err := timeline.ParseTimestamp(n.CreatedAt)
	if err != nil {
		return review.PullRequest{}, err
	}
	state, err := review.ParseState(n.State)
	if err != nil {
		return review.PullRequest{}, err
	}
	events, err := c.classifier.ClassifyAll(n.TimelineItems.Nodes)
	if err != nil {
		return review.PullRequest{}, err
	}
	if n.TimelineItems.TotalCount > len(n.TimelineItems.Nodes) {
		c.log.Warn("timeline truncated",
			"pr", n.Number,
			"fetched", len(n.TimelineItems.Nodes),
			"total", n.TimelineItems.TotalCount,
			"limit", timelineItemsLimit)
	}

	var mergedBy string
	if n.MergedBy != nil {
		mergedBy = n.MergedBy.Login
	}

	return review.PullRequest{
		Number:       n.Number,
		URL:          n.URL,
		Author:       author,
		CreatedAt:    createdAt,
		IsDraft:      n.IsDraft,
		State:        state,
		MergedBy:     mergedBy,
		ChangedFiles: n.ChangedFiles,
		Additions:    n.Additions,
		Deletions:    n.Deletions,
		Events:       events,
	}, nil
}

func loginOrGhost(l *timeline.Login) string {
	if l == nil || l.Login == "" {
		return ghostLogin
	}
	return l.Login
}
