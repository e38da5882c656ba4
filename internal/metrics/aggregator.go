package metrics

import (
	"context"
	"errors"
	"fmt"

	"github.com/SatelliteQE/repo-metrics/internal/review"
)

// ErrInvalidCount is returned for a non-positive pull request count.
var ErrInvalidCount = errors.New("pull request count must be positive")

// PullRequestSource supplies the most recently created pull requests of a repository.
type PullRequestSource interface {
	PullRequests(ctx context.Context, org, repo string, count int) ([]review.PullRequest, error)
}

// Aggregator computes repository metrics over pull requests from a source.
type Aggregator struct {
	source PullRequestSource
}

func NewAggregator(source PullRequestSource) *Aggregator {
	return &Aggregator{source: source}
}

// SinglePRMetrics returns per-PR rows for up to count recent pull requests
// and statistics over their latency columns.
func (a *Aggregator) SinglePRMetrics(ctx context.Context, org, repo string, count int, roster review.Roster) ([]PRRow, []StatRow, error) {
	prs, err := a.fetch(ctx, org, repo, count)
	if err != nil {
		return nil, nil, err
	}

	rows := BuildRows(prs, roster)
	stats, err := Stats(rows)
	if err != nil {
		return nil, nil, fmt.Errorf("statistics for %s/%s: %w", org, repo, err)
	}
	return rows, stats, nil
}

// ReviewerActions returns weekly tier1 and tier2 action counts for up to
// count recent pull requests.
func (a *Aggregator) ReviewerActions(ctx context.Context, org, repo string, count int, roster review.Roster) ([]WeeklyRow, []WeeklyRow, error) {
	prs, err := a.fetch(ctx, org, repo, count)
	if err != nil {
		return nil, nil, err
	}
	tier1, tier2 := WeeklyActions(prs, roster)
	return tier1, tier2, nil
}

func (a *Aggregator) fetch(ctx context.Context, org, repo string, count int) ([]review.PullRequest, error) {
	if count <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCount, count)
	}
	prs, err := a.source.PullRequests(ctx, org, repo, count)
	if err != nil {
		return nil, fmt.Errorf("failed to get pull requests for %s/%s: %w", org, repo, err)
	}
	return prs, nil
}
