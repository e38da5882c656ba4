package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SatelliteQE/repo-metrics/internal/review"
	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

// Monday of ISO week 2024-W19.
var t0 = time.Date(2024, 5, 6, 9, 0, 0, 0, time.UTC)

func at(h float64) time.Time {
	return t0.Add(time.Duration(h * float64(time.Hour)))
}

type fakeSource struct {
	prs   []review.PullRequest
	err   error
	count int
}

func (f *fakeSource) PullRequests(_ context.Context, _, _ string, count int) ([]review.PullRequest, error) {
	f.count = count
	return f.prs, f.err
}

var roster = review.NewRoster([]string{"bob", "carol"}, []string{"dave"})

func samplePRs() []review.PullRequest {
	return []review.PullRequest{
		{
			Number: 41, Author: "alice", CreatedAt: t0, State: review.StateMerged, MergedBy: "dave",
			ChangedFiles: 3, Additions: 10, Deletions: 2,
			Events: []timeline.Event{
				timeline.NewReview("carol", at(2), timeline.StateApproved, 0),
				timeline.NewComment("erin", at(1)),
				timeline.NewReview("dave", at(6), timeline.StateApproved, 0),
				timeline.NewComment("carol", at(3)),
			},
		},
		{
			Number: 42, Author: "alice", CreatedAt: t0, State: review.StateOpen,
			Events: []timeline.Event{timeline.NewComment("bob", at(5))},
		},
		{
			Number: 40, Author: "frank", CreatedAt: t0, State: review.StateOpen, IsDraft: true,
			Events: []timeline.Event{
				timeline.NewComment("bob", at(1)),
				timeline.NewComment("dave", at(4)),
			},
		},
	}
}

func TestBuildRows(t *testing.T) {
	rows := BuildRows(samplePRs(), roster)

	require.Len(t, rows, 3)
	assert.Equal(t, []int{42, 41, 40}, []int{rows[0].Number, rows[1].Number, rows[2].Number})

	pr42 := rows[0]
	assert.Equal(t, "OPEN", pr42.State)
	assert.Equal(t, []string{"42", "alice", "OPEN", "0", "+ 0 / - 0", "5.0", "5.0", "---", "---", "---", "bob", "", ""}, pr42.Cells())

	pr41 := rows[1]
	assert.Equal(t, "MERGED", pr41.State)
	assert.Equal(t, "+ 10 / - 2", pr41.LineChanges())
	require.NotNil(t, pr41.HoursToComment)
	assert.Equal(t, 1.0, *pr41.HoursToComment)
	require.NotNil(t, pr41.Tier1ToTier2)
	assert.Equal(t, 4.0, *pr41.Tier1ToTier2)
	assert.Equal(t, []string{"erin"}, pr41.NonTierReviewers)
	assert.Equal(t, []string{"carol"}, pr41.Tier1Reviewers)
	assert.Equal(t, []string{"dave"}, pr41.Tier2Reviewers)
	assert.Equal(t, "dave", pr41.MergedBy)

	pr40 := rows[2]
	assert.Equal(t, "OPEN - DRAFT", pr40.State)
	assert.Nil(t, pr40.HoursToComment)
	assert.NotNil(t, pr40.HoursToTier1)
	assert.Len(t, pr40.Cells(), len(PRHeader()))
}

func TestSummarize(t *testing.T) {
	s, err := Summarize("x", []float64{3.0, 1.0, 2.0})
	require.NoError(t, err)
	assert.Equal(t, 3, s.Count)
	assert.InDelta(t, 2.0, s.Mean, 1e-9)
	assert.InDelta(t, 2.0, s.Median, 1e-9)
	assert.InDelta(t, 0.8165, s.StdDev, 1e-4)

	s, err = Summarize("x", []float64{4, 1, 2, 3})
	require.NoError(t, err)
	assert.InDelta(t, 2.5, s.Median, 1e-9)

	_, err = Summarize("Hours to Tier2", nil)
	assert.ErrorIs(t, err, ErrNoValues)
	assert.Contains(t, err.Error(), "Hours to Tier2")
}

func TestStatsSkipsAbsentValues(t *testing.T) {
	one, two, three := 1.0, 2.0, 3.0
	rows := []PRRow{
		{HoursToComment: &one, HoursToTier1: &two, HoursToTier2: &three},
		{HoursToComment: &three, HoursToTier1: &two, HoursToTier2: &three},
		{},
	}

	stats, err := Stats(rows)
	require.NoError(t, err)
	require.Len(t, stats, 3)
	assert.Equal(t, ColumnHoursToComment, stats[0].Column)
	assert.Equal(t, 2, stats[0].Count)
	assert.InDelta(t, 2.0, stats[0].Mean, 1e-9)
	assert.InDelta(t, 1.0, stats[0].StdDev, 1e-9)
	assert.Equal(t, []string{ColumnHoursToTier1, "2", "2.00", "2.00", "0.00"}, stats[1].Cells())
}

func TestStatsReportsEveryEmptyColumn(t *testing.T) {
	one := 1.0
	_, err := Stats([]PRRow{{HoursToComment: &one}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoValues))
	assert.Contains(t, err.Error(), ColumnHoursToTier1)
	assert.Contains(t, err.Error(), ColumnHoursToTier2)
	assert.NotContains(t, err.Error(), ColumnHoursToComment+":")
}

func TestWeeklyActions(t *testing.T) {
	prs := []review.PullRequest{
		{
			Number: 1, Author: "alice", CreatedAt: t0, State: review.StateOpen,
			Events: []timeline.Event{
				timeline.NewComment("bob", at(1)),
				timeline.NewReview("bob", at(30), timeline.StateApproved, 0),
				timeline.NewComment("carol", at(24*7+1)),
				timeline.NewComment("dave", at(2)),
				timeline.NewComment("erin", at(3)),
			},
		},
		{
			Number: 2, Author: "bob", CreatedAt: t0, State: review.StateOpen,
			Events: []timeline.Event{
				timeline.NewComment("bob", at(4)),
				timeline.NewComment("carol", at(5)),
			},
		},
	}

	tier1, tier2 := WeeklyActions(prs, roster)

	require.Len(t, tier1, 2)
	assert.Equal(t, "2024-05-13 - 2024-05-19", tier1[0].Week)
	assert.Equal(t, map[string]int{"carol": 1}, tier1[0].Counts)
	assert.Equal(t, "2024-05-06 - 2024-05-12", tier1[1].Week)
	assert.Equal(t, 2024, tier1[1].Year)
	assert.Equal(t, 19, tier1[1].Number)
	assert.Equal(t, map[string]int{"bob": 2, "carol": 1}, tier1[1].Counts)

	require.Len(t, tier2, 1)
	assert.Equal(t, map[string]int{"dave": 1}, tier2[0].Counts)

	reviewers := Reviewers(tier1)
	assert.Equal(t, []string{"bob", "carol"}, reviewers)
	assert.Equal(t, []string{"Week", "bob", "carol"}, WeeklyHeader(reviewers))
	assert.Equal(t, []string{"2024-05-13 - 2024-05-19", "---", "1"}, tier1[0].Cells(reviewers))
}

func TestWeekLabel(t *testing.T) {
	sunday := time.Date(2024, 12, 29, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, "2024-12-23 - 2024-12-29", WeekLabel(sunday))

	// 2024-12-30 belongs to ISO week 2025-W01.
	monday := time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "2024-12-30 - 2025-01-05", WeekLabel(monday))
	y, w := monday.ISOWeek()
	assert.Equal(t, [2]int{2025, 1}, [2]int{y, w})
}

func TestAggregatorSinglePRMetrics(t *testing.T) {
	src := &fakeSource{prs: samplePRs()}
	agg := NewAggregator(src)

	rows, stats, err := agg.SinglePRMetrics(context.Background(), "SatelliteQE", "robottelo", 10, roster)
	require.NoError(t, err)
	assert.Equal(t, 10, src.count)
	assert.Len(t, rows, 3)
	require.Len(t, stats, 3)
	assert.Equal(t, 2, stats[0].Count)
}

func TestAggregatorFailsOnEmptyColumn(t *testing.T) {
	src := &fakeSource{prs: samplePRs()[1:2]}

	_, _, err := NewAggregator(src).SinglePRMetrics(context.Background(), "o", "r", 5, roster)
	assert.ErrorIs(t, err, ErrNoValues)
	assert.Contains(t, err.Error(), ColumnHoursToTier2)
}

func TestAggregatorErrors(t *testing.T) {
	agg := NewAggregator(&fakeSource{err: errors.New("boom")})

	_, _, err := agg.ReviewerActions(context.Background(), "o", "r", 5, roster)
	assert.ErrorContains(t, err, "boom")

	_, _, err = agg.ReviewerActions(context.Background(), "o", "r", 0, roster)
	assert.ErrorIs(t, err, ErrInvalidCount)
}

func TestAggregatorReviewerActions(t *testing.T) {
	agg := NewAggregator(&fakeSource{prs: samplePRs()})

	tier1, tier2, err := agg.ReviewerActions(context.Background(), "o", "r", 3, roster)
	require.NoError(t, err)
	require.Len(t, tier1, 1)
	assert.Equal(t, map[string]int{"bob": 2, "carol": 2}, tier1[0].Counts)
	require.Len(t, tier2, 1)
	assert.Equal(t, map[string]int{"dave": 2}, tier2[0].Counts)
}
