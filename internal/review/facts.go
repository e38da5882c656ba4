package review

import (
	"math"
	"sort"
	"time"

	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

// Facts are the timing facts derived from one pull request.
// Latency fields are in hours, rounded to one decimal; nil means not
// applicable yet (no review, still draft, no action from that tier).
type Facts struct {
	// ReviewsAndComments excludes the PR author's own activity, oldest first.
	ReviewsAndComments []timeline.Event
	// ReadyTransitions is never empty: without explicit events it holds one
	// transition at creation time.
	ReadyTransitions []timeline.ReadyForReview
	// ComparisonDate is the instant review latency is measured from.
	// Only meaningful when ReviewsAndComments is not empty.
	ComparisonDate time.Time

	Tiers Partition
	// NonTierReviewers are distinct non-tier logins in first-seen order.
	NonTierReviewers []string

	HoursToFirstReview *float64
	HoursToTier1       *float64
	HoursToTier2       *float64
	HoursTier1ToTier2  *float64
}

// FirstReview returns the oldest review or comment by someone other than the author.
func (f Facts) FirstReview() (timeline.Event, bool) {
	if len(f.ReviewsAndComments) == 0 {
		return nil, false
	}
	return f.ReviewsAndComments[0], true
}

// Tier1Reviewers returns distinct tier1 logins in first-seen order.
func (f Facts) Tier1Reviewers() []string { return distinctAuthors(f.Tiers.Tier1) }

// Tier2Reviewers returns distinct tier2 logins in first-seen order.
func (f Facts) Tier2Reviewers() []string { return distinctAuthors(f.Tiers.Tier2) }

// Analyze derives the Facts for pr using roster to split reviewers by tier.
func Analyze(pr PullRequest, roster Roster) Facts {
	var f Facts

	for _, e := range pr.Events {
		if timeline.IsReviewAction(e) && e.Author() != pr.Author {
			f.ReviewsAndComments = append(f.ReviewsAndComments, e)
		}
		if r, ok := e.(timeline.ReadyForReview); ok {
			f.ReadyTransitions = append(f.ReadyTransitions, r)
		}
	}
	sortOldestFirst(f.ReviewsAndComments)
	sort.SliceStable(f.ReadyTransitions, func(i, j int) bool {
		return f.ReadyTransitions[i].OccurredAt().Before(f.ReadyTransitions[j].OccurredAt())
	})
	if len(f.ReadyTransitions) == 0 {
		f.ReadyTransitions = []timeline.ReadyForReview{timeline.NewReadyForReview(pr.Author, pr.CreatedAt)}
	}

	f.ComparisonDate = comparisonDate(pr, f.ReviewsAndComments, f.ReadyTransitions[0])
	f.Tiers = roster.Partition(f.ReviewsAndComments)
	f.NonTierReviewers = distinctAuthors(f.Tiers.NonTier)

	if first, ok := f.FirstReview(); ok && !pr.IsDraft {
		f.HoursToFirstReview = hoursBetween(f.ComparisonDate, first.OccurredAt())
	}
	if len(f.Tiers.Tier1) > 0 {
		f.HoursToTier1 = hoursBetween(f.ComparisonDate, f.Tiers.Tier1[0].OccurredAt())
	}
	if len(f.Tiers.Tier2) > 0 {
		f.HoursToTier2 = hoursBetween(f.ComparisonDate, f.Tiers.Tier2[0].OccurredAt())
	}
	f.HoursTier1ToTier2 = tier1ToTier2(f.Tiers)

	return f
}

// comparisonDate picks the start of the latency window. When the first
// review arrived after the first ready transition, the transition wins.
// Otherwise the PR was commented on before any ready event was recorded
// (typically while still a draft) and creation time is used.
func comparisonDate(pr PullRequest, reviews []timeline.Event, ready timeline.ReadyForReview) time.Time {
	if len(reviews) > 0 && reviews[0].OccurredAt().After(ready.OccurredAt()) {
		return ready.OccurredAt()
	}
	return pr.CreatedAt
}

// tier1ToTier2 is only meaningful when a tier1 approval happened before any
// tier2 activity; the guard below does not check that ordering.
func tier1ToTier2(p Partition) *float64 {
	if len(p.Tier2) == 0 {
		return nil
	}
	for _, e := range p.Tier1 {
		if r, ok := e.(timeline.Review); ok && r.Approved() {
			return hoursBetween(r.OccurredAt(), p.Tier2[0].OccurredAt())
		}
	}
	return nil
}

func sortOldestFirst(events []timeline.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].OccurredAt().Before(events[j].OccurredAt())
	})
}

func distinctAuthors(events []timeline.Event) []string {
	seen := make(map[string]struct{}, len(events))
	var logins []string
	for _, e := range events {
		if _, ok := seen[e.Author()]; ok {
			continue
		}
		seen[e.Author()] = struct{}{}
		logins = append(logins, e.Author())
	}
	return logins
}

func hoursBetween(from, to time.Time) *float64 {
	h := math.Round(to.Sub(from).Hours()*10) / 10
	return &h
}
