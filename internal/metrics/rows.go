package metrics

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/SatelliteQE/repo-metrics/internal/review"
)

// Placeholder is rendered in place of an absent value.
const Placeholder = "---"

// Column names of the latency figures, shared by rows and stats.
const (
	ColumnHoursToComment = "Hours to Comment"
	ColumnHoursToTier1   = "Hours to Tier1"
	ColumnHoursToTier2   = "Hours to Tier2"
	ColumnTier1ToTier2   = "Tier1 to Tier2"
)

// PRRow is one pull request's metrics, ready for rendering.
type PRRow struct {
	Number           int      `json:"pr"`
	Author           string   `json:"author"`
	State            string   `json:"state"`
	Files            int      `json:"files"`
	Additions        int      `json:"additions"`
	Deletions        int      `json:"deletions"`
	HoursToComment   *float64 `json:"hours_to_comment"`
	HoursToTier1     *float64 `json:"hours_to_tier1"`
	HoursToTier2     *float64 `json:"hours_to_tier2"`
	Tier1ToTier2     *float64 `json:"tier1_to_tier2"`
	NonTierReviewers []string `json:"non_tier_reviewers"`
	Tier1Reviewers   []string `json:"tier1_reviewers"`
	Tier2Reviewers   []string `json:"tier2_reviewers"`
	MergedBy         string   `json:"merged_by"`
}

// LineChanges formats additions and deletions as "+ A / - D".
func (r PRRow) LineChanges() string {
	return fmt.Sprintf("+ %d / - %d", r.Additions, r.Deletions)
}

// PRHeader is the column order used by Cells.
func PRHeader() []string {
	return []string{
		"PR", "Author", "State", "Files", "Line Changes",
		ColumnHoursToComment, ColumnHoursToTier1, ColumnHoursToTier2, ColumnTier1ToTier2,
		"Non-Tier Reviewers", "Tier1 Reviewers", "Tier2 Reviewers", "Merged By",
	}
}

// Cells renders the row in PRHeader order.
func (r PRRow) Cells() []string {
	return []string{
		strconv.Itoa(r.Number),
		r.Author,
		r.State,
		strconv.Itoa(r.Files),
		r.LineChanges(),
		formatHours(r.HoursToComment),
		formatHours(r.HoursToTier1),
		formatHours(r.HoursToTier2),
		formatHours(r.Tier1ToTier2),
		joinOrPlaceholder(r.NonTierReviewers),
		strings.Join(r.Tier1Reviewers, ", "),
		strings.Join(r.Tier2Reviewers, ", "),
		r.MergedBy,
	}
}

// BuildRows derives one row per pull request, highest PR number first.
func BuildRows(prs []review.PullRequest, roster review.Roster) []PRRow {
	rows := make([]PRRow, 0, len(prs))
	for _, pr := range prs {
		f := review.Analyze(pr, roster)
		rows = append(rows, PRRow{
			Number:           pr.Number,
			Author:           pr.Author,
			State:            pr.DisplayState(),
			Files:            pr.ChangedFiles,
			Additions:        pr.Additions,
			Deletions:        pr.Deletions,
			HoursToComment:   f.HoursToFirstReview,
			HoursToTier1:     f.HoursToTier1,
			HoursToTier2:     f.HoursToTier2,
			Tier1ToTier2:     f.HoursTier1ToTier2,
			NonTierReviewers: f.NonTierReviewers,
			Tier1Reviewers:   sorted(f.Tier1Reviewers()),
			Tier2Reviewers:   sorted(f.Tier2Reviewers()),
			MergedBy:         pr.MergedBy,
		})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Number > rows[j].Number })
	return rows
}

func sorted(s []string) []string {
	out := append([]string(nil), s...)
	sort.Strings(out)
	return out
}

func formatHours(h *float64) string {
	if h == nil {
		return Placeholder
	}
	return strconv.FormatFloat(*h, 'f', 1, 64)
}

func joinOrPlaceholder(s []string) string {
	if len(s) == 0 {
		return Placeholder
	}
	return strings.Join(s, ", ")
}
