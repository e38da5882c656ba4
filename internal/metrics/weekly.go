package metrics

import (
	"sort"
	"strconv"
	"time"

	"github.com/SatelliteQE/repo-metrics/internal/review"
	"github.com/SatelliteQE/repo-metrics/internal/timeline"
)

const dateLayout = "2006-01-02"

// WeeklyRow counts reviewer actions within one ISO week.
// Counts only holds logins active that week.
type WeeklyRow struct {
	Week   string         `json:"week"`
	Year   int            `json:"iso_year"`
	Number int            `json:"iso_week"`
	Counts map[string]int `json:"counts"`
}

type isoWeek struct {
	year, week int
}

// WeeklyActions buckets tier1 and tier2 actions of all prs by ISO week.
func WeeklyActions(prs []review.PullRequest, roster review.Roster) (tier1, tier2 []WeeklyRow) {
	t1 := make(map[isoWeek]*WeeklyRow)
	t2 := make(map[isoWeek]*WeeklyRow)
	for _, pr := range prs {
		f := review.Analyze(pr, roster)
		bucket(t1, f.Tiers.Tier1)
		bucket(t2, f.Tiers.Tier2)
	}
	return flatten(t1), flatten(t2)
}

func bucket(buckets map[isoWeek]*WeeklyRow, events []timeline.Event) {
	for _, e := range events {
		ts := e.OccurredAt().UTC()
		year, week := ts.ISOWeek()
		key := isoWeek{year, week}
		row, ok := buckets[key]
		if !ok {
			row = &WeeklyRow{
				Week:   WeekLabel(ts),
				Year:   year,
				Number: week,
				Counts: make(map[string]int),
			}
			buckets[key] = row
		}
		row.Counts[e.Author()]++
	}
}

func flatten(buckets map[isoWeek]*WeeklyRow) []WeeklyRow {
	rows := make([]WeeklyRow, 0, len(buckets))
	for _, r := range buckets {
		rows = append(rows, *r)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Week > rows[j].Week })
	return rows
}

// WeekLabel returns the Monday to Sunday date range of the ISO week holding t.
func WeekLabel(t time.Time) string {
	t = t.UTC()
	monday := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC).
		AddDate(0, 0, -((int(t.Weekday()) + 6) % 7))
	return monday.Format(dateLayout) + " - " + monday.AddDate(0, 0, 6).Format(dateLayout)
}

// Reviewers returns the logins present in rows, sorted.
func Reviewers(rows []WeeklyRow) []string {
	seen := make(map[string]struct{})
	for _, r := range rows {
		for login := range r.Counts {
			seen[login] = struct{}{}
		}
	}
	logins := make([]string, 0, len(seen))
	for l := range seen {
		logins = append(logins, l)
	}
	sort.Strings(logins)
	return logins
}

// WeeklyHeader is the week column followed by reviewers.
func WeeklyHeader(reviewers []string) []string {
	return append([]string{"Week"}, reviewers...)
}

// Cells renders the row against reviewers; logins absent that week get the placeholder.
func (r WeeklyRow) Cells(reviewers []string) []string {
	cells := []string{r.Week}
	for _, l := range reviewers {
		if n, ok := r.Counts[l]; ok {
			cells = append(cells, strconv.Itoa(n))
		} else {
			cells = append(cells, Placeholder)
		}
	}
	return cells
}
