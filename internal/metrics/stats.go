package metrics

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
)

// ErrNoValues is returned when a latency column has nothing to summarize.
var ErrNoValues = errors.New("no values to compute statistics")

// StatRow summarizes one latency column.
type StatRow struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	StdDev float64 `json:"std_dev"`
}

func StatHeader() []string {
	return []string{"Metric", "Count", "Mean", "Median", "Std Dev"}
}

func (s StatRow) Cells() []string {
	return []string{
		s.Column,
		strconv.Itoa(s.Count),
		strconv.FormatFloat(s.Mean, 'f', 2, 64),
		strconv.FormatFloat(s.Median, 'f', 2, 64),
		strconv.FormatFloat(s.StdDev, 'f', 2, 64),
	}
}

// Stats summarizes the comment, tier1 and tier2 latency columns over the
// rows where a value is present. Every empty column is reported.
func Stats(rows []PRRow) ([]StatRow, error) {
	columns := []struct {
		name  string
		value func(PRRow) *float64
	}{
		{ColumnHoursToComment, func(r PRRow) *float64 { return r.HoursToComment }},
		{ColumnHoursToTier1, func(r PRRow) *float64 { return r.HoursToTier1 }},
		{ColumnHoursToTier2, func(r PRRow) *float64 { return r.HoursToTier2 }},
	}

	var (
		stats  []StatRow
		result *multierror.Error
	)
	for _, c := range columns {
		var values []float64
		for _, r := range rows {
			if v := c.value(r); v != nil {
				values = append(values, *v)
			}
		}
		s, err := Summarize(c.name, values)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		stats = append(stats, s)
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return stats, nil
}

// Summarize computes mean, median and population standard deviation.
func Summarize(column string, values []float64) (StatRow, error) {
	if len(values) == 0 {
		return StatRow{}, fmt.Errorf("%s: %w", column, ErrNoValues)
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))

	sumSquaredDiffs := 0.0
	for _, v := range values {
		diff := v - mean
		sumSquaredDiffs += diff * diff
	}

	return StatRow{
		Column: column,
		Count:  len(values),
		Mean:   mean,
		Median: median(values),
		StdDev: math.Sqrt(sumSquaredDiffs / float64(len(values))),
	}, nil
}

func median(values []float64) float64 {
	s := append([]float64(nil), values...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 1 {
		return s[mid]
	}
	return (s[mid-1] + s[mid]) / 2
}
