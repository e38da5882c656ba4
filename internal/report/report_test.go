package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SatelliteQE/repo-metrics/internal/metrics"
)

func TestMarkdown(t *testing.T) {
	var buf bytes.Buffer
	err := Markdown(&buf, Table{
		Title:  "Stats",
		Header: []string{"Metric", "Mean"},
		Rows:   [][]string{{"Hours to Comment", "2.00"}},
	})
	require.NoError(t, err)

	want := strings.Join([]string{
		"Stats",
		"-----",
		"| Metric           | Mean |",
		"|------------------|------|",
		"| Hours to Comment | 2.00 |",
		"",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())
}

func TestMarkdownEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Markdown(&buf, Table{Header: []string{"Week"}}))
	assert.Contains(t, buf.String(), "No rows.")
}

func TestWeeklyTableFillsGaps(t *testing.T) {
	rows := []metrics.WeeklyRow{
		{Week: "2024-05-13 - 2024-05-19", Counts: map[string]int{"carol": 1}},
		{Week: "2024-05-06 - 2024-05-12", Counts: map[string]int{"bob": 2}},
	}

	tbl := WeeklyTable("Tier1", rows)
	assert.Equal(t, []string{"Week", "bob", "carol"}, tbl.Header)
	assert.Equal(t, [][]string{
		{"2024-05-13 - 2024-05-19", "---", "1"},
		{"2024-05-06 - 2024-05-12", "2", "---"},
	}, tbl.Rows)
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	err := CSV(&buf, Table{Header: []string{"PR", "Tier1 Reviewers"}, Rows: [][]string{{"42", "bob, carol"}}})
	require.NoError(t, err)
	assert.Equal(t, "PR,Tier1 Reviewers\n42,\"bob, carol\"\n", buf.String())
}

func TestRenderJSON(t *testing.T) {
	h := 5.0
	payload := map[string]any{"pull_requests": []metrics.PRRow{{Number: 42, HoursToComment: &h}}}

	var buf bytes.Buffer
	require.NoError(t, Render(&buf, FormatJSON, payload, PRTable(nil)))

	var decoded struct {
		PullRequests []map[string]any `json:"pull_requests"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded.PullRequests, 1)
	assert.EqualValues(t, 42, decoded.PullRequests[0]["pr"])
	assert.EqualValues(t, 5, decoded.PullRequests[0]["hours_to_comment"])
	assert.Nil(t, decoded.PullRequests[0]["hours_to_tier1"])
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("CSV")
	require.NoError(t, err)
	assert.Equal(t, FormatCSV, f)

	_, err = ParseFormat("html")
	assert.Error(t, err)
}

func TestOutputPathAndWriteFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	now := time.Unix(1700000000, 0)

	path := OutputPath(dir, "/tmp/some/gathered-metrics.json", "pr-metrics", now)
	assert.Equal(t, filepath.Join(dir, "gathered-metrics-pr-metrics-1700000000.json"), path)

	require.NoError(t, WriteFile(path, map[string]int{"a": 1}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(data))
}
