// Package report renders metric rows as tables, CSV and JSON and writes them to disk.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/SatelliteQE/repo-metrics/internal/metrics"
)

// Format selects an output renderer.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want table, csv or json)", s)
	}
}

// Table is a header plus rows of cells.
type Table struct {
	Title  string
	Header []string
	Rows   [][]string
}

// PRTable renders per-PR metric rows.
func PRTable(rows []metrics.PRRow) Table {
	t := Table{Title: "Gathered metrics for time to review", Header: metrics.PRHeader()}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Cells())
	}
	return t
}

// StatTable renders latency statistics.
func StatTable(stats []metrics.StatRow) Table {
	t := Table{Title: "Latency statistics (hours)", Header: metrics.StatHeader()}
	for _, s := range stats {
		t.Rows = append(t.Rows, s.Cells())
	}
	return t
}

// WeeklyTable renders weekly reviewer actions with one column per reviewer
// seen in any row.
func WeeklyTable(title string, rows []metrics.WeeklyRow) Table {
	reviewers := metrics.Reviewers(rows)
	t := Table{Title: title, Header: metrics.WeeklyHeader(reviewers)}
	for _, r := range rows {
		t.Rows = append(t.Rows, r.Cells(reviewers))
	}
	return t
}

// Markdown writes t as a GitHub-flavoured pipe table.
func Markdown(w io.Writer, t Table) error {
	var b strings.Builder
	if t.Title != "" {
		fmt.Fprintf(&b, "%s\n%s\n", t.Title, strings.Repeat("-", len(t.Title)))
	}

	widths := make([]int, len(t.Header))
	for i, h := range t.Header {
		widths[i] = len(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	writeRow := func(cells []string) {
		b.WriteString("|")
		for i, w := range widths {
			cell := ""
			if i < len(cells) {
				cell = cells[i]
			}
			fmt.Fprintf(&b, " %-*s |", w, cell)
		}
		b.WriteString("\n")
	}

	writeRow(t.Header)
	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w+2) + "|")
	}
	b.WriteString("\n")
	for _, row := range t.Rows {
		writeRow(row)
	}
	if len(t.Rows) == 0 {
		b.WriteString("No rows.\n")
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// CSV writes t with its header row.
func CSV(w io.Writer, t Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.Header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// JSON writes v indented.
func JSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Render writes the tables in the given format; JSON renders payload instead.
func Render(w io.Writer, f Format, payload any, tables ...Table) error {
	switch f {
	case FormatJSON:
		return JSON(w, payload)
	case FormatCSV:
		for _, t := range tables {
			if err := CSV(w, t); err != nil {
				return err
			}
		}
		return nil
	default:
		for _, t := range tables {
			if err := Markdown(w, t); err != nil {
				return err
			}
		}
		return nil
	}
}

// OutputPath builds "<dir>/<prefix stem>-<metric>-<epoch>.json".
// Only the base name of prefix is kept, without extension.
func OutputPath(dir, prefix, metric string, now time.Time) string {
	stem := strings.TrimSuffix(filepath.Base(prefix), filepath.Ext(prefix))
	return filepath.Join(dir, fmt.Sprintf("%s-%s-%d.json", stem, metric, now.Unix()))
}

// WriteFile writes v as JSON to path, creating parent directories.
func WriteFile(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	if err := JSON(file, v); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return file.Close()
}
