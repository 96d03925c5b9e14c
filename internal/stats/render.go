package stats

import (
	"fmt"
	"io"
	"strconv"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

// RenderOptions controls the text report.
type RenderOptions struct {
	Bars       bool
	BarWidth   int
	ForceColor bool
}

// Headline is the KPI line printed above every report. Percentages here use
// one decimal; the share table keeps two.
func Headline(r Report) string {
	total := r.Summary.Total
	in := r.Summary.Share(model.Inside)
	out := r.Summary.Share(model.Outside)
	return fmt.Sprintf("Users: %d | %s: %d (%s) | %s: %d (%s)",
		total,
		r.Labels.Inside, in.Users, kpiPercent(in.Users, total),
		r.Labels.Outside, out.Users, kpiPercent(out.Users, total),
	)
}

func kpiPercent(n, total int) string {
	if total < 1 {
		total = 1
	}
	return strconv.FormatFloat(float64(n)/float64(total)*100, 'f', 1, 64) + "%"
}

// FormatPercent prints a two-decimal percentage.
func FormatPercent(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64) + "%"
}

// FormatHour prints an hour of day as HH:00.
func FormatHour(h int) string {
	return fmt.Sprintf("%02d:00", h)
}

// RenderText writes the headline and every summary table to w.
func RenderText(w io.Writer, r Report, opts RenderOptions) error {
	if _, err := fmt.Fprintln(w, Headline(r)); err != nil {
		return err
	}
	if r.Empty() {
		_, err := fmt.Fprintln(w, "No first contacts in the selected period.")
		return err
	}

	sections := []struct {
		title   string
		headers []string
		rows    [][]string
		bars    []BarRow
	}{
		{"Share of users", ShareHeaders(r.Labels), ShareRows(r.Summary), nil},
		{"By ISO week", CountHeaders(r.Labels.Columns.Week, r.Labels), WeekRows(r.Summary), WeekBars(r.Summary)},
		{"By weekday", CountHeaders(r.Labels.Columns.Weekday, r.Labels), WeekdayRows(r.Summary), WeekdayBars(r.Summary)},
		{"By hour", CountHeaders(r.Labels.Columns.Hour, r.Labels), HourRows(r.Summary), HourBars(r.Summary)},
	}
	for _, s := range sections {
		if _, err := fmt.Fprintf(w, "\n%s\n", s.title); err != nil {
			return err
		}
		for _, line := range FormatTable(s.headers, s.rows, CountAlign) {
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
		if opts.Bars && len(s.bars) > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
			if err := RenderBars(w, s.bars, r.Labels, opts.BarWidth, opts.ForceColor); err != nil {
				return err
			}
		}
	}
	return nil
}

// CountAlign right-aligns the numeric columns of share and count tables.
var CountAlign = map[int]bool{1: true, 2: true, 3: true}

// ShareHeaders returns the column names of the share table.
func ShareHeaders(labels Labels) []string {
	c := labels.Columns
	return []string{c.Bucket, c.Users, c.Percent}
}

// ShareRows returns the share table cells.
func ShareRows(s model.Summary) [][]string {
	rows := make([][]string, 0, len(s.Shares))
	for _, share := range s.Shares {
		rows = append(rows, []string{share.Label, strconv.Itoa(share.Users), FormatPercent(share.Percent)})
	}
	return rows
}

// CountHeaders returns the column names of a keyed inside/outside table.
func CountHeaders(key string, labels Labels) []string {
	return []string{key, labels.Inside, labels.Outside, labels.Columns.Total}
}

// WeekRows returns the weekly table cells.
func WeekRows(s model.Summary) [][]string {
	rows := make([][]string, 0, len(s.Weekly))
	for _, w := range s.Weekly {
		rows = append(rows, countRow(w.Label, w.Counts))
	}
	return rows
}

// WeekdayRows returns the weekday table cells, Monday first.
func WeekdayRows(s model.Summary) [][]string {
	rows := make([][]string, 0, len(s.Weekday))
	for _, d := range s.Weekday {
		rows = append(rows, countRow(d.Name, d.Counts))
	}
	return rows
}

// HourRows returns the hourly table cells.
func HourRows(s model.Summary) [][]string {
	rows := make([][]string, 0, len(s.Hourly))
	for _, h := range s.Hourly {
		rows = append(rows, countRow(FormatHour(h.Hour), h.Counts))
	}
	return rows
}

func countRow(key string, c model.BucketCounts) []string {
	return []string{key, strconv.Itoa(c.Inside), strconv.Itoa(c.Outside), strconv.Itoa(c.Total())}
}
