// Package export writes report tables as CSV files and round-trips raw
// event dumps.
package export

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/stats"
)

// File names written by WriteAll.
const (
	EventsFile        = "events.csv"
	FirstContactsFile = "first_contacts.csv"
	SummaryFile       = "summary.csv"
	WeeklyFile        = "weekly.csv"
	WeekdayFile       = "weekday.csv"
	HourlyFile        = "hourly.csv"
)

// Columns derived from each raw record, written before the raw fields.
var derivedColumns = []string{"datetime_utc", "datetime_local", "hour", "user_id", "bucket"}

// WriteAll writes every report table into dir and returns the written paths.
func WriteAll(dir string, r stats.Report) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{EventsFile, func(w io.Writer) error { return WriteEvents(w, r.Events) }},
		{FirstContactsFile, func(w io.Writer) error { return WriteEvents(w, r.FirstContacts) }},
		{SummaryFile, func(w io.Writer) error {
			return WriteTable(w, stats.ShareHeaders(r.Labels), stats.ShareRows(r.Summary))
		}},
		{WeeklyFile, func(w io.Writer) error {
			return WriteTable(w, stats.CountHeaders(r.Labels.Columns.Week, r.Labels), stats.WeekRows(r.Summary))
		}},
		{WeekdayFile, func(w io.Writer) error {
			return WriteTable(w, stats.CountHeaders(r.Labels.Columns.Weekday, r.Labels), stats.WeekdayRows(r.Summary))
		}},
		{HourlyFile, func(w io.Writer) error {
			return WriteTable(w, stats.CountHeaders(r.Labels.Columns.Hour, r.Labels), stats.HourRows(r.Summary))
		}},
	}

	paths := make([]string, 0, len(files))
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := writeFile(path, f.write); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	if err := write(file); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", filepath.Base(path), err)
	}
	return nil
}

// WriteTable writes a header row followed by rows.
func WriteTable(w io.Writer, headers []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return err
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteEvents writes normalized events: derived columns first, then the
// union of raw fields in sorted order.
func WriteEvents(w io.Writer, events []model.NormalizedEvent) error {
	rawKeys := RawColumns(events)
	headers := append(append([]string{}, derivedColumns...), rawKeys...)
	rows := make([][]string, 0, len(events))
	for _, ev := range events {
		row := make([]string, 0, len(headers))
		row = append(row,
			ev.UTC.Format(time.RFC3339Nano),
			ev.Local.Format(time.RFC3339Nano),
			strconv.Itoa(ev.Hour),
			userCell(ev),
			string(ev.Bucket),
		)
		for _, k := range rawKeys {
			row = append(row, CellValue(ev.Raw[k]))
		}
		rows = append(rows, row)
	}
	return WriteTable(w, headers, rows)
}

// RawColumns returns the sorted union of raw field names.
func RawColumns(events []model.NormalizedEvent) []string {
	seen := map[string]struct{}{}
	for _, ev := range events {
		for k := range ev.Raw {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func userCell(ev model.NormalizedEvent) string {
	if !ev.HasUser {
		return ""
	}
	return ev.UserID
}

// CellValue renders a raw field: strings and numbers as-is, nil as empty,
// anything else as compact JSON.
func CellValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return fmt.Sprint(v)
	}
	return string(bytes.TrimRight(buf.Bytes(), "\n"))
}
