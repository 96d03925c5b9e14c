// Package stats turns raw event-track records into the first-contact table
// and its summaries, and renders them as text.
package stats

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/identity"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/timeutil"
)

const (
	contactField = "contact"
	senderField  = "from"
)

// Normalize parses timestamps, projects them into cfg.Location, extracts user
// identities and classifies each local hour. Records without a parseable
// timestamp are dropped.
func Normalize(raw []model.RawEvent, cfg model.ReportConfig) []model.NormalizedEvent {
	if len(raw) == 0 {
		return nil
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	field := timestampField(raw)

	events := make([]model.NormalizedEvent, 0, len(raw))
	for _, ev := range raw {
		utc, ok := timeutil.ParseTimestamp(ev[field])
		if !ok {
			continue
		}
		local := utc.In(loc)
		ne := model.NormalizedEvent{
			Raw:    ev,
			UTC:    utc,
			Local:  local,
			Hour:   local.Hour(),
			Bucket: timeutil.Classify(local.Hour(), cfg.StartHour, cfg.EndHour),
		}
		ne.UserID, ne.HasUser = identity.Extract(ev[contactField])
		events = append(events, ne)
	}
	applySenderFallback(events)
	return events
}

// timestampField picks storageDate unless no record has a parseable one and
// some record carries eventDate.
func timestampField(raw []model.RawEvent) string {
	for _, ev := range raw {
		if _, ok := timeutil.ParseTimestamp(ev[timeutil.StorageDateField]); ok {
			return timeutil.StorageDateField
		}
	}
	for _, ev := range raw {
		if _, ok := ev[timeutil.EventDateField]; ok {
			return timeutil.EventDateField
		}
	}
	return timeutil.StorageDateField
}

// applySenderFallback replaces every user id with the raw sender when no
// record yielded an identity from its contact field.
func applySenderFallback(events []model.NormalizedEvent) {
	hasSender := false
	for _, ev := range events {
		if ev.HasUser {
			return
		}
		if _, ok := ev.Raw[senderField]; ok {
			hasSender = true
		}
	}
	if !hasSender {
		return
	}
	for i := range events {
		events[i].UserID, events[i].HasUser = senderID(events[i].Raw[senderField])
	}
}

func senderID(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	default:
		return fmt.Sprint(s), true
	}
}

// FirstContacts keeps the earliest local event of each user. Events without
// a user are dropped; exact timestamp ties keep input order.
func FirstContacts(events []model.NormalizedEvent) []model.NormalizedEvent {
	sorted := make([]model.NormalizedEvent, len(events))
	copy(sorted, events)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Local.Before(sorted[j].Local)
	})

	seen := make(map[string]struct{}, len(sorted))
	out := make([]model.NormalizedEvent, 0, len(sorted))
	for _, ev := range sorted {
		if !ev.HasUser {
			continue
		}
		if _, ok := seen[ev.UserID]; ok {
			continue
		}
		seen[ev.UserID] = struct{}{}
		out = append(out, ev)
	}
	return out
}

// Summarize rolls the first-contact table up into the inside/outside shares
// and the weekly, weekday and hourly tables. An empty table yields zero rows
// for shares, weekdays and hours and no weeks.
func Summarize(first []model.NormalizedEvent, labels Labels) model.Summary {
	return model.Summary{
		Total:   len(first),
		Shares:  shares(first, labels),
		Weekly:  weekly(first),
		Weekday: weekdays(first, labels),
		Hourly:  hourly(first),
	}
}

func shares(first []model.NormalizedEvent, labels Labels) []model.BucketShare {
	var counts model.BucketCounts
	for _, ev := range first {
		counts.Add(ev.Bucket)
	}
	total := len(first)
	out := make([]model.BucketShare, 0, len(model.Buckets))
	for _, b := range model.Buckets {
		share := model.BucketShare{
			Bucket: b,
			Label:  labels.Bucket(b),
			Users:  counts.Get(b),
		}
		if total > 0 {
			share.Percent = round2(float64(share.Users) / float64(total) * 100)
		}
		out = append(out, share)
	}
	return out
}

func weekly(first []model.NormalizedEvent) []model.WeekRow {
	type isoWeek struct{ year, week int }
	counts := map[isoWeek]*model.BucketCounts{}
	for _, ev := range first {
		y, w := ev.Local.ISOWeek()
		key := isoWeek{y, w}
		if counts[key] == nil {
			counts[key] = &model.BucketCounts{}
		}
		counts[key].Add(ev.Bucket)
	}
	rows := make([]model.WeekRow, 0, len(counts))
	for key, c := range counts {
		rows = append(rows, model.WeekRow{
			Year:   key.year,
			Week:   key.week,
			Label:  WeekLabel(key.year, key.week),
			Counts: *c,
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Year != rows[j].Year {
			return rows[i].Year < rows[j].Year
		}
		return rows[i].Week < rows[j].Week
	})
	return rows
}

// WeekLabel formats an ISO week as YYYY-Www.
func WeekLabel(year, week int) string {
	return fmt.Sprintf("%d-W%02d", year, week)
}

func weekdays(first []model.NormalizedEvent, labels Labels) []model.WeekdayRow {
	var counts [7]model.BucketCounts
	for _, ev := range first {
		counts[ev.Local.Weekday()].Add(ev.Bucket)
	}
	rows := make([]model.WeekdayRow, 0, len(WeekdayOrder))
	for _, d := range WeekdayOrder {
		rows = append(rows, model.WeekdayRow{
			Day:    d,
			Name:   labels.Weekday(d),
			Counts: counts[d],
		})
	}
	return rows
}

func hourly(first []model.NormalizedEvent) []model.HourRow {
	var counts [24]model.BucketCounts
	for _, ev := range first {
		if ev.Hour >= 0 && ev.Hour < 24 {
			counts[ev.Hour].Add(ev.Bucket)
		}
	}
	rows := make([]model.HourRow, 24)
	for h := range rows {
		rows[h] = model.HourRow{Hour: h, Counts: counts[h]}
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
