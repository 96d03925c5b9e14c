// Package model defines shared data structures.
package model

import "time"

// RawEvent is a single event-track record as decoded from the analytics API.
// No schema is enforced; absent fields read as nil.
type RawEvent map[string]any

// Bucket classifies a local hour against the business-hours window.
type Bucket string

const (
	Inside  Bucket = "Inside"
	Outside Bucket = "Outside"
)

// Buckets lists buckets in reporting order.
var Buckets = []Bucket{Inside, Outside}

// ReportConfig defines how raw events are normalized and labeled.
type ReportConfig struct {
	Location  *time.Location
	StartHour int
	EndHour   int
	Locale    string
}

// NormalizedEvent is a raw event enriched with time and identity fields.
type NormalizedEvent struct {
	Raw     RawEvent
	UTC     time.Time
	Local   time.Time
	Hour    int
	UserID  string
	HasUser bool
	Bucket  Bucket
}

// BucketCounts holds per-bucket counts for one summary row.
type BucketCounts struct {
	Inside  int
	Outside int
}

// Add increments the counter for b.
func (c *BucketCounts) Add(b Bucket) {
	if b == Inside {
		c.Inside++
		return
	}
	c.Outside++
}

// Total returns Inside + Outside.
func (c BucketCounts) Total() int {
	return c.Inside + c.Outside
}

// Get returns the count for b.
func (c BucketCounts) Get(b Bucket) int {
	if b == Inside {
		return c.Inside
	}
	return c.Outside
}

// BucketShare is one row of the inside/outside summary.
type BucketShare struct {
	Bucket  Bucket
	Label   string
	Users   int
	Percent float64
}

// WeekRow is one ISO week of first contacts.
type WeekRow struct {
	Year   int
	Week   int
	Label  string
	Counts BucketCounts
}

// WeekdayRow is one weekday of first contacts.
type WeekdayRow struct {
	Day    time.Weekday
	Name   string
	Counts BucketCounts
}

// HourRow is one local hour of first contacts.
type HourRow struct {
	Hour   int
	Counts BucketCounts
}

// Summary aggregates the first-contact table.
type Summary struct {
	Total   int
	Shares  []BucketShare
	Weekly  []WeekRow
	Weekday []WeekdayRow
	Hourly  []HourRow
}

// Share returns the share row for b.
func (s Summary) Share(b Bucket) BucketShare {
	for _, sh := range s.Shares {
		if sh.Bucket == b {
			return sh
		}
	}
	return BucketShare{Bucket: b}
}
