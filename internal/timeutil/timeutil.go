// Package timeutil normalizes event timestamps and classifies local hours
// against a business-hours window.
package timeutil

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

// Timestamp fields in preference order.
const (
	StorageDateField = "storageDate"
	EventDateField   = "eventDate"
)

// layouts without an explicit zone are read as UTC.
var layouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp converts a raw timestamp value into a UTC instant.
func ParseTimestamp(v any) (time.Time, bool) {
	switch ts := v.(type) {
	case time.Time:
		if ts.IsZero() {
			return time.Time{}, false
		}
		return ts.UTC(), true
	case *time.Time:
		if ts == nil {
			return time.Time{}, false
		}
		return ParseTimestamp(*ts)
	case string:
		return parseString(ts)
	default:
		return time.Time{}, false
	}
}

func parseString(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatISOZ formats t as a second-precision UTC instant with a Z suffix.
func FormatISOZ(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}

// LoadLocation resolves an IANA timezone name.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("timezone is empty")
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", name, err)
	}
	return loc, nil
}

// IsInside reports whether hour falls in the business window [start, end).
// A window with start > end wraps midnight.
func IsInside(hour, start, end int) bool {
	if hour < 0 || hour > 23 {
		return false
	}
	if start <= end {
		return start <= hour && hour < end
	}
	return hour >= start || hour < end
}

// Classify buckets an hour value of unknown type. Anything that is not an
// integral hour is Outside.
func Classify(hour any, start, end int) model.Bucket {
	h, ok := coerceHour(hour)
	if ok && IsInside(h, start, end) {
		return model.Inside
	}
	return model.Outside
}

func coerceHour(v any) (int, bool) {
	switch h := v.(type) {
	case int:
		return h, true
	case int32:
		return int(h), true
	case int64:
		return int(h), true
	case json.Number:
		n, err := h.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case float64:
		if math.IsNaN(h) || math.IsInf(h, 0) || h != math.Trunc(h) {
			return 0, false
		}
		return int(h), true
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(h))
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}
