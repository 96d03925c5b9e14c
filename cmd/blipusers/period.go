package main

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// resolvePeriod returns the UTC query window. With no dates it is the last
// days ending at now; with --from/--to it spans whole UTC days, the end day
// included up to 23:59:59. A missing --from defaults to defaultDays before
// the end day, a missing --to to today.
func resolvePeriod(now time.Time, days int, from, to string) (time.Time, time.Time, error) {
	now = now.UTC()
	if from == "" && to == "" {
		if days < minDays || days > maxDays {
			return time.Time{}, time.Time{}, fmt.Errorf("--days must be between %d and %d", minDays, maxDays)
		}
		return now.Add(-time.Duration(days) * 24 * time.Hour), now, nil
	}

	endDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	if to != "" {
		parsed, err := time.ParseInLocation(dateLayout, to, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --to value (expected YYYY-MM-DD): %w", err)
		}
		endDay = parsed
	}
	startDay := endDay.AddDate(0, 0, -defaultDays)
	if from != "" {
		parsed, err := time.ParseInLocation(dateLayout, from, time.UTC)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid --from value (expected YYYY-MM-DD): %w", err)
		}
		startDay = parsed
	}
	if endDay.Before(startDay) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must not be before --from")
	}
	return startDay, endDay.Add(24*time.Hour - time.Second), nil
}
