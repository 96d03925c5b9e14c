package blip

import (
	"log/slog"
	"time"
)

// Observer receives fetch progress and diagnostics. Implementations are
// reporting-only; the fetch loop never depends on them.
type Observer interface {
	// PageFetched is called after each page with the page size and running total.
	PageFetched(skip, items, total int)
	// Backoff is called before sleeping ahead of a retry.
	Backoff(skip, statusCode int, delay time.Duration, retry int)
	// Failed is called once when the loop stops on an error.
	Failed(skip int, err error)
}

// NopObserver discards all notifications.
type NopObserver struct{}

func (NopObserver) PageFetched(int, int, int)            {}
func (NopObserver) Backoff(int, int, time.Duration, int) {}
func (NopObserver) Failed(int, error)                    {}

// LogObserver writes notifications to a structured logger.
type LogObserver struct {
	Logger *slog.Logger
}

func (o LogObserver) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}

func (o LogObserver) PageFetched(skip, items, total int) {
	o.logger().Info("page fetched", "skip", skip, "items", items, "total", total)
}

func (o LogObserver) Backoff(skip, statusCode int, delay time.Duration, retry int) {
	o.logger().Warn("transient upstream error, backing off",
		"skip", skip, "status", statusCode, "delay", delay, "retry", retry)
}

func (o LogObserver) Failed(skip int, err error) {
	o.logger().Error("event fetch stopped", "skip", skip, "error", err)
}

// MultiObserver fans notifications out to several observers.
type MultiObserver []Observer

func (m MultiObserver) PageFetched(skip, items, total int) {
	for _, o := range m {
		o.PageFetched(skip, items, total)
	}
}

func (m MultiObserver) Backoff(skip, statusCode int, delay time.Duration, retry int) {
	for _, o := range m {
		o.Backoff(skip, statusCode, delay, retry)
	}
}

func (m MultiObserver) Failed(skip int, err error) {
	for _, o := range m {
		o.Failed(skip, err)
	}
}
