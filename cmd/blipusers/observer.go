package main

import (
	"io"
	"time"

	"github.com/fatih/color"
)

// consoleObserver prints fetch progress for a human watching the run.
type consoleObserver struct {
	w    io.Writer
	info *color.Color
	warn *color.Color
	fail *color.Color
}

func newConsoleObserver(w io.Writer) *consoleObserver {
	return &consoleObserver{
		w:    w,
		info: color.New(color.FgHiBlack),
		warn: color.New(color.FgYellow),
		fail: color.New(color.FgRed, color.Bold),
	}
}

func (o *consoleObserver) PageFetched(skip, items, total int) {
	_, _ = o.info.Fprintf(o.w, "page skip=%d: %d items, %d collected\n", skip, items, total)
}

func (o *consoleObserver) Backoff(skip, statusCode int, delay time.Duration, retry int) {
	_, _ = o.warn.Fprintf(o.w, "Upstream instability (HTTP %d) at skip=%d. Retry %d in %.1fs...\n",
		statusCode, skip, retry, delay.Seconds())
}

func (o *consoleObserver) Failed(skip int, err error) {
	_, _ = o.fail.Fprintf(o.w, "Fetch stopped at skip=%d: %v\n", skip, err)
}
