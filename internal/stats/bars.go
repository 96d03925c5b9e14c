package stats

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

const (
	minBarWidth         = 10
	terminalWidthBackup = 80
	insideGlyph         = "█"
	outsideGlyph        = "░"
)

// BarRow is one stacked bar: inside users first, outside users after.
type BarRow struct {
	Label  string
	Counts model.BucketCounts
}

// RenderBars draws horizontal stacked bars scaled to the largest total.
// width <= 0 sizes the bars to the terminal.
func RenderBars(w io.Writer, rows []BarRow, labels Labels, width int, forceColor bool) error {
	if len(rows) == 0 {
		return nil
	}
	labelWidth := 0
	maxTotal := 0
	for _, r := range rows {
		if lw := displayWidth(r.Label); lw > labelWidth {
			labelWidth = lw
		}
		if t := r.Counts.Total(); t > maxTotal {
			maxTotal = t
		}
	}
	if width <= 0 {
		width = BarWidthFor(terminalWidth(), labelWidth)
	}

	useColor := shouldUseColor(w, forceColor)
	in := color.New(color.FgCyan)
	out := color.New(color.FgYellow)
	if useColor {
		in.EnableColor()
		out.EnableColor()
	} else {
		in.DisableColor()
		out.DisableColor()
	}

	for _, r := range rows {
		inLen, outLen := barLengths(r.Counts, maxTotal, width)
		line := fmt.Sprintf("%s │%s%s %d",
			padCell(r.Label, labelWidth, false),
			in.Sprint(strings.Repeat(insideGlyph, inLen)),
			out.Sprint(strings.Repeat(outsideGlyph, outLen)),
			r.Counts.Total(),
		)
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	legend := fmt.Sprintf("%s %s  %s %s",
		in.Sprint(insideGlyph), labels.Inside,
		out.Sprint(outsideGlyph), labels.Outside,
	)
	_, err := fmt.Fprintln(w, legend)
	return err
}

// barLengths scales c to width cells. A non-zero count always gets at least
// one cell.
func barLengths(c model.BucketCounts, maxTotal, width int) (int, int) {
	if maxTotal <= 0 || width <= 0 {
		return 0, 0
	}
	scale := func(n int) int {
		if n <= 0 {
			return 0
		}
		cells := n * width / maxTotal
		if cells == 0 {
			cells = 1
		}
		return cells
	}
	return scale(c.Inside), scale(c.Outside)
}

// BarWidthFor computes a bar width that fits the label column and the total
// suffix within totalWidth.
func BarWidthFor(totalWidth, labelWidth int) int {
	if totalWidth <= 0 {
		return minBarWidth
	}
	barWidth := totalWidth - labelWidth - displayWidth(" │") - displayWidth(" 00000")
	if barWidth < minBarWidth {
		barWidth = minBarWidth
	}
	return barWidth
}

// WeekBars returns one bar per ISO week.
func WeekBars(s model.Summary) []BarRow {
	rows := make([]BarRow, 0, len(s.Weekly))
	for _, w := range s.Weekly {
		rows = append(rows, BarRow{Label: w.Label, Counts: w.Counts})
	}
	return rows
}

// WeekdayBars returns one bar per weekday, Monday first.
func WeekdayBars(s model.Summary) []BarRow {
	rows := make([]BarRow, 0, len(s.Weekday))
	for _, d := range s.Weekday {
		rows = append(rows, BarRow{Label: d.Name, Counts: d.Counts})
	}
	return rows
}

// HourBars returns one bar per hour of day.
func HourBars(s model.Summary) []BarRow {
	rows := make([]BarRow, 0, len(s.Hourly))
	for _, h := range s.Hourly {
		rows = append(rows, BarRow{Label: FormatHour(h.Hour), Counts: h.Counts})
	}
	return rows
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

func shouldUseColor(w io.Writer, force bool) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	if force {
		return true
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}
