package stats

import (
	"bytes"
	"strings"
	"testing"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

func sampleEvents() []model.RawEvent {
	return []model.RawEvent{
		contactEvent("1", "2024-01-10T12:00:00Z", "a@wa"),
		contactEvent("2", "2024-01-10T13:00:00Z", "b@wa"),
		contactEvent("3", "2024-01-10T23:00:00Z", "c@wa"),
	}
}

func sampleReport() Report {
	return BuildReport(sampleEvents(), testConfig())
}

func TestHeadline(t *testing.T) {
	got := Headline(sampleReport())
	want := "Users: 3 | Inside: 2 (66.7%) | Outside: 1 (33.3%)"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, sampleReport(), RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Share of users",
		"By ISO week",
		"2024-W02",
		"Wednesday",
		"09:00",
		"Hour   Inside  Outside  Total",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, insideGlyph) {
		t.Fatalf("expected no bars without the option")
	}
}

func TestRenderTextWithBars(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, sampleReport(), RenderOptions{Bars: true, BarWidth: 20}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), insideGlyph+" Inside  "+outsideGlyph+" Outside") {
		t.Fatalf("expected a bar legend:\n%s", buf.String())
	}
}

func TestHeadersFollowLocale(t *testing.T) {
	pt := LabelsFor("pt-BR")
	if got := strings.Join(ShareHeaders(pt), "|"); got != "Horário|Usuários únicos|Percentual (%)" {
		t.Fatalf("unexpected share headers %q", got)
	}
	if got := strings.Join(CountHeaders(pt.Columns.Weekday, pt), "|"); got != "Dia|Dentro|Fora|Total" {
		t.Fatalf("unexpected weekday headers %q", got)
	}

	cfg := testConfig()
	cfg.Locale = "pt"
	var buf bytes.Buffer
	if err := RenderText(&buf, BuildReport(sampleEvents(), cfg), RenderOptions{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Usuários únicos", "Semana", "Quarta-feira"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected output to contain %q:\n%s", want, out)
		}
	}
	for _, unwanted := range []string{"Weekday", "Hour "} {
		if strings.Contains(out, unwanted) {
			t.Fatalf("expected no English header %q:\n%s", unwanted, out)
		}
	}
}

func TestRenderTextEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderText(&buf, BuildReport(nil, testConfig()), RenderOptions{Bars: true}); err != nil {
		t.Fatalf("render: %v", err)
	}
	want := "Users: 0 | Inside: 0 (0.0%) | Outside: 0 (0.0%)\nNo first contacts in the selected period.\n"
	if buf.String() != want {
		t.Fatalf("unexpected output: %q", buf.String())
	}
}

func TestRenderBars(t *testing.T) {
	rows := []BarRow{
		{Label: "A", Counts: model.BucketCounts{Inside: 5, Outside: 5}},
		{Label: "BB", Counts: model.BucketCounts{Inside: 1}},
		{Label: "C"},
	}
	var buf bytes.Buffer
	if err := RenderBars(&buf, rows, LabelsFor("en"), 10, false); err != nil {
		t.Fatalf("render bars: %v", err)
	}
	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	want := []string{
		"A  │█████░░░░░ 10",
		"BB │█ 1",
		"C  │ 0",
		"█ Inside  ░ Outside",
	}
	if len(lines) != len(want) {
		t.Fatalf("expected %d lines, got %d:\n%s", len(want), len(lines), buf.String())
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestBarLengths(t *testing.T) {
	tests := []struct {
		counts  model.BucketCounts
		max     int
		width   int
		in, out int
	}{
		{model.BucketCounts{Inside: 10, Outside: 0}, 10, 20, 20, 0},
		{model.BucketCounts{Inside: 1, Outside: 1}, 100, 20, 1, 1},
		{model.BucketCounts{}, 0, 20, 0, 0},
		{model.BucketCounts{Inside: 3}, 3, 0, 0, 0},
	}
	for _, tt := range tests {
		in, out := barLengths(tt.counts, tt.max, tt.width)
		if in != tt.in || out != tt.out {
			t.Fatalf("barLengths(%+v, %d, %d) = %d, %d; want %d, %d", tt.counts, tt.max, tt.width, in, out, tt.in, tt.out)
		}
	}
}

func TestBarWidthFor(t *testing.T) {
	if got := BarWidthFor(80, 8); got != 64 {
		t.Fatalf("expected 64, got %d", got)
	}
	if got := BarWidthFor(0, 8); got != minBarWidth {
		t.Fatalf("expected min width %d, got %d", minBarWidth, got)
	}
	if got := BarWidthFor(15, 8); got != minBarWidth {
		t.Fatalf("expected min width %d, got %d", minBarWidth, got)
	}
}
