package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/blip"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/config"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/export"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/timeutil"
)

func TestResolvePeriodDays(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	start, end, err := resolvePeriod(now, 7, "", "")
	if err != nil {
		t.Fatalf("resolvePeriod: %v", err)
	}
	if !end.Equal(now) {
		t.Fatalf("expected end %v, got %v", now, end)
	}
	if want := time.Date(2024, 3, 3, 15, 30, 0, 0, time.UTC); !start.Equal(want) {
		t.Fatalf("expected start %v, got %v", want, start)
	}
}

func TestResolvePeriodDates(t *testing.T) {
	now := time.Date(2024, 3, 10, 15, 30, 0, 0, time.UTC)
	tests := []struct {
		name      string
		from      string
		to        string
		wantStart time.Time
		wantEnd   time.Time
	}{
		{
			name:      "both",
			from:      "2024-01-01",
			to:        "2024-01-31",
			wantStart: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "from only",
			from:      "2024-03-01",
			wantStart: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "to only",
			to:        "2024-02-29",
			wantStart: time.Date(2024, 1, 30, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
		},
		{
			name:      "single day",
			from:      "2024-02-01",
			to:        "2024-02-01",
			wantStart: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			wantEnd:   time.Date(2024, 2, 1, 23, 59, 59, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := resolvePeriod(now, defaultDays, tt.from, tt.to)
			if err != nil {
				t.Fatalf("resolvePeriod: %v", err)
			}
			if !start.Equal(tt.wantStart) || !end.Equal(tt.wantEnd) {
				t.Fatalf("expected %v..%v, got %v..%v", tt.wantStart, tt.wantEnd, start, end)
			}
		})
	}
}

func TestResolvePeriodErrors(t *testing.T) {
	now := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		days     int
		from, to string
	}{
		{days: 0},
		{days: 91},
		{days: defaultDays, from: "2024-13-01"},
		{days: defaultDays, to: "yesterday"},
		{days: defaultDays, from: "2024-02-02", to: "2024-02-01"},
	}
	for _, c := range cases {
		if _, _, err := resolvePeriod(now, c.days, c.from, c.to); err == nil {
			t.Fatalf("expected error for %+v", c)
		}
	}
}

func TestDefaultTimezoneResolves(t *testing.T) {
	loc, err := timeutil.LoadLocation(defaultTimezone)
	if err != nil {
		t.Fatalf("LoadLocation(%q): %v", defaultTimezone, err)
	}
	if loc.String() != defaultTimezone {
		t.Fatalf("expected %s, got %s", defaultTimezone, loc)
	}
}

func TestValidateFetchFlags(t *testing.T) {
	if err := validateFetchFlags(defaultAction, defaultTake, defaultMaxEvents); err != nil {
		t.Fatalf("expected defaults to validate: %v", err)
	}
	if err := validateFetchFlags("  ", defaultTake, defaultMaxEvents); err == nil {
		t.Fatalf("expected empty action error")
	}
	if err := validateFetchFlags(defaultAction, 99, defaultMaxEvents); err == nil {
		t.Fatalf("expected take error")
	}
	if err := validateFetchFlags(defaultAction, defaultTake, 50001); err == nil {
		t.Fatalf("expected max-events error")
	}
}

func TestValidateReportFlags(t *testing.T) {
	if err := validateReportFlags(9, 18, "pt-BR"); err != nil {
		t.Fatalf("expected valid flags: %v", err)
	}
	if err := validateReportFlags(24, 18, "en"); err == nil {
		t.Fatalf("expected start-hour error")
	}
	if err := validateReportFlags(9, -1, "en"); err == nil {
		t.Fatalf("expected end-hour error")
	}
	if err := validateReportFlags(9, 18, "de"); err == nil {
		t.Fatalf("expected locale error")
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	var lines []string
	for _, line := range strings.Split(defaultConfigTemplate(), "\n") {
		if strings.HasPrefix(line, "# ") && strings.Contains(line, " = ") {
			line = strings.TrimPrefix(line, "# ")
		}
		lines = append(lines, line)
	}
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Fetch.Action == nil || *cfg.Fetch.Action != defaultAction {
		t.Fatalf("unexpected action: %v", cfg.Fetch.Action)
	}
	if cfg.Fetch.BaseDelay == nil || cfg.Fetch.BaseDelay.Duration != blip.DefaultBaseDelay {
		t.Fatalf("unexpected base delay: %v", cfg.Fetch.BaseDelay)
	}
	if cfg.Report.EndHour == nil || *cfg.Report.EndHour != defaultEndHour {
		t.Fatalf("unexpected business-end: %v", cfg.Report.EndHour)
	}
	if cfg.Report.Timezone == nil || *cfg.Report.Timezone != defaultTimezone {
		t.Fatalf("unexpected timezone: %v", cfg.Report.Timezone)
	}
}

func TestFetchOptionsMapsZeroRetries(t *testing.T) {
	zero := 0
	endpoint := "http://localhost:9999/commands"
	opts := fetchOptions(config.FetchConfig{
		MaxRetries: &zero,
		Timeout:    &config.Duration{Duration: 3 * time.Second},
		Endpoint:   &endpoint,
	})
	if opts.MaxRetries != -1 {
		t.Fatalf("expected retries disabled, got %d", opts.MaxRetries)
	}
	if opts.Timeout != 3*time.Second || opts.Endpoint != endpoint {
		t.Fatalf("unexpected options: %+v", opts)
	}
	if got := fetchOptions(config.FetchConfig{}); got.MaxRetries != 0 || got.BaseDelay != 0 {
		t.Fatalf("expected zero options, got %+v", got)
	}
}

func TestEditorCommand(t *testing.T) {
	parts, err := editorCommand(`code --wait "--profile=my notes"`)
	if err != nil {
		t.Fatalf("editorCommand: %v", err)
	}
	want := []string{"code", "--wait", "--profile=my notes"}
	if strings.Join(parts, "|") != strings.Join(want, "|") {
		t.Fatalf("expected %q, got %q", want, parts)
	}
	parts, err = editorCommand("")
	if err != nil || len(parts) != 1 || parts[0] != "vi" {
		t.Fatalf("expected vi fallback, got %q (%v)", parts, err)
	}
}

func TestConsoleObserverOutput(t *testing.T) {
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var buf bytes.Buffer
	obs := newConsoleObserver(&buf)
	obs.PageFetched(0, 500, 500)
	obs.Backoff(500, 503, 1600*time.Millisecond, 2)

	want := "page skip=0: 500 items, 500 collected\n" +
		"Upstream instability (HTTP 503) at skip=500. Retry 2 in 1.6s...\n"
	if buf.String() != want {
		t.Fatalf("unexpected output:\n%s", buf.String())
	}
}

func TestAnalyzeCommandWritesOutputs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	rawPath := filepath.Join(dir, "raw.json")
	raw := `[
  {"storageDate": "2024-01-10T12:00:00Z", "contact": {"identity": "a@wa"}},
  {"storageDate": "2024-01-10T23:00:00Z", "contact": {"identity": "b@wa"}},
  {"storageDate": "2024-01-11T12:00:00Z", "contact": {"identity": "a@wa"}}
]`
	if err := os.WriteFile(rawPath, []byte(raw), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	outDir := filepath.Join(dir, "out")
	dbPath := filepath.Join(dir, "report.db")

	var stdout bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{
		"analyze", rawPath,
		"--tz", "America/Sao_Paulo",
		"--out-dir", outDir,
		"--sqlite=" + dbPath,
		"--bars=false",
	})
	if err := root.Execute(); err != nil {
		t.Fatalf("analyze: %v", err)
	}

	out := stdout.String()
	if !strings.Contains(out, "Users: 2 | Inside: 1 (50.0%) | Outside: 1 (50.0%)") {
		t.Fatalf("unexpected headline:\n%s", out)
	}
	if strings.Contains(out, "█") {
		t.Fatalf("expected no bars:\n%s", out)
	}
	for _, name := range []string{export.EventsFile, export.FirstContactsFile, export.SummaryFile} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("expected %s: %v", name, err)
		}
	}

	if info, err := os.Stat(dbPath); err != nil || info.Size() == 0 {
		t.Fatalf("expected sqlite report at %s: %v", dbPath, err)
	}
}

func TestAnalyzeCommandRejectsBadTimezone(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	rawPath := filepath.Join(t.TempDir(), "raw.json")
	if err := os.WriteFile(rawPath, []byte("[]"), 0o644); err != nil {
		t.Fatalf("write raw: %v", err)
	}
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"analyze", rawPath, "--tz", "Mars/Olympus"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected timezone error")
	}
}
