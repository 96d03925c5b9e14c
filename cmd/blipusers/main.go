// Package main provides the CLI entrypoint for blipusers.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"
	_ "time/tzdata"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/shlex"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/blip"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/config"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/export"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/reportui"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/stats"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/store"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/timeutil"
)

const (
	defaultAction    = "Início"
	defaultTimezone  = "America/Sao_Paulo"
	defaultStartHour = 9
	defaultEndHour   = 18
	defaultTake      = 500
	defaultMaxEvents = 10000
	defaultDays      = 30
	defaultLocale    = "en"

	minTake      = 100
	maxTake      = 1000
	minMaxEvents = 1000
	maxMaxEvents = 50000
	minDays      = 1
	maxDays      = 90
)

var (
	runAction    string
	runDays      int
	runFrom      string
	runTo        string
	runTake      int
	runMaxEvents int
	runAPIKey    string
	runSaveRaw   string

	reportTimezone  string
	reportStartHour int
	reportEndHour   int
	reportLocale    string
	reportOutDir    string
	reportSQLite    string
	reportTUI       bool
	reportBars      bool

	verbose bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "blipusers",
		Short:         "First-contact unique users report for BLiP flows",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch events from the analytics API and report first contacts",
		Args:  cobra.NoArgs,
		RunE:  runRunCmd,
	}
	cmd.Flags().StringVar(&runAction, "action", defaultAction, "flow action (block) to read events for")
	cmd.Flags().IntVar(&runDays, "days", defaultDays, "report the last N days (1-90)")
	cmd.Flags().StringVar(&runFrom, "from", "", "start date in UTC (YYYY-MM-DD)")
	cmd.Flags().StringVar(&runTo, "to", "", "end date in UTC, inclusive (YYYY-MM-DD)")
	cmd.Flags().IntVar(&runTake, "take", defaultTake, "events per page (100-1000)")
	cmd.Flags().IntVar(&runMaxEvents, "max-events", defaultMaxEvents, "maximum events to fetch (1000-50000)")
	cmd.Flags().StringVar(&runAPIKey, "api-key", "", "API key (default: $BLIP_API_KEY, then $API_KEY)")
	cmd.Flags().StringVar(&runSaveRaw, "save-raw", "", "write fetched raw events to this JSON file")
	cmd.MarkFlagsMutuallyExclusive("days", "from")
	cmd.MarkFlagsMutuallyExclusive("days", "to")
	addReportFlags(cmd)
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <raw.json>",
		Short: "Report first contacts from a saved raw events file",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnalyzeCmd,
	}
	addReportFlags(cmd)
	return cmd
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportTimezone, "tz", defaultTimezone, "IANA timezone for hours and weekdays")
	cmd.Flags().IntVar(&reportStartHour, "start-hour", defaultStartHour, "business hours start (0-23)")
	cmd.Flags().IntVar(&reportEndHour, "end-hour", defaultEndHour, "business hours end, exclusive (0-23)")
	cmd.Flags().StringVar(&reportLocale, "locale", defaultLocale, "labels locale (en|pt)")
	cmd.Flags().StringVar(&reportOutDir, "out-dir", "", "write CSV tables to this directory")
	cmd.Flags().StringVar(&reportSQLite, "sqlite", "", "write the run to a SQLite file (--sqlite=path; bare flag uses the data dir)")
	cmd.Flags().Lookup("sqlite").NoOptDefVal = config.DefaultDBPath()
	cmd.Flags().BoolVar(&reportTUI, "tui", false, "open the interactive report viewer")
	cmd.Flags().BoolVar(&reportBars, "bars", true, "draw bar charts under the text tables")
}

func runRunCmd(cmd *cobra.Command, _ []string) error {
	logger := newLogger(cmd.ErrOrStderr(), verbose)
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "action", &runAction, fileCfg.Fetch.Action)
	applyIntConfig(cmd, "take", &runTake, fileCfg.Fetch.Take)
	applyIntConfig(cmd, "max-events", &runMaxEvents, fileCfg.Fetch.MaxEvents)
	applyIntConfig(cmd, "days", &runDays, fileCfg.Report.Days)
	applyReportConfig(cmd, fileCfg.Report)

	if err := validateFetchFlags(runAction, runTake, runMaxEvents); err != nil {
		return err
	}
	reportCfg, err := reportConfig()
	if err != nil {
		return err
	}
	start, end, err := resolvePeriod(time.Now(), runDays, runFrom, runTo)
	if err != nil {
		return err
	}
	apiKey, err := resolveAPIKey(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	observers := blip.MultiObserver{newConsoleObserver(cmd.ErrOrStderr())}
	if verbose {
		observers = append(observers, blip.LogObserver{Logger: logger})
	}
	opts := fetchOptions(fileCfg.Fetch)
	opts.Observer = observers
	opts.Logger = logger
	client := blip.NewClient(apiKey, opts)

	logErrf("Fetching %q events from %s to %s...\n", runAction, timeutil.FormatISOZ(start), timeutil.FormatISOZ(end))
	res := client.FetchEvents(ctx, blip.Query{
		Action:    runAction,
		Start:     start,
		End:       end,
		Take:      runTake,
		MaxEvents: runMaxEvents,
	})
	logErrf("Collected %d events in %d requests (%d backoffs, stop: %s)\n", len(res.Events), res.Requests, res.Backoffs, res.Stop)
	if res.Err != nil {
		logErrf("Fetch ended early; the report uses the %d events collected so far.\n", len(res.Events))
	}

	if runSaveRaw != "" {
		if err := export.SaveRaw(runSaveRaw, res.Events); err != nil {
			return err
		}
		logErrf("Saved raw events to %s\n", runSaveRaw)
	}

	meta := reportui.Meta{
		Action:   runAction,
		Start:    start,
		End:      end,
		Requests: res.Requests,
		Stop:     string(res.Stop),
	}
	if err := produceReport(cmd, res.Events, reportCfg, meta); err != nil {
		return err
	}
	if errors.Is(res.Err, blip.ErrUnauthorized) {
		return res.Err
	}
	return nil
}

func runAnalyzeCmd(cmd *cobra.Command, args []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyReportConfig(cmd, fileCfg.Report)
	reportCfg, err := reportConfig()
	if err != nil {
		return err
	}
	raw, err := export.LoadRaw(args[0])
	if err != nil {
		return err
	}
	logErrf("Loaded %d events from %s\n", len(raw), args[0])
	return produceReport(cmd, raw, reportCfg, reportui.Meta{})
}

func applyReportConfig(cmd *cobra.Command, rc config.ReportConfig) {
	applyStringConfig(cmd, "tz", &reportTimezone, rc.Timezone)
	applyIntConfig(cmd, "start-hour", &reportStartHour, rc.StartHour)
	applyIntConfig(cmd, "end-hour", &reportEndHour, rc.EndHour)
	applyStringConfig(cmd, "locale", &reportLocale, rc.Locale)
	applyStringConfig(cmd, "out-dir", &reportOutDir, rc.OutDir)
}

func reportConfig() (model.ReportConfig, error) {
	if err := validateReportFlags(reportStartHour, reportEndHour, reportLocale); err != nil {
		return model.ReportConfig{}, err
	}
	loc, err := timeutil.LoadLocation(reportTimezone)
	if err != nil {
		return model.ReportConfig{}, fmt.Errorf("invalid --tz value: %w", err)
	}
	return model.ReportConfig{
		Location:  loc,
		StartHour: reportStartHour,
		EndHour:   reportEndHour,
		Locale:    reportLocale,
	}, nil
}

func produceReport(cmd *cobra.Command, raw []model.RawEvent, cfg model.ReportConfig, meta reportui.Meta) error {
	report := stats.BuildReport(raw, cfg)
	if dropped := len(raw) - len(report.Events); dropped > 0 {
		logErrf("Skipped %d events without a usable timestamp\n", dropped)
	}

	if reportOutDir != "" {
		paths, err := export.WriteAll(reportOutDir, report)
		if err != nil {
			return err
		}
		logErrf("Wrote %d CSV files to %s\n", len(paths), reportOutDir)
	}
	if reportSQLite != "" {
		if err := writeSQLite(cmd.Context(), reportSQLite, meta, report); err != nil {
			return err
		}
		logErrf("Wrote SQLite report to %s\n", reportSQLite)
	}

	if reportTUI {
		program := tea.NewProgram(reportui.NewModel(raw, cfg, meta), tea.WithAltScreen())
		if _, err := program.Run(); err != nil {
			return fmt.Errorf("failed to run report TUI: %w", err)
		}
		return nil
	}
	if err := stats.RenderText(cmd.OutOrStdout(), report, stats.RenderOptions{Bars: reportBars}); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func writeSQLite(ctx context.Context, path string, meta reportui.Meta, report stats.Report) error {
	st, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	run := store.Run{
		Action:      meta.Action,
		Start:       meta.Start,
		End:         meta.End,
		Timezone:    report.Config.Location.String(),
		StartHour:   report.Config.StartHour,
		EndHour:     report.Config.EndHour,
		Requests:    meta.Requests,
		Stop:        meta.Stop,
		GeneratedAt: time.Now(),
	}
	if err := st.WriteReport(ctx, run, report); err != nil {
		return fmt.Errorf("failed to write db: %w", err)
	}
	return nil
}

func fetchOptions(fc config.FetchConfig) blip.Options {
	var opts blip.Options
	if fc.MaxRetries != nil {
		opts.MaxRetries = *fc.MaxRetries
		if opts.MaxRetries == 0 {
			opts.MaxRetries = -1
		}
	}
	if fc.BaseDelay != nil {
		opts.BaseDelay = fc.BaseDelay.Duration
	}
	if fc.Timeout != nil {
		opts.Timeout = fc.Timeout.Duration
	}
	if fc.Endpoint != nil {
		opts.Endpoint = *fc.Endpoint
	}
	return opts
}

func resolveAPIKey(cmd *cobra.Command) (string, error) {
	if err := config.LoadDotEnv(""); err != nil {
		logErrf("Ignoring .env: %v\n", err)
	}
	if key := config.ResolveAPIKey(runAPIKey); key != "" {
		return key, nil
	}
	key, err := promptAPIKey(os.Stdin, cmd.ErrOrStderr())
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("missing API key: pass --api-key or set %s (or %s)", config.EnvAPIKey, config.EnvAPIKeyFallback)
	}
	return key, nil
}

// promptAPIKey reads a key without echo when stdin is a terminal.
func promptAPIKey(in *os.File, out io.Writer) (string, error) {
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", nil
	}
	if _, err := fmt.Fprint(out, "BLIP API key: "); err != nil {
		return "", err
	}
	raw, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(out)
	if err != nil {
		return "", fmt.Errorf("failed to read API key: %w", err)
	}
	return config.SanitizeKey(string(raw)), nil
}

func newLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelError
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	parts, err := editorCommand(os.Getenv("EDITOR"))
	if err != nil {
		return err
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func editorCommand(editor string) ([]string, error) {
	editor = strings.TrimSpace(editor)
	if editor == "" {
		editor = "vi"
	}
	parts, err := shlex.Split(editor)
	if err != nil {
		return nil, fmt.Errorf("failed to parse $EDITOR: %w", err)
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("editor command is empty")
	}
	return parts, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# blipusers configuration
# Uncomment a value to enable it. CLI flags override config values.

[fetch]
# action = %q          # Flow action (block) to read events for
# take = %d                # Events per page (%d-%d)
# max-events = %d        # Maximum events per run (%d-%d)
# max-retries = %d           # Retries for 429/5xx responses per run (0 disables)
# base-delay = %q       # First backoff delay, doubled on each retry
# timeout = %q           # Per-request timeout
# endpoint = %q

[report]
# timezone = %q
# business-start = %d       # Business hours start (0-23)
# business-end = %d        # Business hours end, exclusive (0-23)
# days = %d                 # Default period in days (%d-%d)
# locale = %q            # Labels: en or pt
# out-dir = ""             # Write CSV tables here
`,
		defaultAction,
		defaultTake, minTake, maxTake,
		defaultMaxEvents, minMaxEvents, maxMaxEvents,
		blip.DefaultMaxRetries,
		blip.DefaultBaseDelay.String(),
		blip.DefaultTimeout.String(),
		blip.DefaultEndpoint,
		defaultTimezone,
		defaultStartHour,
		defaultEndHour,
		defaultDays, minDays, maxDays,
		defaultLocale,
	)
}

func validateFetchFlags(action string, take, maxEvents int) error {
	if strings.TrimSpace(action) == "" {
		return fmt.Errorf("--action must not be empty")
	}
	if take < minTake || take > maxTake {
		return fmt.Errorf("--take must be between %d and %d", minTake, maxTake)
	}
	if maxEvents < minMaxEvents || maxEvents > maxMaxEvents {
		return fmt.Errorf("--max-events must be between %d and %d", minMaxEvents, maxMaxEvents)
	}
	return nil
}

func validateReportFlags(startHour, endHour int, locale string) error {
	if startHour < 0 || startHour > 23 {
		return fmt.Errorf("--start-hour must be between 0 and 23")
	}
	if endHour < 0 || endHour > 23 {
		return fmt.Errorf("--end-hour must be between 0 and 23")
	}
	if stats.SupportedLocale(locale) {
		return nil
	}
	return fmt.Errorf("--locale must be one of %s", strings.Join(stats.Locales(), ", "))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
