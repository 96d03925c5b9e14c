// Package reportui provides the Bubble Tea report viewer.
package reportui

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/stats"
	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/timeutil"
)

const (
	tabOverview = iota
	tabWeekly
	tabWeekday
	tabHourly
	tabFirstContacts
)

const (
	inputTimezone = iota
	inputStartHour
	inputEndHour
	inputLocale
)

const noDataText = "No first contacts in the selected period."

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Meta describes where the viewed events came from. A zero Start means the
// events were loaded from a file.
type Meta struct {
	Action   string
	Start    time.Time
	End      time.Time
	Requests int
	Stop     string
}

// Model implements the Bubble Tea report UI.
type Model struct {
	raw  []model.RawEvent
	cfg  model.ReportConfig
	meta Meta

	report stats.Report

	tabs          []string
	activeTab     int
	viewports     []viewport.Model
	contactTable  table.Model
	contactLayout tableLayout

	width  int
	height int

	settingsMode   bool
	settingsInputs []textinput.Model
	settingsIndex  int
	settingsError  string
}

type tableLayout struct {
	width    int
	height   int
	rowCount int
}

// NewModel constructs a report UI over raw. Changing settings in the UI
// rebuilds the report from raw without fetching again.
func NewModel(raw []model.RawEvent, cfg model.ReportConfig, meta Meta) *Model {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	m := &Model{
		raw:  raw,
		cfg:  cfg,
		meta: meta,
		tabs: []string{"Overview", "Weekly", "Weekday", "Hourly", "First contacts"},
	}
	m.initInputs()
	m.contactTable = buildContactTable(nil, 0, 1)
	m.initViewports()
	m.refreshReport()
	return m
}

// Report returns the report currently on screen.
func (m *Model) Report() stats.Report {
	return m.report
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.settingsMode {
			return m.updateSettings(msg)
		}
		if msg.String() == "q" {
			return m, tea.Quit
		}
		if m.activeTab == tabFirstContacts {
			m.contactTable.Focus()
		} else {
			m.contactTable.Blur()
		}
		switch msg.String() {
		case "left", "h":
			m.moveTab(-1)
			return m, tea.ClearScreen
		case "right", "l", "tab":
			m.moveTab(1)
			return m, tea.ClearScreen
		case "/":
			return m.startSettings()
		case "g", "home":
			if m.activeTab == tabFirstContacts {
				m.contactTable.GotoTop()
			} else {
				m.viewports[m.activeTab].GotoTop()
			}
			return m, nil
		case "G", "end":
			if m.activeTab == tabFirstContacts {
				m.contactTable.GotoBottom()
			} else {
				m.viewports[m.activeTab].GotoBottom()
			}
			return m, nil
		default:
			if m.activeTab == tabFirstContacts {
				var cmd tea.Cmd
				m.contactTable, cmd = m.contactTable.Update(msg)
				return m, cmd
			}
			vp := m.viewports[m.activeTab]
			var cmd tea.Cmd
			vp, cmd = vp.Update(msg)
			m.viewports[m.activeTab] = vp
			return m, cmd
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderHeader(), m.width, headerHeight)
	body := fitLines(m.renderBody(bodyHeight), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) initViewports() {
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
}

func (m *Model) initInputs() {
	m.settingsInputs = []textinput.Model{
		newSettingsInput("Timezone: "),
		newSettingsInput("Business start hour: "),
		newSettingsInput("Business end hour: "),
		newSettingsInput("Locale (en|pt): "),
	}
	m.setInputsFromConfig()
}

func newSettingsInput(prompt string) textinput.Model {
	input := textinput.New()
	input.Prompt = prompt
	input.CharLimit = 0
	input.Cursor.SetMode(cursor.CursorBlink)
	return input
}

func (m *Model) setInputsFromConfig() {
	m.settingsInputs[inputTimezone].SetValue(m.cfg.Location.String())
	m.settingsInputs[inputStartHour].SetValue(strconv.Itoa(m.cfg.StartHour))
	m.settingsInputs[inputEndHour].SetValue(strconv.Itoa(m.cfg.EndHour))
	m.settingsInputs[inputLocale].SetValue(m.cfg.Locale)
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	tabsHeight := lipgloss.Height(activeNavStyle.Render("X"))
	if tabsHeight < 1 {
		tabsHeight = 1
	}
	headerHeight = tabsHeight + 1
	footerHeight = 1
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, vpHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = vpHeight
	}
	m.setContactTableSize(m.width, vpHeight)
	for i := range m.settingsInputs {
		promptWidth := lipgloss.Width(m.settingsInputs[i].Prompt)
		m.settingsInputs[i].Width = maxInt(10, m.width-promptWidth-2)
	}
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	if count == 0 {
		return
	}
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	if m.activeTab == tabFirstContacts {
		m.contactTable.Focus()
	} else {
		m.contactTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderHeader() string {
	tabs := padLines(m.renderTabs(), m.width)
	settings := padLines(m.renderSettingsSummary(), m.width)
	return tabs + "\n" + settings
}

func (m *Model) renderSettingsSummary() string {
	period := "from file"
	if !m.meta.Start.IsZero() {
		period = fmt.Sprintf("%s..%s", m.meta.Start.UTC().Format("2006-01-02"), m.meta.End.UTC().Format("2006-01-02"))
	}
	action := m.meta.Action
	if action == "" {
		action = "-"
	}
	locale := m.cfg.Locale
	if locale == "" {
		locale = "en"
	}
	summary := fmt.Sprintf("Action: %s  period=%s  tz=%s  hours=%02d-%02d  locale=%s",
		action, period, m.cfg.Location, m.cfg.StartHour, m.cfg.EndHour, locale)
	summary = truncateLine(summary, m.width)
	return headerStyle.Render(summary)
}

func (m *Model) renderHelp() string {
	return headerStyle.Render("Nav: left/right  Scroll: up/down/pgup/pgdn  Settings: /  Quit: q")
}

func (m *Model) renderSettingsHelp() string {
	return headerStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  quit: ctrl+c")
}

func (m *Model) renderFooter() string {
	if m.settingsMode {
		return m.renderSettingsHelp()
	}
	return m.renderHelp()
}

func (m *Model) renderSettingsForm() string {
	lines := []string{"Settings (enter to apply, esc to cancel)"}
	for _, input := range m.settingsInputs {
		lines = append(lines, input.View())
	}
	if m.settingsError != "" {
		lines = append(lines, errorStyle.Render(m.settingsError))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) renderBody(height int) string {
	if m.settingsMode {
		return fitLines(m.renderSettingsForm(), m.width, height)
	}
	if m.activeTab == tabFirstContacts {
		if m.report.Empty() {
			return fitLines(noDataText, m.width, height)
		}
		view := tableMutedStyle.Render(m.contactTable.View())
		return fitLines(view, m.width, height)
	}
	return fitLines(m.viewports[m.activeTab].View(), m.width, height)
}

func (m *Model) refreshReport() {
	m.report = stats.BuildReport(m.raw, m.cfg)
	width := m.width
	if width <= 0 {
		width = 80
	}
	_, bodyHeight, _ := m.layoutHeights()
	m.applyContactTable(width, bodyHeight)
	m.renderTabContents()
}

func (m *Model) renderTabContents() {
	if len(m.viewports) == 0 {
		return
	}
	width := m.width
	if width <= 0 {
		width = 80
	}
	r := m.report
	s := r.Summary
	m.viewports[tabOverview].SetContent(renderOverview(r, m.meta, width))
	m.viewports[tabWeekly].SetContent(renderSection(r, stats.CountHeaders(r.Labels.Columns.Week, r.Labels), stats.WeekRows(s), stats.WeekBars(s), width))
	m.viewports[tabWeekday].SetContent(renderSection(r, stats.CountHeaders(r.Labels.Columns.Weekday, r.Labels), stats.WeekdayRows(s), stats.WeekdayBars(s), width))
	m.viewports[tabHourly].SetContent(renderSection(r, stats.CountHeaders(r.Labels.Columns.Hour, r.Labels), stats.HourRows(s), stats.HourBars(s), width))
}

func renderOverview(r stats.Report, meta Meta, width int) string {
	in := r.Summary.Share(model.Inside)
	out := r.Summary.Share(model.Outside)
	cards := []string{
		metricCard("Unique users", strconv.Itoa(r.Summary.Total)),
		metricCard(r.Labels.Inside, fmt.Sprintf("%d (%s)", in.Users, stats.FormatPercent(in.Percent))),
		metricCard(r.Labels.Outside, fmt.Sprintf("%d (%s)", out.Users, stats.FormatPercent(out.Percent))),
		metricCard("Events", strconv.Itoa(len(r.Events))),
	}
	var top string
	if width < 80 {
		top = strings.Join(cards, "\n")
	} else {
		top = lipgloss.JoinHorizontal(lipgloss.Top, cards...)
	}
	lines := []string{top}
	if r.Empty() {
		lines = append(lines, "", noDataText)
	} else {
		lines = append(lines, "", strings.Join(stats.FormatTable(stats.ShareHeaders(r.Labels), stats.ShareRows(r.Summary), stats.CountAlign), "\n"))
	}
	if meta.Stop != "" {
		lines = append(lines, "", headerStyle.Render(fmt.Sprintf("Fetch: %d requests, stopped on %s", meta.Requests, meta.Stop)))
	}
	return strings.Join(lines, "\n")
}

func renderSection(r stats.Report, headers []string, rows [][]string, bars []stats.BarRow, width int) string {
	if r.Empty() {
		return noDataText
	}
	tbl := strings.Join(stats.FormatTable(headers, rows, stats.CountAlign), "\n")
	labelWidth := 0
	for _, b := range bars {
		labelWidth = maxInt(labelWidth, lipgloss.Width(b.Label))
	}
	var buf bytes.Buffer
	if err := stats.RenderBars(&buf, bars, r.Labels, stats.BarWidthFor(width, labelWidth), true); err != nil {
		return fmt.Sprintf("Failed to render bars: %v", err)
	}
	return strings.TrimRight(tbl+"\n\n"+buf.String(), "\n")
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func contactColumns() []table.Column {
	return []table.Column{
		{Title: "Local time", Width: 19},
		{Title: "Weekday", Width: 13},
		{Title: "Bucket", Width: 8},
		{Title: "User", Width: 40},
	}
}

func contactRows(r stats.Report) []table.Row {
	rows := make([]table.Row, 0, len(r.FirstContacts))
	for _, ev := range r.FirstContacts {
		rows = append(rows, table.Row{
			ev.Local.Format("2006-01-02 15:04:05"),
			r.Labels.Weekday(ev.Local.Weekday()),
			r.Labels.Bucket(ev.Bucket),
			ev.UserID,
		})
	}
	return rows
}

func buildContactTable(rows []table.Row, width, height int) table.Model {
	t := table.New(
		table.WithColumns(contactColumns()),
		table.WithRows(rows),
		table.WithHeight(maxInt(1, height-1)),
	)
	t.SetWidth(width)
	t.SetStyles(contactTableStyles())
	return t
}

func (m *Model) applyContactTable(width, height int) {
	rows := contactRows(m.report)
	m.contactTable.SetRows(rows)
	m.contactTable.GotoTop()
	m.contactLayout.rowCount = len(rows)
	m.contactLayout.width = 0
	m.setContactTableSize(width, height)
}

func (m *Model) setContactTableSize(width, height int) {
	viewportHeight := maxInt(1, height-1)
	if m.contactLayout.width == width && m.contactLayout.height == viewportHeight {
		return
	}
	m.contactLayout.width = width
	m.contactLayout.height = viewportHeight
	m.contactTable.SetWidth(width)
	m.contactTable.SetHeight(viewportHeight)
	viewportHeight = m.adjustContactTableHeight(height)
	if m.contactLayout.height != viewportHeight {
		m.contactLayout.height = viewportHeight
		m.contactTable.SetHeight(viewportHeight)
	}
}

func (m *Model) adjustContactTableHeight(bodyHeight int) int {
	target := maxInt(1, bodyHeight)
	height := m.contactTable.Height()
	viewHeight := lipgloss.Height(m.contactTable.View())
	if viewHeight == target {
		return height
	}
	height += target - viewHeight
	if height < 1 {
		height = 1
	}
	return height
}

func contactTableStyles() table.Styles {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1).
		PaddingLeft(0)
	styles.Cell = styles.Cell.
		Padding(0, 1).
		PaddingLeft(0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return styles
}

func (m *Model) startSettings() (tea.Model, tea.Cmd) {
	m.settingsMode = true
	m.settingsError = ""
	m.setInputsFromConfig()
	return m, m.setSettingsIndex(0)
}

func (m *Model) updateSettings(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.settingsMode = false
		m.settingsError = ""
		return m, nil
	case tea.KeyEnter:
		if err := m.applySettings(); err != nil {
			m.settingsError = err.Error()
			return m, nil
		}
		m.settingsMode = false
		m.settingsError = ""
		m.refreshReport()
		m.updateLayout()
		return m, nil
	case tea.KeyTab:
		return m, m.setSettingsIndex(m.settingsIndex + 1)
	case tea.KeyShiftTab:
		return m, m.setSettingsIndex(m.settingsIndex - 1)
	}
	var cmd tea.Cmd
	m.settingsInputs[m.settingsIndex], cmd = m.settingsInputs[m.settingsIndex].Update(msg)
	return m, cmd
}

func (m *Model) setSettingsIndex(idx int) tea.Cmd {
	count := len(m.settingsInputs)
	if count == 0 {
		return nil
	}
	if idx < 0 {
		idx = count - 1
	}
	if idx >= count {
		idx = 0
	}
	m.settingsIndex = idx
	var cmd tea.Cmd
	for i := range m.settingsInputs {
		if i == m.settingsIndex {
			cmd = m.settingsInputs[i].Focus()
		} else {
			m.settingsInputs[i].Blur()
		}
	}
	return cmd
}

func (m *Model) applySettings() error {
	tz := strings.TrimSpace(m.settingsInputs[inputTimezone].Value())
	if tz == "" {
		return fmt.Errorf("timezone is required")
	}
	loc, err := timeutil.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("unknown timezone %q", tz)
	}
	start, err := parseHour(m.settingsInputs[inputStartHour].Value(), "start hour")
	if err != nil {
		return err
	}
	end, err := parseHour(m.settingsInputs[inputEndHour].Value(), "end hour")
	if err != nil {
		return err
	}
	locale := strings.TrimSpace(m.settingsInputs[inputLocale].Value())
	if locale == "" {
		locale = m.cfg.Locale
	} else if !stats.SupportedLocale(locale) {
		return fmt.Errorf("unknown locale %q (use %s)", locale, strings.Join(stats.Locales(), "|"))
	}
	m.cfg = model.ReportConfig{
		Location:  loc,
		StartHour: start,
		EndHour:   end,
		Locale:    locale,
	}
	return nil
}

func parseHour(input, name string) (int, error) {
	h, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("invalid %s (use 0-23)", name)
	}
	return h, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func padLines(s string, width int) string {
	if width <= 0 || s == "" {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	lineWidth := lipgloss.Width(line)
	if lineWidth < width {
		return line + strings.Repeat(" ", width-lineWidth)
	}
	return line
}

func fitLines(s string, width, height int) string {
	if width <= 0 || height <= 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

func truncateLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= width {
		return s
	}
	if width <= 3 {
		return string(runes[:width])
	}
	return string(runes[:width-3]) + "..."
}
