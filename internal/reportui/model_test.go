package reportui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/DellaSerraaaSource/dash-analise-diaria/internal/model"
)

func testEvents() []model.RawEvent {
	return []model.RawEvent{
		{"storageDate": "2024-01-10T12:00:00Z", "contact": map[string]any{"identity": "a@wa"}},
		{"storageDate": "2024-01-10T20:00:00Z", "contact": map[string]any{"identity": "b@wa"}},
		{"storageDate": "2024-01-11T08:00:00Z", "contact": map[string]any{"identity": "a@wa"}},
	}
}

func newTestModel(t *testing.T) *Model {
	t.Helper()
	cfg := model.ReportConfig{Location: time.UTC, StartHour: 9, EndHour: 18, Locale: "en"}
	m := NewModel(testEvents(), cfg, Meta{Action: "Início", Requests: 2, Stop: "empty-page"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestViewShowsOverview(t *testing.T) {
	m := newTestModel(t)
	view := m.View()
	for _, want := range []string{"Overview", "First contacts", "Unique users", "Action: Início", "stopped on empty-page"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q:\n%s", want, view)
		}
	}
	if got := m.Report().Summary.Total; got != 2 {
		t.Fatalf("expected 2 users, got %d", got)
	}
}

func TestTabNavigationWraps(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.activeTab != tabFirstContacts {
		t.Fatalf("expected wrap to last tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "b@wa") {
		t.Fatalf("expected first contacts table to list users:\n%s", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabWeekly {
		t.Fatalf("expected weekly tab, got %d", m.activeTab)
	}
	if !strings.Contains(m.View(), "2024-W02") {
		t.Fatalf("expected weekly table:\n%s", m.View())
	}
}

func TestSettingsRebuildReport(t *testing.T) {
	m := newTestModel(t)
	if got := m.Report().Summary.Share(model.Inside).Users; got != 1 {
		t.Fatalf("expected 1 inside user, got %d", got)
	}

	m.Update(keyRunes("/"))
	if !m.settingsMode {
		t.Fatalf("expected settings mode")
	}
	m.settingsInputs[inputStartHour].SetValue("8")
	m.settingsInputs[inputEndHour].SetValue("22")
	m.settingsInputs[inputLocale].SetValue("pt")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.settingsMode {
		t.Fatalf("expected settings to close, error: %s", m.settingsError)
	}
	if got := m.Report().Summary.Share(model.Inside).Users; got != 2 {
		t.Fatalf("expected 2 inside users after widening the window, got %d", got)
	}
	if m.Report().Labels.Inside != "Dentro" {
		t.Fatalf("expected pt labels, got %q", m.Report().Labels.Inside)
	}
}

func TestSettingsRejectInvalidValues(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyRunes("/"))
	m.settingsInputs[inputStartHour].SetValue("24")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.settingsMode || !strings.Contains(m.settingsError, "start hour") {
		t.Fatalf("expected start hour error, got %q", m.settingsError)
	}

	m.settingsInputs[inputStartHour].SetValue("9")
	m.settingsInputs[inputTimezone].SetValue("Nowhere/Land")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.settingsError, "unknown timezone") {
		t.Fatalf("expected timezone error, got %q", m.settingsError)
	}

	m.settingsInputs[inputTimezone].SetValue("UTC")
	m.settingsInputs[inputLocale].SetValue("de")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !strings.Contains(m.settingsError, "unknown locale") {
		t.Fatalf("expected locale error, got %q", m.settingsError)
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.settingsMode {
		t.Fatalf("expected esc to cancel settings")
	}
	if m.cfg.StartHour != 9 || m.cfg.Location != time.UTC {
		t.Fatalf("expected config unchanged, got %+v", m.cfg)
	}
}

func TestEmptyReport(t *testing.T) {
	m := NewModel(nil, model.ReportConfig{StartHour: 9, EndHour: 18}, Meta{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if !strings.Contains(m.View(), noDataText) {
		t.Fatalf("expected empty notice:\n%s", m.View())
	}
	if !strings.Contains(m.View(), "period=from file") {
		t.Fatalf("expected offline period label:\n%s", m.View())
	}
}

func TestQuit(t *testing.T) {
	m := newTestModel(t)
	_, cmd := m.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
}
