package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/tui/components/sessionlist"
	"github.com/julianstephens/studylit/internal/tui/data"
)

type mockBackend struct {
	week      data.Week
	loadErr   error
	replanned int
	actions   []sessionlist.ActionMsg
	actErr    error
}

func (b *mockBackend) Load(context.Context) (data.Week, error) {
	return b.week, b.loadErr
}

func (b *mockBackend) Replan(context.Context) error {
	b.replanned++
	return nil
}

func (b *mockBackend) Act(action sessionlist.Action, id string) error {
	b.actions = append(b.actions, sessionlist.ActionMsg{Action: action, SessionID: id})
	return b.actErr
}

func testWeek() data.Week {
	monday := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	plan := &models.WeeklyPlan{
		ID:        "plan-1",
		UserID:    "tester",
		WeekStart: "2026-01-05",
		Revision:  1,
		Sessions: []models.StudySession{
			{ID: "s-1", SubjectID: "math", Start: monday.Add(9 * time.Hour), End: monday.Add(10 * time.Hour), PlannedMin: 60},
			{ID: "s-2", SubjectID: "art", Start: monday.Add(11 * time.Hour), End: monday.Add(11*time.Hour + 30*time.Minute), PlannedMin: 30},
		},
	}
	return data.Week{
		Plan:   plan,
		States: []models.SessionState{{SessionID: "s-1", Status: models.SessionCompleted}},
		Names:  map[string]string{"math": "Math", "art": "Art"},
		Now:    monday.Add(8 * time.Hour),
	}
}

// send feeds a message to the model and runs any resulting commands to completion.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; msg != nil; i++ {
		if i > 10 {
			t.Fatal("command chain did not settle")
		}
		next, cmd := m.Update(msg)
		m = next.(Model)
		if cmd == nil {
			break
		}
		msg = cmd()
		if _, ok := msg.(tea.QuitMsg); ok {
			break
		}
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func start(t *testing.T, b *mockBackend) Model {
	t.Helper()
	m := New(b)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	return send(t, m, m.Init()())
}

func TestModel_ShowsWeek(t *testing.T) {
	m := start(t, &mockBackend{week: testWeek()})

	view := m.View()
	if !strings.Contains(view, "Week") || !strings.Contains(view, "Sessions") {
		t.Errorf("expected tabs in view: %s", view)
	}
	if !strings.Contains(view, "Math") || !strings.Contains(view, "Art") {
		t.Errorf("expected plan sessions in view: %s", view)
	}
}

func TestModel_NoPlan(t *testing.T) {
	m := start(t, &mockBackend{week: data.Week{}})
	if !strings.Contains(m.View(), "No plan for this week") {
		t.Errorf("expected empty-week hint: %s", m.View())
	}
}

func TestModel_LoadError(t *testing.T) {
	m := start(t, &mockBackend{loadErr: errors.New("database locked")})
	if !strings.Contains(m.View(), "database locked") {
		t.Errorf("expected error in view: %s", m.View())
	}
}

func TestModel_Tabs(t *testing.T) {
	m := start(t, &mockBackend{week: testWeek()})

	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Tab() != TabSessions {
		t.Fatalf("expected sessions tab, got %d", m.Tab())
	}
	if !strings.Contains(m.View(), "completed") {
		t.Errorf("expected session status in list: %s", m.View())
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.Tab() != TabWeek {
		t.Errorf("expected tabs to wrap, got %d", m.Tab())
	}
	m = send(t, m, tea.KeyMsg{Type: tea.KeyShiftTab})
	if m.Tab() != TabSessions {
		t.Errorf("expected shift+tab to go back, got %d", m.Tab())
	}
}

func TestModel_SessionActions(t *testing.T) {
	b := &mockBackend{week: testWeek()}
	m := start(t, b)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})

	m = send(t, m, runes("s"))
	m = send(t, m, tea.KeyMsg{Type: tea.KeyDown})
	m = send(t, m, runes("x"))

	want := []sessionlist.ActionMsg{
		{Action: sessionlist.ActionStart, SessionID: "s-1"},
		{Action: sessionlist.ActionSkip, SessionID: "s-2"},
	}
	if len(b.actions) != len(want) {
		t.Fatalf("expected %d actions, got %v", len(want), b.actions)
	}
	for i := range want {
		if b.actions[i] != want[i] {
			t.Errorf("action %d = %+v, want %+v", i, b.actions[i], want[i])
		}
	}
	if !strings.Contains(m.View(), "Session s-2: skip") {
		t.Errorf("expected status line: %s", m.View())
	}
}

func TestModel_ActionError(t *testing.T) {
	b := &mockBackend{week: testWeek(), actErr: errors.New("session is already completed")}
	m := start(t, b)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	m = send(t, m, runes("c"))

	if !strings.Contains(m.View(), "session is already completed") {
		t.Errorf("expected error in view: %s", m.View())
	}
}

func TestModel_ActionKeysIgnoredOnWeekTab(t *testing.T) {
	b := &mockBackend{week: testWeek()}
	m := start(t, b)
	send(t, m, runes("s"))
	if len(b.actions) != 0 {
		t.Errorf("expected no actions from the week tab, got %v", b.actions)
	}
}

func TestModel_Replan(t *testing.T) {
	b := &mockBackend{week: testWeek()}
	m := start(t, b)

	m = send(t, m, runes("p"))
	if b.replanned != 1 {
		t.Errorf("expected one replan, got %d", b.replanned)
	}
	if !strings.Contains(m.View(), "New plan revision issued") {
		t.Errorf("expected status line: %s", m.View())
	}
}

func TestModel_Quit(t *testing.T) {
	m := start(t, &mockBackend{week: testWeek()})
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
