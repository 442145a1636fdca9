// Package tui is the interactive weekly dashboard.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/tui/components/sessionlist"
	"github.com/julianstephens/studylit/internal/tui/components/week"
	"github.com/julianstephens/studylit/internal/tui/data"
)

// Backend loads the current week and applies changes for the dashboard.
type Backend interface {
	Load(ctx context.Context) (data.Week, error)
	Replan(ctx context.Context) error
	Act(action sessionlist.Action, sessionID string) error
}

type Tab int

const (
	TabWeek Tab = iota
	TabSessions
	tabCount
)

var tabTitles = []string{"Week", "Sessions"}

type loadedMsg struct {
	week data.Week
	err  error
}

type doneMsg struct {
	status string
	err    error
}

type Model struct {
	backend  Backend
	tab      Tab
	keys     KeyMap
	help     help.Model
	week     week.Model
	sessions sessionlist.Model
	status   string
	err      error
	quitting bool
	width    int
	height   int
}

func New(backend Backend) Model {
	return Model{
		backend:  backend,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		week:     week.New(0, 0),
		sessions: sessionlist.New(0, 0),
	}
}

func (m Model) Tab() Tab {
	return m.tab
}

func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		w, err := m.backend.Load(context.Background())
		return loadedMsg{week: w, err: err}
	}
}

func (m Model) replan() tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.Replan(context.Background()); err != nil {
			return doneMsg{err: fmt.Errorf("replanning failed: %w", err)}
		}
		return doneMsg{status: "New plan revision issued"}
	}
}

func (m Model) act(msg sessionlist.ActionMsg) tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.Act(msg.Action, msg.SessionID); err != nil {
			return doneMsg{err: err}
		}
		return doneMsg{status: fmt.Sprintf("Session %s: %s", msg.SessionID, msg.Action)}
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Replan, m.keys.Quit, m.keys.Help}
	if m.tab == TabSessions {
		sk := sessionlist.DefaultKeyMap()
		keys = append(keys, sk.Start, sk.Complete, sk.Skip)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Replan, m.keys.Refresh, m.keys.Quit, m.keys.Help}
	if m.tab != TabSessions {
		return [][]key.Binding{global}
	}
	sk := sessionlist.DefaultKeyMap()
	return [][]key.Binding{global, {sk.Start, sk.Complete, sk.Skip}}
}
