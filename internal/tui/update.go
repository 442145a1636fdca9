package tui

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/tui/components/sessionlist"
)

// chromeHeight is the space taken by the tab bar, status line and help.
const chromeHeight = 4

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h := max(msg.Height-chromeHeight, 0)
		m.week.SetSize(msg.Width, h)
		m.sessions.SetSize(msg.Width, h)
		return m, nil

	case loadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.week.SetData(msg.week)
			m.sessions.SetData(msg.week)
		}
		return m, nil

	case doneMsg:
		m.status, m.err = msg.status, msg.err
		return m, m.load()

	case sessionlist.ActionMsg:
		return m, m.act(msg)

	case tea.KeyMsg:
		if m.tab == TabSessions && m.sessions.Filtering() {
			break
		}
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.tab = (m.tab + 1) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.tab = (m.tab - 1 + tabCount) % tabCount
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Replan):
			m.status, m.err = "Replanning...", nil
			return m, m.replan()
		case key.Matches(msg, m.keys.Refresh):
			return m, m.load()
		}
	}

	var cmd tea.Cmd
	switch m.tab {
	case TabWeek:
		m.week, cmd = m.week.Update(msg)
	case TabSessions:
		m.sessions, cmd = m.sessions.Update(msg)
	}
	return m, cmd
}
