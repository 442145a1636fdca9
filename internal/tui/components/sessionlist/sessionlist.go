package sessionlist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/constants"
	"github.com/julianstephens/studylit/internal/models"
	"github.com/julianstephens/studylit/internal/render"
	"github.com/julianstephens/studylit/internal/tui/data"
)

type Action string

const (
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionSkip     Action = "skip"
)

// ActionMsg asks the dashboard to apply a tracking action to a session.
type ActionMsg struct {
	Action    Action
	SessionID string
}

type Item struct {
	Session models.StudySession
	Name    string
	Status  models.SessionStatus
}

func (i Item) Title() string {
	if i.Status.Terminal() {
		return i.Name + " (" + string(i.Status) + ")"
	}
	return i.Name
}

func (i Item) Description() string {
	return fmt.Sprintf("%s %s–%s | %s | %s",
		i.Session.Start.Format("Mon"),
		i.Session.Start.Format(constants.TimeFormat),
		i.Session.End.Format(constants.TimeFormat),
		render.Minutes(i.Session.PlannedMin),
		i.Status)
}

func (i Item) FilterValue() string { return i.Name }

type KeyMap struct {
	Start    key.Binding
	Complete key.Binding
	Skip     key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Complete: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "complete"),
		),
		Skip: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "skip"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
}

func New(width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.Title = "Sessions"
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	// The dashboard owns quitting.
	l.KeyMap.Quit.SetEnabled(false)

	keys := DefaultKeyMap()
	l.AdditionalShortHelpKeys = func() []key.Binding {
		return []key.Binding{keys.Start, keys.Complete, keys.Skip}
	}
	l.AdditionalFullHelpKeys = l.AdditionalShortHelpKeys
	return Model{list: l, keys: keys}
}

// SetData replaces the listed sessions, keeping the cursor where it was.
func (m *Model) SetData(d data.Week) {
	var items []list.Item
	if d.Plan != nil {
		items = make([]list.Item, len(d.Plan.Sessions))
		for i, s := range d.Plan.Sessions {
			name := d.Names[s.SubjectID]
			if name == "" {
				name = s.SubjectID
			}
			items[i] = Item{Session: s, Name: name, Status: d.Status(s.ID)}
		}
	}
	index := m.list.Index()
	m.list.SetItems(items)
	if index < len(items) {
		m.list.Select(index)
	}
}

// Filtering reports whether key presses are going to the filter input.
func (m Model) Filtering() bool {
	return m.list.FilterState() == list.Filtering
}

func (m Model) Selected() (Item, bool) {
	i, ok := m.list.SelectedItem().(Item)
	return i, ok
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && !m.Filtering() {
		var action Action
		switch {
		case key.Matches(msg, m.keys.Start):
			action = ActionStart
		case key.Matches(msg, m.keys.Complete):
			action = ActionComplete
		case key.Matches(msg, m.keys.Skip):
			action = ActionSkip
		}
		if action != "" {
			if i, ok := m.Selected(); ok {
				id := i.Session.ID
				return m, func() tea.Msg { return ActionMsg{Action: action, SessionID: id} }
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 {
		return "\n  No sessions this week."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
