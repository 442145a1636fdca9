package week

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/studylit/internal/render"
	"github.com/julianstephens/studylit/internal/tui/data"
)

// Model shows the rendered weekly plan in a scrollable viewport.
type Model struct {
	viewport viewport.Model
	data     *data.Week
}

func New(width, height int) Model {
	return Model{viewport: viewport.New(width, height)}
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.data == nil || m.data.Plan == nil {
		return "No plan for this week. Press 'p' to generate one."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

func (m *Model) SetData(d data.Week) {
	m.data = &d
	if d.Plan == nil {
		m.viewport.SetContent("")
		return
	}
	var b strings.Builder
	render.Plan(&b, *d.Plan, d.Names, d.States, d.Now)
	render.Warnings(&b, *d.Plan, d.Names)
	m.viewport.SetContent(b.String())
}
