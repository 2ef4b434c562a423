package picker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skelly-dev/typenav/internal/hierarchy"
)

const defaultListHeight = 15

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Accept key.Binding
	Cancel key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑/ctrl+p", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓/ctrl+n", "down"),
		),
		Accept: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "go to"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

type styles struct {
	header   lipgloss.Style
	warning  lipgloss.Style
	group    lipgloss.Style
	row      lipgloss.Style
	selected lipgloss.Style
	details  lipgloss.Style
	status   lipgloss.Style
	help     lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		header:   lipgloss.NewStyle().Bold(true),
		warning:  lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		group:    lipgloss.NewStyle().Faint(true),
		row:      lipgloss.NewStyle(),
		selected: lipgloss.NewStyle().Reverse(true),
		details:  lipgloss.NewStyle().Faint(true),
		status:   lipgloss.NewStyle().Italic(true),
		help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}

// model is the bubbletea model of the interactive picker. All list state
// lives in the session; the model only forwards keys to it.
type model struct {
	session *hierarchy.Session
	input   textinput.Model
	keys    keyMap
	styles  styles
	height  int

	selection hierarchy.Selection
	done      bool
}

func newModel(session *hierarchy.Session) model {
	input := textinput.New()
	input.Prompt = "Filter: "
	input.Placeholder = "type to filter"
	input.Focus()

	return model{
		session: session,
		input:   input,
		keys:    defaultKeyMap(),
		styles:  defaultStyles(),
	}
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Cancel):
			m.selection = m.session.Cancel()
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Accept):
			m.selection = m.session.Accept()
			m.done = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Up):
			m.session.MoveSelection(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.session.MoveSelection(1)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if value := m.input.Value(); value != m.session.Query() {
		m.session.SetQuery(value)
	}
	return m, cmd
}

func (m model) View() string {
	if m.done {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.styles.header.Render(m.session.Header()))
	b.WriteByte('\n')
	if warning := m.session.Warning(); warning != "" {
		b.WriteString(m.styles.warning.Render(warning))
		b.WriteByte('\n')
	}
	b.WriteString(m.input.View())
	b.WriteByte('\n')

	entries := m.session.Entries()
	start, end := visibleWindow(len(entries), m.session.SelectedIndex(), m.listHeight())
	for i := start; i < end; i++ {
		b.WriteString(m.renderEntry(entries[i], i == m.session.SelectedIndex()))
		b.WriteByte('\n')
	}

	if status := m.session.Status(); status != "" {
		b.WriteString(m.styles.status.Render(status))
		b.WriteByte('\n')
	}
	b.WriteString(m.styles.help.Render(m.helpLine()))
	return b.String()
}

func (m model) renderEntry(entry hierarchy.Entry, selected bool) string {
	switch e := entry.(type) {
	case hierarchy.GroupHeader:
		return m.styles.group.Render(e.Title)
	case hierarchy.SymbolRow:
		label := fmt.Sprintf("%s %s", e.Glyph, e.DisplayName)
		if selected {
			label = m.styles.selected.Render(label)
		} else {
			label = m.styles.row.Render(label)
		}
		return rowIndent(e) + label + "  " + m.styles.details.Render(e.Details)
	default:
		return ""
	}
}

func (m model) helpLine() string {
	bindings := []key.Binding{m.keys.Up, m.keys.Down, m.keys.Accept, m.keys.Cancel}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		help := binding.Help()
		parts = append(parts, help.Key+" "+help.Desc)
	}
	return strings.Join(parts, " · ")
}

func (m model) listHeight() int {
	if m.height <= 0 {
		return defaultListHeight
	}
	// header, warning, filter, status and help lines
	return max(m.height-5, 3)
}

// visibleWindow returns the [start, end) slice of n entries that keeps
// selected on screen.
func visibleWindow(n, selected, height int) (int, int) {
	if n <= height {
		return 0, n
	}
	start := 0
	if selected >= height {
		start = selected - height + 1
	}
	return start, min(start+height, n)
}

// Interactive runs the bubbletea picker on a terminal.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

func (p *Interactive) Pick(ctx context.Context, session *hierarchy.Session) (hierarchy.Selection, error) {
	program := tea.NewProgram(newModel(session),
		tea.WithContext(ctx),
		tea.WithInput(p.In),
		tea.WithOutput(p.Out),
	)
	final, err := program.Run()
	if err != nil {
		return hierarchy.Selection{}, fmt.Errorf("interactive picker: %w", err)
	}
	result, ok := final.(model)
	if !ok {
		return hierarchy.Selection{}, fmt.Errorf("unexpected model type from bubbletea: %T", final)
	}
	return result.selection, nil
}
