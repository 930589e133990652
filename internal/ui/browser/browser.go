// Package browser contains the read-only TUI for inspecting projects and
// experiments. It renders a two-pane view: projects on the left, the selected
// project's experiments on the right. The browser never writes config files;
// it reloads its snapshot when the watcher reports a change on disk.
package browser

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
)

// Experiment is one row in the experiments pane.
type Experiment struct {
	Name  string
	State string
}

// Project is one row in the projects pane.
type Project struct {
	Name        string
	Root        string
	Experiments []Experiment
}

// Snapshot is everything the browser renders. The cmd layer builds one from
// the registries and rebuilds it on refresh.
type Snapshot struct {
	AppName  string
	ConfDir  string
	Projects []Project
}

// KeyMap defines the browser keybindings.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Left    key.Binding
	Right   key.Binding
	Refresh key.Binding
	Help    key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "move down"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "projects pane"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right", "enter"),
			key.WithHelp("l/→", "experiments pane"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Refresh, k.Help, k.Quit},
	}
}

type pane int

const (
	paneProjects pane = iota
	paneExperiments
)

// RefreshedMsg carries a freshly loaded snapshot back into the model.
type RefreshedMsg struct {
	Snapshot Snapshot
	Err      error
}

// changedMsg signals that the watcher saw an index file change on disk.
type changedMsg struct{}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205"))
	paneStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)
	focusedPaneStyle = paneStyle.
				BorderForeground(lipgloss.Color("205"))
	selectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))
)

// Model holds the browser state.
type Model struct {
	snap    Snapshot
	reload  func() (Snapshot, error)
	changes <-chan struct{}

	keys KeyMap
	help help.Model

	focus      pane
	projCursor int
	expCursor  int
	width      int
	height     int
	status     string
}

// New creates a browser over snap. reload is called on manual refresh and on
// watcher signals; changes may be nil when auto-refresh is disabled.
func New(snap Snapshot, reload func() (Snapshot, error), changes <-chan struct{}) Model {
	return Model{
		snap:    snap,
		reload:  reload,
		changes: changes,
		keys:    DefaultKeyMap(),
		help:    help.New(),
		width:   80,
		height:  24,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	if m.changes == nil {
		return nil
	}
	changes := m.changes
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changedMsg{}
	}
}

func (m Model) refresh() tea.Cmd {
	if m.reload == nil {
		return nil
	}
	reload := m.reload
	return func() tea.Msg {
		snap, err := reload()
		return RefreshedMsg{Snapshot: snap, Err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case changedMsg:
		m.status = "config changed on disk, reloading"
		return m, tea.Batch(m.refresh(), m.waitForChange())

	case RefreshedMsg:
		if msg.Err != nil {
			m.status = errorStyle.Render("refresh failed: " + msg.Err.Error())
			return m, nil
		}
		m.snap = msg.Snapshot
		m.status = ""
		m.clampCursors()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			m.status = "reloading"
			return m, m.refresh()
		case key.Matches(msg, m.keys.Left):
			m.focus = paneProjects
			return m, nil
		case key.Matches(msg, m.keys.Right):
			if len(m.selectedExperiments()) > 0 {
				m.focus = paneExperiments
			}
			return m, nil
		case key.Matches(msg, m.keys.Up):
			m.move(-1)
			return m, nil
		case key.Matches(msg, m.keys.Down):
			m.move(1)
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if m.focus == paneProjects {
		m.projCursor = clamp(m.projCursor+delta, len(m.snap.Projects))
		m.expCursor = 0
		return
	}
	m.expCursor = clamp(m.expCursor+delta, len(m.selectedExperiments()))
}

func (m *Model) clampCursors() {
	m.projCursor = clamp(m.projCursor, len(m.snap.Projects))
	m.expCursor = clamp(m.expCursor, len(m.selectedExperiments()))
	if len(m.selectedExperiments()) == 0 {
		m.focus = paneProjects
	}
}

func clamp(i, n int) int {
	if n == 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (m Model) selectedExperiments() []Experiment {
	if m.projCursor >= len(m.snap.Projects) {
		return nil
	}
	return m.snap.Projects[m.projCursor].Experiments
}

// View implements tea.Model.
func (m Model) View() string {
	total := 0
	for _, p := range m.snap.Projects {
		total += len(p.Experiments)
	}
	title := titleStyle.Render(m.snap.AppName) +
		dimStyle.Render(fmt.Sprintf("  %d projects, %d experiments  %s",
			len(m.snap.Projects), total, m.snap.ConfDir))

	paneWidth := m.width/2 - 4
	if paneWidth < 20 {
		paneWidth = 20
	}
	paneHeight := m.height - 6
	if paneHeight < 3 {
		paneHeight = 3
	}

	left := m.renderProjects(paneWidth, paneHeight)
	right := m.renderExperiments(paneWidth, paneHeight)

	leftPane := paneStyle
	rightPane := paneStyle
	if m.focus == paneProjects {
		leftPane = focusedPaneStyle
	} else {
		rightPane = focusedPaneStyle
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		leftPane.Width(paneWidth).Height(paneHeight).Render(left),
		rightPane.Width(paneWidth).Height(paneHeight).Render(right),
	)

	footer := m.help.View(m.keys)
	if m.status != "" {
		footer = m.status + "\n" + footer
	}
	return title + "\n" + body + "\n" + footer
}

func (m Model) renderProjects(width, height int) string {
	if len(m.snap.Projects) == 0 {
		return dimStyle.Render("no projects registered")
	}
	lines := make([]string, 0, len(m.snap.Projects))
	for i, p := range m.snap.Projects {
		label := fmt.Sprintf("%s (%d)", p.Name, len(p.Experiments))
		line := "  " + truncate(label, width-2)
		if i == m.projCursor {
			line = selectedStyle.Render("> " + truncate(label, width-2))
		}
		lines = append(lines, line)
	}
	return joinClipped(lines, height)
}

func (m Model) renderExperiments(width, height int) string {
	exps := m.selectedExperiments()
	if len(exps) == 0 {
		return dimStyle.Render("no experiments")
	}
	lines := make([]string, 0, len(exps))
	for i, e := range exps {
		label := fmt.Sprintf("%s [%s]", e.Name, e.State)
		line := "  " + truncate(label, width-2)
		if m.focus == paneExperiments && i == m.expCursor {
			line = selectedStyle.Render("> " + truncate(label, width-2))
		}
		lines = append(lines, line)
	}
	return joinClipped(lines, height)
}

// truncate shortens s to at most width terminal cells, wide runes included.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return runewidth.Truncate(s, width, "…")
}

func joinClipped(lines []string, height int) string {
	if len(lines) > height {
		lines = lines[:height]
	}
	out := ""
	for i, line := range lines {
		if i > 0 {
			out += "\n"
		}
		out += line
	}
	return out
}
