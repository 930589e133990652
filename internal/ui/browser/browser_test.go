package browser

import (
	"bytes"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"
	"github.com/stretchr/testify/require"
)

// stripANSI removes ANSI escape codes for easier testing of content
func stripANSI(s string) string {
	result := s
	for strings.Contains(result, "\x1b[") {
		start := strings.Index(result, "\x1b[")
		end := start + 2
		for end < len(result) && result[end] != 'm' {
			end++
		}
		if end < len(result) {
			result = result[:start] + result[end+1:]
		} else {
			break
		}
	}
	return result
}

func testSnapshot() Snapshot {
	return Snapshot{
		AppName: "modelorg",
		ConfDir: "/tmp/conf",
		Projects: []Project{
			{
				Name: "vision",
				Root: "/data/vision",
				Experiments: []Experiment{
					{Name: "mnist-baseline", State: "loaded"},
					{Name: "mnist-augmented", State: "unloaded"},
				},
			},
			{
				Name: "speech",
				Root: "/data/speech",
				Experiments: []Experiment{
					{Name: "wav2vec-sweep", State: "archived"},
				},
			},
		},
	}
}

func TestView_ListsProjectsAndExperiments(t *testing.T) {
	m := New(testSnapshot(), nil, nil)
	view := stripANSI(m.View())

	require.Contains(t, view, "modelorg")
	require.Contains(t, view, "2 projects, 3 experiments")
	require.Contains(t, view, "vision (2)")
	require.Contains(t, view, "speech (1)")
	// Experiments pane shows the selected (first) project only.
	require.Contains(t, view, "mnist-baseline [loaded]")
	require.Contains(t, view, "mnist-augmented [unloaded]")
	require.NotContains(t, view, "wav2vec-sweep")
}

func TestView_EmptySnapshot(t *testing.T) {
	m := New(Snapshot{AppName: "modelorg"}, nil, nil)
	view := stripANSI(m.View())

	require.Contains(t, view, "no projects registered")
	require.Contains(t, view, "no experiments")
}

func TestUpdate_CursorFollowsProjects(t *testing.T) {
	m := New(testSnapshot(), nil, nil)

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("j")})
	view := stripANSI(next.(Model).View())

	require.Contains(t, view, "> speech (1)")
	require.Contains(t, view, "wav2vec-sweep [archived]")
	require.NotContains(t, view, "mnist-baseline")
}

func TestUpdate_RefreshReloadsSnapshot(t *testing.T) {
	reloaded := testSnapshot()
	reloaded.Projects = reloaded.Projects[:1]
	m := New(testSnapshot(), func() (Snapshot, error) { return reloaded, nil }, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	require.NotNil(t, cmd)

	next, _ = next.(Model).Update(cmd())
	view := stripANSI(next.(Model).View())
	require.Contains(t, view, "1 projects, 2 experiments")
	require.NotContains(t, view, "speech")
}

func TestUpdate_RefreshErrorShowsStatus(t *testing.T) {
	m := New(testSnapshot(), func() (Snapshot, error) {
		return Snapshot{}, errBoom{}
	}, nil)

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	next, _ = next.(Model).Update(cmd())
	view := stripANSI(next.(Model).View())

	require.Contains(t, view, "refresh failed: boom")
	// Old snapshot stays on screen.
	require.Contains(t, view, "vision (2)")
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestBrowser_QuitsOnQ(t *testing.T) {
	tm := teatest.NewTestModel(t, New(testSnapshot(), nil, nil),
		teatest.WithInitialTermSize(100, 30))

	teatest.WaitFor(t, tm.Output(), func(bts []byte) bool {
		return bytes.Contains(bts, []byte("mnist-baseline"))
	}, teatest.WithCheckInterval(10*time.Millisecond), teatest.WithDuration(3*time.Second))

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}
