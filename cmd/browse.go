package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/RMShur/model-organization/internal/organizer"
	"github.com/RMShur/model-organization/internal/ui/browser"
	"github.com/RMShur/model-organization/internal/watcher"
)

func init() {
	// Force lipgloss/termenv to query the terminal background color BEFORE
	// the Bubble Tea program starts, so the OSC response cannot race with
	// the input loop.
	_ = lipgloss.HasDarkBackground()
}

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse projects and experiments in a TUI",
	Long: `Browse projects and experiments in a read-only terminal UI. With
auto_refresh enabled (the default) the view reloads when another process
rewrites the index files.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		st := cfg.Store()
		snap, err := snapshotFrom(cfg)
		if err != nil {
			return err
		}
		reload := func() (browser.Snapshot, error) {
			fresh, err := organizer.New(ctx, appName, organizer.WithStore(st))
			if err != nil {
				return browser.Snapshot{}, err
			}
			defer fresh.Close()
			return snapshotFrom(fresh)
		}

		var changes <-chan struct{}
		if settings.AutoRefresh {
			wcfg := watcher.DefaultConfig(cfg.ConfDir)
			wcfg.DebounceDur = settings.AutoRefreshDebounce
			wcfg.Store = st
			w, err := watcher.New(wcfg)
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			changes, err = w.Start()
			if err != nil {
				return fmt.Errorf("starting watcher: %w", err)
			}
			defer func() { _ = w.Stop() }()
		}

		program := tea.NewProgram(
			browser.New(snap, reload, changes),
			tea.WithAltScreen(),
			tea.WithContext(ctx),
		)
		_, err = program.Run()
		return err
	},
}

// snapshotFrom flattens the registries into what the browser renders. It does
// not realize anything; states reflect what is already known.
func snapshotFrom(cfg *organizer.Config) (browser.Snapshot, error) {
	projectMap := cfg.Experiments.ProjectMap()

	snap := browser.Snapshot{
		AppName: cfg.Name,
		ConfDir: cfg.ConfDir,
	}
	for _, name := range cfg.Projects.Names() {
		root, err := cfg.Projects.ProjectRoot(name)
		if err != nil {
			return browser.Snapshot{}, err
		}
		project := browser.Project{Name: name, Root: root}
		for _, exp := range projectMap[name] {
			state, err := cfg.Experiments.Status(exp)
			if err != nil {
				return browser.Snapshot{}, err
			}
			project.Experiments = append(project.Experiments, browser.Experiment{
				Name:  exp,
				State: state.String(),
			})
		}
		snap.Projects = append(snap.Projects, project)
	}
	return snap, nil
}

func init() {
	rootCmd.AddCommand(browseCmd)
}
