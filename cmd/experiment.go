package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/RMShur/model-organization/internal/document"
	"github.com/RMShur/model-organization/internal/experiments"
)

var (
	expProject      string
	expArchiveLabel string
)

var experimentCmd = &cobra.Command{
	Use:   "experiment",
	Short: "Inspect and archive experiment configurations",
}

var experimentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List experiments with their state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		names := cfg.Experiments.Names()
		if expProject != "" {
			names = cfg.Experiments.ProjectMap()[expProject]
		}
		for _, name := range names {
			state, err := cfg.Experiments.Status(name)
			if err != nil {
				return err
			}
			line := fmt.Sprintf("%s\t%s", name, state)
			if archive, ok := cfg.Experiments.Archived(name); ok {
				line = fmt.Sprintf("%s\t%s\t%s (%s)", name, state,
					archive.Label, archive.Time.Format("2006-01-02"))
			}
			fmt.Println(line)
		}
		return nil
	},
}

var experimentShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Realize an experiment and print its document as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		doc, err := cfg.Experiments.Realize(ctx, args[0])
		if err != nil {
			return err
		}
		data, err := document.Encode(doc)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var experimentArchiveCmd = &cobra.Command{
	Use:   "archive <name>",
	Short: "Replace an experiment with an archive marker",
	Long: `Replace an experiment with an archive marker. The marker records a
label, the owning project and the archival time; the experiment's record file
is no longer read after this. Archiving is recorded in the experiments index
on save.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		name := args[0]
		project := expProject
		if project == "" {
			// Realize to learn the owning project from the document itself.
			doc, err := cfg.Experiments.Realize(ctx, name)
			if err != nil {
				return fmt.Errorf("use --project when the experiment cannot be realized: %w", err)
			}
			project, _ = doc.String("project")
		}

		label := expArchiveLabel
		if label == "" {
			label = name
		}
		if err := cfg.Experiments.SetArchive(name, experiments.NewArchive(label, project)); err != nil {
			return err
		}
		if err := cfg.Experiments.Save(ctx); err != nil {
			return err
		}
		fmt.Printf("archived experiment %q as %q\n", name, label)
		return nil
	},
}

func init() {
	experimentListCmd.Flags().StringVarP(&expProject, "project", "p", "",
		"only experiments belonging to this project")
	experimentArchiveCmd.Flags().StringVarP(&expProject, "project", "p", "",
		"owning project recorded in the marker")
	experimentArchiveCmd.Flags().StringVarP(&expArchiveLabel, "label", "l", "",
		"archive label (default: the experiment name)")

	experimentCmd.AddCommand(experimentListCmd)
	experimentCmd.AddCommand(experimentShowCmd)
	experimentCmd.AddCommand(experimentArchiveCmd)
	rootCmd.AddCommand(experimentCmd)
}
