package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/RMShur/model-organization/internal/document"
)

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Manage registered projects",
}

var projectListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered projects and their roots",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		for _, name := range cfg.Projects.Names() {
			root, err := cfg.Projects.ProjectRoot(name)
			if err != nil {
				return err
			}
			fmt.Printf("%s\t%s\n", name, root)
		}
		return nil
	},
}

var projectShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a project's record as YAML",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		record, err := cfg.Projects.Get(args[0])
		if err != nil {
			return err
		}
		data, err := document.Encode(record)
		if err != nil {
			return err
		}
		_, err = os.Stdout.Write(data)
		return err
	},
}

var projectRegisterCmd = &cobra.Command{
	Use:   "register <name> <root>",
	Short: "Register a project rooted at a directory",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		root, err := filepath.Abs(args[1])
		if err != nil {
			return err
		}
		record := document.New()
		record.Set("root", root)
		if err := cfg.Projects.Register(args[0], record); err != nil {
			return err
		}
		if err := cfg.Projects.Save(ctx); err != nil {
			return err
		}
		fmt.Printf("registered project %q at %s\n", args[0], root)
		return nil
	},
}

var projectRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a project from the index",
	Long: `Remove a project from the index. The project's directory and its
metadata are left on disk; only the registration goes away.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := cfg.Projects.Remove(args[0]); err != nil {
			return err
		}
		if err := cfg.Projects.Save(ctx); err != nil {
			return err
		}
		fmt.Printf("removed project %q\n", args[0])
		return nil
	},
}

func init() {
	projectCmd.AddCommand(projectListCmd)
	projectCmd.AddCommand(projectShowCmd)
	projectCmd.AddCommand(projectRegisterCmd)
	projectCmd.AddCommand(projectRemoveCmd)
	rootCmd.AddCommand(projectCmd)
}
