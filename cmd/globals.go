package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/RMShur/model-organization/internal/document"
)

var globalsCmd = &cobra.Command{
	Use:   "globals",
	Short: "Read and write the global settings document",
}

var globalsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print the globals document, or a single value",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if len(args) == 0 {
			data, err := document.Encode(cfg.Globals)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}

		value, ok := cfg.Globals.Get(args[0])
		if !ok {
			return fmt.Errorf("globals has no key %q", args[0])
		}
		if doc, isDoc := value.(*document.Document); isDoc {
			data, err := document.Encode(doc)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(data)
			return err
		}
		fmt.Println(value)
		return nil
	},
}

var globalsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set one global value and save",
	Long: `Set one global value and save. The value is parsed as a YAML scalar,
so numbers and booleans keep their types: "42" stores an integer, "yes" a
boolean, and anything else a string.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, cleanup, err := openConfig(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		var value any
		if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
			value = args[1]
		}
		cfg.Globals.Set(args[0], value)
		if err := cfg.Store().Save(ctx, cfg.Globals, cfg.GlobalsPath()); err != nil {
			return err
		}
		fmt.Printf("set %s\n", args[0])
		return nil
	},
}

func init() {
	globalsCmd.AddCommand(globalsGetCmd)
	globalsCmd.AddCommand(globalsSetCmd)
	rootCmd.AddCommand(globalsCmd)
}
