// Package cli is the command surface over the record store: thin argument
// parsing that calls one store method per command and prints the result.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devvoxel/itemdb/internal/app"
	"github.com/devvoxel/itemdb/internal/config"
	"github.com/devvoxel/itemdb/internal/store"
)

// rootOptions holds global flags shared by all commands.
type rootOptions struct {
	configPath string
	editor     string

	app *app.App
}

func (o *rootOptions) store() *store.Store {
	return o.app.Store()
}

// NewRootCommand builds the itemdb command tree. Every subcommand opens the
// configured backend, runs one store operation and shuts down again; serve
// stays up and runs the sync loop.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "itemdb",
		Short:         "Versioned item store",
		Long:          "itemdb stores named binary item payloads with version history, audit trail, search, diff, rollback and zip import/export.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.New(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			opts.app = a
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.Close()
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "path to YAML config file")
	cmd.PersistentFlags().StringVar(&opts.editor, "editor", "console", "editor name recorded in versions and audit")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newSearchCommand(opts))
	cmd.AddCommand(newHistoryCommand(opts))
	cmd.AddCommand(newDiffCommand(opts))
	cmd.AddCommand(newRollbackCommand(opts))
	cmd.AddCommand(newExportCommand(opts))
	cmd.AddCommand(newImportCommand(opts))

	return cmd
}

// Execute runs the command tree.
func Execute(ctx context.Context) error {
	return NewRootCommand().ExecuteContext(ctx)
}
