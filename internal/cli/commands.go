package cli

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/devvoxel/itemdb/internal/diff"
	"github.com/devvoxel/itemdb/internal/item"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the store with periodic background sync until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.app.Run(cmd.Context())
		},
	}
}

func newAddCommand(opts *rootOptions) *cobra.Command {
	var (
		amount       int
		unbreakable  bool
		displayName  string
		lore         []string
		modelData    int
		enchantments []string
		tags         []string
		comment      string
	)

	cmd := &cobra.Command{
		Use:   "add <key> <type>",
		Short: "Add a new item under a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			it := item.New(args[1])
			it.Amount = amount
			it.Unbreakable = unbreakable
			it.DisplayName = displayName
			it.Lore = lore
			if cmd.Flags().Changed("custom-model-data") {
				v := modelData
				it.CustomModelData = &v
			}
			var err error
			if it.Enchantments, err = parseIntPairs(enchantments); err != nil {
				return err
			}
			if it.Tags, err = parseStringPairs(tags); err != nil {
				return err
			}

			if !opts.store().Add(cmd.Context(), args[0], it, opts.editor, comment) {
				return fmt.Errorf("item %q already exists or could not be saved", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&amount, "amount", 1, "stack amount")
	cmd.Flags().BoolVar(&unbreakable, "unbreakable", false, "mark the item unbreakable")
	cmd.Flags().StringVar(&displayName, "name", "", "display name")
	cmd.Flags().StringArrayVar(&lore, "lore", nil, "lore line (repeatable)")
	cmd.Flags().IntVar(&modelData, "custom-model-data", 0, "custom model data value")
	cmd.Flags().StringArrayVar(&enchantments, "enchant", nil, "enchantment as name=level (repeatable)")
	cmd.Flags().StringArrayVar(&tags, "tag", nil, "tag as key=value (repeatable)")
	cmd.Flags().StringVar(&comment, "comment", "", "version comment")
	return cmd
}

func newGetCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print one item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			it := opts.store().Get(cmd.Context(), args[0])
			if it == nil {
				return fmt.Errorf("item %q not found", args[0])
			}
			printItem(cmd, it)
			return nil
		},
	}
}

func printItem(cmd *cobra.Command, it *item.Item) {
	flat := diff.Flatten(it.Map())
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", p, flat[p])
	}
}

func newRemoveCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <key>",
		Short: "Soft-delete an item; its history stays retrievable",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.store().Remove(cmd.Context(), args[0], opts.editor) {
				return fmt.Errorf("item %q not found", args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", args[0])
			return nil
		},
	}
}

func newSearchCommand(opts *rootOptions) *cobra.Command {
	var (
		limit     int
		modelData int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search keys, display names and lore",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter *int
			if cmd.Flags().Changed("custom-model-data") {
				v := modelData
				filter = &v
			}
			results := opts.store().Search(cmd.Context(), args[0], filter, limit)
			for _, rec := range results {
				line := rec.Key
				if rec.DisplayName != "" {
					line += "\t" + rec.DisplayName
				}
				fmt.Fprintln(cmd.OutOrStdout(), line)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d result(s)\n", len(results))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (0 = configured default)")
	cmd.Flags().IntVar(&modelData, "custom-model-data", 0, "only items with this custom model data")
	return cmd
}

func newHistoryCommand(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <key>",
		Short: "Show versions of an item, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			versions := opts.store().History(cmd.Context(), args[0], limit)
			if len(versions) == 0 {
				return fmt.Errorf("no history for %q", args[0])
			}
			for _, v := range versions {
				state := ""
				if v.Deleted {
					state = " (deleted)"
				}
				when := time.UnixMilli(v.CreatedAt).UTC().Format(time.RFC3339)
				fmt.Fprintf(cmd.OutOrStdout(), "v%d\t%s\t%s\t%s%s\n", v.Version, when, v.Editor, v.Comment, state)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "maximum versions (0 = configured default)")
	return cmd
}

func newDiffCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "diff <key> <versionA> <versionB>",
		Short: "Compare two versions of an item",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("version %q is not a number", args[1])
			}
			b, err := strconv.Atoi(args[2])
			if err != nil {
				return fmt.Errorf("version %q is not a number", args[2])
			}
			entries := opts.store().Diff(cmd.Context(), args[0], a, b)
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no differences")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(cmd.OutOrStdout(), e.String())
			}
			return nil
		},
	}
}

func newRollbackCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rollback <key> <version>",
		Short: "Restore an earlier version as a new version",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("version %q is not a number", args[1])
			}
			if !opts.store().Rollback(cmd.Context(), args[0], version, opts.editor) {
				return fmt.Errorf("could not roll back %q to version %d", args[0], version)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rolled back %s to version %d\n", args[0], version)
			return nil
		},
	}
}

func newExportCommand(opts *rootOptions) *cobra.Command {
	var namespace string

	cmd := &cobra.Command{
		Use:   "export <file.zip>",
		Short: "Export items into a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := opts.store().ExportToZip(cmd.Context(), args[0], namespace, opts.editor)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d item(s)\n", report.Exported)
			for _, e := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "only export keys in this namespace")
	return cmd
}

func newImportCommand(opts *rootOptions) *cobra.Command {
	var (
		namespace string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "import <file.zip>",
		Short: "Import items from a zip archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, err := opts.store().ImportFromZip(cmd.Context(), args[0], namespace, dryRun, opts.editor)
			if err != nil {
				return err
			}
			mode := ""
			if report.DryRun {
				mode = " (dry run)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "total %d, created %d, updated %d%s\n",
				report.Total, report.Created, report.Updated, mode)
			for _, e := range report.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&namespace, "namespace", "", "remap all imported keys into this namespace")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only report what would change")
	return cmd
}

func parseIntPairs(pairs []string) (map[string]int, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]int, len(pairs))
	for _, p := range pairs {
		name, value, found := strings.Cut(p, "=")
		if !found {
			return nil, fmt.Errorf("expected name=level, got %q", p)
		}
		level, err := strconv.Atoi(value)
		if err != nil {
			return nil, fmt.Errorf("level %q is not a number", value)
		}
		out[name] = level
	}
	return out, nil
}

func parseStringPairs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, found := strings.Cut(p, "=")
		if !found {
			return nil, fmt.Errorf("expected key=value, got %q", p)
		}
		out[key] = value
	}
	return out, nil
}
