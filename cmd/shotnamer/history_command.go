package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"shotnamer/internal/fileutil"
	"shotnamer/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent renames from the journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !cfg.History.Enabled {
				fmt.Fprintln(out, "Rename journal is disabled (set history.enabled = true)")
				return nil
			}
			if !fileutil.PathExists(cfg.History.Path) {
				fmt.Fprintf(out, "No renames recorded yet (%s)\n", cfg.History.Path)
				return nil
			}

			store, err := history.Open(cfg.History.Path)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(out, "No renames recorded yet")
				return nil
			}

			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				rows = append(rows, []string{
					rec.RenamedAt.Local().Format("2006-01-02 15:04:05"),
					filepath.Base(rec.OriginalPath),
					filepath.Base(rec.FinalPath),
					rec.Model,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"When", "From", "To", "Model"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", history.DefaultRecentLimit, "Number of renames to show")
	return cmd
}

