package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"shotnamer/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the watch directory and captioning service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, newOllamaClient(cfg))

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, colorStatus(checkStatus(r), colorize), r.Detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))

			if preflight.Failed(results) {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func checkStatus(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Advisory:
		return statusWarn
	default:
		return statusError
	}
}
