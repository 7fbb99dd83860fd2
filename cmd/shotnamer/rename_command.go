package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"shotnamer/internal/history"
	"shotnamer/internal/logging"
	"shotnamer/internal/pipeline"
)

func newRenameCommand(ctx *commandContext) *cobra.Command {
	var force bool
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "rename FILE...",
		Short: "Caption and rename specific files now",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.logger(cmd, cfg)
			if err != nil {
				return err
			}

			var opts []pipeline.Option
			if cfg.History.Enabled && !dryRun {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close()
				opts = append(opts, pipeline.WithJournal(store))
			}
			p := newPipeline(cfg, newOllamaClient(cfg), logger, opts...)

			out := cmd.OutOrStdout()
			failed := 0
			for _, arg := range args {
				path, err := filepath.Abs(arg)
				if err != nil {
					return fmt.Errorf("resolve %s: %w", arg, err)
				}
				if info, err := os.Stat(path); err != nil {
					fmt.Fprintf(out, "%s: %v\n", arg, err)
					failed++
					continue
				} else if info.IsDir() {
					fmt.Fprintf(out, "%s: is a directory\n", arg)
					failed++
					continue
				}

				cand := pipeline.NewCandidate(path)
				if !force {
					if cand, err = p.Filter(path); err != nil {
						fmt.Fprintf(out, "%s: skipped (%v)\n", arg, err)
						continue
					}
				}

				result := p.Process(cmd.Context(), cand, pipeline.Mode{DryRun: dryRun})
				fmt.Fprintln(out, describeOutcome(arg, result))
				if !result.Succeeded() {
					failed++
				}
			}
			logger.Debug("rename command finished",
				logging.Int("files", len(args)),
				logging.Int("failed", failed),
			)
			if failed > 0 {
				return fmt.Errorf("%d of %d files not renamed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Rename files even if they do not match the screenshot filter")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the proposed name without moving the file")
	return cmd
}

func describeOutcome(arg string, out pipeline.Outcome) string {
	switch out.State {
	case pipeline.StateRenamed:
		return fmt.Sprintf("%s -> %s", arg, filepath.Base(out.Target))
	case pipeline.StateResolved:
		return fmt.Sprintf("%s -> %s (dry run)", arg, filepath.Base(out.Target))
	case pipeline.StateUnchanged:
		return fmt.Sprintf("%s: already named", arg)
	default:
		return fmt.Sprintf("%s: %s: %v", arg, strings.ReplaceAll(string(out.State), "_", " "), out.Err)
	}
}
