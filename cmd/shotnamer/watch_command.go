package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"shotnamer/internal/config"
	"shotnamer/internal/daemon"
	"shotnamer/internal/history"
	"shotnamer/internal/logging"
	"shotnamer/internal/pipeline"
	"shotnamer/internal/preflight"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var dirFlag string
	var modelFlag string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch a directory and rename new screenshots until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			cfg, err := applyWatchOverrides(*loaded, dirFlag, modelFlag)
			if err != nil {
				return err
			}

			logger, err := ctx.logger(cmd, &cfg)
			if err != nil {
				return err
			}

			client := newOllamaClient(&cfg)
			model, err := preflight.EnsureReady(cmd.Context(), client, cfg.Ollama.BaseURL, cfg.Ollama.Model)
			if err != nil {
				logging.ErrorWithContext(logger, "captioning service unavailable; not watching", "startup_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "start the service with 'ollama serve' or set ollama.base_url"),
				)
				return err
			}
			if !model.Passed {
				logging.WarnWithContext(logger, "caption model not found on service", "model_missing",
					logging.String("model", cfg.Ollama.Model),
					logging.String(logging.FieldErrorHint, "run 'ollama pull "+cfg.Ollama.Model+"'"),
				)
			}

			var opts []pipeline.Option
			if cfg.History.Enabled {
				store, err := history.Open(cfg.History.Path)
				if err != nil {
					return fmt.Errorf("open history: %w", err)
				}
				defer store.Close()
				opts = append(opts, pipeline.WithJournal(store))
			}

			d, err := daemon.New(&cfg, newPipeline(&cfg, client, logger, opts...), logger)
			if err != nil {
				return err
			}
			return d.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&dirFlag, "dir", "", "Directory to watch (overrides watch.dir)")
	cmd.Flags().StringVar(&modelFlag, "model", "", "Caption model (overrides ollama.model)")
	return cmd
}

// applyWatchOverrides returns a copy of cfg with command-line overrides
// applied and revalidated.
func applyWatchOverrides(cfg config.Config, dir, model string) (config.Config, error) {
	if dir = strings.TrimSpace(dir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return cfg, fmt.Errorf("resolve --dir: %w", err)
		}
		cfg.Watch.Dir = expanded
	}
	if model = strings.TrimSpace(model); model != "" {
		cfg.Ollama.Model = model
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
