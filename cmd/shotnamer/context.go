package main

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"shotnamer/internal/caption"
	"shotnamer/internal/config"
	"shotnamer/internal/logging"
	"shotnamer/internal/pipeline"
	"shotnamer/internal/services/ollama"
)

type commandContext struct {
	configFlag *string

	configOnce   sync.Once
	config       *config.Config
	configPath   string
	configExists bool
	configErr    error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, exists, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
		c.configExists = exists
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command, cfg *config.Config) (*slog.Logger, error) {
	return logging.NewFromConfig(cfg, cmd.ErrOrStderr())
}

func newOllamaClient(cfg *config.Config) *ollama.Client {
	return ollama.NewClient(ollama.Config{
		BaseURL:        cfg.Ollama.BaseURL,
		Model:          cfg.Ollama.Model,
		TimeoutSeconds: cfg.Ollama.TimeoutSeconds,
	})
}

func newPipeline(cfg *config.Config, client *ollama.Client, logger *slog.Logger, opts ...pipeline.Option) *pipeline.Pipeline {
	invoker := caption.NewInvoker(client, cfg.Ollama.Model)
	options := pipeline.OptionsFromConfig(cfg)
	options.Model = invoker.Model()
	return pipeline.New(options, invoker, logger, opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
