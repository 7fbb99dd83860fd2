package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"shotnamer/internal/textutil"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWatch(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateOllama(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return c.validateHistory()
}

func (c *Config) validateWatch() error {
	if strings.TrimSpace(c.Watch.Dir) == "" {
		return errors.New("watch.dir must be set")
	}
	if len(c.Watch.Prefixes) == 0 {
		return errors.New("watch.prefixes must list at least one filename prefix")
	}
	if len(c.Watch.Extensions) == 0 {
		return errors.New("watch.extensions must list at least one extension")
	}
	for _, ext := range c.Watch.Extensions {
		if len(ext) < 2 || ext[0] != '.' || strings.ContainsAny(ext[1:], `./\`) {
			return fmt.Errorf("watch.extensions: invalid extension %q", ext)
		}
	}
	if c.Watch.SettleDelayMS < 0 {
		return errors.New("watch.settle_delay_ms must be zero or positive")
	}
	return nil
}

func (c *Config) validateNaming() error {
	if c.Naming.MaxStemLength < 1 {
		return errors.New("naming.max_stem_length must be positive")
	}
	if !textutil.IsStem(c.Naming.FallbackStem) {
		return fmt.Errorf("naming.fallback_stem %q must be lowercase words joined by single underscores", c.Naming.FallbackStem)
	}
	if utf8.RuneCountInString(c.Naming.FallbackStem) > c.Naming.MaxStemLength {
		return fmt.Errorf("naming.fallback_stem must not exceed naming.max_stem_length (%d)", c.Naming.MaxStemLength)
	}
	return nil
}

func (c *Config) validateOllama() error {
	u, err := url.Parse(c.Ollama.BaseURL)
	if err != nil {
		return fmt.Errorf("ollama.base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("ollama.base_url %q must use http or https", c.Ollama.BaseURL)
	}
	if u.Host == "" {
		return fmt.Errorf("ollama.base_url %q has no host", c.Ollama.BaseURL)
	}
	if c.Ollama.Model == "" {
		return errors.New("ollama.model must be set")
	}
	if c.Ollama.TimeoutSeconds < 0 {
		return errors.New("ollama.timeout_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn, or error", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateHistory() error {
	if c.History.Enabled && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path must be set when history.enabled is true")
	}
	return nil
}
