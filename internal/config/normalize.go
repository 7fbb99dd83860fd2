package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizeWatch(); err != nil {
		return err
	}
	c.normalizeNaming()
	c.normalizeOllama()
	if err := c.normalizeLogging(); err != nil {
		return err
	}
	return c.normalizePaths()
}

func (c *Config) normalizeWatch() error {
	if strings.TrimSpace(c.Watch.Dir) == "" {
		c.Watch.Dir = defaultWatchDir
	}
	var err error
	if c.Watch.Dir, err = expandPath(strings.TrimSpace(c.Watch.Dir)); err != nil {
		return fmt.Errorf("watch.dir: %w", err)
	}

	prefixes := make([]string, 0, len(c.Watch.Prefixes))
	for _, prefix := range c.Watch.Prefixes {
		if strings.TrimSpace(prefix) == "" {
			continue
		}
		prefixes = append(prefixes, prefix)
	}
	c.Watch.Prefixes = prefixes

	seen := make(map[string]struct{}, len(c.Watch.Extensions))
	extensions := make([]string, 0, len(c.Watch.Extensions))
	for _, ext := range c.Watch.Extensions {
		ext = NormalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		extensions = append(extensions, ext)
	}
	c.Watch.Extensions = extensions
	return nil
}

// NormalizeExtension lowercases ext and ensures it carries a leading dot.
// Blank input yields "".
func NormalizeExtension(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	ext = strings.TrimLeft(ext, ".")
	if ext == "" {
		return ""
	}
	return "." + ext
}

func (c *Config) normalizeNaming() {
	if c.Naming.MaxStemLength == 0 {
		c.Naming.MaxStemLength = defaultMaxStemLength
	}
	c.Naming.FallbackStem = strings.TrimSpace(c.Naming.FallbackStem)
	if c.Naming.FallbackStem == "" {
		c.Naming.FallbackStem = defaultFallbackStem
	}
}

func (c *Config) normalizeOllama() {
	if value, ok := os.LookupEnv(envOllamaHost); ok && strings.TrimSpace(value) != "" {
		c.Ollama.BaseURL = ollamaHostURL(value)
	}
	if value, ok := os.LookupEnv(envModel); ok && strings.TrimSpace(value) != "" {
		c.Ollama.Model = value
	}
	c.Ollama.BaseURL = strings.TrimRight(strings.TrimSpace(c.Ollama.BaseURL), "/")
	if c.Ollama.BaseURL == "" {
		c.Ollama.BaseURL = defaultOllamaBaseURL
	}
	c.Ollama.Model = strings.TrimSpace(c.Ollama.Model)
	if c.Ollama.Model == "" {
		c.Ollama.Model = defaultOllamaModel
	}
	if c.Ollama.TimeoutSeconds == 0 {
		c.Ollama.TimeoutSeconds = defaultOllamaTimeout
	}
}

// ollamaHostURL accepts the forms OLLAMA_HOST is commonly given in
// ("0.0.0.0", "host:port", "https://host") and returns a base URL.
func ollamaHostURL(value string) string {
	value = strings.TrimRight(strings.TrimSpace(value), "/")
	if strings.Contains(value, "://") {
		return value
	}
	host := value
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(strings.Trim(host, "[]"), defaultOllamaHostPort)
	}
	u := url.URL{Scheme: defaultOllamaURLScheme, Host: host}
	return u.String()
}

func (c *Config) normalizeLogging() error {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	var err error
	if c.Logging.Dir, err = expandPath(strings.TrimSpace(c.Logging.Dir)); err != nil {
		return fmt.Errorf("logging.dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(strings.TrimSpace(c.Paths.StateDir)); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}
