package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"shotnamer/internal/textutil"
)

//go:embed sample_config.toml
var sampleConfig string

// Watch selects which directory is observed and which files qualify.
type Watch struct {
	Dir           string   `toml:"dir"`
	Prefixes      []string `toml:"prefixes"`
	Extensions    []string `toml:"extensions"`
	SettleDelayMS int      `toml:"settle_delay_ms"`
}

// Naming bounds the generated filename stems.
type Naming struct {
	MaxStemLength int    `toml:"max_stem_length"`
	FallbackStem  string `toml:"fallback_stem"`
}

// Ollama contains the captioning service connection settings.
type Ollama struct {
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
	Dir    string `toml:"dir"`
}

// History controls the optional rename journal.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Paths contains runtime state locations.
type Paths struct {
	StateDir string `toml:"state_dir"`
}

// Config encapsulates all configuration values for shotnamer.
//
// Configuration sections by subsystem:
//   - Watch: directory, filename prefixes, extensions, settle delay
//   - Naming: stem length bound and fallback stem
//   - Ollama: captioning service endpoint and model
//   - Logging: log format, level, and optional file directory
//   - History: rename journal
//   - Paths: lock file location
type Config struct {
	Watch   Watch   `toml:"watch"`
	Naming  Naming  `toml:"naming"`
	Ollama  Ollama  `toml:"ollama"`
	Logging Logging `toml:"logging"`
	History History `toml:"history"`
	Paths   Paths   `toml:"paths"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigLocation)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigFilename)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state directory and, when enabled, the
// directories holding the journal and log files. The watch directory is not
// created: a missing watch directory is a startup failure.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.StateDir}
	if c.History.Enabled {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	if c.Logging.Dir != "" {
		dirs = append(dirs, c.Logging.Dir)
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SettleDelay returns the pause between an event and reading the file.
func (c *Config) SettleDelay() time.Duration {
	if c.Watch.SettleDelayMS <= 0 {
		return 0
	}
	return time.Duration(c.Watch.SettleDelayMS) * time.Millisecond
}

// Stemmer returns the sanitizer configured by the naming section.
func (c *Config) Stemmer() textutil.Stemmer {
	return textutil.NewStemmer(c.Naming.MaxStemLength, c.Naming.FallbackStem)
}

// LockPath returns the single-instance lock file for the watch directory.
func (c *Config) LockPath() string {
	token := textutil.SanitizeToken(c.Watch.Dir)
	return filepath.Join(c.Paths.StateDir, "shotnamer-"+token+".lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
