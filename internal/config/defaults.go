package config

const (
	defaultWatchDir        = "~/Downloads"
	defaultSettleDelayMS   = 1000
	defaultMaxStemLength   = 60
	defaultFallbackStem    = "renamed_screenshot"
	defaultOllamaBaseURL   = "http://localhost:11434"
	defaultOllamaModel     = "qwen3-vl:2b"
	defaultOllamaTimeout   = 120
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultHistoryPath     = "~/.local/share/shotnamer/history.db"
	defaultStateDir        = "~/.local/state/shotnamer"
	defaultConfigLocation  = "~/.config/shotnamer/config.toml"
	projectConfigFilename  = "shotnamer.toml"
	envOllamaHost          = "OLLAMA_HOST"
	envModel               = "SHOTNAMER_MODEL"
	defaultOllamaHostPort  = "11434"
	defaultOllamaURLScheme = "http"
)

var (
	defaultPrefixes   = []string{"Screenshot", "Screen Shot"}
	defaultExtensions = []string{".png", ".jpg", ".jpeg"}
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Watch: Watch{
			Dir:           defaultWatchDir,
			Prefixes:      append([]string(nil), defaultPrefixes...),
			Extensions:    append([]string(nil), defaultExtensions...),
			SettleDelayMS: defaultSettleDelayMS,
		},
		Naming: Naming{
			MaxStemLength: defaultMaxStemLength,
			FallbackStem:  defaultFallbackStem,
		},
		Ollama: Ollama{
			BaseURL:        defaultOllamaBaseURL,
			Model:          defaultOllamaModel,
			TimeoutSeconds: defaultOllamaTimeout,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		History: History{
			Enabled: false,
			Path:    defaultHistoryPath,
		},
		Paths: Paths{
			StateDir: defaultStateDir,
		},
	}
}
