// Package config loads, normalizes, and validates shotnamer configuration.
//
// Configuration is TOML. Load searches an explicit path, then
// ~/.config/shotnamer/config.toml, then ./shotnamer.toml, and falls back to
// defaults when none exists. Paths are expanded, extensions normalized to a
// lowercase dotted form, and OLLAMA_HOST / SHOTNAMER_MODEL applied before
// validation.
package config
