package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider role.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"nl":         {"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"embeddings": {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found; soft
// issues are logged as warnings instead.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("nl", cfg.Providers.NL.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Provider availability warnings
	if cfg.Providers.NL.Name == "" {
		slog.Warn("providers.nl is not configured; the engine will run with pass-through collaborators and produce unpolished output")
	}
	if cfg.Providers.NL.Name != "" && cfg.Providers.NL.Model == "" {
		errs = append(errs, fmt.Errorf("providers.nl.model is required when providers.nl.name is set"))
	}

	// Embeddings ↔ archive dimensions
	if cfg.Providers.Embeddings.Name != "" && cfg.Archive.EmbeddingDimensions <= 0 {
		slog.Warn("providers.embeddings is configured but archive.embedding_dimensions is not set; defaulting to 1536")
	}
	if cfg.Archive.PostgresDSN == "" {
		slog.Warn("archive.postgres_dsn is empty; the turn archive will not survive restarts")
	}

	// Collaborators
	if cfg.Collaborators.Timeout < 0 {
		errs = append(errs, fmt.Errorf("collaborators.timeout must not be negative"))
	}
	if cfg.Collaborators.Temperature < 0 || cfg.Collaborators.Temperature > 2 {
		errs = append(errs, fmt.Errorf("collaborators.temperature %.2f is out of range [0, 2]", cfg.Collaborators.Temperature))
	}

	// Idle thresholds
	if cfg.Idle.FirstNudge < 0 || cfg.Idle.SecondNudge < 0 {
		errs = append(errs, fmt.Errorf("idle thresholds must not be negative"))
	}
	if cfg.Idle.EffectiveSecond() <= cfg.Idle.EffectiveFirst() {
		errs = append(errs, fmt.Errorf("idle.second_nudge (%s) must be later than idle.first_nudge (%s)",
			cfg.Idle.EffectiveSecond(), cfg.Idle.EffectiveFirst()))
	}

	// Discord
	if cfg.Discord.Token == "" && cfg.Discord.ChannelID != "" {
		slog.Warn("discord.channel_id is set but discord.token is empty; the Discord frontend stays disabled")
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given role.
func validateProviderName(role, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[role]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"role", role,
		"name", name,
		"known", known,
	)
}
