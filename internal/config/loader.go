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

// ValidProviderNames lists known generation provider names.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile",
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

// LoadFromReader decodes a YAML config from r, applies defaults, and validates
// the result. Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in defaults for optional fields left unset.
func applyDefaults(cfg *Config) {
	if cfg.Tracking.PollIntervalSeconds == 0 {
		cfg.Tracking.PollIntervalSeconds = defaultPollIntervalSeconds
	}
	if cfg.Ledger.Path == "" && cfg.Ledger.PostgresDSN == "" {
		cfg.Ledger.Path = defaultLedgerPath
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if len(cfg.Tracking.SteamIDs) == 0 {
		errs = append(errs, errors.New("tracking.steam_ids must list at least one Steam64 id"))
	}
	idsSeen := make(map[string]int, len(cfg.Tracking.SteamIDs))
	for i, id := range cfg.Tracking.SteamIDs {
		if id == "" {
			errs = append(errs, fmt.Errorf("tracking.steam_ids[%d] is empty", i))
			continue
		}
		if prev, ok := idsSeen[id]; ok {
			errs = append(errs, fmt.Errorf("tracking.steam_ids[%d] %q is a duplicate of tracking.steam_ids[%d]", i, id, prev))
		}
		idsSeen[id] = i
	}
	if cfg.Tracking.PollIntervalSeconds < 1 {
		errs = append(errs, fmt.Errorf("tracking.poll_interval_seconds %d must be at least 1", cfg.Tracking.PollIntervalSeconds))
	}

	if cfg.Leetify.APIKey == "" {
		errs = append(errs, errors.New("leetify.api_key is required"))
	}

	if cfg.Discord.WebhookURL == "" {
		errs = append(errs, errors.New("discord.webhook_url is required"))
	}

	if cfg.Ledger.Path != "" && cfg.Ledger.PostgresDSN != "" {
		slog.Warn("both ledger.path and ledger.postgres_dsn are set; the Postgres backend takes precedence")
	}

	if cfg.Commentary.Provider.Name == "" {
		errs = append(errs, errors.New("commentary.provider.name is required"))
	} else {
		validateProviderName("commentary.provider", cfg.Commentary.Provider.Name)
	}
	for i, entry := range cfg.Commentary.Fallbacks {
		prefix := fmt.Sprintf("commentary.fallbacks[%d]", i)
		if entry.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		validateProviderName(prefix, entry.Name)
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is not found in [ValidProviderNames].
func validateProviderName(field, name string) {
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"field", field,
		"name", name,
		"known", ValidProviderNames,
	)
}
