package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultModels is the built-in Gemini fallback list used when
// generation.models is empty and discovery is off. Ordered fastest-first.
var DefaultModels = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
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
	applyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills zero-value fields with their documented defaults.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxUploadBytes <= 0 {
		cfg.Server.MaxUploadBytes = 32 << 20
	}
	if cfg.Recognition.Language == "" {
		cfg.Recognition.Language = "ja-JP"
	}
	if cfg.Recognition.SampleRateHertz == 0 {
		cfg.Recognition.SampleRateHertz = 16000
	}
	if cfg.Recognition.MaxAlternatives == 0 {
		cfg.Recognition.MaxAlternatives = 3
	}
	if cfg.Generation.Backend == "" {
		cfg.Generation.Backend = BackendGemini
	}
	if len(cfg.Generation.Models) == 0 && !cfg.Generation.Discover {
		cfg.Generation.Models = append([]string(nil), DefaultModels...)
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	if !cfg.Generation.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("generation.backend %q is invalid; valid values: gemini, openai", cfg.Generation.Backend))
	}

	switch cfg.Generation.Backend {
	case BackendGemini:
		if cfg.Credentials.GeminiAPIKey == "" {
			errs = append(errs, fmt.Errorf("credentials.gemini_api_key is required when generation.backend is gemini"))
		}
	case BackendOpenAI:
		if cfg.Credentials.OpenAIAPIKey == "" {
			errs = append(errs, fmt.Errorf("credentials.openai_api_key is required when generation.backend is openai"))
		}
	}

	if cfg.Recognition.MaxAlternatives < 1 || cfg.Recognition.MaxAlternatives > 5 {
		errs = append(errs, fmt.Errorf("recognition.max_alternatives %d is out of range [1, 5]", cfg.Recognition.MaxAlternatives))
	}
	if cfg.Recognition.TimeoutSeconds < 0 {
		errs = append(errs, fmt.Errorf("recognition.timeout_seconds must not be negative"))
	}

	if cfg.Generation.Discover && cfg.Generation.Backend == BackendGemini {
		slog.Warn("generation.discover is only supported by the openai backend; using the configured model list")
	}

	if cfg.LogSink.Spreadsheet == "" {
		slog.Warn("logsink.spreadsheet is empty; diagnosis summaries will not be appended to a sheet")
	}
	if cfg.Archive.PostgresDSN == "" {
		slog.Warn("archive.postgres_dsn is empty; sessions will not be archived")
	}

	return errors.Join(errs...)
}
