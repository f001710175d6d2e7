// Package config provides the configuration schema, loader, and file watcher
// for the hatsuon pronunciation diagnosis service.
package config

import "time"

// LogLevel controls log verbosity for the hatsuon server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Backend selects which generative-AI provider produces diagnosis reports.
type Backend string

const (
	// BackendGemini talks to Google Gemini (the default).
	BackendGemini Backend = "gemini"

	// BackendOpenAI talks to the OpenAI API or a compatible server. This
	// backend supports model auto-discovery.
	BackendOpenAI Backend = "openai"
)

// IsValid reports whether b is a recognised generation backend.
func (b Backend) IsValid() bool {
	return b == BackendGemini || b == BackendOpenAI
}

// Config is the root configuration structure for hatsuon.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Credentials CredentialsConfig `yaml:"credentials"`
	Recognition RecognitionConfig `yaml:"recognition"`
	Generation  GenerationConfig  `yaml:"generation"`
	LogSink     LogSinkConfig     `yaml:"logsink"`
	Archive     ArchiveConfig     `yaml:"archive"`
	Admin       AdminConfig       `yaml:"admin"`
}

// ServerConfig holds network and logging settings for the hatsuon server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MaxUploadBytes caps the accepted audio upload size. Zero means the
	// default of 32 MiB.
	MaxUploadBytes int64 `yaml:"max_upload_bytes"`
}

// CredentialsConfig holds API credentials for the cloud services.
type CredentialsConfig struct {
	// GeminiAPIKey authenticates against the Gemini API. Required.
	GeminiAPIKey string `yaml:"gemini_api_key"`

	// OpenAIAPIKey authenticates against the OpenAI API. Only used when
	// generation.backend is "openai".
	OpenAIAPIKey string `yaml:"openai_api_key"`

	// GoogleCredentialsJSON is the path to a service-account JSON key used
	// for Cloud Speech-to-Text and Google Sheets. When empty, Application
	// Default Credentials are used.
	GoogleCredentialsJSON string `yaml:"google_credentials_json"`
}

// RecognitionConfig tunes the cloud speech recognition request.
type RecognitionConfig struct {
	// Language is the BCP-47 recognition language. Default: "ja-JP".
	Language string `yaml:"language"`

	// SampleRateHertz must match the normalized audio. Default: 16000.
	SampleRateHertz int `yaml:"sample_rate_hertz"`

	// MaxAlternatives is how many alternative transcripts to request,
	// clamped to [1, 5]. Default: 3.
	MaxAlternatives int `yaml:"max_alternatives"`

	// Punctuation enables automatic punctuation in transcripts.
	Punctuation bool `yaml:"punctuation"`

	// TimeoutSeconds bounds the long-running recognition operation.
	// Default: 600.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// Timeout returns the recognition timeout as a duration, applying the default.
func (r RecognitionConfig) Timeout() time.Duration {
	if r.TimeoutSeconds <= 0 {
		return 600 * time.Second
	}
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// GenerationConfig selects the report-generation backend and its model
// fallback list.
type GenerationConfig struct {
	// Backend is "gemini" (default) or "openai".
	Backend Backend `yaml:"backend"`

	// Models is the ordered fallback list of model names. The first entry
	// is tried first. When empty and Discover is false, a built-in Gemini
	// list is used.
	Models []string `yaml:"models"`

	// Discover, when true and the backend supports listing models, replaces
	// Models with the models advertised by the API, ordered by Prefer.
	Discover bool `yaml:"discover"`

	// Prefer is a substring that ranks discovered models first
	// (e.g., "flash"). Only used when Discover is true.
	Prefer string `yaml:"prefer"`

	// BaseURL overrides the backend's default API endpoint. Useful for
	// OpenAI-compatible servers.
	BaseURL string `yaml:"base_url"`
}

// LogSinkConfig configures the spreadsheet the diagnosis summaries are
// appended to.
type LogSinkConfig struct {
	// Spreadsheet is a Google Sheets URL or bare spreadsheet key. When
	// empty, sheet logging is disabled.
	Spreadsheet string `yaml:"spreadsheet"`
}

// ArchiveConfig configures the optional Postgres session archive.
type ArchiveConfig struct {
	// PostgresDSN is the connection string. When empty, sessions are not
	// archived.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// AdminConfig protects the session-listing API.
type AdminConfig struct {
	// Password guards GET /api/sessions. When empty, the endpoint is
	// disabled.
	Password string `yaml:"password"`
}
