package types

import "time"

// ProviderConfig holds settings for one reasoning provider.
type ProviderConfig struct {
	// Model is the provider's model identifier (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the provider API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (useful for proxies and tests).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`

	// MaxTokens caps the completion length when a stage does not set its own.
	MaxTokens int `json:"max_tokens,omitempty" yaml:"max_tokens,omitempty" mapstructure:"max_tokens"`
}

// ReasoningConfig groups the three providers and the shared call limits.
type ReasoningConfig struct {
	Fast     ProviderConfig `json:"fast" yaml:"fast" mapstructure:"fast"`
	Deep     ProviderConfig `json:"deep" yaml:"deep" mapstructure:"deep"`
	Research ProviderConfig `json:"research" yaml:"research" mapstructure:"research"`

	// Timeout bounds every provider call (default 90s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// RequestsPerMinute paces outbound provider calls (default 30).
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// StoreDriver selects the EvaluationStore backend.
type StoreDriver string

const (
	DriverSQLite   StoreDriver = "sqlite"
	DriverPostgres StoreDriver = "postgres"
)

// StoreConfig holds settings for the record store.
type StoreConfig struct {
	// Driver is sqlite or postgres (default sqlite).
	Driver StoreDriver `json:"driver" yaml:"driver" mapstructure:"driver"`

	// Path is the SQLite database file (default data/ideas.db).
	Path string `json:"path,omitempty" yaml:"path,omitempty" mapstructure:"path"`

	// DSN is the PostgreSQL connection string.
	DSN string `json:"dsn,omitempty" yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// PipelineConfig holds the orchestrator and gate settings.
type PipelineConfig struct {
	// FeasibilityThreshold is the minimum technical_score (0-100) for the
	// feasibility gate. It has no built-in value and must be configured
	// before stage 5 can run.
	FeasibilityThreshold float64 `json:"feasibility_threshold" yaml:"feasibility_threshold" mapstructure:"feasibility_threshold"`

	// AdvanceRetries is how many times stage advancement is attempted after
	// the evaluation is saved (default 3).
	AdvanceRetries int `json:"advance_retries" yaml:"advance_retries" mapstructure:"advance_retries"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level string `json:"level" yaml:"level" mapstructure:"level"`
	File  string `json:"file,omitempty" yaml:"file,omitempty" mapstructure:"file"`
}

// Config is the full application configuration.
type Config struct {
	Reasoning ReasoningConfig `json:"reasoning" yaml:"reasoning" mapstructure:"reasoning"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Pipeline  PipelineConfig  `json:"pipeline" yaml:"pipeline" mapstructure:"pipeline"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}
