// Package am loads the facts configuration: built-in defaults, then
// /etc/facts/facts.toml, ~/.facts/facts.toml, the nearest facts.toml above
// the working directory, and finally FACTS_* environment variables.
package am

// Config represents the facts configuration
type Config struct {
	Database DatabaseConfig          `mapstructure:"database"`
	Ingest   IngestConfig            `mapstructure:"ingest"`
	Format   FormatConfig            `mapstructure:"format"`
	Log      LogConfig               `mapstructure:"log"`
	Sources  map[string]SourceConfig `mapstructure:"sources"`
}

// DatabaseConfig configures the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// IngestConfig configures ingestion runs
type IngestConfig struct {
	Workers         int     `mapstructure:"workers"`            // entities assembled concurrently
	RulesPath       string  `mapstructure:"rules_path"`         // TOML field rule table
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec"` // per JSON source
	Burst           int     `mapstructure:"burst"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds"`
	UserAgent       string  `mapstructure:"user_agent"`
}

// FormatConfig configures how values are rendered
type FormatConfig struct {
	Locale     string `mapstructure:"locale"`      // BCP 47 tag for digit grouping
	ASCIIUnits bool   `mapstructure:"ascii_units"` // "km^2" instead of "km²"
}

// LogConfig configures logging
type LogConfig struct {
	JSON  bool   `mapstructure:"json"`
	Level string `mapstructure:"level"`
}

// SourceConfig describes one JSON API source, selected with
// `facts ix run --api <name>`.
type SourceConfig struct {
	BaseURL      string              `mapstructure:"base_url"`
	PathTemplate string              `mapstructure:"path_template"`
	Query        map[string]string   `mapstructure:"query"`
	APIKey       string              `mapstructure:"api_key"`
	APIKeyParam  string              `mapstructure:"api_key_param"`
	Records      string              `mapstructure:"records"`
	Fields       map[string][]string `mapstructure:"fields"`
	TimeKeys     []string            `mapstructure:"time_keys"`
}

// File system constants
const (
	DefaultDirPermissions  = 0755
	DefaultFilePermissions = 0644
)
