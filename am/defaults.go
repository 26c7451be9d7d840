package am

import (
	"sort"
	"time"

	"github.com/spf13/viper"
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "facts.db")

	v.SetDefault("ingest.workers", 4)
	v.SetDefault("ingest.rules_path", "rules.toml")
	v.SetDefault("ingest.rate_limit_per_sec", 2.0)
	v.SetDefault("ingest.burst", 2)
	v.SetDefault("ingest.timeout_seconds", 30)
	v.SetDefault("ingest.user_agent", "facts/0.1")

	v.SetDefault("format.locale", "en")
	v.SetDefault("format.ascii_units", false)

	v.SetDefault("log.json", false)
	v.SetDefault("log.level", "info")
}

// BindEnvAliases binds the short environment names kept for scripts.
func BindEnvAliases(v *viper.Viper) {
	v.BindEnv("database.path", "FACTS_DATABASE_PATH", "FACTS_DB_PATH")
	v.BindEnv("log.level", "FACTS_LOG_LEVEL", "FACTS_LOG")
}

// Timeout returns the configured request timeout.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Ingest.TimeoutSeconds) * time.Second
}

// SourceNames lists configured JSON sources.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
