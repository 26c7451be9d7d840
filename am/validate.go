package am

import (
	"golang.org/x/text/language"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Workers: 0 means the pipeline default, negative is invalid
	if c.Ingest.Workers < 0 {
		return errors.Newf("ingest.workers must be >= 0, got %d", c.Ingest.Workers)
	}
	if c.Ingest.RateLimitPerSec < 0 {
		return errors.Newf("ingest.rate_limit_per_sec must be >= 0, got %g", c.Ingest.RateLimitPerSec)
	}
	if c.Ingest.Burst < 0 {
		return errors.Newf("ingest.burst must be >= 0, got %d", c.Ingest.Burst)
	}
	if c.Ingest.TimeoutSeconds <= 0 {
		return errors.Newf("ingest.timeout_seconds must be > 0, got %d", c.Ingest.TimeoutSeconds)
	}

	if _, err := language.Parse(c.Format.Locale); err != nil {
		return errors.WithHint(
			errors.Wrapf(err, "format.locale %q", c.Format.Locale),
			"use a BCP 47 tag such as en, de or fr-CH")
	}
	if _, err := logger.ParseLevel(c.Log.Level); err != nil {
		return errors.Wrap(err, "log.level")
	}

	for _, name := range c.SourceNames() {
		src := c.Sources[name]
		if src.BaseURL == "" {
			return errors.Newf("sources.%s.base_url cannot be empty", name)
		}
		if len(src.Fields) == 0 {
			return errors.WithHint(
				errors.Newf("sources.%s.fields cannot be empty", name),
				"map each rule field to the JSON keys that carry it, e.g. population = [\"SP.POP.TOTL\"]")
		}
	}
	return nil
}

// Tag returns the configured locale, falling back to English.
func (c *Config) Tag() language.Tag {
	tag, err := language.Parse(c.Format.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
