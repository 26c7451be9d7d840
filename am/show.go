package am

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/teranos/facts/errors"
)

// Render formats the effective settings as toml, json or yaml, with
// secrets redacted.
func Render(settings map[string]interface{}, format string) ([]byte, error) {
	clean := redactSettings(settings, "")
	switch strings.ToLower(format) {
	case "", "toml":
		var buf bytes.Buffer
		enc := toml.NewEncoder(&buf)
		enc.SetIndentTables(true)
		if err := enc.Encode(clean); err != nil {
			return nil, errors.Wrap(err, "encode toml")
		}
		return buf.Bytes(), nil
	case "json":
		out, err := json.MarshalIndent(clean, "", "  ")
		if err != nil {
			return nil, errors.Wrap(err, "encode json")
		}
		return append(out, '\n'), nil
	case "yaml", "yml":
		out, err := yaml.Marshal(clean)
		if err != nil {
			return nil, errors.Wrap(err, "encode yaml")
		}
		return out, nil
	default:
		return nil, errors.WithHint(
			errors.Newf("unknown output format %q", format),
			"use toml, json or yaml")
	}
}

// Settings returns the merged settings of the active configuration.
func Settings() (map[string]interface{}, error) {
	if _, err := Load(); err != nil {
		return nil, err
	}
	return GetViper().AllSettings(), nil
}

func redactSettings(settings map[string]interface{}, prefix string) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch val := v.(type) {
		case map[string]interface{}:
			out[k] = redactSettings(val, key)
		default:
			if isSecret(key) {
				out[k] = redact(val)
			} else {
				out[k] = val
			}
		}
	}
	return out
}
