package am

import (
	"os"
	"sort"
	"strings"

	"github.com/teranos/facts/errors"
)

// ConfigSource represents where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"      // /etc/facts/facts.toml
	SourceUser        ConfigSource = "user"        // ~/.facts/facts.toml
	SourceProject     ConfigSource = "project"     // nearest facts.toml
	SourceEnvironment ConfigSource = "environment" // FACTS_* env vars
)

// SourceInfo tracks where a configuration value originated
type SourceInfo struct {
	Source ConfigSource
	Path   string // file path or environment variable name
}

// SettingInfo is one effective setting and its origin.
type SettingInfo struct {
	Key        string       `json:"key" yaml:"key"`
	Value      interface{}  `json:"value" yaml:"value"`
	Source     ConfigSource `json:"source" yaml:"source"`
	SourcePath string       `json:"source_path,omitempty" yaml:"source_path,omitempty"`
}

// Introspection lists every effective setting, sorted by key.
type Introspection struct {
	Files    []string      `json:"files" yaml:"files"`
	Settings []SettingInfo `json:"settings" yaml:"settings"`
}

// Introspect reports where each active setting came from. Secrets are
// redacted.
func Introspect() (*Introspection, error) {
	if _, err := Load(); err != nil {
		return nil, errors.Wrap(err, "failed to load config for introspection")
	}
	v := GetViper()

	mu.Lock()
	sources := make(map[string]SourceInfo, len(ConfigSources))
	for k, si := range ConfigSources {
		sources[k] = si
	}
	mu.Unlock()

	out := &Introspection{}
	seen := map[string]bool{}
	for _, si := range sources {
		if !seen[si.Path] {
			seen[si.Path] = true
			out.Files = append(out.Files, si.Path)
		}
	}
	sort.Strings(out.Files)

	flattenSettings(v.AllSettings(), "", out, sources)
	return out, nil
}

func flattenSettings(settings map[string]interface{}, prefix string, out *Introspection, sources map[string]SourceInfo) {
	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := settings[key]
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}

		if nested, ok := value.(map[string]interface{}); ok {
			flattenSettings(nested, fullKey, out, sources)
			continue
		}

		info := SourceInfo{Source: SourceDefault, Path: "built-in default"}
		if si, ok := sources[fullKey]; ok {
			info = si
		}
		envKey := EnvKey(fullKey)
		if _, ok := os.LookupEnv(envKey); ok {
			info = SourceInfo{Source: SourceEnvironment, Path: envKey}
		}

		if isSecret(fullKey) {
			value = redact(value)
		}
		out.Settings = append(out.Settings, SettingInfo{
			Key:        fullKey,
			Value:      value,
			Source:     info.Source,
			SourcePath: info.Path,
		})
	}
}

// EnvKey is the environment variable that overrides key:
// "ingest.workers" → "FACTS_INGEST_WORKERS".
func EnvKey(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func isSecret(key string) bool {
	return strings.HasSuffix(key, ".api_key")
}

func redact(v interface{}) interface{} {
	if s, ok := v.(string); ok && s == "" {
		return s
	}
	return "********"
}
