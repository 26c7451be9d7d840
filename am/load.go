package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/teranos/facts/errors"
)

// EnvPrefix prefixes every environment override: FACTS_INGEST_WORKERS=8.
const EnvPrefix = "FACTS"

// ConfigFileName is the name searched for at every level of the cascade.
const ConfigFileName = "facts.toml"

var (
	mu            sync.Mutex
	globalConfig  *Config
	viperInstance *viper.Viper

	// ConfigSources records, per flattened key, the file that last set it.
	ConfigSources = map[string]SourceInfo{}
)

// Load reads the configuration once and caches it.
func Load() (*Config, error) {
	mu.Lock()
	defer mu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	config, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = config
	return globalConfig, nil
}

// GetViper returns the Viper instance for advanced configuration access
func GetViper() *viper.Viper {
	mu.Lock()
	defer mu.Unlock()
	return initViper()
}

// LoadWithViper loads configuration using a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	return &config, nil
}

// LoadFromFile loads defaults plus one specific file, ignoring the cascade
// and the environment.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	config, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", configPath)
	}
	return config, nil
}

// Reset clears the cached configuration (useful for testing)
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	globalConfig = nil
	viperInstance = nil
	ConfigSources = map[string]SourceInfo{}
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	BindEnvAliases(v)
	SetDefaults(v)
	mergeConfigFiles(v)

	viperInstance = v
	return v
}

// ConfigPaths returns the cascade in precedence order, lowest first. The
// project file is included only when one is found.
func ConfigPaths() []ConfigPath {
	paths := []ConfigPath{{Source: SourceSystem, Path: filepath.Join("/etc/facts", ConfigFileName)}}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, ConfigPath{Source: SourceUser, Path: filepath.Join(home, ".facts", ConfigFileName)})
	}
	if project := findProjectConfig(); project != "" {
		paths = append(paths, ConfigPath{Source: SourceProject, Path: project})
	}
	return paths
}

// ConfigPath is one level of the cascade.
type ConfigPath struct {
	Source ConfigSource
	Path   string
}

// findProjectConfig walks up from the working directory to the first
// facts.toml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges each existing file of the cascade in order and
// records which file set each key. Merged values stay below the
// environment in viper's precedence.
func mergeConfigFiles(v *viper.Viper) {
	for _, cp := range ConfigPaths() {
		if _, err := os.Stat(cp.Path); err != nil {
			continue
		}
		file := viper.New()
		file.SetConfigFile(cp.Path)
		file.SetConfigType("toml")
		if err := file.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(file.AllSettings()); err != nil {
			continue
		}
		for _, key := range file.AllKeys() {
			ConfigSources[key] = SourceInfo{Source: cp.Source, Path: cp.Path}
		}
	}
}

// Get returns a configuration value using dot notation
func Get(key string) interface{} {
	return GetViper().Get(key)
}

// GetString returns a configuration value as string using dot notation
func GetString(key string) string {
	return GetViper().GetString(key)
}
