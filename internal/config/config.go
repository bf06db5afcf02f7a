package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Storage  StorageConfig  `koanf:"storage"`
	Provider ProviderConfig `koanf:"provider"`
	Log      LogConfig      `koanf:"log"`
}

type ServerConfig struct {
	Port int `koanf:"port"`
}

type StorageConfig struct {
	Path string `koanf:"path"`
}

type ProviderConfig struct {
	BaseURL            string `koanf:"base_url"`
	TimeoutMs          int    `koanf:"timeout_ms"`
	MaxRetries         int    `koanf:"max_retries"`
	RetryDelayMs       int    `koanf:"retry_delay_ms"`
	RateLimitPerMinute int    `koanf:"rate_limit_per_minute"`
}

type LogConfig struct {
	MaxEntries int `koanf:"max_entries"`
}

// Load reads configuration from an optional YAML file, overlays environment
// variables with the DOMAINCRED_ prefix (double underscore separates nesting,
// e.g. DOMAINCRED_SERVER__PORT), and applies defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("DOMAINCRED_", ".", func(s string) string {
		return strings.Replace(strings.ToLower(strings.TrimPrefix(s, "DOMAINCRED_")), "__", ".", -1)
	}), nil); err != nil {
		return nil, fmt.Errorf("load env config: %w", err)
	}

	// Default values
	defaults := map[string]any{
		"server.port":                    8080,
		"storage.path":                   "domaincred.db",
		"provider.base_url":              "https://api.dataforseo.com/v3",
		"provider.timeout_ms":            30000,
		"provider.max_retries":           3,
		"provider.retry_delay_ms":        1000,
		"provider.rate_limit_per_minute": 2000,
		"log.max_entries":                1000,
	}
	for key, val := range defaults {
		if !k.Exists(key) {
			k.Set(key, val)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}
