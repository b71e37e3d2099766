package config

import (
	"fmt"
	"os"

	"github.com/knadh/koanf"
	ktoml "github.com/knadh/koanf/parsers/toml"
	kenv "github.com/knadh/koanf/providers/env"
	kfile "github.com/knadh/koanf/providers/file"
	kposflag "github.com/knadh/koanf/providers/posflag"
	"github.com/spf13/pflag"
)

// EnvPrefix is the environment variable prefix mailcore reads layered
// overrides from, e.g. MAILCORE_LOG_LEVEL.
const EnvPrefix = "MAILCORE_"

// Load builds a Config by layering, in increasing precedence: built-in
// defaults, a TOML file at path (if non-empty and it exists), environment
// variables prefixed with EnvPrefix, and finally any flags set on fs.
//
// fs may be nil, in which case only file and environment layers apply.
func Load(path string, fs *pflag.FlagSet) (Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(kfile.Provider(path), ktoml.Parser()); err != nil {
				return Config{}, fmt.Errorf("loading config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(kenv.Provider(EnvPrefix, ".", envKeyReplacer), nil); err != nil {
		return Config{}, fmt.Errorf("loading environment: %w", err)
	}

	if fs != nil {
		if err := k.Load(kposflag.Provider(fs, ".", k), nil); err != nil {
			return Config{}, fmt.Errorf("loading flags: %w", err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.EnsureDefaults()

	return cfg, nil
}

// envKeyReplacer maps MAILCORE_LOG_LEVEL -> log_level, MAILCORE_METRICS_ENABLED
// -> metrics.enabled is not derivable from flat env vars, so nested fields
// are only reachable via file/flags; top-level scalars use this replacer.
func envKeyReplacer(s string) string {
	return toLowerUnderscore(trimPrefix(s, EnvPrefix))
}

func trimPrefix(s, prefix string) string {
	if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
		return s[len(prefix):]
	}
	return s
}

func toLowerUnderscore(s string) string {
	b := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
		}
		b[i] = c
	}
	return string(b)
}

// RegisterFlags registers the global (non-account) flags mailcore commands
// share, for binding through kposflag.Provider.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.String("config", "", "path to a mailcore TOML config file")
	fs.String("log_level", "", "log level (debug, info, warn, error)")
	fs.String("log_format", "", "log output format (text, json)")
	fs.String("resolver", "", "DNS resolver strategy (sync, subprocess, goroutine)")
	fs.Bool("metrics.enabled", false, "enable the Prometheus metrics endpoint")
	fs.String("metrics.address", "", "metrics endpoint listen address")
}
