// Package config loads internetcheck settings from an optional YAML file
// and INTERNETCHECK_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix is prepended to environment variable names.
	EnvPrefix = "INTERNETCHECK"

	// DefaultLogLevel keeps stderr silent unless something goes wrong.
	DefaultLogLevel = "warn"

	appName = "internetcheck"
)

// Config holds the application configuration. The probe sections are
// passed as-is to the matching check factory.
type Config struct {
	LogLevel string         `mapstructure:"log_level"`
	HTTP     map[string]any `mapstructure:"http"`
	DNS      map[string]any `mapstructure:"dns"`
	Ping     map[string]any `mapstructure:"ping"`

	// File is the config file that was read, empty if none.
	File string `mapstructure:"-"`
}

// envKeys are the string-valued settings that may come from the environment,
// e.g. INTERNETCHECK_DNS_SERVER for "dns.server".
var envKeys = []string{
	"log_level",
	"http.timeout",
	"http.user_agent",
	"dns.host",
	"dns.server",
	"dns.timeout",
	"ping.target",
	"ping.timeout",
}

// Load reads configuration. If path is empty the default location
// (<user config dir>/internetcheck/config.yaml) is searched and a missing
// file is not an error. An explicit path must exist.
func Load(path string) (*Config, error) {
	return load(viper.New(), path, defaultDir())
}

func load(v *viper.Viper, path, searchDir string) (*Config, error) {
	v.SetDefault("log_level", DefaultLogLevel)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if searchDir != "" {
			v.AddConfigPath(searchDir)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()

	if _, err := cfg.Level(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Level parses LogLevel.
func (c *Config) Level() (logrus.Level, error) {
	lvl, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Sections returns the probe sections keyed by check type.
func (c *Config) Sections() map[string]map[string]any {
	return map[string]map[string]any{
		"http": c.HTTP,
		"dns":  c.DNS,
		"ping": c.Ping,
	}
}

// defaultDir returns the directory searched when no config file is given.
func defaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, appName)
}
