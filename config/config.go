/*
Package config loads server and CLI settings with viper.

SOURCES (later wins):
  1. Embedded defaults (defaultConfigYAML)
  2. Config file: --config path, else ./.ledger.yaml when present
  3. Environment: LEDGER_ prefix, dots become underscores
     (LEDGER_SERVER_PORT, LEDGER_DATABASE_PATH, ...)

KEYS:
  server.port           HTTP listen port
  database.path         SQLite file, ":memory:" for a throwaway store
  log.level             zerolog level name
  cors.allowed_origins  Origins allowed by the CORS middleware
  display.currency      ISO 4217 code used to format amounts in responses
  scheduler.enabled     Create and close accounting periods automatically
  scheduler.interval    How often the scheduler checks ("1h", "30m")
  scheduler.grace_days  Days after a period ends before it is closed
  demo.scenarios        Expose /api/scenarios (resets the store on load)
*/
package config

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultConfigYAML = `
server:
  port: 8080
database:
  path: ./data/ledger.db
log:
  level: info
cors:
  allowed_origins:
    - http://localhost:3000
    - http://localhost:5173
display:
  currency: USD
scheduler:
  enabled: false
  interval: 1h
  grace_days: 15
demo:
  scenarios: false
`

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Display   DisplayConfig   `mapstructure:"display"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Demo      DemoConfig      `mapstructure:"demo"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DisplayConfig struct {
	Currency string `mapstructure:"currency"`
}

type SchedulerConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Interval  time.Duration `mapstructure:"interval"`
	GraceDays int           `mapstructure:"grace_days"`
}

type DemoConfig struct {
	Scenarios bool `mapstructure:"scenarios"`
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string { return fmt.Sprintf(":%d", c.Server.Port) }

// NewViper returns a viper instance with every source applied. cfgFile may
// be empty.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewBufferString(defaultConfigYAML)); err != nil {
		return nil, fmt.Errorf("failed to load embedded configuration: %w", err)
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName(".ledger")
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("LEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v, nil
}

// Load reads the configuration from every source.
func Load(cfgFile string) (Config, error) {
	v, err := NewViper(cfgFile)
	if err != nil {
		return Config{}, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode configuration: %w", err)
	}
	// Env values arrive as a single string.
	if origins := v.GetStringSlice("cors.allowed_origins"); len(origins) == 1 && strings.Contains(origins[0], ",") {
		cfg.CORS.AllowedOrigins = strings.Split(origins[0], ",")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return cfg, fmt.Errorf("invalid server.port %d", cfg.Server.Port)
	}
	if cfg.Database.Path == "" {
		return cfg, errors.New("database.path is required")
	}
	if cfg.Scheduler.Enabled && cfg.Scheduler.Interval <= 0 {
		return cfg, fmt.Errorf("invalid scheduler.interval %s", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.GraceDays < 0 {
		return cfg, fmt.Errorf("invalid scheduler.grace_days %d", cfg.Scheduler.GraceDays)
	}
	cfg.Display.Currency = strings.ToUpper(cfg.Display.Currency)
	return cfg, nil
}
