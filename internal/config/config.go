// Package config loads txengine settings from defaults, an optional YAML
// file, an optional .env file and TXENGINE_* environment variables, in that
// order of precedence (later wins). Command-line flags are applied on top by
// the caller.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const envPrefix = "TXENGINE_"

// Config is the full runtime configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Engine  EngineConfig  `yaml:"engine"`
	Metrics MetricsConfig `yaml:"metrics"`
	Report  ReportConfig  `yaml:"report"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type EngineConfig struct {
	// Strict enables the strict transaction lifecycle.
	Strict bool `yaml:"strict"`
}

type MetricsConfig struct {
	// File, when set, receives a Prometheus textfile snapshot at exit.
	File string `yaml:"file"`
}

type ReportConfig struct {
	// PostgresDSN, when set, also stores the final balances in Postgres.
	PostgresDSN string `yaml:"postgres_dsn"`
	Table       string `yaml:"table"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:    LogConfig{Level: "info", Format: "json"},
		Report: ReportConfig{Table: "account_balances"},
	}
}

// Load builds a Config. path is an optional YAML file; envFile is an
// optional dotenv file whose variables are exported unless already set.
// Missing optional files are not an error.
func Load(path, envFile string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("METRICS_FILE", &c.Metrics.File)
	str("PG_DSN", &c.Report.PostgresDSN)
	str("REPORT_TABLE", &c.Report.Table)

	if v, ok := lookup(envPrefix + "STRICT"); ok {
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%sSTRICT: %w", envPrefix, err)
		}
		c.Engine.Strict = b
	}
	return nil
}

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// Validate checks values that would otherwise fail late in a run.
func (c Config) Validate() error {
	var lvl zapcore.Level
	if err := lvl.Set(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format: must be json or console, got %q", c.Log.Format)
	}
	if !tableName.MatchString(c.Report.Table) {
		return fmt.Errorf("report.table: invalid identifier %q", c.Report.Table)
	}
	return nil
}
