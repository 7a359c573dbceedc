// Package config loads seasonsim settings: code defaults, then an optional
// YAML file, then SEASONSIM_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/talgya/runstrict-season/internal/agents"
	"github.com/talgya/runstrict-season/internal/engine"
	"github.com/talgya/runstrict-season/internal/publish"
	"github.com/talgya/runstrict-season/internal/world"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "seasonsim.yaml"

const dateLayout = "2006-01-02"

// Config is the full seasonsim configuration.
type Config struct {
	Season  SeasonConfig  `yaml:"season"`
	Storage StorageConfig `yaml:"storage"`
	Publish PublishConfig `yaml:"publish"`
	Logging LoggingConfig `yaml:"logging"`
}

// SeasonConfig describes the simulated season.
type SeasonConfig struct {
	Seed           int64                  `yaml:"seed"`
	Length         int                    `yaml:"length"`
	Start          string                 `yaml:"start"` // YYYY-MM-DD, day 1
	TotalUsers     int                    `yaml:"total_users"`
	Teams          []agents.TeamQuota     `yaml:"teams"`
	Archetypes     []agents.Archetype     `yaml:"archetypes"`
	Regions        []string               `yaml:"regions"`
	CellResolution int                    `yaml:"cell_resolution"`
	HomeRegionBias float64                `yaml:"home_region_bias"`
	Defections     engine.DefectionPolicy `yaml:"defections"`
}

// StorageConfig locates local outputs.
type StorageConfig struct {
	DBPath      string `yaml:"db_path"`
	SQLDir      string `yaml:"sql_dir"`      // Where "day --save" writes scripts
	MetricsFile string `yaml:"metrics_file"` // Empty disables the textfile
}

// PublishConfig enables the optional publishers.
type PublishConfig struct {
	PostgresURL  string   `yaml:"postgres_url"`
	KafkaBrokers []string `yaml:"kafka_brokers"`
	KafkaTopic   string   `yaml:"kafka_topic"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn or error
}

// Default returns the standard 40-day season with local storage only.
func Default() *Config {
	ec := engine.DefaultConfig()
	regions := make([]string, len(ec.Regions))
	for i, r := range ec.Regions {
		regions[i] = string(r)
	}
	return &Config{
		Season: SeasonConfig{
			Seed:           ec.Seed,
			Length:         ec.SeasonLength,
			Start:          ec.SeasonStart.Format(dateLayout),
			TotalUsers:     ec.TotalUsers,
			Teams:          ec.Teams,
			Archetypes:     ec.Archetypes,
			Regions:        regions,
			CellResolution: ec.CellResolution,
			HomeRegionBias: ec.HomeRegionBias,
			Defections:     ec.Defections,
		},
		Storage: StorageConfig{
			DBPath: "season.db",
			SQLDir: "sql",
		},
		Publish: PublishConfig{
			KafkaTopic: publish.DefaultTopic,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load builds the configuration. An explicit path must exist; with no path
// DefaultFile is used when present. Environment overrides apply last.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		fileCfg, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		cfg = fileCfg
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadFromFile reads a YAML file over the defaults. Lists in the file
// replace the default lists.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.Publish.PostgresURL = expandEnvVars(cfg.Publish.PostgresURL)
	return cfg, nil
}

// Validate checks the configuration for inconsistencies the engine would
// otherwise only report on day 1.
func (c *Config) Validate() error {
	s := c.Season
	var errs []error

	if s.Length < 1 {
		errs = append(errs, fmt.Errorf("season length must be positive, got %d", s.Length))
	}
	if _, err := time.Parse(dateLayout, s.Start); err != nil {
		errs = append(errs, fmt.Errorf("season start %q is not YYYY-MM-DD", s.Start))
	}

	teamTotal := 0
	for _, q := range s.Teams {
		if !q.Team.Valid() {
			errs = append(errs, fmt.Errorf("unknown team %q", q.Team))
		}
		if q.Count < 0 {
			errs = append(errs, fmt.Errorf("team %s has negative count %d", q.Team, q.Count))
		}
		teamTotal += q.Count
	}
	if teamTotal != s.TotalUsers {
		errs = append(errs, fmt.Errorf("team counts sum to %d, want total_users %d", teamTotal, s.TotalUsers))
	}

	weightTotal := 0
	for _, a := range s.Archetypes {
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
		}
		weightTotal += a.Weight
	}
	if weightTotal != s.TotalUsers {
		errs = append(errs, fmt.Errorf("archetype weights sum to %d, want total_users %d", weightTotal, s.TotalUsers))
	}

	if len(s.Regions) == 0 {
		errs = append(errs, fmt.Errorf("at least one region is required"))
	}
	for _, r := range s.Regions {
		if err := world.Validate(world.CellID(r)); err != nil {
			errs = append(errs, fmt.Errorf("region %q: %w", r, err))
		}
	}
	if s.HomeRegionBias < 0 || s.HomeRegionBias > 1 {
		errs = append(errs, fmt.Errorf("home_region_bias must be between 0 and 1, got %f", s.HomeRegionBias))
	}

	d := s.Defections
	if d.Quota > 0 {
		if !d.Target.Valid() {
			errs = append(errs, fmt.Errorf("unknown defection target %q", d.Target))
		}
		if d.WindowStart < 1 || d.WindowEnd < d.WindowStart {
			errs = append(errs, fmt.Errorf("invalid defection window %d-%d", d.WindowStart, d.WindowEnd))
		}
	}

	if _, err := c.Logging.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Engine converts the season section to an engine configuration.
func (c *Config) Engine() (engine.Config, error) {
	start, err := time.Parse(dateLayout, c.Season.Start)
	if err != nil {
		return engine.Config{}, fmt.Errorf("season start: %w", err)
	}
	regions := make([]world.CellID, len(c.Season.Regions))
	for i, r := range c.Season.Regions {
		regions[i] = world.CellID(r)
	}
	return engine.Config{
		Seed:           c.Season.Seed,
		SeasonLength:   c.Season.Length,
		SeasonStart:    start.UTC(),
		TotalUsers:     c.Season.TotalUsers,
		Teams:          c.Season.Teams,
		Archetypes:     c.Season.Archetypes,
		Regions:        regions,
		CellResolution: c.Season.CellResolution,
		HomeRegionBias: c.Season.HomeRegionBias,
		Defections:     c.Season.Defections,
	}, nil
}

// SlogLevel parses the configured level. Empty means info.
func (l LoggingConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", l.Level)
}

func applyEnvOverrides(cfg *Config) {
	cfg.Storage.DBPath = getEnv("SEASONSIM_DB", cfg.Storage.DBPath)
	cfg.Storage.SQLDir = getEnv("SEASONSIM_SQL_DIR", cfg.Storage.SQLDir)
	cfg.Storage.MetricsFile = getEnv("SEASONSIM_METRICS_FILE", cfg.Storage.MetricsFile)
	cfg.Publish.PostgresURL = getEnv("SEASONSIM_POSTGRES_URL", cfg.Publish.PostgresURL)
	cfg.Publish.KafkaTopic = getEnv("SEASONSIM_KAFKA_TOPIC", cfg.Publish.KafkaTopic)
	cfg.Logging.Level = getEnv("SEASONSIM_LOG_LEVEL", cfg.Logging.Level)
	cfg.Season.Seed = getInt64Env("SEASONSIM_SEED", cfg.Season.Seed)

	if brokers := getEnv("SEASONSIM_KAFKA_BROKERS", ""); brokers != "" {
		cfg.Publish.KafkaBrokers = splitAndTrim(brokers)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getInt64Env(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// expandEnvVars expands ${VAR} patterns so secrets stay out of the file.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
