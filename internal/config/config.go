package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/julianstephens/studylit/internal/constants"
)

const (
	EnvConfigPath = "STUDYLIT_CONFIG"
	EnvDB         = "STUDYLIT_DB"
	EnvUser       = "STUDYLIT_USER"
)

// Config holds process-level configuration. Planner tuning lives per user in the
// settings table, not here.
type Config struct {
	// DB is a sqlite file path or a postgres:// connection string.
	DB     string       `yaml:"db"`
	Debug  bool         `yaml:"debug"`
	LogDir string       `yaml:"log_dir"`
	UserID string       `yaml:"user_id"`
	Daemon DaemonConfig `yaml:"daemon"`
	API    APIConfig    `yaml:"api"`
}

type DaemonConfig struct {
	// Schedule is a standard five-field cron expression.
	Schedule string `yaml:"schedule"`
	Timezone string `yaml:"timezone"`
	// PlanNextWeek makes scheduled runs plan the following week instead of the current one.
	PlanNextWeek bool `yaml:"plan_next_week"`
}

type APIConfig struct {
	Listen string `yaml:"listen"`
}

// Defaults returns the configuration used when no file is present.
func Defaults() *Config {
	return &Config{
		DB:     constants.DefaultDBPath,
		UserID: constants.DefaultUserID,
		Daemon: DaemonConfig{
			Schedule:     constants.DefaultReviseSchedule,
			Timezone:     constants.DefaultTimezone,
			PlanNextWeek: true,
		},
		API: APIConfig{
			Listen: constants.DefaultAPIListen,
		},
	}
}

// GetConfigPath returns the config file path from environment or default.
func GetConfigPath() string {
	if path := os.Getenv(EnvConfigPath); path != "" {
		return path
	}
	return constants.DefaultConfigPath
}

// Load reads configuration from a YAML file and applies defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	path, err := ExpandPath(path)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config yaml: %w", err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if !IsPostgres(cfg.DB) {
		if cfg.DB, err = ExpandPath(cfg.DB); err != nil {
			return nil, err
		}
	}
	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Dir(path)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	d := Defaults()
	if cfg.DB == "" {
		cfg.DB = d.DB
	}
	if cfg.UserID == "" {
		cfg.UserID = d.UserID
	}
	if cfg.Daemon.Schedule == "" {
		cfg.Daemon.Schedule = d.Daemon.Schedule
	}
	if cfg.Daemon.Timezone == "" {
		cfg.Daemon.Timezone = d.Daemon.Timezone
	}
	if cfg.API.Listen == "" {
		cfg.API.Listen = d.API.Listen
	}
}

func applyEnvironmentOverrides(cfg *Config) {
	if db := os.Getenv(EnvDB); db != "" {
		cfg.DB = db
	}
	if user := os.Getenv(EnvUser); user != "" {
		cfg.UserID = user
	}
}

// Validate checks the configuration for values that would fail at runtime.
func (c *Config) Validate() error {
	if c.DB == "" {
		return fmt.Errorf("db is required")
	}
	if strings.TrimSpace(c.UserID) == "" {
		return fmt.Errorf("user_id must not be blank")
	}
	if _, err := cron.ParseStandard(c.Daemon.Schedule); err != nil {
		return fmt.Errorf("invalid daemon.schedule %q: %w", c.Daemon.Schedule, err)
	}
	if c.Daemon.Timezone != "" && c.Daemon.Timezone != "Local" {
		if _, err := time.LoadLocation(c.Daemon.Timezone); err != nil {
			return fmt.Errorf("invalid daemon.timezone %q: %w", c.Daemon.Timezone, err)
		}
	}
	if _, _, err := net.SplitHostPort(c.API.Listen); err != nil {
		return fmt.Errorf("invalid api.listen %q: %w", c.API.Listen, err)
	}
	return nil
}

// IsPostgres reports whether the db setting is a postgres connection string.
func IsPostgres(db string) bool {
	return strings.HasPrefix(db, "postgres://") || strings.HasPrefix(db, "postgresql://")
}

// ExpandPath resolves a leading "~" to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
