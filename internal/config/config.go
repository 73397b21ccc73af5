package config

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yml
var defaultYAML []byte

type Company struct {
	Slug string `yaml:"slug"`
	Name string `yaml:"name"`
}

type Config struct {
	App struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
	} `yaml:"log"`

	Store struct {
		Driver       string `yaml:"driver"` // sqlite | postgres
		DSN          string `yaml:"dsn"`    // file path or postgres URL; empty = <data_dir>/jobsync.db
		MaxOpenConns int    `yaml:"max_open_conns"`
	} `yaml:"store"`

	Polling struct {
		IntervalSeconds     int `yaml:"interval_seconds"`
		FetchTimeoutSeconds int `yaml:"fetch_timeout_seconds"`
		SyncTimeoutSeconds  int `yaml:"sync_timeout_seconds"`
	} `yaml:"polling"`

	Scrape struct {
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		Burst             int     `yaml:"burst"`
		Concurrency       int     `yaml:"concurrency"`
		UserAgent         string  `yaml:"user_agent"`
	} `yaml:"scrape"`

	Filters struct {
		TitleBlock     []string `yaml:"title_block"`
		LocationsBlock []string `yaml:"locations_block"`
	} `yaml:"filters"`

	Sources struct {
		SmartHirePro struct {
			Enabled bool     `yaml:"enabled"`
			BaseURL string   `yaml:"base_url"`
			For     []string `yaml:"for"`
			Detail  bool     `yaml:"detail"`
		} `yaml:"smarthirepro"`
		Greenhouse struct {
			Enabled   bool      `yaml:"enabled"`
			BaseURL   string    `yaml:"base_url"`
			Companies []Company `yaml:"companies"`
		} `yaml:"greenhouse"`
		Lever struct {
			Enabled   bool      `yaml:"enabled"`
			BaseURL   string    `yaml:"base_url"`
			Companies []Company `yaml:"companies"`
		} `yaml:"lever"`
	} `yaml:"sources"`
}

// Default returns the embedded default configuration.
func Default() Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		panic(fmt.Sprintf("config: embedded default.yml: %v", err))
	}
	return cfg
}

// Load reads path on top of the defaults, so a user file only needs the
// keys it changes.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides config values from JOBSYNC_* variables.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if v := strings.TrimSpace(getenv("JOBSYNC_DATA_DIR")); v != "" {
		c.App.DataDir = v
	}
	if v := strings.TrimSpace(getenv("JOBSYNC_DB_DRIVER")); v != "" {
		c.Store.Driver = v
	}
	if v := strings.TrimSpace(getenv("JOBSYNC_DATABASE_URL")); v != "" {
		c.Store.DSN = v
	}
	if v := strings.TrimSpace(getenv("JOBSYNC_LOG_LEVEL")); v != "" {
		c.Log.Level = v
	}
}

func (c Config) Interval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Polling.FetchTimeoutSeconds) * time.Second
}

func (c Config) SyncTimeout() time.Duration {
	return time.Duration(c.Polling.SyncTimeoutSeconds) * time.Second
}

func (c Config) Addr() string {
	host := c.App.Host
	if host == "" {
		host = "127.0.0.1"
	}
	return fmt.Sprintf("%s:%d", host, c.App.Port)
}
