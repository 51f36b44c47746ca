// Package config loads scanledger settings.
//
// Values are layered defaults, then the YAML file, then SCANLEDGER_*
// environment variables, then caller overrides (CLI flags). The result is
// checked against an embedded CUE schema. Relative paths resolve against
// Root, which the caller always supplies.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the resolved runtime configuration.
type Config struct {
	Root     string `yaml:"root" json:"root"`
	Timezone string `yaml:"timezone" json:"timezone"`

	Store  StoreConfig  `yaml:"store" json:"store"`
	Remote RemoteConfig `yaml:"remote" json:"remote"`
	Images ImagesConfig `yaml:"images" json:"images"`
	Sync   SyncConfig   `yaml:"sync" json:"sync"`
	Carbon CarbonConfig `yaml:"carbon" json:"carbon"`
}

type StoreConfig struct {
	// Driver is "sqlite" or "file".
	Driver string `yaml:"driver" json:"driver"`
	Path   string `yaml:"path" json:"path"`

	// LegacyPath is a v1 JSON history imported once into a fresh SQLite store.
	LegacyPath string `yaml:"legacy_path" json:"legacy_path"`
}

type RemoteConfig struct {
	// Driver is "none", "postgres" or "file".
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
	Path   string `yaml:"path" json:"path"`
	UserID string `yaml:"user_id" json:"user_id"`
}

type ImagesConfig struct {
	// Driver is "none", "dir" or "s3".
	Driver string   `yaml:"driver" json:"driver"`
	Dir    string   `yaml:"dir" json:"dir"`
	S3     S3Config `yaml:"s3" json:"s3"`
}

type S3Config struct {
	Region    string `yaml:"region" json:"region"`
	Bucket    string `yaml:"bucket" json:"bucket"`
	Prefix    string `yaml:"prefix" json:"prefix"`
	Endpoint  string `yaml:"endpoint" json:"endpoint"`
	AccessKey string `yaml:"access_key" json:"access_key"`
	SecretKey string `yaml:"secret_key" json:"secret_key"`
}

type SyncConfig struct {
	Workers     int    `yaml:"workers" json:"workers"`
	QueueSize   int    `yaml:"queue_size" json:"queue_size"`
	MaxAttempts int    `yaml:"max_attempts" json:"max_attempts"`
	RetryBase   string `yaml:"retry_base" json:"retry_base"`
	FetchLimit  int    `yaml:"fetch_limit" json:"fetch_limit"`
}

type CarbonConfig struct {
	PointsPerKg int `yaml:"points_per_kg" json:"points_per_kg"`
}

// Default returns the settings used when nothing else is configured.
func Default(root string) Config {
	return Config{
		Root:     root,
		Timezone: "Local",
		Store:    StoreConfig{Driver: "sqlite", Path: "scanledger.db"},
		Remote:   RemoteConfig{Driver: "none"},
		Images:   ImagesConfig{Driver: "none", Dir: "images"},
		Sync: SyncConfig{
			Workers:     4,
			QueueSize:   64,
			MaxAttempts: 3,
			RetryBase:   "250ms",
			FetchLimit:  500,
		},
		Carbon: CarbonConfig{PointsPerKg: 1000},
	}
}

// Load builds a Config for root. path may be empty; a missing file at a
// non-empty path is an error. getenv may be nil.
func Load(root, path string, getenv func(string) string, overrides ...func(*Config)) (Config, error) {
	cfg := Default(root)

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		// The file never moves the root chosen by the caller.
		cfg.Root = root
	}

	if getenv != nil {
		applyEnv(&cfg, getenv)
	}
	for _, o := range overrides {
		o(&cfg)
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(cfg)
}

func (c *Config) resolvePaths() {
	for _, p := range []*string{&c.Store.Path, &c.Store.LegacyPath, &c.Remote.Path, &c.Images.Dir} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(c.Root, *p)
		}
	}
}

// Validate checks c against the schema and the values the schema cannot
// express.
func (c Config) Validate() error {
	if err := validateSchema(c); err != nil {
		return err
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("%w: timezone: %v", ErrInvalid, err)
	}
	if _, err := c.RetryBase(); err != nil {
		return fmt.Errorf("%w: sync.retry_base: %v", ErrInvalid, err)
	}
	return nil
}

// Location returns the time zone that buckets scans into days.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// RetryBase returns the parsed sync retry delay.
func (c Config) RetryBase() (time.Duration, error) {
	d, err := time.ParseDuration(c.Sync.RetryBase)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}
