// Package config loads the mirror configuration from a TOML file.
//
// The file path comes from the CONFIG_PATH environment variable and defaults
// to ./config.toml. When the file is missing a commented example is written
// to config.example.toml and Load returns an error; the process is expected
// to exit.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

const (
	DefaultPath = "config.toml"
	ExamplePath = "config.example.toml"
)

type Config struct {
	Server    ServerConfig    `toml:"server"`
	Database  DatabaseConfig  `toml:"database"`
	Storage   StorageConfig   `toml:"storage"`
	Osu       OsuConfig       `toml:"osu"`
	Crawler   CrawlerConfig   `toml:"crawler"`
	RateLimit RateLimitConfig `toml:"rate_limit"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type DatabaseConfig struct {
	// URL is the SQLite DSN (a file path, or ":memory:" for tests).
	URL            string `toml:"url"`
	MaxConnections int    `toml:"max_connections"`
}

type StorageConfig struct {
	// Backend selects the archive backend: "local" or "s3".
	Backend string             `toml:"backend"`
	Local   LocalStorageConfig `toml:"local"`
	S3      S3StorageConfig    `toml:"s3"`
}

type LocalStorageConfig struct {
	Path string `toml:"path"`
}

type S3StorageConfig struct {
	Endpoint string `toml:"endpoint"`
	Bucket   string `toml:"bucket"`
	Region   string `toml:"region"`
	Prefix   string `toml:"prefix"`
	// Optional static credentials, e.g. for MinIO. When empty the default
	// AWS credential chain (env, shared config) is used.
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

type OsuConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

type CrawlerConfig struct {
	Enabled             bool `toml:"enabled"`
	SyncIntervalSeconds int  `toml:"sync_interval_seconds"`
}

type RateLimitConfig struct {
	RequestsPerMinute int `toml:"requests_per_minute"`
	DownloadsPer10Min int `toml:"downloads_per_10min"`
}

// Default returns the built-in configuration, also used as the template for
// config.example.toml.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{
			URL:            "./data/osu_mirror.db",
			MaxConnections: 20,
		},
		Storage: StorageConfig{
			Backend: "local",
			Local:   LocalStorageConfig{Path: "./data/beatmaps"},
			S3:      S3StorageConfig{Prefix: "beatmaps"},
		},
		Crawler: CrawlerConfig{
			Enabled:             true,
			SyncIntervalSeconds: 300,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 200,
			DownloadsPer10Min: 80,
		},
	}
}

// Load reads the configuration file named by CONFIG_PATH (default
// config.toml). Missing file: an example is written next to the working
// directory and an error is returned.
func Load() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = DefaultPath
	}
	return LoadFile(path)
}

// LoadFile reads the named TOML file on top of the defaults.
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		if werr := WriteExample(ExamplePath); werr != nil {
			return nil, fmt.Errorf("config file %s not found; writing example failed: %w", path, werr)
		}
		return nil, fmt.Errorf("config file %s not found; wrote %s, fill it in and rename to %s", path, ExamplePath, DefaultPath)
	}
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// WriteExample writes the default configuration to path.
func WriteExample(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return toml.NewEncoder(f).Encode(Default())
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("database.url is required")
	}
	switch c.Storage.Backend {
	case "local":
		if c.Storage.Local.Path == "" {
			return fmt.Errorf("storage.local.path is required for the local backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", "local", "s3", c.Storage.Backend)
	}
	if c.Database.MaxConnections <= 0 {
		c.Database.MaxConnections = 20
	}
	if c.Crawler.SyncIntervalSeconds <= 0 {
		c.Crawler.SyncIntervalSeconds = 300
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		c.RateLimit.RequestsPerMinute = 200
	}
	if c.RateLimit.DownloadsPer10Min <= 0 {
		c.RateLimit.DownloadsPer10Min = 80
	}
	return nil
}

// Addr returns the host:port pair the HTTP server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
