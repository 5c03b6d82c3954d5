// Package config provides configuration loading for the CLI and the HTTP
// service. Settings come from defaults, an optional YAML file, an optional
// .env file and BANDPART_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	bandpart "github.com/wadansyaku/band-part-key-app"
	"github.com/wadansyaku/band-part-key-app/internal/logging"
)

// Config holds all configuration of the application.
type Config struct {
	Server     ServerConfig    `yaml:"server"`
	Storage    StorageConfig   `yaml:"storage"`
	Cache      CacheConfig     `yaml:"cache"`
	Logging    logging.Config  `yaml:"logging"`
	OCR        OCRConfig       `yaml:"ocr"`
	Extraction bandpart.Config `yaml:"extraction"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	RequestTimeout   time.Duration `yaml:"request_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
	// RateLimit is the sustained number of requests per second allowed
	// from one client address; RateBurst is the bucket size.
	RateLimit  float64 `yaml:"rate_limit"`
	RateBurst  int     `yaml:"rate_burst"`
	PreviewDPI float64 `yaml:"preview_dpi"`
	// Workers is the number of pages analyzed at once per request;
	// MaxConcurrent bounds the extractions running at once.
	Workers       int `yaml:"workers"`
	MaxConcurrent int `yaml:"max_concurrent"`
}

// StorageConfig holds upload and output retention settings.
type StorageConfig struct {
	DataDir         string        `yaml:"data_dir"`
	DatabasePath    string        `yaml:"database_path"`
	Retention       time.Duration `yaml:"retention"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// CacheConfig holds region cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// OCRConfig selects the recognition engine languages.
type OCRConfig struct {
	Enabled   bool     `yaml:"enabled"`
	Languages []string `yaml:"languages"`
}

// DefaultConfig returns a configuration with sensible defaults for local
// use.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:             "127.0.0.1",
			Port:             5001,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     5 * time.Minute,
			IdleTimeout:      120 * time.Second,
			RequestTimeout:   5 * time.Minute,
			GracefulShutdown: 10 * time.Second,
			MaxUploadBytes:   50 << 20,
			AllowedOrigins:   []string{"*"},
			RateLimit:        2,
			RateBurst:        10,
			PreviewDPI:       100,
			Workers:          2,
			MaxConcurrent:    4,
		},
		Storage: StorageConfig{
			DataDir:         "data",
			DatabasePath:    "data/bandpart.db",
			Retention:       60 * time.Minute,
			CleanupInterval: 5 * time.Minute,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        60 * time.Minute,
			MaxEntries: 1000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 10,
				Prefix:   "bandpart:",
			},
		},
		Logging: logging.Config{
			Level:   "info",
			Format:  "console",
			Service: "bandpart",
		},
		OCR: OCRConfig{
			Enabled:   true,
			Languages: []string{"eng", "jpn"},
		},
		Extraction: bandpart.DefaultConfig(),
	}
}

// Load reads configuration from a YAML file and applies environment
// overrides. An empty path skips the file. Variables from a .env file in
// the working directory are loaded first without replacing the process
// environment.
func Load(path string) (*Config, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
		cfg.Storage.DataDir = ResolveRelativePath(path, cfg.Storage.DataDir)
		cfg.Storage.DatabasePath = ResolveRelativePath(path, cfg.Storage.DatabasePath)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.MaxUploadBytes <= 0 {
		return fmt.Errorf("invalid max upload size: %d", c.Server.MaxUploadBytes)
	}
	if c.Server.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Server.Workers)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.Server.MaxConcurrent)
	}
	if c.Server.RateLimit <= 0 || c.Server.RateBurst < 1 {
		return fmt.Errorf("invalid rate limit: %v/s burst %d", c.Server.RateLimit, c.Server.RateBurst)
	}
	if c.Storage.DataDir == "" {
		return errors.New("storage data_dir is required")
	}
	if c.Storage.Retention <= 0 {
		return fmt.Errorf("invalid retention: %s", c.Storage.Retention)
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	return nil
}

// Addr returns the host:port the server listens on.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// applyEnvOverrides applies BANDPART_* environment variables.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("BANDPART_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("BANDPART_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BANDPART_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("BANDPART_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BANDPART_WORKERS: %w", err)
		}
		cfg.Server.Workers = n
	}
	if v := os.Getenv("BANDPART_MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("BANDPART_MAX_UPLOAD_MB: %w", err)
		}
		cfg.Server.MaxUploadBytes = mb << 20
	}
	if v := os.Getenv("BANDPART_ALLOWED_ORIGINS"); v != "" {
		cfg.Server.AllowedOrigins = splitList(v)
	}

	if v := os.Getenv("BANDPART_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
		cfg.Storage.DatabasePath = filepath.Join(v, "bandpart.db")
	}
	if v := os.Getenv("BANDPART_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("BANDPART_RETENTION"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("BANDPART_RETENTION: %w", err)
		}
		cfg.Storage.Retention = d
	}

	if v := os.Getenv("BANDPART_CACHE_DRIVER"); v != "" {
		cfg.Cache.Driver = v
	}
	if v := os.Getenv("BANDPART_REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		// Parse redis://host:port format
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}
	if v := os.Getenv("BANDPART_REDIS_PASSWORD"); v != "" {
		cfg.Cache.Redis.Password = v
	}

	if v := os.Getenv("BANDPART_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("BANDPART_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("BANDPART_OCR"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("BANDPART_OCR: %w", err)
		}
		cfg.OCR.Enabled = enabled
	}
	if v := os.Getenv("BANDPART_OCR_LANGUAGES"); v != "" {
		cfg.OCR.Languages = splitList(v)
	}
	if v := os.Getenv("BANDPART_DPI"); v != "" {
		dpi, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("BANDPART_DPI: %w", err)
		}
		cfg.Extraction.DPI = dpi
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// ResolveRelativePath resolves a path relative to the config file location.
func ResolveRelativePath(configPath, targetPath string) string {
	if targetPath == "" || filepath.IsAbs(targetPath) {
		return targetPath
	}
	return filepath.Join(filepath.Dir(configPath), targetPath)
}
