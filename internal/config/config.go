package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config represents the entire application configuration
type Config struct {
	Download DownloadConfig `mapstructure:"download"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
}

// DownloadConfig contains fetcher and verification settings
type DownloadConfig struct {
	ChunkSizeKB            int    `mapstructure:"chunk_size_kb"`
	Timeout                string `mapstructure:"timeout"`
	SkipTLSVerify          bool   `mapstructure:"skip_tls_verify"`
	Resume                 bool   `mapstructure:"resume"`
	ProgressUpdateInterval string `mapstructure:"progress_update_interval"`
}

// HTTPConfig contains status server configuration
type HTTPConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	BindAddr     string `mapstructure:"bind_addr"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
	IdleTimeout  string `mapstructure:"idle_timeout"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig contains database settings
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// Load loads configuration from the specified file path. An empty path
// loads defaults only.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("download.chunk_size_kb", 256)
	v.SetDefault("download.timeout", "0s")
	v.SetDefault("download.skip_tls_verify", false)
	v.SetDefault("download.resume", true)
	v.SetDefault("download.progress_update_interval", "1s")
	v.SetDefault("http.enabled", false)
	v.SetDefault("http.bind_addr", "127.0.0.1:8680")
	v.SetDefault("http.read_timeout", "30s")
	v.SetDefault("http.write_timeout", "30s")
	v.SetDefault("http.idle_timeout", "60s")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("database.path", "")

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Download.ChunkSizeKB <= 0 {
		return fmt.Errorf("download.chunk_size_kb must be positive")
	}
	if _, err := time.ParseDuration(c.Download.Timeout); err != nil {
		return fmt.Errorf("invalid download.timeout: %w", err)
	}
	if _, err := time.ParseDuration(c.Download.ProgressUpdateInterval); err != nil {
		return fmt.Errorf("invalid download.progress_update_interval: %w", err)
	}

	if c.HTTP.Enabled && c.HTTP.BindAddr == "" {
		return fmt.Errorf("http.bind_addr is required when http.enabled is set")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetChunkSize returns the fetch chunk size in bytes
func (c *DownloadConfig) GetChunkSize() int {
	if c.ChunkSizeKB <= 0 {
		return 256 * 1024
	}
	return c.ChunkSizeKB * 1024
}

// GetTimeout returns the whole-transfer timeout, zero meaning none
func (c *DownloadConfig) GetTimeout() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// GetProgressUpdateInterval returns how often progress is persisted
func (c *DownloadConfig) GetProgressUpdateInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressUpdateInterval)
	if d == 0 {
		return time.Second
	}
	return d
}

// GetReadTimeout returns the read timeout as time.Duration
func (c *HTTPConfig) GetReadTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetWriteTimeout returns the write timeout as time.Duration
func (c *HTTPConfig) GetWriteTimeout() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetIdleTimeout returns the idle timeout as time.Duration
func (c *HTTPConfig) GetIdleTimeout() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	if d == 0 {
		return 60 * time.Second
	}
	return d
}
