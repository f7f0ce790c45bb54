// Package config provides the application configuration shared by the
// CLI, the HTTP server and the config-file watcher.
package config

import (
	"fmt"
	"strings"
)

// Config holds all process configuration.
type Config struct {
	DataDir    string            `koanf:"data_dir"`
	Database   string            `koanf:"database"`
	UploadsDir string            `koanf:"uploads_dir"`
	Server     ServerConfig      `koanf:"server"`
	Tasks      TasksConfig       `koanf:"tasks"`
	Log        LogConfig         `koanf:"log"`
	Output     string            `koanf:"output"`
	Provider   map[string]string `koanf:"provider"`
}

// ServerConfig holds configuration for the HTTP server.
type ServerConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	MaxUploadMB int    `koanf:"max_upload_mb"`
	WatchConfig bool   `koanf:"watch_config"`
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

// TasksConfig sizes the background task pool.
type TasksConfig struct {
	Workers int `koanf:"workers"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	File   string `koanf:"file"`
}

// Validate checks values that have no sensible fallback.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("server.max_upload_mb must be positive")
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}

// ProviderValues returns the provider section with upper-cased keys, the
// form the provider package looks values up by.
func (c *Config) ProviderValues() map[string]string {
	out := make(map[string]string, len(c.Provider))
	for k, v := range c.Provider {
		out[strings.ToUpper(k)] = v
	}
	return out
}
