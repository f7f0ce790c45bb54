package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	AppName            = "deckforge"
	DefaultHost        = "127.0.0.1"
	DefaultPort        = 5000
	DefaultMaxUploadMB = 50
	DefaultWorkers     = 4
	DefaultLogLevel    = "info"
	DefaultLogFormat   = "text"
	DefaultOutput      = "auto"
	DatabaseFile       = "deckforge.db"
	UploadsDirName     = "uploads"
)

// DefaultDataDir returns $XDG_DATA_HOME/deckforge.
func DefaultDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Defaults returns the flat koanf map of default values.
func Defaults() map[string]any {
	return map[string]any{
		"data_dir":             DefaultDataDir(),
		"server.host":          DefaultHost,
		"server.port":          DefaultPort,
		"server.max_upload_mb": DefaultMaxUploadMB,
		"server.watch_config":  true,
		"tasks.workers":        DefaultWorkers,
		"log.level":            DefaultLogLevel,
		"log.format":           DefaultLogFormat,
		"output":               DefaultOutput,
	}
}

// ApplyDefaults fills derived paths: the database and uploads folder live
// under the data directory unless set.
func (c *Config) ApplyDefaults() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Database == "" {
		c.Database = filepath.Join(c.DataDir, DatabaseFile)
	}
	if c.UploadsDir == "" {
		c.UploadsDir = filepath.Join(c.DataDir, UploadsDirName)
	}
	if c.Server.Port == 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = DefaultMaxUploadMB
	}
	if c.Tasks.Workers <= 0 {
		c.Tasks.Workers = DefaultWorkers
	}
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
}
