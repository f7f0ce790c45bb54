// Package config loads CLI configuration by layering defaults, the config
// file, DECKFORGE_ environment variables and command-line flags.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	intconfig "github.com/leapstack-labs/deckforge/internal/config"
	"github.com/leapstack-labs/deckforge/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DECKFORGE_"

// loggerKey is used to store logger in context.
type loggerKey struct{}

// sections are the nested config blocks. DECKFORGE_SERVER_PORT maps to
// server.port, DECKFORGE_PROVIDER_GOOGLE_API_KEY to provider.google_api_key.
var sections = []string{"server", "tasks", "log", "provider"}

// flagKeys maps flag names onto config keys. Flags not listed are not
// configuration.
var flagKeys = map[string]string{
	"data-dir":      "data_dir",
	"database":      "database",
	"uploads-dir":   "uploads_dir",
	"output":        "output",
	"log-level":     "log.level",
	"log-format":    "log.format",
	"log-file":      "log.file",
	"host":          "server.host",
	"port":          "server.port",
	"max-upload-mb": "server.max_upload_mb",
	"watch-config":  "server.watch_config",
	"workers":       "tasks.workers",
}

// Package-level koanf instance and config file tracking
var (
	k              = koanf.New(".")
	configFileUsed string
	currentConfig  *intconfig.Config
)

// searchDirs lists where a config file is looked for when none is given:
// the working directory, then $XDG_CONFIG_HOME/deckforge.
func searchDirs() []string {
	dirs := []string{"."}
	return append(dirs, filepath.Join(xdg.ConfigHome, intconfig.AppName))
}

// findConfigFile returns the explicit path or the first config file found.
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, dir := range searchDirs() {
		if p := intconfig.FindConfigFile(dir); p != "" {
			return p
		}
	}
	return ""
}

// envKey turns DECKFORGE_SERVER_MAX_UPLOAD_MB into server.max_upload_mb.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	for _, section := range sections {
		if rest, ok := strings.CutPrefix(key, section+"_"); ok {
			return section + "." + rest
		}
	}
	return key
}

// ResetConfig resets the koanf instance. Used for testing.
func ResetConfig() {
	k = koanf.New(".")
	configFileUsed = ""
	currentConfig = nil
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*intconfig.Config, error) {
	k = koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(intconfig.Defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	configFileUsed = findConfigFile(cfgFile)
	if configFileUsed != "" {
		if abs, err := filepath.Abs(configFileUsed); err == nil {
			configFileUsed = abs
		}
		if err := k.Load(file.Provider(configFileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFileUsed, err)
		}
	}

	// 3. Environment (DECKFORGE_ prefix)
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags, only those explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg intconfig.Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	currentConfig = &cfg
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// GetCurrentConfig returns the configuration loaded by LoadConfig, or
// defaults when nothing was loaded.
func GetCurrentConfig() *intconfig.Config {
	if currentConfig != nil {
		return currentConfig
	}
	cfg := &intconfig.Config{}
	cfg.ApplyDefaults()
	return cfg
}

// EnsureDirs creates the data and uploads directories.
func EnsureDirs(cfg *intconfig.Config) error {
	for _, dir := range []string{filepath.Dir(cfg.Database), cfg.UploadsDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// LoggerKey returns the context key used for storing the logger.
// This allows the commands package to retrieve the logger from context
// without creating an import cycle with the cli package.
func LoggerKey() interface{} {
	return loggerKey{}
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	return GetLogging(ctx).Logger
}

// GetLogging retrieves the process logger, whose level can be changed
// while serving. A discarding logger is returned when none is stored.
func GetLogging(ctx context.Context) *logging.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*logging.Logger); ok {
		return l
	}
	return logging.New(logging.Options{Writer: io.Discard})
}
