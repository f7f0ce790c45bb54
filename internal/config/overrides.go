package config

import (
	"os"
	"strings"
	"sync"
)

// ProviderEnv resolves provider keys from the process environment first and
// then from the config file's provider section. The section can be swapped
// while serving.
type ProviderEnv struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewProviderEnv creates a ProviderEnv seeded from cfg.
func NewProviderEnv(cfg *Config) *ProviderEnv {
	e := &ProviderEnv{}
	e.Set(cfg)
	return e
}

// Set replaces the config-file values.
func (e *ProviderEnv) Set(cfg *Config) {
	var values map[string]string
	if cfg != nil {
		values = cfg.ProviderValues()
	}
	e.mu.Lock()
	e.values = values
	e.mu.Unlock()
}

// Lookup has the signature of os.LookupEnv.
func (e *ProviderEnv) Lookup(key string) (string, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	v, ok := e.values[strings.ToUpper(key)]
	return v, ok
}
