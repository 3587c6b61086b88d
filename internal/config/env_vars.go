package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/knadh/koanf/v2"
)

const (
	appName = "vidops"

	appNameVar   = "APP_NAME"
	baseURLVar   = "VIDOPS_BASE_URL"
	storeVar     = "VIDOPS_STORE"
	storePathVar = "VIDOPS_STORE_PATH"
	logLevelVar  = "LOG_LEVEL"
)

// source looks a key up in koanf first and falls back to an environment variable.
type source struct {
	k *koanf.Koanf
}

func (s source) str(key, envVar, defaultValue string) string {
	if s.k != nil && s.k.Exists(key) {
		if v := s.k.String(key); v != "" {
			return v
		}
	}
	return GetEnv(envVar, defaultValue)
}

func (s source) duration(key, envVar string, defaultValue time.Duration) time.Duration {
	if s.k != nil && s.k.Exists(key) {
		if d := s.k.Duration(key); d > 0 {
			return d
		}
	}
	if d, err := time.ParseDuration(os.Getenv(envVar)); err == nil && d > 0 {
		return d
	}
	return defaultValue
}

func (s source) uint(key, envVar string, defaultValue uint64) uint64 {
	if s.k != nil && s.k.Exists(key) {
		return uint64(s.k.Int64(key))
	}
	if n, err := strconv.ParseUint(os.Getenv(envVar), 10, 64); err == nil {
		return n
	}
	return defaultValue
}

type EnvVars struct {
	src source
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetAppName() string {
	return e.src.str("app_name", appNameVar, "vidops")
}

func (e EnvVars) GetEnv() string {
	return e.src.str("env", "ENV", "DEV")
}

func (e EnvVars) GetLogLevel() string {
	return e.src.str("log_level", logLevelVar, "info")
}

// GetBaseURL returns the origin of the backend (e.g., "https://app.example.com").
// All API paths are resolved against it.
func (e EnvVars) GetBaseURL() string {
	return e.src.str("base_url", baseURLVar, "http://localhost:8080")
}

// GetStoreKind selects the credential storage medium: file, sqlite or memory.
func (e EnvVars) GetStoreKind() string {
	return e.src.str("store", storeVar, "file")
}

func (e EnvVars) GetStorePath() string {
	return e.src.str("store_path", storePathVar, ConfigDir())
}

// ConfigDir returns the XDG config directory for the client.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		base = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(base, appName)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
