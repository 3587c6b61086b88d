package config

import "time"

type HTTPConfig interface {
	GetTimeout() time.Duration
	GetCookieJarFile() string
}

type HTTP struct {
	src source
}

var _ HTTPConfig = HTTP{}

func (h HTTP) GetTimeout() time.Duration {
	return h.src.duration("timeout", "VIDOPS_TIMEOUT", 15*time.Second)
}

// GetCookieJarFile is the file name, relative to the store path, that keeps the
// renewal cookie between runs.
func (HTTP) GetCookieJarFile() string {
	return "cookies.json"
}
