package config

import "time"

type SessionConfig interface {
	GetSignInPath() string
	GetDefaultNext() string
	GetBootstrapRetries() uint64
	GetBootstrapBackoff() time.Duration
}

type Session struct {
	src source
}

var _ SessionConfig = Session{}

func (Session) GetSignInPath() string {
	return "/login"
}

func (Session) GetDefaultNext() string {
	return "/app"
}

// GetBootstrapRetries is how many times a transient profile failure is retried
// before the session is dropped.
func (s Session) GetBootstrapRetries() uint64 {
	return s.src.uint("bootstrap_retries", "VIDOPS_BOOTSTRAP_RETRIES", 2)
}

func (s Session) GetBootstrapBackoff() time.Duration {
	return s.src.duration("bootstrap_backoff", "VIDOPS_BOOTSTRAP_BACKOFF", 250*time.Millisecond)
}
