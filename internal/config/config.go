package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

type Config interface {
	EnvConfig
	HTTPConfig
	SessionConfig
	GoogleConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
	GetBaseURL() string
	GetStoreKind() string
	GetStorePath() string
}

type mainConfig struct {
	EnvVars
	HTTP
	Session
	Google
}

// New returns a Config resolved from environment variables and defaults only.
func New() Config {
	return newMainConfig(koanf.New("."))
}

// Load resolves configuration from CLI flags, an optional YAML file, the
// environment (including a .env file in the working directory) and defaults,
// in that order of precedence.
func Load(path string, flags *pflag.FlagSet) (Config, error) {
	_ = godotenv.Load() // a missing .env is not an error

	k := koanf.New(".")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("[config Load] failed to read %s: %w", path, err)
		}
	}

	if flags != nil {
		// Only flags the user actually set override the file and environment.
		provider := posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			if !f.Changed {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, fmt.Errorf("[config Load] failed to read flags: %w", err)
		}
	}

	return newMainConfig(k), nil
}

func newMainConfig(k *koanf.Koanf) mainConfig {
	src := source{k: k}
	return mainConfig{
		EnvVars: EnvVars{src},
		HTTP:    HTTP{src},
		Session: Session{src},
		Google:  Google{src},
	}
}
