package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"clinic-server-go/internal/platform/errors"
)

const (
	defaultPath  = "config.yaml"
	envConfig    = "CLINIC_CONFIG"
	envSecret    = "CLINIC_TOKEN_SECRET"
	envRedisAddr = "CLINIC_REDIS_ADDR"
)

// Loader reads the YAML configuration with an optional .env overlay.
type Loader struct {
	path      string
	useDotEnv bool
}

// NewLoader creates a loader reading from the default location.
func NewLoader() *Loader {
	return &Loader{
		path:      defaultPath,
		useDotEnv: true,
	}
}

// WithPath overrides the configuration file location.
func (l *Loader) WithPath(path string) *Loader {
	if path != "" {
		l.path = path
	}
	return l
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load reads the config file, applies defaults, and overlays secrets from the
// environment. A missing file yields the defaults; a malformed file is an
// error.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// Missing .env just means the process environment is used as-is.
		_ = godotenv.Load()
	}

	path := l.path
	if env := os.Getenv(envConfig); env != "" {
		path = env
	}

	cfg := &Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrap(errors.KindConfig, "config.load",
				fmt.Sprintf("failed to parse %s", path), err)
		}
	case os.IsNotExist(err):
		cfg = DefaultConfig()
	default:
		return nil, errors.Wrap(errors.KindConfig, "config.load",
			fmt.Sprintf("failed to read %s", path), err)
	}

	applyDefaults(cfg)

	if secret := os.Getenv(envSecret); secret != "" {
		cfg.Gatekeeper.Token.Secret = secret
	}
	if addr := os.Getenv(envRedisAddr); addr != "" {
		cfg.Redis.Addr = addr
	}

	if cfg.Gatekeeper.Token.Secret == "" {
		return nil, errors.New(errors.KindConfig, "config.load",
			"token signing secret is not configured")
	}

	return &Result{Config: cfg, Path: path}, nil
}
