package server

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/pkg/token"
)

// ErrInvalidConfig indicates the server configuration is unusable.
var ErrInvalidConfig = errors.New("invalid server configuration")

// Config holds the development server configuration.
//
// Every field can be set through a KABINET_SERVER_* environment variable;
// command line flags override the environment.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080").
	ListenAddr string `env:"KABINET_SERVER_LISTEN_ADDR" envDefault:":8080"`

	// DBPath is the SQLite database file. The default keeps state in memory.
	DBPath string `env:"KABINET_SERVER_DB_PATH" envDefault:":memory:"`

	// Secret is the HS256 secret bearer tokens are signed with.
	// Required unless Insecure is set, in which case one is generated.
	Secret string `env:"KABINET_SERVER_SECRET"`

	// Insecure accepts unauthenticated requests.
	Insecure bool `env:"KABINET_SERVER_INSECURE"`

	// InstanceID is this server instance's ID (auto-generated if empty).
	InstanceID string `env:"KABINET_SERVER_INSTANCE_ID"`

	// Version is reported by the liveness probe.
	Version string `env:"-"`

	// LogLevel is the logging level (debug, info, warn, error).
	LogLevel string `env:"KABINET_SERVER_LOG_LEVEL" envDefault:"info"`

	// LogFormat is the log format (json, console).
	LogFormat string `env:"KABINET_SERVER_LOG_FORMAT" envDefault:"console"`

	// CORSOrigins lists allowed CORS origins (* for all).
	CORSOrigins []string `env:"KABINET_SERVER_CORS_ORIGINS" envSeparator:","`

	// SeedFile is a YAML fixture loaded at start. The built-in fixture is
	// used when empty.
	SeedFile string `env:"KABINET_SERVER_SEED_FILE"`

	// WatchSeed re-applies SeedFile whenever it changes on disk.
	WatchSeed bool `env:"KABINET_SERVER_WATCH_SEED"`

	// RateLimitRPS and RateLimitBurst bound requests per client IP.
	// A negative RPS disables rate limiting.
	RateLimitRPS   float64 `env:"KABINET_SERVER_RATE_LIMIT_RPS" envDefault:"100"`
	RateLimitBurst int     `env:"KABINET_SERVER_RATE_LIMIT_BURST" envDefault:"200"`

	// WSInitTimeout bounds the wait for connection_init on websockets.
	WSInitTimeout time.Duration `env:"KABINET_SERVER_WS_INIT_TIMEOUT" envDefault:"10s"`

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration `env:"KABINET_SERVER_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ConfigFromEnv loads Config from KABINET_SERVER_* environment variables.
func ConfigFromEnv() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration and fills in generated values.
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = ":memory:"
	}

	switch {
	case c.Secret == "" && c.Insecure:
		secret, err := token.GenerateSecret()
		if err != nil {
			return err
		}
		c.Secret = secret
	case c.Secret == "":
		return fmt.Errorf("%w: a secret is required (set KABINET_SERVER_SECRET or run insecure)", ErrInvalidConfig)
	default:
		if err := token.ValidateSecret(c.Secret); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}

	if c.InstanceID == "" {
		c.InstanceID = uuid.New().String()
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	origins := c.CORSOrigins[:0]
	for _, origin := range c.CORSOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	c.CORSOrigins = origins

	if c.WatchSeed && c.SeedFile == "" {
		return fmt.Errorf("%w: watching the seed requires a seed file", ErrInvalidConfig)
	}
	if c.RateLimitRPS == 0 {
		c.RateLimitRPS = 100
	}
	if c.RateLimitBurst <= 0 {
		c.RateLimitBurst = 200
	}
	if c.WSInitTimeout <= 0 {
		c.WSInitTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 10 * time.Second
	}

	return nil
}

// Logging returns the logger configuration for this server.
func (c *Config) Logging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Level = c.LogLevel
	if format, err := logging.ParseFormat(c.LogFormat); err == nil {
		cfg.Format = format
	}
	return cfg
}
