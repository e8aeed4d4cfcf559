package sdk

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
)

// DefaultUserAgent is sent when ClientConfig.UserAgent is empty.
const DefaultUserAgent = "kabinet-go-sdk"

// NoRetry as ClientConfig.RetryAttempts disables retries.
const NoRetry = -1

// ClientConfig contains the configuration for creating a new SDK client.
type ClientConfig struct {
	// Endpoint is the GraphQL HTTP endpoint (e.g., "https://kabinet.example.com/graphql").
	Endpoint string

	// WSEndpoint is the GraphQL WebSocket endpoint used for subscriptions.
	// Optional: derived from Endpoint by swapping http/https for ws/wss.
	WSEndpoint string

	// TokenProvider supplies the bearer token for HTTP and WebSocket requests.
	// Optional: requests are sent unauthenticated when nil.
	TokenProvider TokenProvider

	// HTTPClient is the HTTP client to use for requests.
	// Optional: if nil, a default client with reasonable timeouts will be created.
	HTTPClient *http.Client

	// RetryAttempts is the number of times to retry failed requests.
	// Use NoRetry to send every request once.
	// Default: 3
	RetryAttempts int

	// RetryWaitMin is the minimum wait time between retries.
	// Default: 1 second
	RetryWaitMin time.Duration

	// RetryWaitMax is the maximum wait time between retries.
	// Default: 30 seconds
	RetryWaitMax time.Duration

	// Timeout is the HTTP request timeout and the WebSocket handshake timeout.
	// Default: 30 seconds
	Timeout time.Duration

	// UserAgent is sent with every request.
	// Default: DefaultUserAgent
	UserAgent string

	// KeepAlive is the interval between WebSocket pings.
	// Default: 15 seconds
	KeepAlive time.Duration

	// AckTimeout bounds the wait for connection_ack after connection_init.
	// Default: 10 seconds
	AckTimeout time.Duration

	// Logger receives debug logs for every operation.
	// Optional: a no-op logger is used when nil.
	Logger *zap.Logger
}

// Validate checks if the client configuration is valid and sets defaults.
func (c *ClientConfig) Validate() error {
	c.Endpoint = strings.TrimSpace(c.Endpoint)
	if c.Endpoint == "" {
		return fmt.Errorf("%w: endpoint is required", ErrInvalidConfig)
	}
	if !strings.HasPrefix(c.Endpoint, "http://") && !strings.HasPrefix(c.Endpoint, "https://") {
		return fmt.Errorf("%w: endpoint must start with http:// or https://", ErrInvalidConfig)
	}

	// Derive the websocket endpoint from the HTTP one
	c.WSEndpoint = strings.TrimSpace(c.WSEndpoint)
	if c.WSEndpoint == "" {
		c.WSEndpoint = "ws" + strings.TrimPrefix(c.Endpoint, "http")
	}
	if !strings.HasPrefix(c.WSEndpoint, "ws://") && !strings.HasPrefix(c.WSEndpoint, "wss://") {
		return fmt.Errorf("%w: websocket endpoint must start with ws:// or wss://", ErrInvalidConfig)
	}

	if c.RetryAttempts < NoRetry {
		return fmt.Errorf("%w: retry attempts must be NoRetry or positive", ErrInvalidConfig)
	}
	if c.RetryAttempts == 0 {
		c.RetryAttempts = 3
	}

	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = 1 * time.Second
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = 30 * time.Second
	}
	if c.RetryWaitMin > c.RetryWaitMax {
		return fmt.Errorf("%w: retry wait min exceeds retry wait max", ErrInvalidConfig)
	}

	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.KeepAlive == 0 {
		c.KeepAlive = 15 * time.Second
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 10 * time.Second
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}

	// Create default HTTP client if not provided
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout: c.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return nil
}

// HasAuth returns true if a token provider is configured.
func (c *ClientConfig) HasAuth() bool {
	return c.TokenProvider != nil
}

// Static returns the configuration for a Kabinet instance reachable at
// hostport without TLS, authenticated with a fixed token.
func Static(hostport, token string) ClientConfig {
	hostport = strings.TrimSuffix(strings.TrimSpace(hostport), "/")
	cfg := ClientConfig{
		Endpoint:   fmt.Sprintf("http://%s/graphql", hostport),
		WSEndpoint: fmt.Sprintf("ws://%s/graphql", hostport),
	}
	if token != "" {
		cfg.TokenProvider = StaticToken(token)
	}
	return cfg
}

// EnvConfig is the client configuration read from KABINET_* environment variables.
type EnvConfig struct {
	URL           string        `env:"KABINET_URL"`
	WSURL         string        `env:"KABINET_WS_URL"`
	Token         string        `env:"KABINET_TOKEN"`
	TokenFile     string        `env:"KABINET_TOKEN_FILE"`
	Timeout       time.Duration `env:"KABINET_TIMEOUT" envDefault:"30s"`
	RetryAttempts int           `env:"KABINET_RETRY_ATTEMPTS" envDefault:"3"`
	UserAgent     string        `env:"KABINET_USER_AGENT"`
}

// ParseEnv loads EnvConfig from the process environment.
func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// ClientConfig converts the environment into a client configuration.
// A token file takes precedence over a literal token and is watched for
// changes until ctx is done.
func (e EnvConfig) ClientConfig(ctx context.Context) (ClientConfig, error) {
	cfg := ClientConfig{
		Endpoint:      e.URL,
		WSEndpoint:    e.WSURL,
		Timeout:       e.Timeout,
		RetryAttempts: e.RetryAttempts,
		UserAgent:     e.UserAgent,
	}

	switch {
	case e.TokenFile != "":
		provider, err := NewFileToken(ctx, e.TokenFile, nil)
		if err != nil {
			return ClientConfig{}, err
		}
		cfg.TokenProvider = provider
	case e.Token != "":
		cfg.TokenProvider = StaticToken(e.Token)
	}

	return cfg, nil
}

// LoadConfigFromEnv builds a ClientConfig from KABINET_* environment variables.
func LoadConfigFromEnv(ctx context.Context) (ClientConfig, error) {
	e, err := ParseEnv()
	if err != nil {
		return ClientConfig{}, err
	}
	return e.ClientConfig(ctx)
}
