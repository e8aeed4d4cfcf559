package helpers

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"kabinet.io/kabinet/pkg/token"
	"kabinet.io/kabinet/sdk"
	"kabinet.io/kabinet/sdk/kabinet"
	"kabinet.io/kabinet/sdk/konviktion"
	"kabinet.io/kabinet/sdk/kuay"
	"kabinet.io/kabinet/server"
)

// TestServer is a development server backed by a temporary database.
type TestServer struct {
	*TestClient

	Server *server.Server
	Config server.Config
	Token  string
	Logger *zap.Logger

	t *testing.T
}

// Option adjusts the server configuration before start.
type Option func(*server.Config)

// WithSeedFile starts the server from the fixture at path.
func WithSeedFile(path string, watch bool) Option {
	return func(c *server.Config) {
		c.SeedFile = path
		c.WatchSeed = watch
	}
}

// WithInsecure disables authentication.
func WithInsecure() Option {
	return func(c *server.Config) {
		c.Insecure = true
	}
}

// StartServer starts a server on a temporary SQLite file and issues a token
// for the subject "e2e".
func StartServer(t *testing.T, opts ...Option) *TestServer {
	t.Helper()

	secret, err := token.GenerateSecret()
	require.NoError(t, err)

	cfg := server.Config{
		DBPath:       filepath.Join(t.TempDir(), "kabinet.db"),
		Secret:       secret,
		Version:      "e2e",
		RateLimitRPS: -1,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	logger := zaptest.NewLogger(t)
	srv, err := server.New(context.Background(), cfg, logger)
	require.NoError(t, err, "failed to start server")
	t.Cleanup(func() { srv.Close() })

	tok, err := srv.IssueToken("e2e", time.Hour)
	require.NoError(t, err)

	return &TestServer{
		TestClient: NewTestClient(t, srv.Handler()),
		Server:     srv,
		Config:     srv.Config(),
		Token:      tok,
		Logger:     logger,
		t:          t,
	}
}

// Host returns host:port of the test server.
func (s *TestServer) Host() string {
	return strings.TrimPrefix(s.BaseURL, "http://")
}

// Client returns an SDK client authenticated with token. An empty token
// sends no credentials.
func (s *TestServer) Client(token string) *sdk.Client {
	s.t.Helper()

	cfg := sdk.Static(s.Host(), token)
	cfg.Logger = s.Logger
	cfg.RetryAttempts = 1
	cfg.AckTimeout = 2 * time.Second

	c, err := sdk.NewClient(cfg)
	require.NoError(s.t, err)
	s.t.Cleanup(func() { c.Close() })
	return c
}

// Kabinet returns a Kabinet client using the server's token.
func (s *TestServer) Kabinet() *kabinet.Client {
	return kabinet.New(s.Client(s.Token))
}

// Kuay returns a Kuay client using the server's token.
func (s *TestServer) Kuay() *kuay.Client {
	return kuay.New(s.Client(s.Token))
}

// Konviktion returns a Konviktion client using the server's token.
func (s *TestServer) Konviktion() *konviktion.Client {
	return konviktion.New(s.Client(s.Token))
}

// Eventually polls cond until it holds or timeout passes.
func Eventually(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	require.Eventually(t, cond, timeout, 20*time.Millisecond, msg)
}

var syncOperation = sdk.Operation{
	Name:     "ListBackends",
	Kind:     sdk.KindQuery,
	Document: "query ListBackends {\n  backends {\n    id\n  }\n}",
}

// SyncWS runs a query over c's websocket and waits for its result. The
// server handles a connection's messages in order, so subscriptions started
// earlier on c are registered once SyncWS returns.
func SyncWS(ctx context.Context, t *testing.T, c *sdk.Client) {
	t.Helper()

	sub, err := c.Subscribe(ctx, syncOperation, nil)
	require.NoError(t, err)
	defer sub.Close()
	require.True(t, sub.Next(ctx), "sync query returned no result: %v", sub.Err())
}
