// Package server runs a local Kabinet development instance.
//
// The server answers the GraphQL documents the SDK sends: queries and
// mutations over POST /graphql and subscriptions over graphql-transport-ws on
// GET /graphql. State lives in SQLite and starts from a YAML seed fixture.
//
// Example:
//
//	cfg := server.Config{Insecure: true}
//	srv, err := server.New(ctx, cfg, logger)
//	if err != nil {
//	    return err
//	}
//	defer srv.Close()
//	return srv.Run(ctx)
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"kabinet.io/kabinet/internal/logging"
	"kabinet.io/kabinet/pkg/seed"
	"kabinet.io/kabinet/pkg/token"
	"kabinet.io/kabinet/server/internal/api"
	"kabinet.io/kabinet/server/internal/metrics"
	"kabinet.io/kabinet/server/internal/resolver"
	"kabinet.io/kabinet/server/internal/store"
)

// Server is a running development instance.
type Server struct {
	config   Config
	logger   *zap.Logger
	store    *store.Store
	resolver *resolver.Resolver
	handler  http.Handler

	stopLimiter func()
	stopWatch   context.CancelFunc
}

// New opens the database, applies the seed fixture and builds the HTTP
// handler. cfg is validated first; generated values (secret, instance ID)
// are visible through Config.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := metrics.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	fixture, err := loadFixture(cfg.SeedFile)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, cfg.DBPath, logger.With(zap.String(logging.FieldComponent, "store")))
	if err != nil {
		return nil, err
	}
	if err := st.Seed(ctx, fixture); err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to seed database: %w", err)
	}

	res := resolver.New(st, logger)
	router, stopLimiter := api.SetupRouter(&api.RouterConfig{
		Resolver:       res,
		DB:             st,
		Logger:         logger,
		Secret:         cfg.Secret,
		Insecure:       cfg.Insecure,
		InstanceID:     cfg.InstanceID,
		Version:        cfg.Version,
		AllowOrigins:   cfg.CORSOrigins,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		WSInitTimeout:  cfg.WSInitTimeout,
	})

	s := &Server{
		config:      cfg,
		logger:      logger,
		store:       st,
		resolver:    res,
		handler:     router,
		stopLimiter: stopLimiter,
		stopWatch:   func() {},
	}

	if cfg.WatchSeed {
		watchCtx, cancel := context.WithCancel(context.Background())
		if err := s.watchSeed(watchCtx); err != nil {
			cancel()
			s.Close()
			return nil, err
		}
		s.stopWatch = cancel
	}

	if cfg.Insecure {
		logger.Warn("authentication disabled, every caller is accepted")
	}
	return s, nil
}

func loadFixture(path string) (*seed.Fixture, error) {
	if path == "" {
		return seed.Default()
	}
	return seed.LoadFile(path)
}

// Config returns the validated configuration.
func (s *Server) Config() Config {
	return s.config
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// IssueToken mints a bearer token this server accepts.
func (s *Server) IssueToken(subject string, ttl time.Duration) (string, error) {
	return token.Issue(s.config.Secret, subject, ttl)
}

// Run listens on Config.ListenAddr and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	// No write timeout: websocket subscriptions are long lived.
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.logger.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("instance_id", s.config.InstanceID),
		zap.String("version", s.config.Version),
	)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()

	// Shutdown does not track websocket connections; ending the
	// subscriptions completes them for their clients.
	s.resolver.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		srv.Close()
		return fmt.Errorf("failed to shut down: %w", err)
	}
	return nil
}

// Close releases the database and background workers.
func (s *Server) Close() error {
	s.stopWatch()
	s.stopLimiter()
	s.resolver.Close()
	return s.store.Close()
}
