package sdk

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// HeaderAuthorization is the header carrying the bearer token.
const HeaderAuthorization = "Authorization"

// TokenProvider supplies the bearer token sent with every request.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// TokenRefresher is implemented by providers that can obtain a new token
// after the server rejected the current one.
type TokenRefresher interface {
	Refresh(ctx context.Context) (string, error)
}

// StaticToken is a fixed token.
type StaticToken string

// Token returns the fixed token.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// TokenFunc adapts a function to TokenProvider.
type TokenFunc func(ctx context.Context) (string, error)

// Token calls f.
func (f TokenFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// ComposedToken loads a token once, caches it and asks the refresher for a
// new one when the server rejects it.
type ComposedToken struct {
	loader    TokenFunc
	refresher TokenFunc

	mu     sync.Mutex
	cached string
}

// NewComposedToken returns a provider backed by loader and refresher.
// A nil refresher makes Refresh reload through loader.
func NewComposedToken(loader, refresher TokenFunc) *ComposedToken {
	if refresher == nil {
		refresher = loader
	}
	return &ComposedToken{loader: loader, refresher: refresher}
}

// Token returns the cached token, loading it on first use.
func (t *ComposedToken) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cached != "" {
		return t.cached, nil
	}
	token, err := t.loader(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to load token: %w", err)
	}
	t.cached = token
	return token, nil
}

// Refresh replaces the cached token with a fresh one.
func (t *ComposedToken) Refresh(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	token, err := t.refresher(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to refresh token: %w", err)
	}
	t.cached = token
	return token, nil
}

// FileToken reads the token from a file and reloads it whenever the file
// changes on disk.
type FileToken struct {
	path   string
	logger *zap.Logger

	mu    sync.RWMutex
	token string
}

// NewFileToken reads path and watches it until ctx is done. The parent
// directory is watched so atomic replacements (rename over) are seen too.
func NewFileToken(ctx context.Context, path string, logger *zap.Logger) (*FileToken, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token file: %w", err)
	}

	f := &FileToken{path: abs, logger: logger}
	if _, err := f.reload(); err != nil {
		return nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to watch token file: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch token file: %w", err)
	}

	go f.watch(ctx, w)

	return f, nil
}

func (f *FileToken) watch(ctx context.Context, w *fsnotify.Watcher) {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != f.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if _, err := f.reload(); err != nil {
				f.logger.Warn("failed to reload token file", zap.String("path", f.path), zap.Error(err))
				continue
			}
			f.logger.Debug("token file reloaded", zap.String("path", f.path), zap.String("op", event.Op.String()))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			f.logger.Warn("token file watcher error", zap.Error(err))
		}
	}
}

func (f *FileToken) reload() (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", fmt.Errorf("failed to read token file: %w", err)
	}
	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", fmt.Errorf("%w: token file %s is empty", ErrInvalidConfig, f.path)
	}

	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
	return token, nil
}

// Token returns the most recently loaded token.
func (f *FileToken) Token(context.Context) (string, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.token, nil
}

// Refresh re-reads the file.
func (f *FileToken) Refresh(context.Context) (string, error) {
	return f.reload()
}

// setBearer adds the Authorization header when provider yields a token.
func setBearer(ctx context.Context, header http.Header, provider TokenProvider) error {
	token, err := resolveToken(ctx, provider)
	if err != nil {
		return err
	}
	if token != "" {
		header.Set(HeaderAuthorization, "Bearer "+token)
	}
	return nil
}

func resolveToken(ctx context.Context, provider TokenProvider) (string, error) {
	if provider == nil {
		return "", nil
	}
	token, err := provider.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return token, nil
}

// refreshToken asks provider for a new token. It reports false when the
// provider cannot refresh.
func refreshToken(ctx context.Context, provider TokenProvider) (bool, error) {
	refresher, ok := provider.(TokenRefresher)
	if !ok {
		return false, nil
	}
	if _, err := refresher.Refresh(ctx); err != nil {
		return false, errors.Join(ErrUnauthorized, err)
	}
	return true, nil
}
