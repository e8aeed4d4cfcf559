package server

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"kabinet.io/kabinet/pkg/seed"
)

// watchSeed re-applies the seed file whenever it is written or replaced.
// Seeding only inserts missing rows, so edits add entities without
// touching state created through the API.
func (s *Server) watchSeed(ctx context.Context) error {
	abs, err := filepath.Abs(s.config.SeedFile)
	if err != nil {
		return fmt.Errorf("failed to resolve seed file: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to watch seed file: %w", err)
	}
	// The directory is watched so editors that rename over the file are seen.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return fmt.Errorf("failed to watch seed file: %w", err)
	}

	go s.seedLoop(ctx, w, abs)
	return nil
}

func (s *Server) seedLoop(ctx context.Context, w *fsnotify.Watcher, path string) {
	defer w.Close()
	logger := s.logger.With(zap.String("path", path))

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if err := s.reseed(ctx, path); err != nil {
				logger.Warn("failed to reload seed file", zap.Error(err))
				continue
			}
			logger.Info("seed file reloaded", zap.String("op", event.Op.String()))
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("seed file watcher error", zap.Error(err))
		}
	}
}

func (s *Server) reseed(ctx context.Context, path string) error {
	fixture, err := seed.LoadFile(path)
	if err != nil {
		return err
	}
	return s.store.Seed(ctx, fixture)
}
