package store

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Tables lists every table the store manages, in schema order.
var Tables = []string{
	"backends", "resources", "releases", "flavours", "definitions",
	"flavour_definitions", "deployments", "pods", "log_dumps",
	"github_repos", "users",
}

// CompactStats describes a VACUUM run.
type CompactStats struct {
	SizeBefore int64
	SizeAfter  int64
	PageSize   int64
}

// Reclaimed returns the number of bytes VACUUM freed.
func (c CompactStats) Reclaimed() int64 {
	return c.SizeBefore - c.SizeAfter
}

// Compact runs VACUUM, and ANALYZE when analyze is set, to reclaim space
// left by deleted rows.
func (s *Store) Compact(ctx context.Context, analyze bool) (stats CompactStats, err error) {
	defer observe("compact", time.Now(), &err)

	if stats.SizeBefore, stats.PageSize, err = s.size(ctx); err != nil {
		return stats, err
	}

	s.logger.Info("running VACUUM", zap.Int64("size_before", stats.SizeBefore))
	if _, err = s.db.ExecContext(ctx, "VACUUM"); err != nil {
		return stats, fmt.Errorf("VACUUM failed: %w", err)
	}

	if stats.SizeAfter, _, err = s.size(ctx); err != nil {
		return stats, err
	}

	if analyze {
		if _, err = s.db.ExecContext(ctx, "ANALYZE"); err != nil {
			return stats, fmt.Errorf("ANALYZE failed: %w", err)
		}
	}

	s.logger.Info("VACUUM completed",
		zap.Int64("size_before", stats.SizeBefore),
		zap.Int64("size_after", stats.SizeAfter),
		zap.Int64("saved", stats.Reclaimed()),
	)
	return stats, nil
}

func (s *Store) size(ctx context.Context) (size, pageSize int64, err error) {
	var pageCount int64
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, 0, fmt.Errorf("failed to get page count: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, 0, fmt.Errorf("failed to get page size: %w", err)
	}
	return pageCount * pageSize, pageSize, nil
}

// RowCounts returns the number of rows per table.
func (s *Store) RowCounts(ctx context.Context) (counts map[string]int64, err error) {
	defer observe("row_counts", time.Now(), &err)

	counts = make(map[string]int64, len(Tables))
	for _, table := range Tables {
		var n int64
		// Table names come from the fixed list above.
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}
