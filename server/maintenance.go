package server

import (
	"context"

	"go.uber.org/zap"

	"kabinet.io/kabinet/server/internal/store"
)

// CompactReport is the outcome of CompactDatabase.
type CompactReport struct {
	SizeBefore int64
	SizeAfter  int64
	RowCounts  map[string]int64
}

// Tables returns the table names in schema order.
func Tables() []string {
	return append([]string(nil), store.Tables...)
}

// CompactDatabase vacuums the database at path while no server uses it.
func CompactDatabase(ctx context.Context, path string, analyze bool, logger *zap.Logger) (*CompactReport, error) {
	st, err := store.Open(ctx, path, logger)
	if err != nil {
		return nil, err
	}
	defer st.Close()

	stats, err := st.Compact(ctx, analyze)
	if err != nil {
		return nil, err
	}
	counts, err := st.RowCounts(ctx)
	if err != nil {
		return nil, err
	}
	return &CompactReport{
		SizeBefore: stats.SizeBefore,
		SizeAfter:  stats.SizeAfter,
		RowCounts:  counts,
	}, nil
}
