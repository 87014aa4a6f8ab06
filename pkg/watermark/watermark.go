// Package watermark tracks, per dataset, the last date already represented in
// the data. Watermarks are either derived by scanning a date column of the
// snapshot (self-healing across interrupted runs) or kept as an explicit
// side-channel marker with overwrite semantics.
package watermark

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/TFMV/fabrica/logger"
	"github.com/TFMV/fabrica/pkg/core"
	"github.com/TFMV/fabrica/pkg/snapshot"
	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"
)

// FromColumn derives the watermark from the maximum value of a date column in
// the snapshot. An empty snapshot or a column with no parsable dates yields
// the fallback.
func FromColumn(rec arrow.Record, column string, fallback time.Time) time.Time {
	max, ok := snapshot.MaxDate(rec, column)
	if !ok {
		logger.GetLogger().Warn("no usable watermark in column, using fallback",
			zap.String("column", column),
			zap.String("fallback", fallback.Format(core.DateLayout)))
		return fallback
	}
	return max
}

// Store reads and writes explicit marker watermarks through the gateway.
type Store struct {
	gw core.Gateway
}

// NewStore creates a marker watermark store.
func NewStore(gw core.Gateway) *Store {
	return &Store{gw: gw}
}

// FromMarker reads a marker containing a single ISO date. The read fails
// soft: an absent or malformed marker defaults to one day before now, so the
// next run generates at least the current day.
func (s *Store) FromMarker(ctx context.Context, name string, now time.Time) time.Time {
	raw, err := s.gw.ReadMarker(ctx, name)
	if err != nil {
		logger.GetLogger().Warn("watermark marker unreadable, defaulting to yesterday",
			zap.String("marker", name), zap.Error(err))
		return now.AddDate(0, 0, -1)
	}

	t, err := time.Parse(core.DateLayout, strings.TrimSpace(raw))
	if err != nil {
		logger.GetLogger().Warn("watermark marker malformed, defaulting to yesterday",
			zap.String("marker", name), zap.String("value", raw),
			zap.Error(fmt.Errorf("%w: %v", core.ErrUnparsableWatermark, err)))
		return now.AddDate(0, 0, -1)
	}
	return t
}

// AdvanceMarker overwrites the marker with the given date. Overwrite
// semantics keep retries idempotent: a crash between merge and marker write
// at worst re-derives the same window on the next run.
func (s *Store) AdvanceMarker(ctx context.Context, name string, date time.Time) error {
	if err := s.gw.WriteMarker(ctx, name, date.Format(core.DateLayout)); err != nil {
		return fmt.Errorf("advance marker %s: %w", name, err)
	}
	return nil
}
