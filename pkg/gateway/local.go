package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
)

// deltaDir is the subdirectory holding delta-only writes.
const deltaDir = "deltas"

// LocalGateway stores dataset snapshots as CSV files under a data directory.
type LocalGateway struct {
	dir string
}

// NewLocalGateway creates a gateway rooted at cfg.DataDir.
func NewLocalGateway(_ context.Context, cfg core.GatewayConfig) (core.Gateway, error) {
	if cfg.DataDir == "" {
		return nil, errors.New("data dir is required for local gateway")
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return &LocalGateway{dir: cfg.DataDir}, nil
}

// Read loads the dataset's CSV file into a single Arrow record.
func (g *LocalGateway) Read(ctx context.Context, dataset string) (arrow.Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	path := filepath.Join(g.dir, core.FileFor(dataset))
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", dataset, core.ErrMissingDataset, err)
	}
	defer file.Close()

	rec, err := readCSV(file)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w: no rows", dataset, core.ErrMissingDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", dataset, core.ErrMissingDataset, err)
	}
	return rec, nil
}

// WriteFull replaces the dataset snapshot. The new content is written to a
// temp file in the same directory and renamed into place so a crash never
// leaves a half-written snapshot.
func (g *LocalGateway) WriteFull(ctx context.Context, dataset string, record arrow.Record) error {
	return g.writeAtomic(ctx, filepath.Join(g.dir, core.FileFor(dataset)), record)
}

// WriteDelta persists only the new rows under deltas/.
func (g *LocalGateway) WriteDelta(ctx context.Context, dataset string, record arrow.Record) error {
	dir := filepath.Join(g.dir, deltaDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("write delta %s: %w: %v", dataset, core.ErrPersistenceFailure, err)
	}
	return g.writeAtomic(ctx, filepath.Join(dir, core.FileFor(dataset)), record)
}

// ReadMarker reads a plain-text marker file.
func (g *LocalGateway) ReadMarker(_ context.Context, name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(g.dir, name))
	if err != nil {
		return "", fmt.Errorf("read marker %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteMarker overwrites a plain-text marker file.
func (g *LocalGateway) WriteMarker(_ context.Context, name string, value string) error {
	if err := os.WriteFile(filepath.Join(g.dir, name), []byte(value), 0o644); err != nil {
		return fmt.Errorf("write marker %s: %w: %v", name, core.ErrPersistenceFailure, err)
	}
	return nil
}

func (g *LocalGateway) writeAtomic(ctx context.Context, path string, record arrow.Record) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w: %v", path, core.ErrPersistenceFailure, err)
	}
	defer os.Remove(tmp.Name())

	if err := writeCSV(tmp, record); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w: %v", path, core.ErrPersistenceFailure, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w: %v", path, core.ErrPersistenceFailure, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w: %v", path, core.ErrPersistenceFailure, err)
	}
	return nil
}
