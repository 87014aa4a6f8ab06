// Package core provides the core types and interfaces for the Fabrica dataset generator.
package core

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// Row is a single synthesized record keyed by column name. Column order for
// fresh datasets comes from the owning DatasetSpec, not from the map.
type Row map[string]any

// Gateway abstracts reading and writing dataset snapshots across storage
// backends (local files, object store). A Read immediately following a write
// must reflect that write within a single run.
type Gateway interface {
	// Read returns the full current snapshot of a dataset as a single record.
	// A dataset that does not exist yet yields an error wrapping ErrMissingDataset.
	Read(ctx context.Context, dataset string) (arrow.Record, error)

	// WriteFull replaces the dataset snapshot atomically.
	WriteFull(ctx context.Context, dataset string, record arrow.Record) error

	// WriteDelta persists only newly generated rows under the delta channel
	// for the dataset, leaving the base snapshot untouched.
	WriteDelta(ctx context.Context, dataset string, record arrow.Record) error

	// ReadMarker reads a side-channel watermark marker by name.
	ReadMarker(ctx context.Context, name string) (string, error)

	// WriteMarker overwrites a side-channel watermark marker.
	WriteMarker(ctx context.Context, name string, value string) error
}

// GatewayConfig provides configuration for creating a gateway.
type GatewayConfig struct {
	// Backend selects the gateway implementation ("local", "s3").
	Backend string

	// DataDir is the base directory for the local backend.
	DataDir string

	// Bucket is the S3 bucket for the remote backend.
	Bucket string

	// Region is the AWS region for the remote backend.
	Region string

	// Endpoint optionally overrides the S3 endpoint (MinIO, LocalStack).
	Endpoint string

	// Prefix optionally prefixes every object key.
	Prefix string
}

// DatasetSpec describes one generated dataset: its storage name, identifier
// column, watermark column and the canonical column order used when the
// dataset starts out empty.
type DatasetSpec struct {
	Name       string
	File       string
	IDColumn   string
	IDPrefix   string
	DateColumn string
	Columns    []string
}
