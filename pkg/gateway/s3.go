package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TFMV/fabrica/pkg/core"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3API is the subset of the S3 client the gateway uses, narrowed for tests.
type s3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Gateway stores dataset snapshots as CSV objects in an S3-compatible
// bucket. Object puts are atomic, so no rename dance is needed.
type S3Gateway struct {
	client s3API
	bucket string
	prefix string
}

// NewS3Gateway creates a gateway over the configured bucket. A custom
// endpoint switches the client to path-style addressing for MinIO/LocalStack.
func NewS3Gateway(ctx context.Context, cfg core.GatewayConfig) (core.Gateway, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("bucket is required for s3 gateway")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Gateway{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Read downloads the dataset object and decodes it into a single record.
func (g *S3Gateway) Read(ctx context.Context, dataset string) (arrow.Record, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.key(core.FileFor(dataset))),
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", dataset, core.ErrMissingDataset, err)
	}
	defer out.Body.Close()

	rec, err := readCSV(out.Body)
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s: %w: no rows", dataset, core.ErrMissingDataset)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w: %v", dataset, core.ErrMissingDataset, err)
	}
	return rec, nil
}

// WriteFull uploads the full snapshot, replacing the dataset object.
func (g *S3Gateway) WriteFull(ctx context.Context, dataset string, record arrow.Record) error {
	return g.put(ctx, g.key(core.FileFor(dataset)), record)
}

// WriteDelta uploads only the new rows under the deltas/ key prefix.
// Consumers merge deltas into the base snapshot out-of-band.
func (g *S3Gateway) WriteDelta(ctx context.Context, dataset string, record arrow.Record) error {
	return g.put(ctx, g.key(deltaDir+"/"+core.FileFor(dataset)), record)
}

// ReadMarker downloads a small text marker object.
func (g *S3Gateway) ReadMarker(ctx context.Context, name string) (string, error) {
	out, err := g.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(g.bucket),
		Key:    aws.String(g.key(name)),
	})
	if err != nil {
		return "", fmt.Errorf("read marker %s: %w", name, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return "", fmt.Errorf("read marker %s: %w", name, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// WriteMarker overwrites the marker object.
func (g *S3Gateway) WriteMarker(ctx context.Context, name string, value string) error {
	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(g.key(name)),
		Body:        strings.NewReader(value),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("write marker %s: %w: %v", name, core.ErrPersistenceFailure, err)
	}
	return nil
}

func (g *S3Gateway) put(ctx context.Context, key string, record arrow.Record) error {
	var buf bytes.Buffer
	if err := writeCSV(&buf, record); err != nil {
		return fmt.Errorf("write %s: %w: %v", key, core.ErrPersistenceFailure, err)
	}

	_, err := g.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(g.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		return fmt.Errorf("write %s: %w: %v", key, core.ErrPersistenceFailure, err)
	}
	return nil
}

func (g *S3Gateway) key(name string) string {
	return g.prefix + name
}
