// Package archive keeps a JSON audit record of every run in Cloud Storage.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/logging"
	"github.com/mislabour/twitter-auto-poster-bot-ai/internal/pipeline"
)

const prefix = "runs/"

// Bucket is the subset of a storage bucket the archive needs.
type Bucket interface {
	NewWriter(ctx context.Context, name string) io.WriteCloser
	List(ctx context.Context, prefix string) ([]string, error)
}

// Archive writes run reports to runs/YYYY/MM/DD/<run_id>.json.
type Archive struct {
	bucket Bucket
	logger *slog.Logger
}

// New wraps an existing bucket.
func New(bucket Bucket, logger *slog.Logger) *Archive {
	return &Archive{
		bucket: bucket,
		logger: logging.Section(logger, logging.SectionArchive),
	}
}

// ObjectName returns where a report is stored.
func ObjectName(report *pipeline.Report) string {
	started := report.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	return path.Join(prefix, started.UTC().Format("2006/01/02"), report.RunID+".json")
}

// Record implements pipeline.Recorder.
func (a *Archive) Record(ctx context.Context, report *pipeline.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}

	name := ObjectName(report)
	writer := a.bucket.NewWriter(ctx, name)
	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return fmt.Errorf("writing object data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("closing object writer: %w", err)
	}

	a.logger.Info("run archived", "object", name, "run_id", report.RunID)
	return nil
}

// List returns the object names archived on the given day.
func (a *Archive) List(ctx context.Context, day time.Time) ([]string, error) {
	names, err := a.bucket.List(ctx, prefix+day.UTC().Format("2006/01/02")+"/")
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return names, nil
}

// GCSBucket stores objects in a Cloud Storage bucket.
type GCSBucket struct {
	client *storage.Client
	name   string
}

// NewGCSBucket opens a client for bucketName using application default
// credentials unless opts say otherwise.
func NewGCSBucket(ctx context.Context, bucketName string, opts ...option.ClientOption) (*GCSBucket, error) {
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}
	return &GCSBucket{client: client, name: bucketName}, nil
}

func (b *GCSBucket) NewWriter(ctx context.Context, name string) io.WriteCloser {
	writer := b.client.Bucket(b.name).Object(name).NewWriter(ctx)
	writer.ContentType = "application/json"
	return writer
}

func (b *GCSBucket) List(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.name).Objects(ctx, &storage.Query{Prefix: prefix})

	var names []string
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, attrs.Name)
	}
	return names, nil
}

// Close releases the storage client.
func (b *GCSBucket) Close() error {
	return b.client.Close()
}
