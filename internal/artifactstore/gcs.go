package artifactstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
)

// GCSConfig captures the parameters required to mirror artifacts into a
// bucket.
type GCSConfig struct {
	Bucket string
	Prefix string // optional key prefix, e.g. the run id
}

// GCSStore mirrors artifacts already written to local disk into a GCS
// bucket, keyed by the same deterministic relative path Storage derived —
// an optional alternate backend per spec §4.11, grounded on the teacher's
// internal/storage/gcs.BlobStore.
type GCSStore struct {
	client *storage.Client
	bucket string
	prefix string
}

// NewGCSStore builds a GCSStore. client is expected to already be
// authenticated (storage.NewClient(ctx) with ambient credentials).
func NewGCSStore(client *storage.Client, cfg GCSConfig) (*GCSStore, error) {
	if client == nil {
		return nil, fmt.Errorf("gcs client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix}, nil
}

// Put uploads data under the same relative path used locally, prefixed by
// the run id when configured, and returns the gs:// URI.
func (g *GCSStore) Put(ctx context.Context, relPath string, contentType string, data []byte) (string, error) {
	if strings.TrimSpace(relPath) == "" {
		return "", fmt.Errorf("relPath is required")
	}
	objectPath := relPath
	if g.prefix != "" {
		objectPath = g.prefix + "/" + relPath
	}
	writer := g.client.Bucket(g.bucket).Object(objectPath).NewWriter(ctx)
	if contentType != "" {
		writer.ContentType = contentType
	}
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object %s: %w (close writer: %v)", objectPath, err, closeErr)
		}
		return "", fmt.Errorf("copy object %s: %w", objectPath, err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer for %s: %w", objectPath, err)
	}
	return fmt.Sprintf("gs://%s/%s", g.bucket, objectPath), nil
}

// Close releases the underlying GCS client.
func (g *GCSStore) Close() error {
	return g.client.Close()
}
