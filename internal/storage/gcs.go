package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	gcs "cloud.google.com/go/storage"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/gcp"
)

// GCS stores objects in a Cloud Storage bucket.
type GCS struct {
	client        *gcs.Client
	bucket        string
	publicBaseURL string
	retry         Retrier
}

func NewGCS(ctx context.Context, bucket, publicBaseURL string, retry Retrier) (*GCS, error) {
	if bucket == "" {
		return nil, fmt.Errorf("GCS bucket must be provided")
	}
	client, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	return NewGCSWithClient(client, bucket, publicBaseURL, retry), nil
}

func NewGCSWithClient(client *gcs.Client, bucket, publicBaseURL string, retry Retrier) *GCS {
	if publicBaseURL == "" {
		publicBaseURL = "https://storage.googleapis.com/" + bucket
	}
	return &GCS{client: client, bucket: bucket, publicBaseURL: publicBaseURL, retry: retry}
}

func (g *GCS) Upload(ctx context.Context, data []byte, key, contentType string) (*Object, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	err = g.retry.Do(ctx, cleaned, func(ctx context.Context) error {
		gcsWriter := g.client.Bucket(g.bucket).Object(cleaned).NewWriter(ctx)
		gcsWriter.ContentType = contentType

		if _, err := io.Copy(gcsWriter, bytes.NewReader(data)); err != nil {
			_ = gcsWriter.Close()
			return fmt.Errorf("io.Copy to GCS failed: %w", err)
		}
		if err := gcsWriter.Close(); err != nil {
			return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Object{Key: cleaned, Locator: g.URLFor(cleaned), Size: int64(len(data))}, nil
}

func (g *GCS) Delete(ctx context.Context, key string) (bool, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	if err := g.client.Bucket(g.bucket).Object(cleaned).Delete(ctx); err != nil {
		if gcp.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete gs://%s/%s: %w", g.bucket, cleaned, err)
	}
	return true, nil
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return false, err
	}
	_, err = g.client.Bucket(g.bucket).Object(cleaned).Attrs(ctx)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gcs.ErrObjectNotExist):
		return false, nil
	default:
		return false, fmt.Errorf("failed to stat gs://%s/%s: %w", g.bucket, cleaned, err)
	}
}

func (g *GCS) URLFor(key string) string {
	return joinURL(g.publicBaseURL, key)
}
