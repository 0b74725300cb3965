package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	apperrors "github.com/ABDULS21985/vivaexcel-sub001/internal/common/errors"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/gcp"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
)

// ObjectReader fetches a dropped upload.
type ObjectReader func(ctx context.Context, bucket, object string, limit int64) ([]byte, error)

// ReprocessorFunction ingests decks dropped into a bucket as
// <productId>/<filename>.
type ReprocessorFunction struct {
	read     ObjectReader
	ingestor *Ingestor
	closeFn  func() error
}

func NewReprocessor(ctx context.Context) (*ReprocessorFunction, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	storageClient, err := gcp.NewStorageClient(ctx)
	if err != nil {
		return nil, err
	}
	ingestor, closeFn, err := NewIngestorFromConfig(ctx, cfg)
	if err != nil {
		storageClient.Close()
		return nil, err
	}
	read := func(ctx context.Context, bucket, object string, limit int64) ([]byte, error) {
		return gcp.ReadObject(ctx, storageClient, bucket, object, limit)
	}
	f := NewReprocessorWith(read, ingestor)
	f.closeFn = func() error {
		return errors.Join(closeFn(), storageClient.Close())
	}
	slog.Info("Reprocessor logic initialized.", "storageBackend", cfg.Storage.Backend)
	return f, nil
}

func NewReprocessorWith(read ObjectReader, ingestor *Ingestor) *ReprocessorFunction {
	return &ReprocessorFunction{read: read, ingestor: ingestor, closeFn: func() error { return nil }}
}

func (f *ReprocessorFunction) Close() error {
	return f.closeFn()
}

// ParseObjectName splits "<productId>/<path>/<filename>" into the product ID
// and the base filename.
func ParseObjectName(name string) (string, string, error) {
	productID, rest, ok := strings.Cut(strings.TrimPrefix(name, "/"), "/")
	filename := path.Base(rest)
	if !ok || productID == "" || rest == "" || strings.HasSuffix(rest, "/") {
		return "", "", apperrors.NewValidationError(apperrors.ReasonMissingProduct,
			"object %q is not of the form <productId>/<filename>", name)
	}
	return productID, filename, nil
}

// Process ingests the object named by e. Invalid uploads are logged and
// dropped so the event is not redelivered.
func (f *ReprocessorFunction) Process(ctx context.Context, e models.GCSEvent) error {
	logCtx := slog.With("gcsBucket", e.Bucket, "gcsObject", e.Name)
	logCtx.Info("Processing new GCS object.")

	productID, filename, err := ParseObjectName(e.Name)
	if err != nil {
		logCtx.Warn("Ignoring object outside the product layout.", "error", err)
		return nil
	}

	payload, err := f.read(ctx, e.Bucket, e.Name, f.ingestor.MaxPayloadBytes())
	if err != nil {
		logCtx.Error("Failed to download source object", "error", err)
		return fmt.Errorf("failed to download source object: %w", err)
	}

	current, presentationID, err := f.ingestor.IsCurrent(ctx, productID, payload)
	if err != nil {
		logCtx.Error("Failed to check for duplicate", "error", err)
		return err
	}
	if current {
		logCtx.Info("Duplicate upload detected. Skipping.", "presentationId", presentationID)
		return nil
	}

	resp, err := f.ingestor.Process(ctx, models.IngestRequest{ProductID: productID, Filename: filename, Payload: payload})
	var validationErr *apperrors.ValidationError
	if errors.As(err, &validationErr) {
		logCtx.Warn("Upload rejected.", "reason", validationErr.Reason, "error", err)
		return nil
	}
	if err != nil {
		return err
	}
	logCtx.Info("Reprocessing complete.", "presentationId", resp.Presentation.ID, "warnings", len(resp.Warnings))
	return nil
}
