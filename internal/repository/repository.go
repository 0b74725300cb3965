// Package repository persists presentation records together with their
// slide records and thumbnail assets.
package repository

import (
	"context"
	"fmt"

	apperrors "github.com/ABDULS21985/vivaexcel-sub001/internal/common/errors"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/gcp"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
)

// ErrNotFound is returned when a presentation does not exist.
var ErrNotFound = apperrors.ErrNotFound

// Repository stores one presentation per product. Slides and assets belong
// to a presentation and are only ever replaced as a whole set.
type Repository interface {
	FindByProduct(ctx context.Context, productID string) (*models.PresentationRecord, error)
	// CreatePresentation stores rec, assigning rec.ID when it is empty.
	CreatePresentation(ctx context.Context, rec *models.PresentationRecord) error
	UpdatePresentation(ctx context.Context, rec *models.PresentationRecord) error
	DeletePresentation(ctx context.Context, id string) error

	ListSlides(ctx context.Context, presentationID string) ([]models.SlideRecord, error)
	ReplaceSlides(ctx context.Context, presentationID string, slides []models.SlideRecord) error
	DeleteSlides(ctx context.Context, presentationID string) (int, error)

	ListAssets(ctx context.Context, presentationID string) ([]models.ThumbnailAsset, error)
	ReplaceAssets(ctx context.Context, presentationID string, assets []models.ThumbnailAsset) error
	DeleteAssets(ctx context.Context, presentationID string) (int, error)

	Close() error
}

// New opens the backend named by cfg.Repository.Backend.
func New(ctx context.Context, cfg config.Config) (Repository, error) {
	switch cfg.Repository.Backend {
	case config.RepositoryMemory:
		return NewMemory(), nil
	case config.RepositorySQLite:
		return OpenSQLite(cfg.Repository.SQLitePath)
	case config.RepositoryFirestore:
		client, err := gcp.NewFirestoreClient(ctx, cfg.ProjectID, cfg.Repository.FirestoreDatabase)
		if err != nil {
			return nil, err
		}
		return NewFirestore(client, cfg.Repository.FirestoreCollection), nil
	default:
		return nil, fmt.Errorf("unknown repository backend %q", cfg.Repository.Backend)
	}
}
