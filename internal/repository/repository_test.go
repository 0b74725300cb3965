package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]Repository {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "presentations.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Repository{
		"memory": NewMemory(),
		"sqlite": sqlite,
	}
}

func str(s string) *string { return &s }

func sampleRecord(productID string) *models.PresentationRecord {
	label := "Widescreen 16:9 (13.33 × 7.5 in)"
	meta := models.DefaultMetadata()
	meta.SlideCount = 3
	meta.FontFamilies = []string{"Calibri"}
	meta.ColorSchemes = []models.ColorScheme{{Name: "Office", Colors: []string{"#000000", "#FFFFFF"}}}
	meta.PresentationSizeLabel = &label
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.PresentationRecord{
		ProductID:        productID,
		OriginalFilename: "deck.pptx",
		Format:           "pptx",
		FileKey:          "presentations/x/original.pptx",
		FileSize:         1234,
		FileHash:         "abc",
		Status:           models.StatusReady,
		Introspected:     true,
		Metadata:         meta,
		IngestionID:      "ing-1",
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func TestPresentationLifecycle(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := repo.FindByProduct(ctx, "prod-1")
			assert.ErrorIs(t, err, ErrNotFound)

			rec := sampleRecord("prod-1")
			require.NoError(t, repo.CreatePresentation(ctx, rec))
			require.NotEmpty(t, rec.ID)

			got, err := repo.FindByProduct(ctx, "prod-1")
			require.NoError(t, err)
			assert.Equal(t, rec.ID, got.ID)
			assert.Equal(t, 3, got.Metadata.SlideCount)
			assert.Equal(t, []string{"Calibri"}, got.Metadata.FontFamilies)
			require.NotNil(t, got.Metadata.PresentationSizeLabel)
			assert.True(t, got.Introspected)
			assert.True(t, rec.CreatedAt.Equal(got.CreatedAt))

			got.IngestionID = "ing-2"
			got.Metadata.SlideCount = 2
			require.NoError(t, repo.UpdatePresentation(ctx, got))
			again, err := repo.FindByProduct(ctx, "prod-1")
			require.NoError(t, err)
			assert.Equal(t, "ing-2", again.IngestionID)
			assert.Equal(t, 2, again.Metadata.SlideCount)

			require.NoError(t, repo.DeletePresentation(ctx, rec.ID))
			_, err = repo.FindByProduct(ctx, "prod-1")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, repo.DeletePresentation(ctx, rec.ID), ErrNotFound)

			missing := sampleRecord("prod-x")
			missing.ID = "does-not-exist"
			assert.ErrorIs(t, repo.UpdatePresentation(ctx, missing), ErrNotFound)
		})
	}
}

func TestReplaceSlidesAndAssets(t *testing.T) {
	ctx := context.Background()
	for name, repo := range backends(t) {
		t.Run(name, func(t *testing.T) {
			rec := sampleRecord("prod-2")
			require.NoError(t, repo.CreatePresentation(ctx, rec))

			first := []models.SlideRecord{
				{SlideNumber: 2, ContentType: models.ContentChart},
				{SlideNumber: 1, Title: str("Intro"), HasNotes: true, NotesPreview: str("hello"), ContentType: models.ContentTitle},
				{SlideNumber: 3, ContentType: models.ContentBlank},
			}
			require.NoError(t, repo.ReplaceSlides(ctx, rec.ID, first))
			slides, err := repo.ListSlides(ctx, rec.ID)
			require.NoError(t, err)
			require.Len(t, slides, 3)
			assert.Equal(t, 1, slides[0].SlideNumber)
			assert.Equal(t, "Intro", *slides[0].Title)
			assert.Equal(t, "hello", *slides[0].NotesPreview)
			assert.Nil(t, slides[1].Title)
			assert.Equal(t, models.ContentChart, slides[1].ContentType)

			require.NoError(t, repo.ReplaceSlides(ctx, rec.ID, first[:1]))
			slides, err = repo.ListSlides(ctx, rec.ID)
			require.NoError(t, err)
			assert.Len(t, slides, 1)

			assets := []models.ThumbnailAsset{
				{SlideNumber: 1, ThumbnailKey: "k1", ThumbnailLocator: "u1", Width: 400, Height: 225, Source: models.SourceEmbedded},
				{SlideNumber: 2},
			}
			require.NoError(t, repo.ReplaceAssets(ctx, rec.ID, assets))
			got, err := repo.ListAssets(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, assets, got)

			n, err := repo.DeleteAssets(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, 2, n)
			n, err = repo.DeleteSlides(ctx, rec.ID)
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			got, err = repo.ListAssets(ctx, rec.ID)
			require.NoError(t, err)
			assert.Empty(t, got)
		})
	}
}

func TestSQLiteDeleteCascades(t *testing.T) {
	ctx := context.Background()
	repo, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer repo.Close()

	rec := sampleRecord("prod-3")
	require.NoError(t, repo.CreatePresentation(ctx, rec))
	require.NoError(t, repo.ReplaceSlides(ctx, rec.ID, []models.SlideRecord{{SlideNumber: 1, ContentType: models.ContentContent}}))
	require.NoError(t, repo.DeletePresentation(ctx, rec.ID))

	slides, err := repo.ListSlides(ctx, rec.ID)
	require.NoError(t, err)
	assert.Empty(t, slides)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.Default()
	repo, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, repo)

	cfg.Repository.Backend = "mongo"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}
