package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/ABDULS21985/vivaexcel-sub001/internal/common/errors"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx/pptxtest"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/repository"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/storage/storagetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    *storagetest.Memory
	repo     *repository.Memory
	ingestor *Ingestor
}

func newFixture(t *testing.T, cfg IngestorConfig, opts ...Option) *fixture {
	t.Helper()
	store := storagetest.NewMemory()
	repo := repository.NewMemory()
	tick := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		tick = tick.Add(time.Minute)
		return tick
	}
	opts = append([]Option{WithClock(clock)}, opts...)
	return &fixture{store: store, repo: repo, ingestor: NewIngestor(store, repo, cfg, opts...)}
}

func (f *fixture) ingest(t *testing.T, productID, filename string, payload []byte) *models.IngestResponse {
	t.Helper()
	resp, err := f.ingestor.Process(context.Background(), models.IngestRequest{
		ProductID: productID,
		Filename:  filename,
		Payload:   payload,
	})
	require.NoError(t, err)
	return resp
}

type recordingNotifier struct {
	summaries []models.IngestionSummary
	err       error
}

func (n *recordingNotifier) Notify(ctx context.Context, s models.IngestionSummary) error {
	n.summaries = append(n.summaries, s)
	return n.err
}

func TestProcessFiveSlideDeck(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	payload := pptxtest.Build(pptxtest.FiveSlideDeck())

	resp := f.ingest(t, "prod-1", "Quarterly.PPTX", payload)

	assert.Equal(t, StageDone, resp.Status)
	assert.Empty(t, resp.Warnings)
	rec := resp.Presentation
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "pptx", rec.Format)
	assert.Equal(t, models.StatusReady, rec.Status)
	assert.True(t, rec.Introspected)
	assert.Equal(t, int64(len(payload)), rec.FileSize)
	assert.Len(t, rec.FileHash, 64)
	assert.Equal(t, 5, rec.Metadata.SlideCount)
	assert.True(t, rec.Metadata.HasAnimations)
	assert.True(t, rec.Metadata.HasCharts)

	require.NotEmpty(t, rec.FileKey)
	assert.True(t, strings.HasSuffix(rec.FileKey, "/original.pptx"))
	_, contentType, ok := f.store.Get(rec.FileKey)
	require.True(t, ok)
	assert.Equal(t, originalContentTypes["pptx"], contentType)

	var types []models.ContentType
	for _, s := range resp.Slides {
		types = append(types, s.ContentType)
	}
	assert.Equal(t, []models.ContentType{
		models.ContentContent, models.ContentContent, models.ContentChart, models.ContentBlank, models.ContentContent,
	}, types)
	require.NotNil(t, resp.Slides[0].Title)
	assert.Equal(t, "Quarterly Review", *resp.Slides[0].Title)
	assert.Equal(t, "Welcome everyone", *resp.Slides[0].NotesPreview)

	require.Len(t, resp.Thumbnails, 5)
	for i, a := range resp.Thumbnails {
		assert.Equal(t, i+1, a.SlideNumber)
		assert.NotEmpty(t, a.ThumbnailLocator)
		assert.Contains(t, a.ThumbnailKey, rec.IngestionID)
	}
	assert.Equal(t, models.SourceEmbedded, resp.Thumbnails[1].Source)

	stored, err := f.repo.ListSlides(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Slides, stored)
	assets, err := f.repo.ListAssets(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, resp.Thumbnails, assets)
}

func TestReingestLeavesNoOrphans(t *testing.T) {
	f := newFixture(t, IngestorConfig{SlideConcurrency: 2})
	deck := pptxtest.FiveSlideDeck()
	first := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(deck))

	deck.Slides = deck.Slides[:2]
	second := f.ingest(t, "prod-1", "deck-v2.pptx", pptxtest.Build(deck))

	assert.Equal(t, first.Presentation.ID, second.Presentation.ID)
	assert.Equal(t, first.Presentation.CreatedAt, second.Presentation.CreatedAt)
	assert.True(t, second.Presentation.UpdatedAt.After(first.Presentation.UpdatedAt))
	assert.NotEqual(t, first.Presentation.IngestionID, second.Presentation.IngestionID)
	assert.Equal(t, "deck-v2.pptx", second.Presentation.OriginalFilename)
	assert.Equal(t, 2, second.Presentation.Metadata.SlideCount)

	ctx := context.Background()
	slides, err := f.repo.ListSlides(ctx, second.Presentation.ID)
	require.NoError(t, err)
	assert.Len(t, slides, 2)
	assets, err := f.repo.ListAssets(ctx, second.Presentation.ID)
	require.NoError(t, err)
	assert.Len(t, assets, 2)

	keys := f.store.Keys("presentations/" + second.Presentation.ID + "/")
	assert.Len(t, keys, 5, "original plus a thumbnail and preview per slide")
	for _, k := range keys {
		assert.Contains(t, k, second.Presentation.IngestionID)
	}
}

func TestProcessValidation(t *testing.T) {
	f := newFixture(t, IngestorConfig{MaxPayloadBytes: 16})
	cases := []struct {
		name   string
		req    models.IngestRequest
		reason string
	}{
		{"missing product", models.IngestRequest{ProductID: " ", Filename: "a.pptx", Payload: []byte("x")}, apperrors.ReasonMissingProduct},
		{"empty payload", models.IngestRequest{ProductID: "p", Filename: "a.pptx"}, apperrors.ReasonEmptyPayload},
		{"too large", models.IngestRequest{ProductID: "p", Filename: "a.pptx", Payload: make([]byte, 17)}, apperrors.ReasonPayloadTooLarge},
		{"bad extension", models.IngestRequest{ProductID: "p", Filename: "a.docx", Payload: []byte("x")}, apperrors.ReasonUnsupportedExtension},
		{"no extension", models.IngestRequest{ProductID: "p", Filename: "deck", Payload: []byte("x")}, apperrors.ReasonUnsupportedExtension},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.ingestor.Process(context.Background(), tc.req)
			var verr *apperrors.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tc.reason, verr.Reason)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
	assert.Zero(t, f.store.Uploads())
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "pptx", Format("Deck.PPTX"))
	assert.Equal(t, "key", Format("dir/talk.v2.key"))
	assert.Equal(t, "", Format("README"))
}

func TestProcessMalformedContainer(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	resp := f.ingest(t, "prod-1", "broken.pptx", []byte("definitely not a zip archive"))

	assert.False(t, resp.Presentation.Introspected)
	assert.Equal(t, models.DefaultMetadata(), resp.Presentation.Metadata)
	assert.Empty(t, resp.Slides)
	assert.Empty(t, resp.Thumbnails)
	require.NotEmpty(t, resp.Warnings)
	assert.Contains(t, resp.Warnings[0], "container")
	assert.Equal(t, pptx.MetadataFieldCount, resp.DefaultedFields)

	_, _, ok := f.store.Get(resp.Presentation.FileKey)
	assert.True(t, ok)
}

func TestMalformedReingestResetsMetadata(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	ctx := context.Background()
	first := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))
	require.True(t, first.Presentation.Metadata.HasCharts)

	second := f.ingest(t, "prod-1", "deck.pptx", []byte("not a zip"))

	assert.False(t, second.Presentation.Introspected)
	assert.Equal(t, models.DefaultMetadata(), second.Presentation.Metadata)
	assert.Equal(t, 1, second.Presentation.Metadata.SlideCount)
	assert.False(t, second.Presentation.Metadata.HasCharts)

	stored, err := f.repo.FindByProduct(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMetadata(), stored.Metadata)
	slides, err := f.repo.ListSlides(ctx, stored.ID)
	require.NoError(t, err)
	assert.Empty(t, slides)
	assets, err := f.repo.ListAssets(ctx, stored.ID)
	require.NoError(t, err)
	assert.Empty(t, assets)
	assert.Equal(t, []string{second.Presentation.FileKey}, f.store.Keys(""))
}

func TestReingestKeepsOriginalWhenUploadFails(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	ctx := context.Background()
	payload := pptxtest.Build(pptxtest.FiveSlideDeck())
	first := f.ingest(t, "prod-1", "deck.pptx", payload)

	f.store.FailUpload = func(key string) bool { return strings.HasSuffix(key, "/original.pptx") }
	second := f.ingest(t, "prod-1", "deck.pptx", payload)
	f.store.FailUpload = nil

	assert.NotEmpty(t, second.Warnings)
	assert.Equal(t, first.Presentation.FileKey, second.Presentation.FileKey)
	assert.Equal(t, first.Presentation.FileLocator, second.Presentation.FileLocator)
	_, _, ok := f.store.Get(first.Presentation.FileKey)
	assert.True(t, ok)

	_, err := f.ingestor.Remove(ctx, "prod-1")
	require.NoError(t, err)
	assert.Empty(t, f.store.Keys(""))
}

func TestNonIntrospectedFormatKeepsPriorMetadata(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	first := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))

	second := f.ingest(t, "prod-1", "deck.key", []byte("keynote bundle"))

	assert.Equal(t, "key", second.Presentation.Format)
	assert.False(t, second.Presentation.Introspected)
	assert.Equal(t, first.Presentation.Metadata, second.Presentation.Metadata)
	assert.Empty(t, second.Thumbnails)

	ctx := context.Background()
	assets, err := f.repo.ListAssets(ctx, second.Presentation.ID)
	require.NoError(t, err)
	assert.Empty(t, assets)
	keys := f.store.Keys("presentations/" + second.Presentation.ID + "/")
	assert.Equal(t, []string{second.Presentation.FileKey}, keys)
}

func TestProcessFreshNonIntrospectedFormat(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	resp := f.ingest(t, "prod-9", "slides.odp", []byte("odp bytes"))

	assert.Equal(t, 1, resp.Presentation.Metadata.SlideCount)
	assert.Equal(t, models.AspectWidescreen, resp.Presentation.Metadata.AspectRatio)
	assert.Zero(t, resp.Presentation.DocumentPageCount)
	assert.Empty(t, resp.Warnings)
}

func TestProcessStorageUnreachable(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	f.store.FailUpload = func(string) bool { return true }

	resp := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))

	assert.Empty(t, resp.Presentation.FileKey)
	assert.Len(t, resp.Slides, 5)
	assert.Empty(t, resp.Thumbnails)
	assert.NotEmpty(t, resp.Warnings)
	assert.Equal(t, 5, resp.Presentation.Metadata.SlideCount)
}

type failingRepo struct {
	*repository.Memory
}

func (failingRepo) CreatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	return errors.New("database unavailable")
}

func TestProcessRepositoryFailureIsInternal(t *testing.T) {
	ingestor := NewIngestor(storagetest.NewMemory(), failingRepo{repository.NewMemory()}, IngestorConfig{})

	_, err := ingestor.Process(context.Background(), models.IngestRequest{
		ProductID: "prod-1",
		Filename:  "deck.pptx",
		Payload:   pptxtest.Build(pptxtest.FiveSlideDeck()),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInternal)
	assert.Contains(t, err.Error(), "database unavailable")
	assert.Equal(t, 500, apperrors.MapError(err).Code)
}

func TestProcessNotifies(t *testing.T) {
	notifier := &recordingNotifier{}
	f := newFixture(t, IngestorConfig{}, WithNotifier(notifier))
	resp := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))

	require.Len(t, notifier.summaries, 1)
	assert.Equal(t, models.IngestionSummary{
		PresentationID: resp.Presentation.ID,
		ProductID:      "prod-1",
		IngestionID:    resp.Presentation.IngestionID,
		SlideCount:     5,
		ThumbnailCount: 5,
	}, notifier.summaries[0])

	notifier.err = errors.New("workflow unavailable")
	resp = f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "workflow unavailable")
}

func TestRemove(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	ctx := context.Background()
	resp := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))

	removed, err := f.ingestor.Remove(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, 11, removed.DeletedAssets)
	assert.Empty(t, f.store.Keys(""))

	_, err = f.repo.FindByProduct(ctx, "prod-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	slides, err := f.repo.ListSlides(ctx, resp.Presentation.ID)
	require.NoError(t, err)
	assert.Empty(t, slides)

	_, err = f.ingestor.Remove(ctx, "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestIsCurrent(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	ctx := context.Background()
	payload := pptxtest.Build(pptxtest.FiveSlideDeck())

	current, _, err := f.ingestor.IsCurrent(ctx, "prod-1", payload)
	require.NoError(t, err)
	assert.False(t, current)

	resp := f.ingest(t, "prod-1", "deck.pptx", payload)
	current, id, err := f.ingestor.IsCurrent(ctx, "prod-1", payload)
	require.NoError(t, err)
	assert.True(t, current)
	assert.Equal(t, resp.Presentation.ID, id)

	current, _, err = f.ingestor.IsCurrent(ctx, "prod-1", []byte("other"))
	require.NoError(t, err)
	assert.False(t, current)
}

func TestDescribe(t *testing.T) {
	f := newFixture(t, IngestorConfig{})
	ctx := context.Background()
	_, err := f.ingestor.Describe(ctx, "prod-1")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	resp := f.ingest(t, "prod-1", "deck.pptx", pptxtest.Build(pptxtest.FiveSlideDeck()))
	view, err := f.ingestor.Describe(ctx, "prod-1")
	require.NoError(t, err)
	assert.Equal(t, resp.Presentation.ID, view.Presentation.ID)
	assert.Len(t, view.Slides, 5)
	assert.Len(t, view.Thumbnails, 5)
}
