package services

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"sync"
	"time"

	apperrors "github.com/ABDULS21985/vivaexcel-sub001/internal/common/errors"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/gcp"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/repository"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/storage"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/thumbnail"
	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"golang.org/x/sync/errgroup"
)

// Pipeline stages, in order. FAILED is only reached from VALIDATING.
const (
	StageValidating         = "VALIDATING"
	StageUploadingOriginal  = "UPLOADING_ORIGINAL"
	StageExtractingMetadata = "EXTRACTING_METADATA"
	StageClassifyingSlides  = "CLASSIFYING_SLIDES"
	StageSynthesizingAssets = "SYNTHESIZING_ASSETS"
	StageReconciling        = "RECONCILING_RECORDS"
	StageDone               = "DONE"
	StageFailed             = "FAILED"

	StageRemoving = "REMOVING"
)

// introspectedFormat is the only format whose contents are parsed. The
// others are stored as-is.
const introspectedFormat = "pptx"

var originalContentTypes = map[string]string{
	"pptx": "application/vnd.openxmlformats-officedocument.presentationml.presentation",
	"ppt":  "application/vnd.ms-powerpoint",
	"key":  "application/vnd.apple.keynote",
	"odp":  "application/vnd.oasis.opendocument.presentation",
	"pdf":  "application/pdf",
}

// Notifier is told about every finished ingestion.
type Notifier interface {
	Notify(ctx context.Context, summary models.IngestionSummary) error
}

type IngestorConfig struct {
	MaxPayloadBytes  int64
	SlideConcurrency int
}

type Ingestor struct {
	store    storage.Storage
	repo     repository.Repository
	synth    *thumbnail.Synthesizer
	notifier Notifier
	config   IngestorConfig
	logger   *slog.Logger
	now      func() time.Time
}

type Option func(*Ingestor)

func WithNotifier(n Notifier) Option {
	return func(i *Ingestor) { i.notifier = n }
}

func WithLogger(l *slog.Logger) Option {
	return func(i *Ingestor) { i.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(i *Ingestor) { i.now = now }
}

func NewIngestor(store storage.Storage, repo repository.Repository, cfg IngestorConfig, opts ...Option) *Ingestor {
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = config.DefaultMaxPayloadBytes
	}
	if cfg.SlideConcurrency <= 0 {
		cfg.SlideConcurrency = 4
	}
	i := &Ingestor{
		store:  store,
		repo:   repo,
		config: cfg,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	i.synth = thumbnail.NewSynthesizer(store, i.logger)
	return i
}

// NewIngestorFromConfig wires storage, repository and the optional workflow
// hand-off from cfg. The returned close function releases the clients.
func NewIngestorFromConfig(ctx context.Context, cfg config.Config) (*Ingestor, func() error, error) {
	store, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create storage backend: %w", err)
	}
	repo, err := repository.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create repository: %w", err)
	}
	closers := []func() error{repo.Close}

	var opts []Option
	if cfg.Workflow.ID != "" {
		notifier, err := gcp.NewWorkflowNotifier(ctx, cfg.ProjectID, cfg.Workflow.Location, cfg.Workflow.ID)
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		opts = append(opts, WithNotifier(notifier))
		closers = append(closers, notifier.Close)
	}

	ingestor := NewIngestor(store, repo, IngestorConfig{
		MaxPayloadBytes:  cfg.Ingest.MaxPayloadBytes,
		SlideConcurrency: cfg.Ingest.SlideConcurrency,
	}, opts...)
	slog.Info("Ingestor initialized.",
		"storageBackend", cfg.Storage.Backend,
		"repositoryBackend", cfg.Repository.Backend,
		"workflowId", cfg.Workflow.ID)

	closeAll := func() error {
		var errs []error
		for _, c := range closers {
			errs = append(errs, c())
		}
		return errors.Join(errs...)
	}
	return ingestor, closeAll, nil
}

// MaxPayloadBytes is the configured upload limit.
func (i *Ingestor) MaxPayloadBytes() int64 {
	return i.config.MaxPayloadBytes
}

// Format returns the lower-case extension of filename without the dot.
func Format(filename string) string {
	return strings.TrimPrefix(strings.ToLower(path.Ext(filename)), ".")
}

// Validate applies the checks that run before any work is done.
func (i *Ingestor) Validate(req models.IngestRequest) error {
	if strings.TrimSpace(req.ProductID) == "" {
		return apperrors.NewValidationError(apperrors.ReasonMissingProduct, "productId is required")
	}
	if len(req.Payload) == 0 {
		return apperrors.NewValidationError(apperrors.ReasonEmptyPayload, "payload is empty")
	}
	if int64(len(req.Payload)) > i.config.MaxPayloadBytes {
		return apperrors.NewValidationError(apperrors.ReasonPayloadTooLarge,
			"payload is %d bytes, limit is %d", len(req.Payload), i.config.MaxPayloadBytes)
	}
	if _, ok := originalContentTypes[Format(req.Filename)]; !ok {
		return apperrors.NewValidationError(apperrors.ReasonUnsupportedExtension,
			"extension %q is not accepted", path.Ext(req.Filename))
	}
	return nil
}

// introspection is everything derived from the payload itself.
type introspection struct {
	introspected bool
	metadata     models.PresentationMetadata
	slides       []models.SlideRecord
	assets       []models.ThumbnailAsset
	defaulted    int
	pageCount    int
}

// warnings collects StorageFailure outcomes from concurrent slide chains.
type warnings struct {
	mu   sync.Mutex
	list []string
}

func (w *warnings) add(msgs ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.list = append(w.list, msgs...)
}

// Process runs one ingestion. Only validation errors and repository failures
// are returned; everything else degrades into defaults and warnings.
func (i *Ingestor) Process(ctx context.Context, req models.IngestRequest) (*models.IngestResponse, error) {
	logCtx := i.logger.With("productId", req.ProductID, "filename", req.Filename)
	logCtx.Info("Processing new upload.", "stage", StageValidating, "size", len(req.Payload))

	if err := i.Validate(req); err != nil {
		logCtx.Warn("Upload rejected.", "stage", StageFailed, "error", err)
		return nil, err
	}

	format := Format(req.Filename)
	fileHash := calculateHash(req.Payload)
	ingestionID := uuid.NewString()
	logCtx = logCtx.With("fileHash", fileHash, "ingestionId", ingestionID)

	existing, err := i.repo.FindByProduct(ctx, req.ProductID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, i.handleError(logCtx, StageValidating, "failed to look up existing presentation", err)
	}
	presentationID := uuid.NewString()
	if existing != nil {
		presentationID = existing.ID
	}
	logCtx = logCtx.With("presentationId", presentationID)

	warn := &warnings{}

	logCtx.Info("Uploading original.", "stage", StageUploadingOriginal)
	originalKey := fmt.Sprintf("presentations/%s/%s/original.%s", presentationID, ingestionID, format)
	original, err := i.store.Upload(ctx, req.Payload, originalKey, originalContentTypes[format])
	if err != nil {
		logCtx.Warn("Original upload failed.", "key", originalKey, "error", err)
		warn.add(fmt.Sprintf("original file upload failed: %v", err))
	}

	var intro introspection
	switch format {
	case introspectedFormat:
		intro = i.introspect(ctx, logCtx, req.Payload, presentationID, ingestionID, warn)
	case "pdf":
		intro = introspection{metadata: models.DefaultMetadata(), pageCount: pdfPageCount(logCtx, req.Payload)}
	default:
		intro = introspection{metadata: models.DefaultMetadata()}
	}
	if intro.slides == nil {
		intro.slides = []models.SlideRecord{}
	}

	logCtx.Info("Reconciling records.", "stage", StageReconciling)
	now := i.now().UTC()
	rec := &models.PresentationRecord{
		ID:                presentationID,
		ProductID:         req.ProductID,
		OriginalFilename:  req.Filename,
		Format:            format,
		FileSize:          int64(len(req.Payload)),
		FileHash:          fileHash,
		Status:            models.StatusReady,
		Introspected:      intro.introspected,
		Metadata:          intro.metadata,
		DocumentPageCount: intro.pageCount,
		IngestionID:       ingestionID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if original != nil {
		rec.FileKey = original.Key
		rec.FileLocator = original.Locator
	}

	assets := storedAssets(intro.assets)
	if err := i.reconcile(ctx, logCtx, existing, rec, intro.slides, assets, warn); err != nil {
		return nil, err
	}

	if i.notifier != nil {
		summary := models.IngestionSummary{
			PresentationID: rec.ID,
			ProductID:      rec.ProductID,
			IngestionID:    ingestionID,
			SlideCount:     rec.Metadata.SlideCount,
			ThumbnailCount: len(assets),
		}
		if err := i.notifier.Notify(ctx, summary); err != nil {
			logCtx.Warn("Downstream notification failed.", "error", err)
			warn.add(fmt.Sprintf("downstream notification failed: %v", err))
		}
	}

	logCtx.Info("Ingestion complete.",
		"stage", StageDone,
		"introspected", intro.introspected,
		"slides", len(intro.slides),
		"thumbnails", len(assets),
		"defaultedFields", intro.defaulted,
		"warnings", len(warn.list))

	return &models.IngestResponse{
		Status:          StageDone,
		Presentation:    *rec,
		Slides:          intro.slides,
		Thumbnails:      assets,
		Warnings:        warn.list,
		DefaultedFields: intro.defaulted,
	}, nil
}

// introspect opens the container and runs metadata extraction followed by
// the per-slide classify-then-synthesize chains.
func (i *Ingestor) introspect(ctx context.Context, logCtx *slog.Logger, payload []byte, presentationID, ingestionID string, warn *warnings) introspection {
	c, err := pptx.Open(payload)
	if err != nil {
		logCtx.Warn("Container could not be indexed, using defaults.", "error", err)
		warn.add("container could not be read; metadata and slides were skipped")
		return introspection{
			metadata:  models.DefaultMetadata(),
			slides:    []models.SlideRecord{},
			defaulted: pptx.MetadataFieldCount,
		}
	}
	if c.Skipped() > 0 {
		logCtx.Warn("Some container entries were unreadable.", "skipped", c.Skipped())
	}

	logCtx.Info("Extracting metadata.", "stage", StageExtractingMetadata, "parts", c.Len())
	meta, stats := pptx.ExtractMetadata(ctx, c, logCtx)

	parts := c.PartsMatching(pptx.PartSlides)
	slides := make([]models.SlideRecord, len(parts))
	assets := make([]models.ThumbnailAsset, len(parts))
	palette := thumbnail.Palette(meta.ColorSchemes)

	logCtx.Info("Processing slides.", "stage", StageClassifyingSlides, "slides", len(parts), "concurrency", i.config.SlideConcurrency)
	var slideFailures int
	var mu sync.Mutex
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(i.config.SlideConcurrency)
	for idx, part := range parts {
		slideNumber := idx + 1
		eg.Go(func() error {
			rec, err := pptx.ClassifySlide(c, part, slideNumber)
			if err != nil {
				logCtx.Warn("Slide parse failed, recording defaults.", "slideNumber", slideNumber, "error", err)
				mu.Lock()
				slideFailures++
				mu.Unlock()
			}
			slides[idx] = rec

			asset, msgs := i.synthesize(gctx, logCtx, c, thumbnail.SlideJob{
				PresentationID: presentationID,
				IngestionID:    ingestionID,
				SlideNumber:    slideNumber,
				SlidePart:      part,
				Title:          rec.Title,
				Palette:        palette,
			})
			assets[idx] = asset
			warn.add(msgs...)
			return nil
		})
	}
	_ = eg.Wait()
	logCtx.Info("Slides processed.", "stage", StageSynthesizingAssets, "slideFailures", slideFailures)

	return introspection{
		introspected: true,
		metadata:     meta,
		slides:       slides,
		assets:       assets,
		defaulted:    stats.DefaultedFields + int(slideFailures),
	}
}

// synthesize isolates one slide's image work so a panic in a decoder only
// costs that slide its assets.
func (i *Ingestor) synthesize(ctx context.Context, logCtx *slog.Logger, c *pptx.Container, job thumbnail.SlideJob) (asset models.ThumbnailAsset, msgs []string) {
	defer func() {
		if r := recover(); r != nil {
			logCtx.Error("Thumbnail synthesis panicked.", "slideNumber", job.SlideNumber, "panic", r)
			asset = models.ThumbnailAsset{SlideNumber: job.SlideNumber}
			msgs = []string{fmt.Sprintf("slide %d: thumbnail synthesis failed", job.SlideNumber)}
		}
	}()
	return i.synth.Synthesize(ctx, c, job)
}

// reconcile persists rec with its slides and assets, replacing whatever a
// previous ingestion of the same product left behind, then removes storage
// objects that no new record references.
func (i *Ingestor) reconcile(ctx context.Context, logCtx *slog.Logger, existing, rec *models.PresentationRecord, slides []models.SlideRecord, assets []models.ThumbnailAsset, warn *warnings) error {
	var staleKeys []string
	if existing == nil {
		if err := i.repo.CreatePresentation(ctx, rec); err != nil {
			return i.handleError(logCtx, StageReconciling, "failed to create presentation record", err)
		}
	} else {
		rec.CreatedAt = existing.CreatedAt
		if rec.Format != introspectedFormat {
			// Fill-in: formats that are never parsed must not clobber values
			// extracted by an earlier ingestion. A pptx that fails to open
			// replaces them with defaults like any other pptx.
			rec.Metadata = existing.Metadata
		}
		if rec.FileKey == "" && existing.FileKey != "" {
			// The new original could not be stored, so the record keeps
			// owning the previous one until a later upload supersedes it.
			rec.FileKey = existing.FileKey
			rec.FileLocator = existing.FileLocator
		}

		oldAssets, err := i.repo.ListAssets(ctx, existing.ID)
		if err != nil {
			logCtx.Warn("Could not list previous assets; they may be orphaned.", "error", err)
			warn.add(fmt.Sprintf("previous assets could not be listed: %v", err))
		}
		newKeys := make(map[string]bool)
		for _, a := range assets {
			for _, k := range a.Keys() {
				newKeys[k] = true
			}
		}
		for _, a := range oldAssets {
			for _, k := range a.Keys() {
				if !newKeys[k] {
					staleKeys = append(staleKeys, k)
				}
			}
		}
		if existing.FileKey != "" && rec.FileKey != "" && existing.FileKey != rec.FileKey {
			staleKeys = append(staleKeys, existing.FileKey)
		}

		if err := i.repo.UpdatePresentation(ctx, rec); err != nil {
			return i.handleError(logCtx, StageReconciling, "failed to update presentation record", err)
		}
	}

	if err := i.repo.ReplaceSlides(ctx, rec.ID, slides); err != nil {
		return i.handleError(logCtx, StageReconciling, "failed to replace slide records", err)
	}
	if err := i.repo.ReplaceAssets(ctx, rec.ID, assets); err != nil {
		return i.handleError(logCtx, StageReconciling, "failed to replace thumbnail records", err)
	}

	for _, key := range staleKeys {
		if _, err := i.store.Delete(ctx, key); err != nil {
			logCtx.Warn("Failed to delete superseded object.", "key", key, "error", err)
			warn.add(fmt.Sprintf("superseded object %s could not be deleted: %v", key, err))
		}
	}
	if len(staleKeys) > 0 {
		logCtx.Info("Removed superseded objects.", "count", len(staleKeys))
	}
	return nil
}

// Remove deletes a product's presentation, its records and every stored
// object they reference.
func (i *Ingestor) Remove(ctx context.Context, productID string) (*models.RemoveResponse, error) {
	logCtx := i.logger.With("productId", productID)
	existing, err := i.repo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	logCtx = logCtx.With("presentationId", existing.ID)

	assets, err := i.repo.ListAssets(ctx, existing.ID)
	if err != nil {
		return nil, i.handleError(logCtx, StageRemoving, "failed to list assets", err)
	}
	keys := []string{}
	for _, a := range assets {
		keys = append(keys, a.Keys()...)
	}
	if existing.FileKey != "" {
		keys = append(keys, existing.FileKey)
	}

	deleted := 0
	for _, key := range keys {
		ok, err := i.store.Delete(ctx, key)
		if err != nil {
			logCtx.Warn("Failed to delete stored object.", "key", key, "error", err)
			continue
		}
		if ok {
			deleted++
		}
	}

	if _, err := i.repo.DeleteAssets(ctx, existing.ID); err != nil {
		return nil, i.handleError(logCtx, StageRemoving, "failed to delete thumbnail records", err)
	}
	if _, err := i.repo.DeleteSlides(ctx, existing.ID); err != nil {
		return nil, i.handleError(logCtx, StageRemoving, "failed to delete slide records", err)
	}
	if err := i.repo.DeletePresentation(ctx, existing.ID); err != nil {
		return nil, i.handleError(logCtx, StageRemoving, "failed to delete presentation record", err)
	}
	logCtx.Info("Presentation removed.", "deletedObjects", deleted)
	return &models.RemoveResponse{Status: "REMOVED", DeletedAssets: deleted}, nil
}

func (i *Ingestor) handleError(logCtx *slog.Logger, stage, message string, originalErr error) error {
	logCtx.Error(message, "stage", stage, "error", originalErr)
	return fmt.Errorf("%s: %w: %w", message, apperrors.ErrInternal, originalErr)
}

// storedAssets drops assets for which nothing could be uploaded.
func storedAssets(assets []models.ThumbnailAsset) []models.ThumbnailAsset {
	out := []models.ThumbnailAsset{}
	for _, a := range assets {
		if len(a.Keys()) > 0 {
			out = append(out, a)
		}
	}
	return out
}

func pdfPageCount(logCtx *slog.Logger, payload []byte) int {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(payload), conf)
	if err != nil {
		logCtx.Debug("Could not count PDF pages.", "error", err)
		return 0
	}
	return n
}

func calculateHash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// IsCurrent reports whether the product's presentation was already built
// from a payload with this content.
func (i *Ingestor) IsCurrent(ctx context.Context, productID string, payload []byte) (bool, string, error) {
	existing, err := i.repo.FindByProduct(ctx, productID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, "", nil
	}
	if err != nil {
		return false, "", fmt.Errorf("failed to query for duplicates: %w", err)
	}
	return existing.FileHash == calculateHash(payload), existing.ID, nil
}

// Describe loads the stored presentation for a product.
func (i *Ingestor) Describe(ctx context.Context, productID string) (*models.PresentationView, error) {
	rec, err := i.repo.FindByProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	slides, err := i.repo.ListSlides(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list slides: %w", err)
	}
	assets, err := i.repo.ListAssets(ctx, rec.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list thumbnails: %w", err)
	}
	return &models.PresentationView{Presentation: *rec, Slides: slides, Thumbnails: assets}, nil
}
