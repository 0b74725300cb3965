// Package thumbnail produces the thumbnail and preview image for each slide
// and uploads them. Sources are tried in order: the package cover image
// (slide 1 only), the slide's first sizeable embedded picture, and finally
// generated placeholder art.
package thumbnail

import (
	"context"
	"fmt"
	"image/color"
	"log/slog"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/pptx"
	"github.com/ABDULS21985/vivaexcel-sub001/internal/storage"
)

// Output sizes.
const (
	ThumbnailWidth  = 400
	ThumbnailHeight = 225
	PreviewWidth    = 1280
	PreviewHeight   = 720
)

// SlideJob carries what the synthesizer needs for one slide.
type SlideJob struct {
	PresentationID string
	IngestionID    string
	SlideNumber    int
	SlidePart      string
	Title          *string
	Palette        []color.RGBA
}

// SlidePrefix is the storage prefix for every asset of one slide.
func SlidePrefix(presentationID, ingestionID string, slideNumber int) string {
	return fmt.Sprintf("presentations/%s/%s/slides/%d", presentationID, ingestionID, slideNumber)
}

func ThumbnailKey(presentationID, ingestionID string, slideNumber int, ext string) string {
	return fmt.Sprintf("%s/thumbnail.%s", SlidePrefix(presentationID, ingestionID, slideNumber), ext)
}

func PreviewKey(presentationID, ingestionID string, slideNumber int) string {
	return SlidePrefix(presentationID, ingestionID, slideNumber) + "/preview.png"
}

type Synthesizer struct {
	store  storage.Storage
	logger *slog.Logger
}

func NewSynthesizer(store storage.Storage, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{store: store, logger: logger}
}

type encoded struct {
	data        []byte
	ext         string
	contentType string
	source      string
}

// Synthesize builds and uploads one slide's images. It never fails: storage
// problems are returned as warnings and leave the matching locator empty.
func (s *Synthesizer) Synthesize(ctx context.Context, c *pptx.Container, job SlideJob) (models.ThumbnailAsset, []string) {
	logCtx := s.logger.With("presentationId", job.PresentationID, "slideNumber", job.SlideNumber)
	asset := models.ThumbnailAsset{SlideNumber: job.SlideNumber}
	var warnings []string

	title := ""
	if job.Title != nil {
		title = *job.Title
	}

	thumb := s.thumbnailImage(logCtx, c, job, title)
	if thumb != nil {
		key := ThumbnailKey(job.PresentationID, job.IngestionID, job.SlideNumber, thumb.ext)
		obj, err := s.store.Upload(ctx, thumb.data, key, thumb.contentType)
		if err != nil {
			logCtx.Warn("Thumbnail upload failed, trying fallback image.", "key", key, "error", err)
			warnings = append(warnings, fmt.Sprintf("slide %d: thumbnail upload failed: %v", job.SlideNumber, err))
			obj, thumb = s.uploadFallback(ctx, logCtx, job)
		}
		if obj != nil {
			asset.ThumbnailKey = obj.Key
			asset.ThumbnailLocator = obj.Locator
			asset.Width = ThumbnailWidth
			asset.Height = ThumbnailHeight
			asset.Source = thumb.source
		} else {
			warnings = append(warnings, fmt.Sprintf("slide %d: no thumbnail could be stored", job.SlideNumber))
		}
	} else {
		warnings = append(warnings, fmt.Sprintf("slide %d: no thumbnail could be rendered", job.SlideNumber))
	}

	if preview, err := RenderPlaceholder(PreviewWidth, PreviewHeight, job.SlideNumber, title, job.Palette); err != nil {
		logCtx.Warn("Preview rendering failed.", "error", err)
	} else {
		key := PreviewKey(job.PresentationID, job.IngestionID, job.SlideNumber)
		obj, err := s.store.Upload(ctx, preview, key, "image/png")
		if err != nil {
			logCtx.Warn("Preview upload failed.", "key", key, "error", err)
			warnings = append(warnings, fmt.Sprintf("slide %d: preview upload failed: %v", job.SlideNumber, err))
		} else {
			asset.PreviewKey = obj.Key
			asset.PreviewLocator = obj.Locator
		}
	}
	return asset, warnings
}

// thumbnailImage walks the source ladder. It returns nil only if even the
// minimal fallback cannot be drawn.
func (s *Synthesizer) thumbnailImage(logCtx *slog.Logger, c *pptx.Container, job SlideJob, title string) *encoded {
	if c != nil && job.SlideNumber == 1 {
		if part, ok := pptx.CoverThumbnail(c); ok {
			data, _ := c.ReadPartBytes(part)
			out, err := CoverCrop(data, ThumbnailWidth, ThumbnailHeight)
			if err == nil {
				return &encoded{data: out, ext: "jpg", contentType: "image/jpeg", source: models.SourceCover}
			}
			logCtx.Debug("Cover thumbnail unusable.", "part", part, "error", err)
		}
	}

	if c != nil && job.SlidePart != "" {
		for _, part := range pptx.SlideImages(c, job.SlidePart) {
			data, _ := c.ReadPartBytes(part)
			if !qualifies(data) {
				continue
			}
			out, err := CoverCrop(data, ThumbnailWidth, ThumbnailHeight)
			if err != nil {
				logCtx.Debug("Embedded image unusable.", "part", part, "error", err)
				continue
			}
			return &encoded{data: out, ext: "jpg", contentType: "image/jpeg", source: models.SourceEmbedded}
		}
	}

	out, err := RenderPlaceholder(ThumbnailWidth, ThumbnailHeight, job.SlideNumber, title, job.Palette)
	if err == nil {
		return &encoded{data: out, ext: "png", contentType: "image/png", source: models.SourcePlaceholder}
	}
	logCtx.Warn("Placeholder rendering failed, using minimal image.", "error", err)
	return s.minimal(logCtx, job)
}

func (s *Synthesizer) minimal(logCtx *slog.Logger, job SlideJob) *encoded {
	out, err := RenderMinimal(ThumbnailWidth, ThumbnailHeight, job.SlideNumber)
	if err != nil {
		logCtx.Error("Minimal thumbnail rendering failed.", "error", err)
		return nil
	}
	return &encoded{data: out, ext: "png", contentType: "image/png", source: models.SourceFallback}
}

func (s *Synthesizer) uploadFallback(ctx context.Context, logCtx *slog.Logger, job SlideJob) (*storage.Object, *encoded) {
	fallback := s.minimal(logCtx, job)
	if fallback == nil {
		return nil, nil
	}
	key := ThumbnailKey(job.PresentationID, job.IngestionID, job.SlideNumber, fallback.ext)
	obj, err := s.store.Upload(ctx, fallback.data, key, fallback.contentType)
	if err != nil {
		logCtx.Error("Fallback thumbnail upload failed, leaving slide without thumbnail.", "key", key, "error", err)
		return nil, nil
	}
	return obj, fallback
}
