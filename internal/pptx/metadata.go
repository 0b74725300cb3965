package pptx

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"golang.org/x/sync/errgroup"
)

// ExtractStats reports how many fields fell back to their default.
type ExtractStats struct {
	DefaultedFields int
}

// MetadataFieldCount is the number of independent field extractors
// ExtractMetadata runs. A container that cannot be opened defaults all of them.
const MetadataFieldCount = 12

// extractField runs fn and collapses any error or panic into def. It never
// lets a failure escape, so one corrupt part cannot affect another field.
func extractField[T any](logger *slog.Logger, defaulted *atomic.Int32, name string, def T, fn func() (T, error)) (out T) {
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("Field extractor panicked, using default.", "field", name, "panic", fmt.Sprint(r))
			defaulted.Add(1)
			out = def
		}
	}()
	v, err := fn()
	if err != nil {
		logger.Debug("Field extraction failed, using default.", "field", name, "error", err)
		defaulted.Add(1)
		return def
	}
	return v
}

// ExtractMetadata runs the independent field extractors over c concurrently
// and merges their results. It always returns a complete value.
func ExtractMetadata(ctx context.Context, c *Container, logger *slog.Logger) (models.PresentationMetadata, ExtractStats) {
	if logger == nil {
		logger = slog.Default()
	}
	def := models.DefaultMetadata()
	var defaulted atomic.Int32

	var slideCount, masters, layouts int
	var aspect models.AspectRatio
	var sizeLabel *string
	var fonts []string
	var schemes []models.ColorScheme
	var animations, transitions, notes, charts, images bool

	var g errgroup.Group
	run := func(f func()) {
		g.Go(func() error {
			f()
			return nil
		})
	}
	run(func() {
		slideCount = extractField(logger, &defaulted, "slideCount", def.SlideCount, func() (int, error) { return countSlides(c) })
	})
	run(func() {
		aspect = extractField(logger, &defaulted, "aspectRatio", def.AspectRatio, func() (models.AspectRatio, error) { return extractAspectRatio(c) })
	})
	run(func() {
		sizeLabel = extractField(logger, &defaulted, "presentationSizeLabel", def.PresentationSizeLabel, func() (*string, error) { return extractSizeLabel(c) })
	})
	run(func() {
		fonts = extractField(logger, &defaulted, "fontFamilies", def.FontFamilies, func() ([]string, error) { return extractFonts(c) })
	})
	run(func() {
		schemes = extractField(logger, &defaulted, "colorSchemes", def.ColorSchemes, func() ([]models.ColorScheme, error) { return extractColorSchemes(c) })
	})
	run(func() {
		animations = extractField(logger, &defaulted, "hasAnimations", false, func() (bool, error) { return detectAnimations(c) })
	})
	run(func() {
		transitions = extractField(logger, &defaulted, "hasTransitions", false, func() (bool, error) { return detectTransitions(c) })
	})
	run(func() {
		notes = extractField(logger, &defaulted, "hasSpeakerNotes", false, func() (bool, error) { return detectSpeakerNotes(c) })
	})
	run(func() {
		charts = extractField(logger, &defaulted, "hasCharts", false, func() (bool, error) { return detectCharts(c) })
	})
	run(func() {
		images = extractField(logger, &defaulted, "hasImages", false, func() (bool, error) { return detectImages(c) })
	})
	run(func() {
		masters = extractField(logger, &defaulted, "masterSlideCount", 0, func() (int, error) { return countMasters(c) })
	})
	run(func() {
		layouts = extractField(logger, &defaulted, "layoutCount", 0, func() (int, error) { return countLayouts(c) })
	})
	_ = g.Wait()

	meta := models.PresentationMetadata{
		SlideCount:            slideCount,
		AspectRatio:           aspect,
		FontFamilies:          fonts,
		ColorSchemes:          schemes,
		HasAnimations:         animations,
		HasTransitions:        transitions,
		HasSpeakerNotes:       notes,
		HasCharts:             charts,
		HasImages:             images,
		MasterSlideCount:      masters,
		LayoutCount:           layouts,
		PresentationSizeLabel: sizeLabel,
		SoftwareCompatibility: SoftwareCompatibility(animations, transitions),
	}
	return meta, ExtractStats{DefaultedFields: int(defaulted.Load())}
}
