package pptx

import (
	"context"
	"encoding/xml"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"golang.org/x/sync/errgroup"
)

// NotesPreviewLimit is the number of characters kept from speaker notes
// before the ellipsis marker is appended.
const NotesPreviewLimit = 200

const ellipsis = "..."

// shapeStats summarises a slide's shape tree for classification.
type shapeStats struct {
	shapes        int
	pictures      int
	frames        int
	hasTitle      bool
	hasSubtitle   bool
	bodyCount     int
	hasChartFrame bool
	hasTableFrame bool
	rawHasTable   bool
	rawHasChart   bool
}

// classificationRule maps a predicate to a content type. Rules are evaluated
// in order and the first match wins.
type classificationRule struct {
	name  string
	match func(s shapeStats) bool
	tag   models.ContentType
}

var classificationRules = []classificationRule{
	{
		// Only chart-specific markup counts, not any frame whose XML
		// happens to mention "chart".
		name:  "chart",
		match: func(s shapeStats) bool { return s.frames > 0 && (s.hasChartFrame || s.rawHasChart) },
		tag:   models.ContentChart,
	},
	{
		name:  "table",
		match: func(s shapeStats) bool { return s.hasTableFrame || s.rawHasTable },
		tag:   models.ContentTable,
	},
	{
		name: "title",
		match: func(s shapeStats) bool {
			return (s.hasTitle || s.hasSubtitle) && s.bodyCount == 0 && s.pictures == 0
		},
		tag: models.ContentTitle,
	},
	{
		name: "section header",
		match: func(s shapeStats) bool {
			return s.hasTitle && s.bodyCount == 0 && !s.hasSubtitle && s.shapes <= 2
		},
		tag: models.ContentSectionHeader,
	},
	{
		name:  "two column",
		match: func(s shapeStats) bool { return s.bodyCount >= 2 },
		tag:   models.ContentTwoColumn,
	},
	{
		name:  "image",
		match: func(s shapeStats) bool { return s.pictures >= 1 && s.pictures >= s.shapes },
		tag:   models.ContentImage,
	},
	{
		name:  "blank",
		match: func(s shapeStats) bool { return s.shapes == 0 && s.pictures == 0 && s.frames == 0 },
		tag:   models.ContentBlank,
	},
}

// classify evaluates the rule table; slides matching no rule are Content.
func classify(s shapeStats) models.ContentType {
	for _, r := range classificationRules {
		if r.match(s) {
			return r.tag
		}
	}
	return models.ContentContent
}

func isTitleType(t string) bool {
	return t == "title" || t == "ctrTitle"
}

func isBodyPlaceholder(ph *placeholderXML) bool {
	switch ph.Type {
	case "body", "obj":
		return true
	case "":
		return ph.Idx != "" && ph.Idx != "0"
	}
	return false
}

func collectStats(tree shapeTreeXML, raw string) shapeStats {
	flat := tree.flatten()
	s := shapeStats{
		shapes:      len(flat.Shapes),
		pictures:    len(flat.Pictures),
		frames:      len(flat.Frames),
		rawHasTable: strings.Contains(raw, "<a:tbl>") || strings.Contains(raw, "<a:tbl "),
		rawHasChart: strings.Contains(raw, "<c:chart ") || strings.Contains(raw, "<c:chart>"),
	}
	for _, sp := range flat.Shapes {
		ph := sp.NonVisual.Props.Placeholder
		if ph == nil {
			continue
		}
		switch {
		case isTitleType(ph.Type):
			s.hasTitle = true
		case ph.Type == "subTitle":
			s.hasSubtitle = true
		case isBodyPlaceholder(ph):
			s.bodyCount++
		}
	}
	for _, f := range flat.Frames {
		d := f.Graphic.Data
		if d.Chart != nil || strings.Contains(d.URI, "/chart") {
			s.hasChartFrame = true
		}
		if d.Table != nil || strings.HasSuffix(d.URI, "/table") {
			s.hasTableFrame = true
		}
	}
	return s
}

// titleText prefers a title or centered-title placeholder, then the shape at
// placeholder index 0.
func titleText(tree shapeTreeXML) *string {
	flat := tree.flatten()
	var byIndex *shapeXML
	for i := range flat.Shapes {
		sp := &flat.Shapes[i]
		ph := sp.NonVisual.Props.Placeholder
		if ph == nil {
			continue
		}
		if isTitleType(ph.Type) {
			return optionalText(sp.Text.text())
		}
		if byIndex == nil && ph.Idx == "0" {
			byIndex = sp
		}
	}
	if byIndex != nil {
		return optionalText(byIndex.Text.text())
	}
	return nil
}

func optionalText(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// NotesPath returns the notes part addressed by a 1-based slide number.
func NotesPath(slideNumber int) string {
	return fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", slideNumber)
}

// TruncateNotes shortens s to NotesPreviewLimit characters plus an ellipsis.
func TruncateNotes(s string) string {
	if utf8.RuneCountInString(s) <= NotesPreviewLimit {
		return s
	}
	r := []rune(s)
	return strings.TrimRightFunc(string(r[:NotesPreviewLimit]), func(c rune) bool { return c == ' ' }) + ellipsis
}

// notesFor reports whether a notes part exists and the preview of its body
// placeholder text.
func notesFor(c *Container, slideNumber int) (bool, *string, error) {
	raw, ok := c.ReadPartBytes(NotesPath(slideNumber))
	if !ok {
		return false, nil, nil
	}
	var notes slideXML
	if err := xml.Unmarshal(raw, &notes); err != nil {
		return true, nil, fmt.Errorf("failed to parse notes for slide %d: %w", slideNumber, err)
	}
	for _, sp := range notes.CommonData.Tree.flatten().Shapes {
		ph := sp.NonVisual.Props.Placeholder
		if ph != nil && ph.Type == "body" {
			text := sp.Text.text()
			if text == "" {
				return true, nil, nil
			}
			preview := TruncateNotes(text)
			return true, &preview, nil
		}
	}
	return true, nil, nil
}

// ClassifySlide parses one slide part. On error the returned record is still
// the default record for that slide number.
func ClassifySlide(c *Container, part string, slideNumber int) (rec models.SlideRecord, err error) {
	rec = models.DefaultSlideRecord(slideNumber)
	defer func() {
		if r := recover(); r != nil {
			rec = models.DefaultSlideRecord(slideNumber)
			err = fmt.Errorf("slide %d: panic while parsing: %v", slideNumber, r)
		}
	}()

	raw, ok := c.ReadPartBytes(part)
	if !ok {
		return rec, fmt.Errorf("slide %d: part %s not found", slideNumber, part)
	}
	var s slideXML
	if err := xml.Unmarshal(raw, &s); err != nil {
		return rec, fmt.Errorf("slide %d: failed to parse %s: %w", slideNumber, part, err)
	}

	hasNotes, preview, err := notesFor(c, slideNumber)
	if err != nil {
		return models.DefaultSlideRecord(slideNumber), err
	}

	tree := s.CommonData.Tree
	return models.SlideRecord{
		SlideNumber:  slideNumber,
		Title:        titleText(tree),
		HasNotes:     hasNotes,
		NotesPreview: preview,
		ContentType:  classify(collectStats(tree, string(raw))),
	}, nil
}

// DefaultSlideConcurrency bounds ClassifySlides when no limit is given.
const DefaultSlideConcurrency = 4

// ClassifySlides classifies every slide in numeric order using at most
// concurrency workers. Slides that fail to parse are recorded with defaults
// and do not affect their siblings. Slides not yet started when ctx is
// cancelled are recorded with defaults.
func ClassifySlides(ctx context.Context, c *Container, concurrency int, logger *slog.Logger) []models.SlideRecord {
	if logger == nil {
		logger = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultSlideConcurrency
	}
	parts := c.PartsMatching(PartSlides)
	records := make([]models.SlideRecord, len(parts))

	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, part := range parts {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				records[i] = models.DefaultSlideRecord(i + 1)
				return nil
			}
			rec, err := ClassifySlide(c, part, i+1)
			if err != nil {
				logger.Warn("Slide parse failed, recording defaults.", "slideNumber", i+1, "part", part, "error", err)
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()
	return records
}
