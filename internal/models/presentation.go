package models

import "time"

// AspectRatio classifies the slide size declared by a presentation.
type AspectRatio string

const (
	AspectWidescreen AspectRatio = "widescreen"
	AspectStandard   AspectRatio = "standard"
	AspectA4         AspectRatio = "a4"
	AspectLetter     AspectRatio = "letter"
	AspectCustom     AspectRatio = "custom"
)

// ContentType is the layout category assigned to a single slide.
type ContentType string

const (
	ContentTitle         ContentType = "title"
	ContentContent       ContentType = "content"
	ContentImage         ContentType = "image"
	ContentChart         ContentType = "chart"
	ContentTable         ContentType = "table"
	ContentBlank         ContentType = "blank"
	ContentSectionHeader ContentType = "section_header"
	ContentTwoColumn     ContentType = "two_column"
	ContentComparison    ContentType = "comparison"
	ContentOther         ContentType = "other"
)

// StatusReady is stored on every PresentationRecord a finished ingestion
// writes.
const StatusReady = "READY"

// ColorScheme is one theme palette. Colors are "#RRGGBB" in canonical slot order.
type ColorScheme struct {
	Name   string   `json:"name" firestore:"name"`
	Colors []string `json:"colors" firestore:"colors"`
}

// PresentationMetadata is the aggregate of everything extracted from a deck.
// Every field has a usable zero value; see DefaultMetadata.
type PresentationMetadata struct {
	SlideCount            int           `json:"slideCount" firestore:"slideCount"`
	AspectRatio           AspectRatio   `json:"aspectRatio" firestore:"aspectRatio"`
	FontFamilies          []string      `json:"fontFamilies" firestore:"fontFamilies"`
	ColorSchemes          []ColorScheme `json:"colorSchemes" firestore:"colorSchemes"`
	HasAnimations         bool          `json:"hasAnimations" firestore:"hasAnimations"`
	HasTransitions        bool          `json:"hasTransitions" firestore:"hasTransitions"`
	HasSpeakerNotes       bool          `json:"hasSpeakerNotes" firestore:"hasSpeakerNotes"`
	HasCharts             bool          `json:"hasCharts" firestore:"hasCharts"`
	HasImages             bool          `json:"hasImages" firestore:"hasImages"`
	MasterSlideCount      int           `json:"masterSlideCount" firestore:"masterSlideCount"`
	LayoutCount           int           `json:"layoutCount" firestore:"layoutCount"`
	PresentationSizeLabel *string       `json:"presentationSizeLabel,omitempty" firestore:"presentationSizeLabel"`
	SoftwareCompatibility []string      `json:"softwareCompatibility" firestore:"softwareCompatibility"`
}

// DefaultMetadata is the metadata used when nothing could be extracted.
func DefaultMetadata() PresentationMetadata {
	return PresentationMetadata{
		SlideCount:            1,
		AspectRatio:           AspectWidescreen,
		FontFamilies:          []string{},
		ColorSchemes:          []ColorScheme{},
		SoftwareCompatibility: []string{},
	}
}

// SlideRecord holds the per-slide facts derived by the classifier.
type SlideRecord struct {
	SlideNumber  int         `json:"slideNumber" firestore:"slideNumber"`
	Title        *string     `json:"title,omitempty" firestore:"title"`
	HasNotes     bool        `json:"hasNotes" firestore:"hasNotes"`
	NotesPreview *string     `json:"notesPreview,omitempty" firestore:"notesPreview"`
	ContentType  ContentType `json:"contentType" firestore:"contentType"`
}

// DefaultSlideRecord is recorded for a slide whose part could not be parsed.
func DefaultSlideRecord(number int) SlideRecord {
	return SlideRecord{SlideNumber: number, ContentType: ContentContent}
}

// Where a thumbnail's pixels came from.
const (
	SourceCover       = "cover"
	SourceEmbedded    = "embedded"
	SourcePlaceholder = "placeholder"
	SourceFallback    = "fallback"
)

// ThumbnailAsset points at the uploaded images for one slide. Locators are
// empty when nothing could be stored.
type ThumbnailAsset struct {
	SlideNumber      int    `json:"slideNumber" firestore:"slideNumber"`
	ThumbnailLocator string `json:"thumbnailLocator" firestore:"thumbnailLocator"`
	ThumbnailKey     string `json:"thumbnailKey,omitempty" firestore:"thumbnailKey"`
	PreviewLocator   string `json:"previewLocator,omitempty" firestore:"previewLocator"`
	PreviewKey       string `json:"previewKey,omitempty" firestore:"previewKey"`
	Width            int    `json:"width" firestore:"width"`
	Height           int    `json:"height" firestore:"height"`
	Source           string `json:"source,omitempty" firestore:"source"`
}

// Keys returns the storage keys held by the asset.
func (a ThumbnailAsset) Keys() []string {
	var keys []string
	if a.ThumbnailKey != "" {
		keys = append(keys, a.ThumbnailKey)
	}
	if a.PreviewKey != "" {
		keys = append(keys, a.PreviewKey)
	}
	return keys
}

// PresentationRecord is the persisted record for one logical product's deck.
type PresentationRecord struct {
	ID                string               `json:"id" firestore:"-"`
	ProductID         string               `json:"productId" firestore:"productId"`
	OriginalFilename  string               `json:"originalFilename" firestore:"originalFilename"`
	Format            string               `json:"format" firestore:"format"`
	FileKey           string               `json:"fileKey,omitempty" firestore:"fileKey"`
	FileLocator       string               `json:"fileLocator,omitempty" firestore:"fileLocator"`
	FileSize          int64                `json:"fileSize" firestore:"fileSize"`
	FileHash          string               `json:"fileHash" firestore:"fileHash"`
	Status            string               `json:"status" firestore:"status"`
	Introspected      bool                 `json:"introspected" firestore:"introspected"`
	Metadata          PresentationMetadata `json:"metadata" firestore:"metadata"`
	DocumentPageCount int                  `json:"documentPageCount,omitempty" firestore:"documentPageCount,omitempty"`
	IngestionID       string               `json:"ingestionId" firestore:"ingestionId"`
	CreatedAt         time.Time            `json:"createdAt" firestore:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt" firestore:"updatedAt"`
}
