package models

// These structs define the payloads exchanged between callers and the
// ingestion entrypoints.

// IngestRequest is the input of one ingestion run.
type IngestRequest struct {
	ProductID string `json:"productId"`
	Filename  string `json:"filename"`
	Payload   []byte `json:"-"`
}

// IngestResponse is returned to HTTP callers after a successful run.
type IngestResponse struct {
	Status          string             `json:"status"`
	Presentation    PresentationRecord `json:"presentation"`
	Slides          []SlideRecord      `json:"slides"`
	Thumbnails      []ThumbnailAsset   `json:"thumbnails"`
	Warnings        []string           `json:"warnings,omitempty"`
	DefaultedFields int                `json:"defaultedFields"`
}

// RemoveResponse is returned after a presentation has been removed.
type RemoveResponse struct {
	Status        string `json:"status"`
	DeletedAssets int    `json:"deletedAssets"`
}

// GCSEvent is the payload of a GCS object finalize event.
type GCSEvent struct {
	Bucket string `json:"bucket"`
	Name   string `json:"name"`
}

// IngestionSummary is handed to downstream workflows once an ingestion is done.
type IngestionSummary struct {
	PresentationID string `json:"presentationId"`
	ProductID      string `json:"productId"`
	IngestionID    string `json:"ingestionId"`
	SlideCount     int    `json:"slideCount"`
	ThumbnailCount int    `json:"thumbnailCount"`
}

// PresentationView is a stored presentation with its slides and thumbnails.
type PresentationView struct {
	Presentation PresentationRecord `json:"presentation"`
	Slides       []SlideRecord      `json:"slides"`
	Thumbnails   []ThumbnailAsset   `json:"thumbnails"`
}
