package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/google/uuid"
)

// Memory keeps everything in maps. It backs tests and CLI dry runs.
type Memory struct {
	mu            sync.RWMutex
	presentations map[string]models.PresentationRecord
	byProduct     map[string]string
	slides        map[string][]models.SlideRecord
	assets        map[string][]models.ThumbnailAsset
}

func NewMemory() *Memory {
	return &Memory{
		presentations: make(map[string]models.PresentationRecord),
		byProduct:     make(map[string]string),
		slides:        make(map[string][]models.SlideRecord),
		assets:        make(map[string][]models.ThumbnailAsset),
	}
}

func (m *Memory) FindByProduct(ctx context.Context, productID string) (*models.PresentationRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.byProduct[productID]
	if !ok {
		return nil, fmt.Errorf("presentation for product %s: %w", productID, ErrNotFound)
	}
	rec := m.presentations[id]
	return &rec, nil
}

func (m *Memory) CreatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.byProduct[rec.ProductID]; exists {
		return fmt.Errorf("presentation for product %s already exists", rec.ProductID)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	m.presentations[rec.ID] = *rec
	m.byProduct[rec.ProductID] = rec.ID
	return nil
}

func (m *Memory) UpdatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.presentations[rec.ID]; !ok {
		return fmt.Errorf("presentation %s: %w", rec.ID, ErrNotFound)
	}
	m.presentations[rec.ID] = *rec
	m.byProduct[rec.ProductID] = rec.ID
	return nil
}

func (m *Memory) DeletePresentation(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.presentations[id]
	if !ok {
		return fmt.Errorf("presentation %s: %w", id, ErrNotFound)
	}
	delete(m.presentations, id)
	delete(m.byProduct, rec.ProductID)
	delete(m.slides, id)
	delete(m.assets, id)
	return nil
}

func (m *Memory) ListSlides(ctx context.Context, presentationID string) ([]models.SlideRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.SlideRecord{}, m.slides[presentationID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SlideNumber < out[j].SlideNumber })
	return out, nil
}

func (m *Memory) ReplaceSlides(ctx context.Context, presentationID string, slides []models.SlideRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slides[presentationID] = append([]models.SlideRecord(nil), slides...)
	return nil
}

func (m *Memory) DeleteSlides(ctx context.Context, presentationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.slides[presentationID])
	delete(m.slides, presentationID)
	return n, nil
}

func (m *Memory) ListAssets(ctx context.Context, presentationID string) ([]models.ThumbnailAsset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]models.ThumbnailAsset{}, m.assets[presentationID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SlideNumber < out[j].SlideNumber })
	return out, nil
}

func (m *Memory) ReplaceAssets(ctx context.Context, presentationID string, assets []models.ThumbnailAsset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.assets[presentationID] = append([]models.ThumbnailAsset(nil), assets...)
	return nil
}

func (m *Memory) DeleteAssets(ctx context.Context, presentationID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.assets[presentationID])
	delete(m.assets, presentationID)
	return n, nil
}

func (m *Memory) Close() error { return nil }
