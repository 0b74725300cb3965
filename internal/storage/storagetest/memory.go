// Package storagetest provides an in-memory storage backend with failure
// injection for tests.
package storagetest

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/storage"
)

// ErrInjected is returned for keys rejected by FailUpload.
var ErrInjected = errors.New("injected storage failure")

type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
	// FailUpload, when set, makes Upload fail for keys it returns true for.
	FailUpload func(key string) bool
	uploads    int
}

func NewMemory() *Memory {
	return &Memory{objects: map[string][]byte{}, types: map[string]string{}}
}

func (m *Memory) Upload(ctx context.Context, data []byte, key, contentType string) (*storage.Object, error) {
	cleaned, err := storage.CleanKey(key)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.uploads++
	if m.FailUpload != nil && m.FailUpload(cleaned) {
		return nil, ErrInjected
	}
	m.objects[cleaned] = append([]byte(nil), data...)
	m.types[cleaned] = contentType
	return &storage.Object{Key: cleaned, Locator: m.URLFor(cleaned), Size: int64(len(data))}, nil
}

func (m *Memory) Delete(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	delete(m.objects, key)
	delete(m.types, key)
	return ok, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok, nil
}

func (m *Memory) URLFor(key string) string {
	return "mem://" + key
}

// Get returns the stored bytes and content type.
func (m *Memory) Get(key string) ([]byte, string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, m.types[key], ok
}

// Keys lists stored keys with the given prefix, sorted.
func (m *Memory) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for k := range m.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// Uploads counts Upload calls, failed ones included.
func (m *Memory) Uploads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.uploads
}
