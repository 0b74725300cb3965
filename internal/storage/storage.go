// Package storage provides the object stores that hold original uploads and
// generated slide images. Every backend implements Storage; New picks one
// from configuration.
package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/config"
)

// ErrInvalidKey is returned for keys that are empty, absolute or escape the
// store's root.
var ErrInvalidKey = errors.New("invalid storage key")

// Object describes a stored blob.
type Object struct {
	Key     string `json:"key"`
	Locator string `json:"locator"`
	Size    int64  `json:"size"`
}

type Storage interface {
	// Upload writes data under key, replacing any existing object.
	Upload(ctx context.Context, data []byte, key, contentType string) (*Object, error)
	// Delete removes key and reports whether an object was there.
	Delete(ctx context.Context, key string) (bool, error)
	Exists(ctx context.Context, key string) (bool, error)
	// URLFor returns the public locator for key without touching the store.
	URLFor(key string) string
}

// New builds the backend named by cfg.Backend.
func New(ctx context.Context, cfg config.StorageConfig) (Storage, error) {
	retry := NewRetrier(cfg.MaxAttempts)
	switch cfg.Backend {
	case config.StorageLocal:
		return NewLocal(cfg.LocalDir, cfg.LocalBaseURL)
	case config.StorageGCS:
		return NewGCS(ctx, cfg.GCSBucket, cfg.GCSPublicBaseURL, retry)
	case config.StorageS3:
		return NewS3(ctx, cfg.S3, retry)
	case config.StorageB2:
		return NewB2(ctx, cfg.B2, retry)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

// CleanKey validates key and returns it in canonical slash form.
func CleanKey(key string) (string, error) {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
		}
	}
	cleaned := path.Clean(key)
	if cleaned == "." {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
