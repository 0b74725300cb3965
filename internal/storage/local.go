package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// Local stores objects as files under a root directory.
type Local struct {
	root    string
	baseURL string
}

// NewLocal creates root if needed. Locators are baseURL + "/" + key, or the
// file path itself when baseURL is empty.
func NewLocal(root, baseURL string) (*Local, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root must be provided")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve storage root %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &Local{root: abs, baseURL: baseURL}, nil
}

// Root returns the absolute directory objects are written under.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) path(key string) (string, string, error) {
	cleaned, err := CleanKey(key)
	if err != nil {
		return "", "", err
	}
	return cleaned, filepath.Join(l.root, filepath.FromSlash(cleaned)), nil
}

// Upload writes to a temp file in the target directory and renames it into
// place, so readers never see a partial object.
func (l *Local) Upload(ctx context.Context, data []byte, key, contentType string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cleaned, dest, err := l.path(key)
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Chmod(tempPath, 0o644); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return nil, fmt.Errorf("failed to rename temp file: %w", err)
	}

	return &Object{Key: cleaned, Locator: l.URLFor(cleaned), Size: int64(len(data))}, nil
}

func (l *Local) Delete(ctx context.Context, key string) (bool, error) {
	_, p, err := l.path(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(p); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return true, nil
}

func (l *Local) Exists(ctx context.Context, key string) (bool, error) {
	_, p, err := l.path(key)
	if err != nil {
		return false, err
	}
	info, err := os.Stat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", key, err)
	}
	return !info.IsDir(), nil
}

// Read returns the content stored under key.
func (l *Local) Read(key string) ([]byte, error) {
	_, p, err := l.path(key)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

func (l *Local) URLFor(key string) string {
	if l.baseURL == "" {
		return filepath.Join(l.root, filepath.FromSlash(key))
	}
	return joinURL(l.baseURL, key)
}
