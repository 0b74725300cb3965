package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("INGEST_CONFIG_FILE", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("REPOSITORY_BACKEND", "")
	os.Unsetenv("STORAGE_BACKEND")
	os.Unsetenv("REPOSITORY_BACKEND")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StorageLocal, cfg.Storage.Backend)
	assert.Equal(t, RepositoryMemory, cfg.Repository.Backend)
	assert.Equal(t, DefaultMaxPayloadBytes, cfg.Ingest.MaxPayloadBytes)
	assert.Equal(t, 4, cfg.Ingest.SlideConcurrency)
	assert.Equal(t, 4, cfg.Storage.MaxAttempts)
}

func TestLoadOverlayThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ingest.yaml")
	overlay := `
projectId: overlay-project
storage:
  backend: s3
  s3:
    bucket: decks
    usePathStyle: true
repository:
  backend: sqlite
  sqlitePath: /tmp/overlay.db
ingest:
  slideConcurrency: 2
`
	require.NoError(t, os.WriteFile(path, []byte(overlay), 0o644))
	t.Setenv("INGEST_CONFIG_FILE", path)
	t.Setenv("S3_BUCKET", "env-decks")
	t.Setenv("SLIDE_CONCURRENCY", "6")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "overlay-project", cfg.ProjectID)
	assert.Equal(t, StorageS3, cfg.Storage.Backend)
	assert.Equal(t, "env-decks", cfg.Storage.S3.Bucket)
	assert.True(t, cfg.Storage.S3.UsePathStyle)
	assert.Equal(t, "us-east-1", cfg.Storage.S3.Region)
	assert.Equal(t, RepositorySQLite, cfg.Repository.Backend)
	assert.Equal(t, "/tmp/overlay.db", cfg.Repository.SQLitePath)
	assert.Equal(t, 6, cfg.Ingest.SlideConcurrency)
}

func TestLoadBadOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0o644))
	t.Setenv("INGEST_CONFIG_FILE", path)

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"unknown storage", func(c *Config) { c.Storage.Backend = "ftp" }, true},
		{"gcs without bucket", func(c *Config) { c.Storage.Backend = StorageGCS }, true},
		{"gcs with bucket", func(c *Config) { c.Storage.Backend = StorageGCS; c.Storage.GCSBucket = "b" }, false},
		{"b2 missing key", func(c *Config) { c.Storage.Backend = StorageB2; c.Storage.B2.Bucket = "b" }, true},
		{"firestore without project", func(c *Config) { c.Repository.Backend = RepositoryFirestore }, true},
		{"unknown repository", func(c *Config) { c.Repository.Backend = "mongo" }, true},
		{"workflow without project", func(c *Config) { c.Workflow.ID = "wf" }, true},
		{"zero concurrency", func(c *Config) { c.Ingest.SlideConcurrency = 0 }, true},
		{"zero payload limit", func(c *Config) { c.Ingest.MaxPayloadBytes = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("SLIDE_CONCURRENCY", "many")
	assert.Equal(t, 3, getEnvInt("SLIDE_CONCURRENCY", 3))
}
