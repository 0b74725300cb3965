// Package config loads ingestion settings from an optional .env file, an
// optional YAML overlay and the process environment, in that order.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/gcp"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultMaxPayloadBytes is the largest upload accepted before any parsing.
const DefaultMaxPayloadBytes int64 = 200 << 20

// Storage backends.
const (
	StorageLocal = "local"
	StorageGCS   = "gcs"
	StorageS3    = "s3"
	StorageB2    = "b2"
)

// Repository backends.
const (
	RepositoryMemory    = "memory"
	RepositorySQLite    = "sqlite"
	RepositoryFirestore = "firestore"
)

type Config struct {
	ProjectID  string           `yaml:"projectId"`
	Port       string           `yaml:"port"`
	Storage    StorageConfig    `yaml:"storage"`
	Repository RepositoryConfig `yaml:"repository"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
}

type StorageConfig struct {
	Backend          string   `yaml:"backend"`
	LocalDir         string   `yaml:"localDir"`
	LocalBaseURL     string   `yaml:"localBaseUrl"`
	GCSBucket        string   `yaml:"gcsBucket"`
	GCSPublicBaseURL string   `yaml:"gcsPublicBaseUrl"`
	S3               S3Config `yaml:"s3"`
	B2               B2Config `yaml:"b2"`
	MaxAttempts      int      `yaml:"maxAttempts"`
}

type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"accessKeyId"`
	SecretAccessKey string `yaml:"secretAccessKey"`
	PublicBaseURL   string `yaml:"publicBaseUrl"`
	UsePathStyle    bool   `yaml:"usePathStyle"`
}

type B2Config struct {
	Bucket         string `yaml:"bucket"`
	Region         string `yaml:"region"`
	KeyID          string `yaml:"keyId"`
	ApplicationKey string `yaml:"applicationKey"`
	DownloadURL    string `yaml:"downloadUrl"`
}

type RepositoryConfig struct {
	Backend             string `yaml:"backend"`
	SQLitePath          string `yaml:"sqlitePath"`
	FirestoreDatabase   string `yaml:"firestoreDatabase"`
	FirestoreCollection string `yaml:"firestoreCollection"`
}

type IngestConfig struct {
	MaxPayloadBytes  int64 `yaml:"maxPayloadBytes"`
	SlideConcurrency int   `yaml:"slideConcurrency"`
}

// WorkflowConfig names the downstream workflow triggered after an ingestion.
// An empty ID disables the hand-off.
type WorkflowConfig struct {
	ID       string `yaml:"id"`
	Location string `yaml:"location"`
}

// Default returns the settings used when nothing is configured: local
// storage under ./data and an in-memory repository.
func Default() Config {
	return Config{
		Port: "8080",
		Storage: StorageConfig{
			Backend:     StorageLocal,
			LocalDir:    "data/storage",
			MaxAttempts: 4,
			B2:          B2Config{Region: "us-west-004"},
			S3:          S3Config{Region: "us-east-1"},
		},
		Repository: RepositoryConfig{
			Backend:             RepositoryMemory,
			SQLitePath:          "data/presentations.db",
			FirestoreDatabase:   "(default)",
			FirestoreCollection: "presentations",
		},
		Ingest: IngestConfig{
			MaxPayloadBytes:  DefaultMaxPayloadBytes,
			SlideConcurrency: 4,
		},
		Workflow: WorkflowConfig{Location: "us-central1"},
	}
}

// Load builds the configuration. A missing .env file is not an error; a
// YAML overlay named by INGEST_CONFIG_FILE must parse if it is set.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	if path := gcp.GetEnv("INGEST_CONFIG_FILE", ""); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	slog.Debug("Applied config overlay.", "path", path)
	return nil
}

func (c *Config) applyEnv() {
	c.ProjectID = gcp.GetEnv("PROJECT_ID", c.ProjectID)
	c.Port = gcp.GetEnv("PORT", c.Port)

	s := &c.Storage
	s.Backend = strings.ToLower(gcp.GetEnv("STORAGE_BACKEND", s.Backend))
	s.LocalDir = gcp.GetEnv("LOCAL_STORAGE_DIR", s.LocalDir)
	s.LocalBaseURL = gcp.GetEnv("LOCAL_STORAGE_BASE_URL", s.LocalBaseURL)
	s.GCSBucket = gcp.GetEnv("GCS_BUCKET", s.GCSBucket)
	s.GCSPublicBaseURL = gcp.GetEnv("GCS_PUBLIC_BASE_URL", s.GCSPublicBaseURL)
	s.S3.Bucket = gcp.GetEnv("S3_BUCKET", s.S3.Bucket)
	s.S3.Region = gcp.GetEnv("S3_REGION", s.S3.Region)
	s.S3.Endpoint = gcp.GetEnv("S3_ENDPOINT", s.S3.Endpoint)
	s.S3.AccessKeyID = gcp.GetEnv("S3_ACCESS_KEY_ID", s.S3.AccessKeyID)
	s.S3.SecretAccessKey = gcp.GetEnv("S3_SECRET_ACCESS_KEY", s.S3.SecretAccessKey)
	s.S3.PublicBaseURL = gcp.GetEnv("S3_PUBLIC_BASE_URL", s.S3.PublicBaseURL)
	s.S3.UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", s.S3.UsePathStyle)
	s.B2.Bucket = gcp.GetEnv("B2_BUCKET", s.B2.Bucket)
	s.B2.Region = gcp.GetEnv("B2_REGION", s.B2.Region)
	s.B2.KeyID = gcp.GetEnv("B2_KEY_ID", s.B2.KeyID)
	s.B2.ApplicationKey = gcp.GetEnv("B2_APPLICATION_KEY", s.B2.ApplicationKey)
	s.B2.DownloadURL = gcp.GetEnv("B2_DOWNLOAD_URL", s.B2.DownloadURL)
	s.MaxAttempts = getEnvInt("UPLOAD_MAX_ATTEMPTS", s.MaxAttempts)

	r := &c.Repository
	r.Backend = strings.ToLower(gcp.GetEnv("REPOSITORY_BACKEND", r.Backend))
	r.SQLitePath = gcp.GetEnv("SQLITE_PATH", r.SQLitePath)
	r.FirestoreDatabase = gcp.GetEnv("FIRESTORE_DATABASE", r.FirestoreDatabase)
	r.FirestoreCollection = gcp.GetEnv("FIRESTORE_COLLECTION", r.FirestoreCollection)

	c.Ingest.MaxPayloadBytes = int64(getEnvInt("MAX_PAYLOAD_BYTES", int(c.Ingest.MaxPayloadBytes)))
	c.Ingest.SlideConcurrency = getEnvInt("SLIDE_CONCURRENCY", c.Ingest.SlideConcurrency)

	c.Workflow.ID = gcp.GetEnv("WORKFLOW_ID", c.Workflow.ID)
	c.Workflow.Location = gcp.GetEnv("WORKFLOW_LOCATION", c.Workflow.Location)
}

func getEnvInt(key string, fallback int) int {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		slog.Warn("Ignoring non-numeric environment value.", "key", key, "value", raw)
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	raw := gcp.GetEnv(key, "")
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		slog.Warn("Ignoring non-boolean environment value.", "key", key, "value", raw)
		return fallback
	}
	return v
}

// Validate checks backend names and the keys each backend requires.
func (c Config) Validate() error {
	switch c.Storage.Backend {
	case StorageLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("LOCAL_STORAGE_DIR must be set for the local storage backend")
		}
	case StorageGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET must be set for the gcs storage backend")
		}
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for the s3 storage backend")
		}
	case StorageB2:
		b2 := c.Storage.B2
		if b2.Bucket == "" || b2.KeyID == "" || b2.ApplicationKey == "" {
			return fmt.Errorf("B2_BUCKET, B2_KEY_ID and B2_APPLICATION_KEY must be set for the b2 storage backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	switch c.Repository.Backend {
	case RepositoryMemory:
	case RepositorySQLite:
		if c.Repository.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH must be set for the sqlite repository")
		}
	case RepositoryFirestore:
		if c.ProjectID == "" {
			return fmt.Errorf("PROJECT_ID must be set for the firestore repository")
		}
	default:
		return fmt.Errorf("unknown repository backend %q", c.Repository.Backend)
	}

	if c.Workflow.ID != "" && c.ProjectID == "" {
		return fmt.Errorf("PROJECT_ID must be set when WORKFLOW_ID is configured")
	}
	if c.Ingest.MaxPayloadBytes <= 0 {
		return fmt.Errorf("MAX_PAYLOAD_BYTES must be positive, got %d", c.Ingest.MaxPayloadBytes)
	}
	if c.Ingest.SlideConcurrency <= 0 {
		return fmt.Errorf("SLIDE_CONCURRENCY must be positive, got %d", c.Ingest.SlideConcurrency)
	}
	if c.Storage.MaxAttempts <= 0 {
		return fmt.Errorf("UPLOAD_MAX_ATTEMPTS must be positive, got %d", c.Storage.MaxAttempts)
	}
	return nil
}
