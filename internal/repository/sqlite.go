package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/ABDULS21985/vivaexcel-sub001/internal/models"
	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLite stores records in a single database file. Metadata is kept as a
// JSON column; slides and thumbnails cascade with their presentation.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at dbPath and makes sure
// the tables exist. ":memory:" is accepted for tests.
func OpenSQLite(dbPath string) (*SQLite, error) {
	dsn := "file::memory:?_foreign_keys=1"
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?_foreign_keys=1&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.createTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	slog.Debug("Database initialized.", "path", dbPath)
	return s, nil
}

func (s *SQLite) createTables() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS presentations (
			id TEXT PRIMARY KEY,
			product_id TEXT UNIQUE NOT NULL,
			original_filename TEXT NOT NULL DEFAULT '',
			format TEXT NOT NULL DEFAULT '',
			file_key TEXT NOT NULL DEFAULT '',
			file_locator TEXT NOT NULL DEFAULT '',
			file_size INTEGER NOT NULL DEFAULT 0,
			file_hash TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL DEFAULT '',
			introspected INTEGER NOT NULL DEFAULT 0,
			metadata TEXT NOT NULL DEFAULT '{}',
			document_page_count INTEGER NOT NULL DEFAULT 0,
			ingestion_id TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS slides (
			presentation_id TEXT NOT NULL REFERENCES presentations(id) ON DELETE CASCADE,
			slide_number INTEGER NOT NULL,
			title TEXT,
			has_notes INTEGER NOT NULL DEFAULT 0,
			notes_preview TEXT,
			content_type TEXT NOT NULL,
			PRIMARY KEY (presentation_id, slide_number)
		);`,
		`CREATE TABLE IF NOT EXISTS thumbnails (
			presentation_id TEXT NOT NULL REFERENCES presentations(id) ON DELETE CASCADE,
			slide_number INTEGER NOT NULL,
			thumbnail_locator TEXT NOT NULL DEFAULT '',
			thumbnail_key TEXT NOT NULL DEFAULT '',
			preview_locator TEXT NOT NULL DEFAULT '',
			preview_key TEXT NOT NULL DEFAULT '',
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			source TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (presentation_id, slide_number)
		);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

const presentationColumns = `id, product_id, original_filename, format, file_key, file_locator, file_size,
	file_hash, status, introspected, metadata, document_page_count, ingestion_id, created_at, updated_at`

func (s *SQLite) FindByProduct(ctx context.Context, productID string) (*models.PresentationRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+presentationColumns+` FROM presentations WHERE product_id = ?`, productID)

	var rec models.PresentationRecord
	var metadata string
	err := row.Scan(&rec.ID, &rec.ProductID, &rec.OriginalFilename, &rec.Format, &rec.FileKey, &rec.FileLocator,
		&rec.FileSize, &rec.FileHash, &rec.Status, &rec.Introspected, &metadata, &rec.DocumentPageCount,
		&rec.IngestionID, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("presentation for product %s: %w", productID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query presentation: %w", err)
	}
	if err := json.Unmarshal([]byte(metadata), &rec.Metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata for %s: %w", rec.ID, err)
	}
	return &rec, nil
}

func (s *SQLite) CreatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO presentations (`+presentationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.ProductID, rec.OriginalFilename, rec.Format, rec.FileKey, rec.FileLocator, rec.FileSize,
		rec.FileHash, rec.Status, rec.Introspected, string(metadata), rec.DocumentPageCount, rec.IngestionID,
		rec.CreatedAt.UTC(), rec.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert presentation: %w", err)
	}
	return nil
}

func (s *SQLite) UpdatePresentation(ctx context.Context, rec *models.PresentationRecord) error {
	metadata, err := json.Marshal(rec.Metadata)
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `UPDATE presentations SET
		product_id = ?, original_filename = ?, format = ?, file_key = ?, file_locator = ?, file_size = ?,
		file_hash = ?, status = ?, introspected = ?, metadata = ?, document_page_count = ?, ingestion_id = ?,
		updated_at = ?
		WHERE id = ?`,
		rec.ProductID, rec.OriginalFilename, rec.Format, rec.FileKey, rec.FileLocator, rec.FileSize,
		rec.FileHash, rec.Status, rec.Introspected, string(metadata), rec.DocumentPageCount, rec.IngestionID,
		rec.UpdatedAt.UTC(), rec.ID)
	if err != nil {
		return fmt.Errorf("failed to update presentation: %w", err)
	}
	return expectRow(res, rec.ID)
}

func (s *SQLite) DeletePresentation(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presentations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete presentation: %w", err)
	}
	return expectRow(res, id)
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("presentation %s: %w", id, ErrNotFound)
	}
	return nil
}

func (s *SQLite) ListSlides(ctx context.Context, presentationID string) ([]models.SlideRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slide_number, title, has_notes, notes_preview, content_type
		FROM slides WHERE presentation_id = ? ORDER BY slide_number`, presentationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query slides: %w", err)
	}
	defer rows.Close()

	slides := []models.SlideRecord{}
	for rows.Next() {
		var rec models.SlideRecord
		var title, notes sql.NullString
		if err := rows.Scan(&rec.SlideNumber, &title, &rec.HasNotes, &notes, &rec.ContentType); err != nil {
			return nil, fmt.Errorf("failed to scan slide: %w", err)
		}
		rec.Title = fromNull(title)
		rec.NotesPreview = fromNull(notes)
		slides = append(slides, rec)
	}
	return slides, rows.Err()
}

func (s *SQLite) ReplaceSlides(ctx context.Context, presentationID string, slides []models.SlideRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM slides WHERE presentation_id = ?`, presentationID); err != nil {
			return fmt.Errorf("failed to clear slides: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO slides
			(presentation_id, slide_number, title, has_notes, notes_preview, content_type) VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare slide insert: %w", err)
		}
		defer stmt.Close()
		for _, rec := range slides {
			if _, err := stmt.ExecContext(ctx, presentationID, rec.SlideNumber, toNull(rec.Title), rec.HasNotes,
				toNull(rec.NotesPreview), string(rec.ContentType)); err != nil {
				return fmt.Errorf("failed to insert slide %d: %w", rec.SlideNumber, err)
			}
		}
		return nil
	})
}

func (s *SQLite) DeleteSlides(ctx context.Context, presentationID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM slides WHERE presentation_id = ?`, presentationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete slides: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) ListAssets(ctx context.Context, presentationID string) ([]models.ThumbnailAsset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT slide_number, thumbnail_locator, thumbnail_key, preview_locator,
		preview_key, width, height, source FROM thumbnails WHERE presentation_id = ? ORDER BY slide_number`, presentationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query thumbnails: %w", err)
	}
	defer rows.Close()

	assets := []models.ThumbnailAsset{}
	for rows.Next() {
		var a models.ThumbnailAsset
		if err := rows.Scan(&a.SlideNumber, &a.ThumbnailLocator, &a.ThumbnailKey, &a.PreviewLocator,
			&a.PreviewKey, &a.Width, &a.Height, &a.Source); err != nil {
			return nil, fmt.Errorf("failed to scan thumbnail: %w", err)
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

func (s *SQLite) ReplaceAssets(ctx context.Context, presentationID string, assets []models.ThumbnailAsset) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM thumbnails WHERE presentation_id = ?`, presentationID); err != nil {
			return fmt.Errorf("failed to clear thumbnails: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO thumbnails
			(presentation_id, slide_number, thumbnail_locator, thumbnail_key, preview_locator, preview_key, width, height, source)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("failed to prepare thumbnail insert: %w", err)
		}
		defer stmt.Close()
		for _, a := range assets {
			if _, err := stmt.ExecContext(ctx, presentationID, a.SlideNumber, a.ThumbnailLocator, a.ThumbnailKey,
				a.PreviewLocator, a.PreviewKey, a.Width, a.Height, a.Source); err != nil {
				return fmt.Errorf("failed to insert thumbnail %d: %w", a.SlideNumber, err)
			}
		}
		return nil
	})
}

func (s *SQLite) DeleteAssets(ctx context.Context, presentationID string) (int, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM thumbnails WHERE presentation_id = ?`, presentationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete thumbnails: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func toNull(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
