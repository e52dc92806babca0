package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusnotes/campus-notes-api/internal/models"
)

// DownloadRepository appends to the note download audit log.
type DownloadRepository struct {
	db *sqlx.DB
}

// NewDownloadRepository constructs a DownloadRepository.
func NewDownloadRepository(db *sqlx.DB) *DownloadRepository {
	return &DownloadRepository{db: db}
}

// Insert records a single download event.
func (r *DownloadRepository) Insert(ctx context.Context, download *models.NoteDownload) error {
	if download.ID == "" {
		download.ID = uuid.NewString()
	}
	if download.CreatedAt.IsZero() {
		download.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO note_downloads (id, note_id, user_id, ip_address, user_agent, created_at)
        VALUES (:id, :note_id, :user_id, :ip_address, :user_agent, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, download); err != nil {
		return fmt.Errorf("insert note download: %w", err)
	}
	return nil
}

// CountByNote aggregates download events for one note.
func (r *DownloadRepository) CountByNote(ctx context.Context, noteID string) (int, error) {
	const query = `SELECT COUNT(*) FROM note_downloads WHERE note_id = $1`
	var count int
	if err := r.db.GetContext(ctx, &count, query, noteID); err != nil {
		return 0, fmt.Errorf("count note downloads: %w", err)
	}
	return count, nil
}
