package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusnotes/campus-notes-api/internal/models"
)

const (
	defaultNotePageSize = 12
	maxNotePageSize     = 50
	maxRecentNotes      = 24
)

const noteColumns = `n.id, n.title, n.description, n.subject_id, n.uploader_id, n.file_name, n.file_path, n.file_size, n.file_type, n.mime_type,
        n.semester, n.year_of_study, n.tags, n.visibility, n.college_domain, n.is_verified, n.is_flagged, n.flag_reason, n.flagged_by, n.flagged_at, n.created_at, n.updated_at,
        u.full_name AS uploader_full_name, u.email AS uploader_email, s.name AS subject_name, s.color AS subject_color,
        (SELECT COUNT(*) FROM note_downloads d WHERE d.note_id = n.id) AS download_count`

const noteJoins = `FROM notes n LEFT JOIN users u ON u.id = n.uploader_id LEFT JOIN subjects s ON s.id = n.subject_id`

// NoteRepository manages persistence for shared notes.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository constructs a NoteRepository.
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// escapeLike neutralizes LIKE wildcards in user-supplied search terms.
func escapeLike(term string) string {
	term = strings.ReplaceAll(term, `\`, `\\`)
	term = strings.ReplaceAll(term, `%`, `\%`)
	term = strings.ReplaceAll(term, `_`, `\_`)
	return term
}

// List returns one page of notes visible on the shared grid. There is no
// count query: callers infer more pages from a full result set.
func (r *NoteRepository) List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, error) {
	args := []interface{}{models.VisibilityPublic, models.VisibilityCollegeOnly}
	conditions := []string{"n.visibility IN ($1, $2)"}

	if filter.CollegeDomain != "" {
		conditions = append(conditions, fmt.Sprintf("n.college_domain = $%d", len(args)+1))
		args = append(args, filter.CollegeDomain)
	}
	if filter.SubjectID != "" {
		conditions = append(conditions, fmt.Sprintf("n.subject_id = $%d", len(args)+1))
		args = append(args, filter.SubjectID)
	}
	if filter.Semester != "" {
		conditions = append(conditions, fmt.Sprintf("n.semester = $%d", len(args)+1))
		args = append(args, filter.Semester)
	}
	if filter.YearOfStudy != nil {
		conditions = append(conditions, fmt.Sprintf("n.year_of_study = $%d", len(args)+1))
		args = append(args, *filter.YearOfStudy)
	}
	if len(filter.Tags) > 0 {
		conditions = append(conditions, fmt.Sprintf("n.tags && $%d", len(args)+1))
		args = append(args, pq.Array(filter.Tags))
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		if filter.SearchMode == models.SearchModeTitle {
			conditions = append(conditions, fmt.Sprintf("n.title ILIKE $%d", len(args)+1))
		} else {
			conditions = append(conditions, fmt.Sprintf("(n.title ILIKE $%d OR n.description ILIKE $%d)", len(args)+1, len(args)+1))
		}
		args = append(args, pattern)
	}

	page := filter.Page
	if page < 0 {
		page = 0
	}
	size := filter.PageSize
	if size <= 0 {
		size = defaultNotePageSize
	}
	if size > maxNotePageSize {
		size = maxNotePageSize
	}
	offset := page * size

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY n.created_at DESC LIMIT %d OFFSET %d",
		noteColumns, noteJoins, strings.Join(conditions, " AND "), size, offset)

	var notes []models.NoteDetail
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return notes, nil
}

// ListRecent returns the newest grid-visible notes, used for suggestions.
func (r *NoteRepository) ListRecent(ctx context.Context, collegeDomain string, limit int) ([]models.NoteDetail, error) {
	if limit <= 0 || limit > maxRecentNotes {
		limit = maxRecentNotes
	}

	args := []interface{}{models.VisibilityPublic, models.VisibilityCollegeOnly}
	conditions := []string{"n.visibility IN ($1, $2)"}
	if collegeDomain != "" {
		conditions = append(conditions, fmt.Sprintf("n.college_domain = $%d", len(args)+1))
		args = append(args, collegeDomain)
	}

	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY n.created_at DESC LIMIT %d",
		noteColumns, noteJoins, strings.Join(conditions, " AND "), limit)

	var notes []models.NoteDetail
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("list recent notes: %w", err)
	}
	return notes, nil
}

// ListByDomain returns the full catalog for a domain ordered newest first.
// Used by the administrative export, which has no page bound.
func (r *NoteRepository) ListByDomain(ctx context.Context, collegeDomain string) ([]models.NoteDetail, error) {
	args := []interface{}{}
	condition := "1=1"
	if collegeDomain != "" {
		condition = "n.college_domain = $1"
		args = append(args, collegeDomain)
	}
	query := fmt.Sprintf("SELECT %s %s WHERE %s ORDER BY n.created_at DESC", noteColumns, noteJoins, condition)

	var notes []models.NoteDetail
	if err := r.db.SelectContext(ctx, &notes, query, args...); err != nil {
		return nil, fmt.Errorf("list notes by domain: %w", err)
	}
	return notes, nil
}

// FindByID fetches a single note with uploader and subject context.
func (r *NoteRepository) FindByID(ctx context.Context, id string) (*models.NoteDetail, error) {
	query := fmt.Sprintf("SELECT %s %s WHERE n.id = $1", noteColumns, noteJoins)
	var note models.NoteDetail
	if err := r.db.GetContext(ctx, &note, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find note by id: %w", err)
	}
	return &note, nil
}

// Create inserts a new note record.
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if note.CreatedAt.IsZero() {
		note.CreatedAt = now
	}
	note.UpdatedAt = now
	if note.Tags == nil {
		note.Tags = pq.StringArray{}
	}
	const query = `INSERT INTO notes (id, title, description, subject_id, uploader_id, file_name, file_path, file_size, file_type, mime_type, semester, year_of_study, tags, visibility, college_domain, is_verified, is_flagged, flag_reason, flagged_by, flagged_at, created_at, updated_at)
        VALUES (:id, :title, :description, :subject_id, :uploader_id, :file_name, :file_path, :file_size, :file_type, :mime_type, :semester, :year_of_study, :tags, :visibility, :college_domain, :is_verified, :is_flagged, :flag_reason, :flagged_by, :flagged_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("create note: %w", err)
	}
	return nil
}

// Update rewrites the mutable metadata fields of a note.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	note.UpdatedAt = time.Now().UTC()
	if note.Tags == nil {
		note.Tags = pq.StringArray{}
	}
	const query = `UPDATE notes SET title = :title, description = :description, subject_id = :subject_id, semester = :semester, year_of_study = :year_of_study, tags = :tags, visibility = :visibility, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, note); err != nil {
		return fmt.Errorf("update note: %w", err)
	}
	return nil
}

// Delete removes a note row. The stored object is removed separately.
func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM notes WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	return nil
}
