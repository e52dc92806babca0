package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
	"github.com/campusnotes/campus-notes-api/pkg/jobs"
	"github.com/campusnotes/campus-notes-api/pkg/storage"
)

const noteCachePrefix = "notes:list:"

// maxNotePageSize mirrors the repository's LIMIT cap so hasMore and the
// reported limit describe the page size the query actually ran with.
const maxNotePageSize = 50

type noteRepository interface {
	List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, error)
	ListRecent(ctx context.Context, collegeDomain string, limit int) ([]models.NoteDetail, error)
	FindByID(ctx context.Context, id string) (*models.NoteDetail, error)
	Create(ctx context.Context, note *models.Note) error
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id string) error
}

type presigner interface {
	PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

type jobQueue interface {
	Enqueue(job jobs.Job) error
}

// NoteConfig tunes listing, suggestions and download link lifetime.
type NoteConfig struct {
	PageSize       int
	SuggestionSize int
	CacheTTL       time.Duration
	DownloadTTL    time.Duration
}

// CreateNoteRequest holds payload for registering an already-stored file as a note.
type CreateNoteRequest struct {
	Title       string   `json:"title" validate:"required"`
	Description *string  `json:"description"`
	SubjectID   *string  `json:"subject_id"`
	FileName    string   `json:"file_name" validate:"required"`
	FilePath    string   `json:"file_path" validate:"required"`
	FileSize    int64    `json:"file_size" validate:"required,gt=0"`
	FileType    string   `json:"file_type" validate:"required"`
	MimeType    *string  `json:"mime_type"`
	Semester    *string  `json:"semester"`
	YearOfStudy *int     `json:"year_of_study"`
	Tags        []string `json:"tags"`
	Visibility  string   `json:"visibility"`
}

// UpdateNoteRequest holds the partial update payload; nil fields stay untouched.
type UpdateNoteRequest struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	SubjectID   *string   `json:"subject_id"`
	Semester    *string   `json:"semester"`
	YearOfStudy *int      `json:"year_of_study"`
	Tags        *[]string `json:"tags"`
	Visibility  *string   `json:"visibility"`
}

// NoteListResult is one page of display notes plus pagination metadata.
type NoteListResult struct {
	Notes      []models.DisplayNote `json:"notes"`
	Pagination models.Pagination    `json:"pagination"`
}

// DownloadResult carries a time-limited link for one note file.
type DownloadResult struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// NoteService handles the shared note catalog use-cases.
type NoteService struct {
	repo      noteRepository
	store     presigner
	cache     *CacheService
	queue     jobQueue
	validator *validator.Validate
	logger    *zap.Logger
	cfg       NoteConfig
	shuffle   func(n int, swap func(i, j int))
}

// NewNoteService constructs the note service.
func NewNoteService(repo noteRepository, store presigner, cache *CacheService, queue jobQueue, validate *validator.Validate, logger *zap.Logger, cfg NoteConfig) *NoteService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 12
	}
	if cfg.SuggestionSize <= 0 {
		cfg.SuggestionSize = 24
	}
	if cfg.DownloadTTL <= 0 {
		cfg.DownloadTTL = time.Hour
	}
	return &NoteService{
		repo:      repo,
		store:     store,
		cache:     cache,
		queue:     queue,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
		shuffle:   rand.Shuffle,
	}
}

// CacheKey canonicalizes the full query identity. Two filters that would run
// the same SQL always produce the same key.
func CacheKey(filter models.NoteFilter) string {
	mode := filter.SearchMode
	if mode == "" {
		mode = models.SearchModeAll
	}
	year := ""
	if filter.YearOfStudy != nil {
		year = strconv.Itoa(*filter.YearOfStudy)
	}
	parts := []string{
		filter.CollegeDomain,
		string(mode),
		strings.TrimSpace(filter.Search),
		filter.SubjectID,
		filter.Semester,
		year,
		strings.Join(filter.Tags, ","),
		strconv.Itoa(filter.Page),
	}
	return noteCachePrefix + strings.Join(parts, "|")
}

// List returns one page of grid-visible notes. Only page zero is cached:
// deeper pages are always fetched fresh.
func (s *NoteService) List(ctx context.Context, filter models.NoteFilter) (*NoteListResult, error) {
	if filter.Page < 0 {
		filter.Page = 0
	}
	if filter.PageSize <= 0 {
		filter.PageSize = s.cfg.PageSize
	}
	if filter.PageSize > maxNotePageSize {
		filter.PageSize = maxNotePageSize
	}
	filter.Search = strings.TrimSpace(filter.Search)

	key := CacheKey(filter)
	if filter.Page == 0 && s.cache.Enabled() {
		var cached NoteListResult
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return &cached, nil
		}
	}

	rows, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to list notes")
	}

	result := &NoteListResult{
		Notes: displayAll(rows),
		Pagination: models.Pagination{
			Page:    filter.Page,
			Limit:   filter.PageSize,
			HasMore: len(rows) == filter.PageSize,
		},
	}

	if filter.Page == 0 && s.cache.Enabled() {
		if err := s.cache.Set(ctx, key, result, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("failed to cache note page", zap.String("key", key), zap.Error(err))
		}
	}
	return result, nil
}

// Suggestions returns up to one page of recent notes in random order.
func (s *NoteService) Suggestions(ctx context.Context, collegeDomain string) ([]models.DisplayNote, error) {
	rows, err := s.repo.ListRecent(ctx, collegeDomain, s.cfg.SuggestionSize)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to load suggestions")
	}

	notes := displayAll(rows)
	s.shuffle(len(notes), func(i, j int) { notes[i], notes[j] = notes[j], notes[i] })
	if len(notes) > s.cfg.PageSize {
		notes = notes[:s.cfg.PageSize]
	}
	return notes, nil
}

// Get returns one note. Private notes are invisible to anyone but their
// owner or an admin.
func (s *NoteService) Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.DisplayNote, error) {
	detail, err := s.loadVisible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	display := detail.Display()
	return &display, nil
}

// Create registers a note row for a file already present in storage.
func (s *NoteService) Create(ctx context.Context, uploader *models.JWTClaims, req CreateNoteRequest) (*models.DisplayNote, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "missing required note fields")
	}
	if err := storage.ValidateObjectPath(req.FilePath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid file path")
	}
	visibility := models.NoteVisibility(req.Visibility)
	if req.Visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visibility %q", req.Visibility))
	}

	note := &models.Note{
		Title:         req.Title,
		Description:   req.Description,
		SubjectID:     req.SubjectID,
		UploaderID:    uploader.UserID,
		FileName:      req.FileName,
		FilePath:      req.FilePath,
		FileSize:      req.FileSize,
		FileType:      strings.ToLower(req.FileType),
		MimeType:      req.MimeType,
		Semester:      req.Semester,
		YearOfStudy:   req.YearOfStudy,
		Tags:          req.Tags,
		Visibility:    visibility,
		CollegeDomain: optional(uploader.CollegeDomain),
	}
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to create note")
	}

	s.invalidateListings(ctx)

	created, err := s.repo.FindByID(ctx, note.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load created note")
	}
	display := created.Display()
	return &display, nil
}

// Update applies a partial update to a note owned by the actor (or any note
// for admins).
func (s *NoteService) Update(ctx context.Context, id string, actor *models.JWTClaims, req UpdateNoteRequest) (*models.DisplayNote, error) {
	detail, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return nil, err
	}

	note := detail.Note
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "title cannot be empty")
		}
		note.Title = *req.Title
	}
	if req.Description != nil {
		note.Description = req.Description
	}
	if req.SubjectID != nil {
		note.SubjectID = req.SubjectID
	}
	if req.Semester != nil {
		note.Semester = req.Semester
	}
	if req.YearOfStudy != nil {
		note.YearOfStudy = req.YearOfStudy
	}
	if req.Tags != nil {
		note.Tags = *req.Tags
	}
	if req.Visibility != nil {
		visibility := models.NoteVisibility(*req.Visibility)
		if !visibility.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visibility %q", *req.Visibility))
		}
		note.Visibility = visibility
	}

	if err := s.repo.Update(ctx, &note); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to update note")
	}

	s.invalidateListings(ctx)

	updated, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load updated note")
	}
	display := updated.Display()
	return &display, nil
}

// Delete removes the note row, then hands the stored object to the
// best-effort delete queue.
func (s *NoteService) Delete(ctx context.Context, id string, actor *models.JWTClaims) error {
	detail, err := s.loadOwned(ctx, id, actor)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to delete note")
	}

	s.invalidateListings(ctx)

	if s.queue != nil {
		if err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeStorageDelete,
			Payload: StorageDeletePayload{Path: detail.FilePath},
		}); err != nil {
			s.logger.Warn("failed to enqueue storage delete", zap.String("note_id", id), zap.Error(err))
		}
	}
	return nil
}

// Download presigns a one-hour link for the note file and records the
// download in the audit log off the request path.
func (s *NoteService) Download(ctx context.Context, id string, viewer *models.JWTClaims, ip, userAgent string) (*DownloadResult, error) {
	detail, err := s.loadVisible(ctx, id, viewer)
	if err != nil {
		return nil, err
	}
	if err := storage.ValidateObjectPath(detail.FilePath); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "note has an invalid file path")
	}

	url, err := s.store.PresignedURL(ctx, detail.FilePath, s.cfg.DownloadTTL)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate download link")
	}

	if s.queue != nil {
		download := models.NoteDownload{
			NoteID:    id,
			IPAddress: ip,
			UserAgent: userAgent,
		}
		if viewer != nil {
			userID := viewer.UserID
			download.UserID = &userID
		}
		if err := s.queue.Enqueue(jobs.Job{
			ID:      uuid.NewString(),
			Type:    JobTypeDownloadAudit,
			Payload: DownloadAuditPayload{Download: download},
		}); err != nil {
			s.logger.Warn("failed to enqueue download audit", zap.String("note_id", id), zap.Error(err))
		}
	}

	return &DownloadResult{DownloadURL: url, Filename: detail.FileName}, nil
}

func (s *NoteService) loadVisible(ctx context.Context, id string, viewer *models.JWTClaims) (*models.NoteDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to load note")
	}
	if detail.Visibility == models.VisibilityPrivate && !isOwnerOrAdmin(detail, viewer) {
		// Existence of private notes is not disclosed.
		return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
	}
	return detail, nil
}

func (s *NoteService) loadOwned(ctx context.Context, id string, actor *models.JWTClaims) (*models.NoteDetail, error) {
	detail, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "note not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrBadRequest.Code, appErrors.ErrBadRequest.Status, "failed to load note")
	}
	if !isOwnerOrAdmin(detail, actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the uploader may modify this note")
	}
	return detail, nil
}

func (s *NoteService) invalidateListings(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, noteCachePrefix+"*"); err != nil {
		s.logger.Warn("failed to invalidate note listings cache", zap.Error(err))
	}
}

func isOwnerOrAdmin(detail *models.NoteDetail, claims *models.JWTClaims) bool {
	if claims == nil {
		return false
	}
	return claims.Role == models.RoleAdmin || claims.UserID == detail.UploaderID
}

func displayAll(rows []models.NoteDetail) []models.DisplayNote {
	notes := make([]models.DisplayNote, 0, len(rows))
	for _, row := range rows {
		notes = append(notes, row.Display())
	}
	return notes
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
