package service

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
	"github.com/campusnotes/campus-notes-api/pkg/storage"
)

type noteCreator interface {
	Create(ctx context.Context, note *models.Note) error
}

type uploadStore interface {
	Save(ctx context.Context, path string, r io.Reader) error
	Delete(ctx context.Context, path string) error
}

type listingCache interface {
	Invalidate(ctx context.Context, pattern string) error
}

// UploadFile is one file handed to the upload fan-out.
type UploadFile struct {
	Name        string
	Size        int64
	ContentType string
	Open        func() (io.ReadCloser, error)
}

// UploadRequest carries the metadata shared by every file in the batch.
type UploadRequest struct {
	Title       string
	Description *string
	SubjectID   *string
	Semester    *string
	YearOfStudy *int
	Tags        []string
	Visibility  string
}

// UploadOutcome reports the result for a single file.
type UploadOutcome struct {
	FileName string       `json:"file_name"`
	Success  bool         `json:"success"`
	NoteID   string       `json:"note_id,omitempty"`
	Error    string       `json:"error,omitempty"`
	FilePath string       `json:"-"`
	Note     *models.Note `json:"-"`
}

// UploadSummary aggregates a whole batch.
type UploadSummary struct {
	Uploaded int             `json:"uploaded"`
	Failed   int             `json:"failed"`
	Results  []UploadOutcome `json:"results"`
}

// UploadService stores files and registers their note rows, one goroutine
// per file with independent outcomes.
type UploadService struct {
	notes    noteCreator
	store    uploadStore
	listings listingCache
	rules    storage.FileRules
	logger   *zap.Logger
}

// NewUploadService constructs the upload service. The listing cache may be
// nil when caching is disabled.
func NewUploadService(notes noteCreator, store uploadStore, listings listingCache, rules storage.FileRules, logger *zap.Logger) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadService{notes: notes, store: store, listings: listings, rules: rules, logger: logger}
}

// UploadAll processes the batch concurrently. A partial failure still
// succeeds; zero stored files is an error.
func (s *UploadService) UploadAll(ctx context.Context, uploader *models.JWTClaims, req UploadRequest, files []UploadFile) (*UploadSummary, error) {
	if len(files) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no files provided")
	}
	visibility := models.NoteVisibility(req.Visibility)
	if req.Visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !visibility.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown visibility")
	}

	outcomes := make([]UploadOutcome, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		go func(idx int, f UploadFile) {
			defer wg.Done()
			outcomes[idx] = s.uploadOne(ctx, uploader, req, visibility, f, len(files) == 1)
		}(i, file)
	}
	wg.Wait()

	summary := &UploadSummary{Results: outcomes}
	for _, outcome := range outcomes {
		if outcome.Success {
			summary.Uploaded++
		} else {
			summary.Failed++
		}
	}
	if summary.Uploaded == 0 {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "all uploads failed: "+outcomes[0].Error)
	}

	// New rows change every listing page; drop cached pages once per batch.
	if s.listings != nil {
		if err := s.listings.Invalidate(ctx, noteCachePrefix+"*"); err != nil {
			s.logger.Warn("failed to invalidate note listings cache", zap.Error(err))
		}
	}
	return summary, nil
}

func (s *UploadService) uploadOne(ctx context.Context, uploader *models.JWTClaims, req UploadRequest, visibility models.NoteVisibility, file UploadFile, useBatchTitle bool) UploadOutcome {
	outcome := UploadOutcome{FileName: file.Name}

	if err := s.rules.ValidateFile(file.Name, file.Size); err != nil {
		outcome.Error = err.Error()
		return outcome
	}

	reader, err := file.Open()
	if err != nil {
		outcome.Error = "could not read file"
		return outcome
	}
	defer reader.Close()

	path := storage.GenerateFilePath(uploader.CollegeDomain, uploader.UserID, file.Name)
	if err := s.store.Save(ctx, path, reader); err != nil {
		s.logger.Warn("upload storage write failed", zap.String("path", path), zap.Error(err))
		outcome.Error = "failed to store file"
		return outcome
	}
	outcome.FilePath = path

	title := strings.TrimSuffix(file.Name, filepath.Ext(file.Name))
	if useBatchTitle && strings.TrimSpace(req.Title) != "" {
		title = req.Title
	}
	contentType := file.ContentType
	note := &models.Note{
		Title:         title,
		Description:   req.Description,
		SubjectID:     req.SubjectID,
		UploaderID:    uploader.UserID,
		FileName:      file.Name,
		FilePath:      path,
		FileSize:      file.Size,
		FileType:      strings.TrimPrefix(strings.ToLower(filepath.Ext(file.Name)), "."),
		MimeType:      optional(contentType),
		Semester:      req.Semester,
		YearOfStudy:   req.YearOfStudy,
		Tags:          req.Tags,
		Visibility:    visibility,
		CollegeDomain: optional(uploader.CollegeDomain),
	}
	if err := s.notes.Create(ctx, note); err != nil {
		s.logger.Warn("note insert failed after upload", zap.String("path", path), zap.Error(err))
		// The stored object is orphaned without its row; remove it.
		if delErr := s.store.Delete(ctx, path); delErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.String("path", path), zap.Error(delErr))
		}
		outcome.Error = "failed to save note record"
		return outcome
	}

	outcome.Success = true
	outcome.NoteID = note.ID
	outcome.Note = note
	return outcome
}
