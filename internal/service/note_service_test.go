package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
	"github.com/campusnotes/campus-notes-api/pkg/jobs"
)

type fakeNoteRepo struct {
	notes      map[string]models.NoteDetail
	listResult []models.NoteDetail
	listErr    error
	listCalls  int
	lastFilter models.NoteFilter
	recent     []models.NoteDetail
	recentErr  error
	created    []*models.Note
	updated    []*models.Note
	deleted    []string
}

func (f *fakeNoteRepo) List(ctx context.Context, filter models.NoteFilter) ([]models.NoteDetail, error) {
	f.listCalls++
	f.lastFilter = filter
	if f.listErr != nil {
		return nil, f.listErr
	}
	// Emulate the query LIMIT.
	if filter.PageSize > 0 && len(f.listResult) > filter.PageSize {
		return f.listResult[:filter.PageSize], nil
	}
	return f.listResult, nil
}

func (f *fakeNoteRepo) ListRecent(ctx context.Context, domain string, limit int) ([]models.NoteDetail, error) {
	if f.recentErr != nil {
		return nil, f.recentErr
	}
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

func (f *fakeNoteRepo) FindByID(ctx context.Context, id string) (*models.NoteDetail, error) {
	if detail, ok := f.notes[id]; ok {
		return &detail, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeNoteRepo) Create(ctx context.Context, note *models.Note) error {
	if note.ID == "" {
		note.ID = fmt.Sprintf("generated-%d", len(f.created)+1)
	}
	f.created = append(f.created, note)
	if f.notes == nil {
		f.notes = make(map[string]models.NoteDetail)
	}
	f.notes[note.ID] = models.NoteDetail{Note: *note}
	return nil
}

func (f *fakeNoteRepo) Update(ctx context.Context, note *models.Note) error {
	f.updated = append(f.updated, note)
	f.notes[note.ID] = models.NoteDetail{Note: *note}
	return nil
}

func (f *fakeNoteRepo) Delete(ctx context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	delete(f.notes, id)
	return nil
}

type fakePresigner struct {
	url      string
	err      error
	lastPath string
	lastTTL  time.Duration
}

func (f *fakePresigner) PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	f.lastPath = path
	f.lastTTL = ttl
	return f.url, f.err
}

type fakeQueue struct {
	jobs []jobs.Job
	err  error
}

func (f *fakeQueue) Enqueue(job jobs.Job) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type memCacheRepo struct {
	data map[string][]byte
}

func newMemCacheRepo() *memCacheRepo {
	return &memCacheRepo{data: make(map[string][]byte)}
}

func (m *memCacheRepo) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := m.data[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memCacheRepo) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCacheRepo) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func (m *memCacheRepo) DeleteByPattern(ctx context.Context, pattern string) error {
	m.data = make(map[string][]byte)
	return nil
}

func noteDetail(id, uploaderID string, visibility models.NoteVisibility) models.NoteDetail {
	return models.NoteDetail{Note: models.Note{
		ID:         id,
		Title:      "Note " + id,
		UploaderID: uploaderID,
		FileName:   id + ".pdf",
		FilePath:   "mit.edu/" + uploaderID + "/" + id + ".pdf",
		FileSize:   100,
		FileType:   "pdf",
		Visibility: visibility,
	}}
}

func studentClaims(userID string) *models.JWTClaims {
	return &models.JWTClaims{UserID: userID, Role: models.RoleStudent, CollegeDomain: "mit.edu"}
}

func newTestNoteService(repo *fakeNoteRepo, store *fakePresigner, queue *fakeQueue, cache *CacheService) *NoteService {
	return NewNoteService(repo, store, cache, queue, validator.New(), zap.NewNop(), NoteConfig{
		PageSize:       2,
		SuggestionSize: 4,
		CacheTTL:       time.Minute,
		DownloadTTL:    time.Hour,
	})
}

func TestNoteServiceListHasMore(t *testing.T) {
	repo := &fakeNoteRepo{listResult: []models.NoteDetail{
		noteDetail("n1", "u1", models.VisibilityPublic),
		noteDetail("n2", "u1", models.VisibilityPublic),
	}}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	result, err := svc.List(context.Background(), models.NoteFilter{})
	require.NoError(t, err)
	assert.Len(t, result.Notes, 2)
	assert.True(t, result.Pagination.HasMore)
	assert.Equal(t, 0, result.Pagination.Page)
	assert.Equal(t, 2, result.Pagination.Limit)

	repo.listResult = repo.listResult[:1]
	result, err = svc.List(context.Background(), models.NoteFilter{Page: 1})
	require.NoError(t, err)
	assert.False(t, result.Pagination.HasMore)
}

func TestNoteServiceListClampsOversizedLimit(t *testing.T) {
	rows := make([]models.NoteDetail, 0, 60)
	for i := 0; i < 60; i++ {
		rows = append(rows, noteDetail(fmt.Sprintf("n%d", i), "u1", models.VisibilityPublic))
	}
	repo := &fakeNoteRepo{listResult: rows}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	result, err := svc.List(context.Background(), models.NoteFilter{PageSize: 100})
	require.NoError(t, err)
	assert.Equal(t, maxNotePageSize, repo.lastFilter.PageSize)
	assert.Len(t, result.Notes, maxNotePageSize)
	assert.Equal(t, maxNotePageSize, result.Pagination.Limit)
	// A full page with rows left behind it still reports more.
	assert.True(t, result.Pagination.HasMore)
}

func TestNoteServiceListCachesPageZero(t *testing.T) {
	repo := &fakeNoteRepo{listResult: []models.NoteDetail{noteDetail("n1", "u1", models.VisibilityPublic)}}
	cache := NewCacheService(newMemCacheRepo(), nil, time.Minute, zap.NewNop(), true)
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, cache)

	first, err := svc.List(context.Background(), models.NoteFilter{CollegeDomain: "mit.edu"})
	require.NoError(t, err)
	second, err := svc.List(context.Background(), models.NoteFilter{CollegeDomain: "mit.edu"})
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, first.Notes[0].ID, second.Notes[0].ID)

	// Deeper pages bypass the cache.
	_, err = svc.List(context.Background(), models.NoteFilter{CollegeDomain: "mit.edu", Page: 1})
	require.NoError(t, err)
	_, err = svc.List(context.Background(), models.NoteFilter{CollegeDomain: "mit.edu", Page: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, repo.listCalls)
}

func TestNoteServiceListUploaderFallbacks(t *testing.T) {
	email := "grace@mit.edu"
	withEmail := noteDetail("n1", "u1", models.VisibilityPublic)
	withEmail.UploaderEmail = &email
	anonymous := noteDetail("n2", "u2", models.VisibilityPublic)

	repo := &fakeNoteRepo{listResult: []models.NoteDetail{withEmail, anonymous}}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	result, err := svc.List(context.Background(), models.NoteFilter{})
	require.NoError(t, err)
	assert.Equal(t, "grace", result.Notes[0].UploaderName)
	assert.Equal(t, "Anonymous", result.Notes[1].UploaderName)
	assert.Equal(t, models.DefaultSubjectName, result.Notes[0].Subject.Name)
	assert.Equal(t, models.DefaultSubjectColor, result.Notes[0].Subject.Color)
}

func TestNoteServiceGetPrivateVisibility(t *testing.T) {
	repo := &fakeNoteRepo{notes: map[string]models.NoteDetail{
		"n1": noteDetail("n1", "owner", models.VisibilityPrivate),
	}}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	_, err := svc.Get(context.Background(), "n1", studentClaims("stranger"))
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)

	note, err := svc.Get(context.Background(), "n1", studentClaims("owner"))
	require.NoError(t, err)
	assert.Equal(t, "n1", note.ID)

	admin := &models.JWTClaims{UserID: "root", Role: models.RoleAdmin}
	_, err = svc.Get(context.Background(), "n1", admin)
	require.NoError(t, err)
}

func TestNoteServiceCreateValidation(t *testing.T) {
	svc := newTestNoteService(&fakeNoteRepo{}, &fakePresigner{}, &fakeQueue{}, nil)

	_, err := svc.Create(context.Background(), studentClaims("u1"), CreateNoteRequest{FileName: "a.pdf"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestNoteServiceCreateDefaultsVisibility(t *testing.T) {
	repo := &fakeNoteRepo{}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	note, err := svc.Create(context.Background(), studentClaims("u1"), CreateNoteRequest{
		Title:    "Algebra",
		FileName: "algebra.pdf",
		FilePath: "mit.edu/u1/algebra.pdf",
		FileSize: 512,
		FileType: "PDF",
	})
	require.NoError(t, err)
	assert.Equal(t, models.VisibilityPublic, note.Visibility)
	assert.Equal(t, "pdf", note.FileType)
	require.Len(t, repo.created, 1)
	require.NotNil(t, repo.created[0].CollegeDomain)
	assert.Equal(t, "mit.edu", *repo.created[0].CollegeDomain)
}

func TestNoteServiceUpdatePartial(t *testing.T) {
	repo := &fakeNoteRepo{notes: map[string]models.NoteDetail{
		"n1": noteDetail("n1", "owner", models.VisibilityPublic),
	}}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	title := "Updated"
	visibility := string(models.VisibilityCollegeOnly)
	note, err := svc.Update(context.Background(), "n1", studentClaims("owner"), UpdateNoteRequest{
		Title:      &title,
		Visibility: &visibility,
	})
	require.NoError(t, err)
	assert.Equal(t, "Updated", note.Title)
	assert.Equal(t, models.VisibilityCollegeOnly, note.Visibility)
	// Untouched fields survive.
	assert.Equal(t, "n1.pdf", note.FileName)
}

func TestNoteServiceUpdateForbiddenForStranger(t *testing.T) {
	repo := &fakeNoteRepo{notes: map[string]models.NoteDetail{
		"n1": noteDetail("n1", "owner", models.VisibilityPublic),
	}}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)

	title := "Updated"
	_, err := svc.Update(context.Background(), "n1", studentClaims("stranger"), UpdateNoteRequest{Title: &title})
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, appErrors.FromError(err).Status)
}

func TestNoteServiceDeleteEnqueuesStorageCleanup(t *testing.T) {
	repo := &fakeNoteRepo{notes: map[string]models.NoteDetail{
		"n1": noteDetail("n1", "owner", models.VisibilityPublic),
	}}
	queue := &fakeQueue{}
	svc := newTestNoteService(repo, &fakePresigner{}, queue, nil)

	require.NoError(t, svc.Delete(context.Background(), "n1", studentClaims("owner")))
	assert.Equal(t, []string{"n1"}, repo.deleted)
	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeStorageDelete, queue.jobs[0].Type)
	payload := queue.jobs[0].Payload.(StorageDeletePayload)
	assert.Equal(t, "mit.edu/owner/n1.pdf", payload.Path)
}

func TestNoteServiceDownload(t *testing.T) {
	repo := &fakeNoteRepo{notes: map[string]models.NoteDetail{
		"n1": noteDetail("n1", "owner", models.VisibilityPublic),
	}}
	store := &fakePresigner{url: "https://files.example.com/signed"}
	queue := &fakeQueue{}
	svc := newTestNoteService(repo, store, queue, nil)

	result, err := svc.Download(context.Background(), "n1", studentClaims("reader"), "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Equal(t, "https://files.example.com/signed", result.DownloadURL)
	assert.Equal(t, "n1.pdf", result.Filename)
	assert.Equal(t, time.Hour, store.lastTTL)

	require.Len(t, queue.jobs, 1)
	assert.Equal(t, JobTypeDownloadAudit, queue.jobs[0].Type)
	audit := queue.jobs[0].Payload.(DownloadAuditPayload)
	assert.Equal(t, "n1", audit.Download.NoteID)
	require.NotNil(t, audit.Download.UserID)
	assert.Equal(t, "reader", *audit.Download.UserID)
}

func TestNoteServiceDownloadPresignFailureIsInternal(t *testing.T) {
	repo := &fakeNoteRepo{notes: map[string]models.NoteDetail{
		"n1": noteDetail("n1", "owner", models.VisibilityPublic),
	}}
	store := &fakePresigner{err: errors.New("boom")}
	svc := newTestNoteService(repo, store, &fakeQueue{}, nil)

	_, err := svc.Download(context.Background(), "n1", nil, "", "")
	require.Error(t, err)
	assert.Equal(t, http.StatusInternalServerError, appErrors.FromError(err).Status)
}

func TestNoteServiceSuggestionsCapped(t *testing.T) {
	repo := &fakeNoteRepo{recent: []models.NoteDetail{
		noteDetail("n1", "u1", models.VisibilityPublic),
		noteDetail("n2", "u1", models.VisibilityPublic),
		noteDetail("n3", "u1", models.VisibilityPublic),
		noteDetail("n4", "u1", models.VisibilityPublic),
	}}
	svc := newTestNoteService(repo, &fakePresigner{}, &fakeQueue{}, nil)
	svc.shuffle = func(n int, swap func(i, j int)) {}

	notes, err := svc.Suggestions(context.Background(), "mit.edu")
	require.NoError(t, err)
	// Four recent rows are trimmed to one page.
	assert.Len(t, notes, 2)
}
