package service

import (
	"context"
	"database/sql"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
)

type fakeSubjectRepo struct {
	subjects    map[string]*models.Subject
	deactivated []string
}

func newFakeSubjectRepo() *fakeSubjectRepo {
	return &fakeSubjectRepo{subjects: make(map[string]*models.Subject)}
}

func (f *fakeSubjectRepo) List(ctx context.Context, filter models.SubjectFilter) ([]models.Subject, error) {
	var out []models.Subject
	for _, s := range f.subjects {
		if filter.ActiveOnly && !s.Active {
			continue
		}
		out = append(out, *s)
	}
	return out, nil
}

func (f *fakeSubjectRepo) FindByID(ctx context.Context, id string) (*models.Subject, error) {
	if s, ok := f.subjects[id]; ok {
		return s, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSubjectRepo) ExistsByCode(ctx context.Context, code string, excludeID string) (bool, error) {
	for _, s := range f.subjects {
		if s.Code == code && s.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeSubjectRepo) Create(ctx context.Context, subject *models.Subject) error {
	if subject.ID == "" {
		subject.ID = "subject-" + subject.Code
	}
	f.subjects[subject.ID] = subject
	return nil
}

func (f *fakeSubjectRepo) Update(ctx context.Context, subject *models.Subject) error {
	f.subjects[subject.ID] = subject
	return nil
}

func (f *fakeSubjectRepo) Deactivate(ctx context.Context, id string) error {
	if s, ok := f.subjects[id]; ok {
		s.Active = false
	}
	f.deactivated = append(f.deactivated, id)
	return nil
}

func TestSubjectServiceCreateDefaultsColor(t *testing.T) {
	repo := newFakeSubjectRepo()
	svc := NewSubjectService(repo, nil, nil)

	subject, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultSubjectColor, subject.Color)
	assert.True(t, subject.Active)
}

func TestSubjectServiceCreateRejectsDuplicateCode(t *testing.T) {
	repo := newFakeSubjectRepo()
	svc := NewSubjectService(repo, nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "Mathematics", Code: "MATH"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateSubjectRequest{Name: "More Math", Code: "MATH"})
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, appErrors.FromError(err).Status)
}

func TestSubjectServiceCreateValidatesPayload(t *testing.T) {
	svc := NewSubjectService(newFakeSubjectRepo(), nil, nil)

	_, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "Missing Code"})
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}

func TestSubjectServiceUpdateKeepsColorWhenOmitted(t *testing.T) {
	repo := newFakeSubjectRepo()
	svc := NewSubjectService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "Physics", Code: "PHY", Color: "#F59E0B"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateSubjectRequest{Name: "Physics I", Code: "PHY", Active: true})
	require.NoError(t, err)
	assert.Equal(t, "Physics I", updated.Name)
	assert.Equal(t, "#F59E0B", updated.Color)
}

func TestSubjectServiceDeleteDeactivates(t *testing.T) {
	repo := newFakeSubjectRepo()
	svc := NewSubjectService(repo, nil, nil)

	created, err := svc.Create(context.Background(), CreateSubjectRequest{Name: "Chemistry", Code: "CHEM"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	assert.Contains(t, repo.deactivated, created.ID)

	listed, err := svc.List(context.Background(), models.SubjectFilter{})
	require.NoError(t, err)
	assert.Empty(t, listed)
}

func TestSubjectServiceGetNotFound(t *testing.T) {
	svc := NewSubjectService(newFakeSubjectRepo(), nil, nil)

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}
