package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
)

type fakeExportSource struct {
	rows       []models.NoteDetail
	lastDomain string
}

func (f *fakeExportSource) ListByDomain(ctx context.Context, domain string) ([]models.NoteDetail, error) {
	f.lastDomain = domain
	return f.rows, nil
}

func TestExportServiceCatalogCSV(t *testing.T) {
	name := "Linear Algebra"
	detail := noteDetail("n1", "u1", models.VisibilityPublic)
	detail.SubjectName = &name
	detail.DownloadCount = 7
	source := &fakeExportSource{rows: []models.NoteDetail{detail}}
	svc := NewExportService(source, nil, nil, zap.NewNop())

	result, err := svc.Catalog(context.Background(), "mit.edu", "csv")
	require.NoError(t, err)
	assert.Equal(t, "mit.edu", source.lastDomain)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.True(t, strings.HasSuffix(result.Filename, ".csv"))

	body := string(result.Payload)
	assert.Contains(t, body, "Title,Subject,Uploader")
	assert.Contains(t, body, "Note n1")
	assert.Contains(t, body, "Linear Algebra")
	assert.Contains(t, body, "7")
}

func TestExportServiceCatalogPDF(t *testing.T) {
	source := &fakeExportSource{rows: []models.NoteDetail{noteDetail("n1", "u1", models.VisibilityPublic)}}
	svc := NewExportService(source, nil, nil, zap.NewNop())

	result, err := svc.Catalog(context.Background(), "", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Payload), "%PDF"))
}

func TestExportServiceCatalogUnknownFormat(t *testing.T) {
	svc := NewExportService(&fakeExportSource{}, nil, nil, zap.NewNop())

	_, err := svc.Catalog(context.Background(), "", "xlsx")
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, appErrors.FromError(err).Status)
}
