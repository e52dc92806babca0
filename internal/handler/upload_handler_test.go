package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusnotes/campus-notes-api/internal/middleware"
	"github.com/campusnotes/campus-notes-api/internal/models"
	"github.com/campusnotes/campus-notes-api/internal/service"
)

type uploadRunnerMock struct {
	summary   *service.UploadSummary
	err       error
	lastReq   service.UploadRequest
	lastFiles []service.UploadFile
}

func (m *uploadRunnerMock) UploadAll(ctx context.Context, uploader *models.JWTClaims, req service.UploadRequest, files []service.UploadFile) (*service.UploadSummary, error) {
	m.lastReq = req
	m.lastFiles = files
	return m.summary, m.err
}

func multipartUpload(t *testing.T, fields map[string]string, fileNames ...string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	for _, name := range fileNames {
		part, err := writer.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("content"))
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notes/upload", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Role: models.RoleStudent, CollegeDomain: "mit.edu"})
	return w, c
}

func TestUploadHandlerBatch(t *testing.T) {
	mockSvc := &uploadRunnerMock{
		summary: &service.UploadSummary{
			Uploaded: 2,
			Results: []service.UploadOutcome{
				{FileName: "a.pdf", Success: true, NoteID: "n1"},
				{FileName: "b.pdf", Success: true, NoteID: "n2"},
			},
		},
	}
	handler := NewUploadHandler(mockSvc)

	w, c := multipartUpload(t, map[string]string{
		"title":      "Calculus Pack",
		"tags":       "math, exam",
		"visibility": "college_only",
	}, "a.pdf", "b.pdf")
	handler.Upload(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Len(t, mockSvc.lastFiles, 2)
	assert.Equal(t, "Calculus Pack", mockSvc.lastReq.Title)
	assert.Equal(t, []string{"math", "exam"}, mockSvc.lastReq.Tags)
	assert.Equal(t, "college_only", mockSvc.lastReq.Visibility)

	var body service.UploadSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Uploaded)
}

func TestUploadHandlerNoFiles(t *testing.T) {
	handler := NewUploadHandler(&uploadRunnerMock{})

	w, c := multipartUpload(t, map[string]string{"title": "Empty"})
	handler.Upload(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "no files provided", body["error"])
}

func TestUploadHandlerRequiresAuth(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewUploadHandler(&uploadRunnerMock{})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/notes/upload", nil)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
