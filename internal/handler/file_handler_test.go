package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type urlSignerMock struct {
	url      string
	err      error
	lastPath string
	lastTTL  time.Duration
}

func (m *urlSignerMock) PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error) {
	m.lastPath = path
	m.lastTTL = ttl
	return m.url, m.err
}

func signedURLRequest(t *testing.T, body string) (*httptest.ResponseRecorder, *gin.Context) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/files/signed-url", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return w, c
}

func TestFileHandlerSignedURL(t *testing.T) {
	signer := &urlSignerMock{url: "https://signed.example/object"}
	handler := NewFileHandler(signer, time.Hour)

	w, c := signedURLRequest(t, `{"path":"mit.edu/u1/1700000000_calc.pdf"}`)
	handler.SignedURL(c)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "https://signed.example/object", body["signedUrl"])
	assert.Equal(t, "mit.edu/u1/1700000000_calc.pdf", signer.lastPath)
	assert.Equal(t, time.Hour, signer.lastTTL)
}

func TestFileHandlerSignedURLMissingPath(t *testing.T) {
	handler := NewFileHandler(&urlSignerMock{}, time.Hour)

	w, c := signedURLRequest(t, `{}`)
	handler.SignedURL(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["error"])
}

func TestFileHandlerSignedURLInvalidPath(t *testing.T) {
	handler := NewFileHandler(&urlSignerMock{}, time.Hour)

	w, c := signedURLRequest(t, `{"path":"../../etc/passwd"}`)
	handler.SignedURL(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFileHandlerSignedURLSignerFailure(t *testing.T) {
	handler := NewFileHandler(&urlSignerMock{err: errors.New("s3 down")}, time.Hour)

	w, c := signedURLRequest(t, `{"path":"mit.edu/u1/1700000000_calc.pdf"}`)
	handler.SignedURL(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
