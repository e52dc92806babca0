package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dbHealthRequest(t *testing.T, db *sqlx.DB) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/api/db-health", nil)
	c.Request = req

	NewHealthHandler(db, nil).DBHealth(c)
	return w
}

func TestHealthHandlerDBHealthOK(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()
	mock.ExpectPing()

	w := dbHealthRequest(t, sqlx.NewDb(raw, "sqlmock"))

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Contains(t, body, "latency_ms")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHealthHandlerDBHealthUnreachable(t *testing.T) {
	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer raw.Close()
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	w := dbHealthRequest(t, sqlx.NewDb(raw, "sqlmock"))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "database unreachable", body["error"])
}
