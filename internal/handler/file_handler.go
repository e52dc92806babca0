package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
	"github.com/campusnotes/campus-notes-api/pkg/storage"
)

type urlSigner interface {
	PresignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
}

// FileHandler issues presigned URLs for objects already in storage.
type FileHandler struct {
	store urlSigner
	ttl   time.Duration
}

// NewFileHandler constructs a file handler.
func NewFileHandler(store urlSigner, ttl time.Duration) *FileHandler {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &FileHandler{store: store, ttl: ttl}
}

// SignedURL godoc
// @Summary Presign a storage path
// @Description Returns a time-limited URL for a stored object
// @Tags Files
// @Accept json
// @Produce json
// @Param payload body map[string]string true "Object path"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Router /files/signed-url [post]
func (h *FileHandler) SignedURL(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		flatError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "path is required"))
		return
	}
	if err := storage.ValidateObjectPath(req.Path); err != nil {
		flatError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid object path"))
		return
	}

	url, err := h.store.PresignedURL(c.Request.Context(), req.Path, h.ttl)
	if err != nil {
		flatError(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, http.StatusInternalServerError, "failed to sign url"))
		return
	}
	c.JSON(http.StatusOK, gin.H{"signedUrl": url})
}
