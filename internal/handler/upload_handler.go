package handler

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusnotes/campus-notes-api/internal/models"
	"github.com/campusnotes/campus-notes-api/internal/service"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
)

type uploadRunner interface {
	UploadAll(ctx context.Context, uploader *models.JWTClaims, req service.UploadRequest, files []service.UploadFile) (*service.UploadSummary, error)
}

// UploadHandler accepts multipart note uploads.
type UploadHandler struct {
	service uploadRunner
}

// NewUploadHandler constructs an upload handler.
func NewUploadHandler(svc uploadRunner) *UploadHandler {
	return &UploadHandler{service: svc}
}

// Upload godoc
// @Summary Upload note files
// @Description Stores one or more files and registers a note per file.
// @Description Individual files may fail without failing the batch.
// @Tags Notes
// @Accept multipart/form-data
// @Produce json
// @Param files formData file true "Files to upload"
// @Param title formData string false "Title, used when a single file is uploaded"
// @Success 201 {object} service.UploadSummary
// @Failure 400 {object} map[string]string
// @Router /notes/upload [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		flatError(c, appErrors.ErrUnauthorized)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		flatError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid multipart form"))
		return
	}
	headers := form.File["files"]
	if len(headers) == 0 {
		flatError(c, appErrors.Clone(appErrors.ErrValidation, "no files provided"))
		return
	}

	req := service.UploadRequest{
		Title:      c.PostForm("title"),
		Visibility: c.PostForm("visibility"),
	}
	if v := strings.TrimSpace(c.PostForm("description")); v != "" {
		req.Description = &v
	}
	if v := strings.TrimSpace(c.PostForm("subject_id")); v != "" {
		req.SubjectID = &v
	}
	if v := strings.TrimSpace(c.PostForm("semester")); v != "" {
		req.Semester = &v
	}
	if year, err := strconv.Atoi(c.PostForm("year_of_study")); err == nil {
		req.YearOfStudy = &year
	}
	if tags := strings.TrimSpace(c.PostForm("tags")); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				req.Tags = append(req.Tags, tag)
			}
		}
	}

	files := make([]service.UploadFile, 0, len(headers))
	for _, header := range headers {
		files = append(files, uploadFileFromHeader(header))
	}

	summary, err := h.service.UploadAll(c.Request.Context(), claims, req, files)
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, summary)
}

func uploadFileFromHeader(header *multipart.FileHeader) service.UploadFile {
	return service.UploadFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Open: func() (io.ReadCloser, error) {
			return header.Open()
		},
	}
}
