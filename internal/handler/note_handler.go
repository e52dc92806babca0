package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campusnotes/campus-notes-api/internal/models"
	"github.com/campusnotes/campus-notes-api/internal/service"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
)

type noteCatalog interface {
	List(ctx context.Context, filter models.NoteFilter) (*service.NoteListResult, error)
	Suggestions(ctx context.Context, collegeDomain string) ([]models.DisplayNote, error)
	Get(ctx context.Context, id string, viewer *models.JWTClaims) (*models.DisplayNote, error)
	Create(ctx context.Context, uploader *models.JWTClaims, req service.CreateNoteRequest) (*models.DisplayNote, error)
	Update(ctx context.Context, id string, actor *models.JWTClaims, req service.UpdateNoteRequest) (*models.DisplayNote, error)
	Delete(ctx context.Context, id string, actor *models.JWTClaims) error
	Download(ctx context.Context, id string, viewer *models.JWTClaims, ip, userAgent string) (*service.DownloadResult, error)
}

// NoteHandler handles the note catalog endpoints. These respond with flat
// JSON bodies rather than the envelope used by the account endpoints.
type NoteHandler struct {
	service noteCatalog
}

// NewNoteHandler constructs a note handler.
func NewNoteHandler(svc noteCatalog) *NoteHandler {
	return &NoteHandler{service: svc}
}

// List godoc
// @Summary List notes
// @Description Paginated catalog of publicly visible notes
// @Tags Notes
// @Produce json
// @Param search query string false "Search keyword"
// @Param search_mode query string false "all or title"
// @Param college_domain query string false "Scope to a college domain"
// @Param subject_id query string false "Filter by subject"
// @Param semester query string false "Filter by semester"
// @Param year query int false "Filter by year of study"
// @Param tags query string false "Comma separated tags, any match"
// @Param page query int false "Zero-based page"
// @Param limit query int false "Page size"
// @Success 200 {object} service.NoteListResult
// @Router /notes [get]
func (h *NoteHandler) List(c *gin.Context) {
	filter := models.NoteFilter{
		CollegeDomain: c.Query("college_domain"),
		SubjectID:     c.Query("subject_id"),
		Semester:      c.Query("semester"),
		Search:        strings.TrimSpace(c.Query("search")),
		SearchMode:    models.SearchMode(c.DefaultQuery("search_mode", string(models.SearchModeAll))),
	}
	if year, err := strconv.Atoi(c.Query("year")); err == nil {
		filter.YearOfStudy = &year
	}
	if tags := strings.TrimSpace(c.Query("tags")); tags != "" {
		for _, tag := range strings.Split(tags, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				filter.Tags = append(filter.Tags, tag)
			}
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "0")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.Query("limit")); err == nil {
		filter.PageSize = limit
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": result.Notes, "pagination": result.Pagination})
}

// Suggestions godoc
// @Summary Suggested notes
// @Description Recent notes in random order, shown while a search is pending
// @Tags Notes
// @Produce json
// @Param college_domain query string false "Scope to a college domain"
// @Success 200 {object} map[string]interface{}
// @Router /notes/suggestions [get]
func (h *NoteHandler) Suggestions(c *gin.Context) {
	domain := c.Query("college_domain")
	if domain == "" {
		if claims := claimsFromContext(c); claims != nil {
			domain = claims.CollegeDomain
		}
	}
	notes, err := h.service.Suggestions(c.Request.Context(), domain)
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// Get godoc
// @Summary Get note by id
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /notes/{id} [get]
func (h *NoteHandler) Get(c *gin.Context) {
	note, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

// Create godoc
// @Summary Register a note for an already-uploaded file
// @Tags Notes
// @Accept json
// @Produce json
// @Param payload body service.CreateNoteRequest true "Note payload"
// @Success 201 {object} map[string]interface{}
// @Router /notes [post]
func (h *NoteHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		flatError(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		flatError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	note, err := h.service.Create(c.Request.Context(), claims, req)
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

// Update godoc
// @Summary Update note metadata
// @Tags Notes
// @Accept json
// @Produce json
// @Param id path string true "Note ID"
// @Param payload body service.UpdateNoteRequest true "Partial note payload"
// @Success 200 {object} map[string]interface{}
// @Router /notes/{id} [put]
func (h *NoteHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		flatError(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		flatError(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid note payload"))
		return
	}

	note, err := h.service.Update(c.Request.Context(), c.Param("id"), claims, req)
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"note": note})
}

// Delete godoc
// @Summary Delete a note
// @Tags Notes
// @Param id path string true "Note ID"
// @Success 200 {object} map[string]string
// @Router /notes/{id} [delete]
func (h *NoteHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		flatError(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), c.Param("id"), claims); err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "note deleted"})
}

// Download godoc
// @Summary Get a time-limited download link
// @Tags Notes
// @Produce json
// @Param id path string true "Note ID"
// @Success 200 {object} service.DownloadResult
// @Failure 404 {object} map[string]string
// @Router /notes/{id}/download [post]
func (h *NoteHandler) Download(c *gin.Context) {
	result, err := h.service.Download(c.Request.Context(), c.Param("id"), claimsFromContext(c), c.ClientIP(), c.GetHeader("User-Agent"))
	if err != nil {
		flatError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
