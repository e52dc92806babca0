package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusnotes/campus-notes-api/internal/service"
)

type catalogExporter interface {
	Catalog(ctx context.Context, collegeDomain, format string) (*service.CatalogExport, error)
}

// ExportHandler serves catalog exports for administrators.
type ExportHandler struct {
	service catalogExporter
}

// NewExportHandler constructs an export handler.
func NewExportHandler(svc catalogExporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Catalog godoc
// @Summary Export the note catalog
// @Description Renders the catalog as a CSV or PDF attachment
// @Tags Notes
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf, defaults to csv"
// @Param college_domain query string false "Scope to a college domain"
// @Success 200 {file} file
// @Router /notes/export [get]
func (h *ExportHandler) Catalog(c *gin.Context) {
	result, err := h.service.Catalog(c.Request.Context(), c.Query("college_domain"), c.Query("format"))
	if err != nil {
		flatError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
