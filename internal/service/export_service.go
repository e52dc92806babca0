package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	appErrors "github.com/campusnotes/campus-notes-api/pkg/errors"
	"github.com/campusnotes/campus-notes-api/pkg/export"
)

type exportNoteSource interface {
	ListByDomain(ctx context.Context, collegeDomain string) ([]models.NoteDetail, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// CatalogExport is a rendered catalog ready to be sent as an attachment.
type CatalogExport struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders the note catalog for administrators.
type ExportService struct {
	notes  exportNoteSource
	csv    csvRenderer
	pdf    pdfRenderer
	logger *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(notes exportNoteSource, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{notes: notes, csv: csv, pdf: pdf, logger: logger}
}

var catalogHeaders = []string{"Title", "Subject", "Uploader", "Semester", "Year", "Tags", "Visibility", "Downloads", "Uploaded At"}

// Catalog renders the full note catalog for a domain as CSV or PDF.
func (s *ExportService) Catalog(ctx context.Context, collegeDomain, format string) (*CatalogExport, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	rows, err := s.notes.ListByDomain(ctx, collegeDomain)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load catalog")
	}

	dataset := export.Dataset{Headers: catalogHeaders, Rows: make([]map[string]string, 0, len(rows))}
	for _, row := range rows {
		display := row.Display()
		year := ""
		if row.YearOfStudy != nil {
			year = strconv.Itoa(*row.YearOfStudy)
		}
		semester := ""
		if row.Semester != nil {
			semester = *row.Semester
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Title":       row.Title,
			"Subject":     display.Subject.Name,
			"Uploader":    display.UploaderName,
			"Semester":    semester,
			"Year":        year,
			"Tags":        strings.Join(row.Tags, ", "),
			"Visibility":  string(row.Visibility),
			"Downloads":   strconv.Itoa(row.DownloadCount),
			"Uploaded At": row.CreatedAt.UTC().Format("2006-01-02 15:04"),
		})
	}

	title := "Note Catalog"
	if collegeDomain != "" {
		title = fmt.Sprintf("Note Catalog %s", collegeDomain)
	}

	var payload []byte
	var contentType string
	switch format {
	case "csv":
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case "pdf":
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render catalog")
	}

	return &CatalogExport{
		Filename:    export.Filename("note_catalog", format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}
