package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/campusnotes/campus-notes-api/internal/models"
	"github.com/campusnotes/campus-notes-api/pkg/jobs"
)

// Job types handled by the best-effort side-effect queue.
const (
	JobTypeStorageDelete = "storage.delete"
	JobTypeDownloadAudit = "download.audit"
)

// StorageDeletePayload asks the worker to remove an orphaned stored object.
type StorageDeletePayload struct {
	Path string
}

// DownloadAuditPayload asks the worker to append a download audit row.
type DownloadAuditPayload struct {
	Download models.NoteDownload
}

type downloadRecorder interface {
	Insert(ctx context.Context, download *models.NoteDownload) error
}

type objectDeleter interface {
	Delete(ctx context.Context, path string) error
}

// NoteJobs executes queued note side effects: storage cleanup and download
// auditing. Failures bubble up so the queue can retry.
type NoteJobs struct {
	downloads downloadRecorder
	store     objectDeleter
	logger    *zap.Logger
}

// NewNoteJobs constructs the queue handler.
func NewNoteJobs(downloads downloadRecorder, store objectDeleter, logger *zap.Logger) *NoteJobs {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NoteJobs{downloads: downloads, store: store, logger: logger}
}

// Handle dispatches one queued job by type.
func (n *NoteJobs) Handle(ctx context.Context, job jobs.Job) error {
	switch job.Type {
	case JobTypeStorageDelete:
		payload, ok := job.Payload.(StorageDeletePayload)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", job.Type)
		}
		if err := n.store.Delete(ctx, payload.Path); err != nil {
			return err
		}
		n.logger.Debug("stored object removed", zap.String("path", payload.Path))
		return nil
	case JobTypeDownloadAudit:
		payload, ok := job.Payload.(DownloadAuditPayload)
		if !ok {
			return fmt.Errorf("unexpected payload for %s", job.Type)
		}
		download := payload.Download
		return n.downloads.Insert(ctx, &download)
	default:
		return fmt.Errorf("unknown job type %s", job.Type)
	}
}
