package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jask/policyqa/internal/backend"
	"github.com/jask/policyqa/internal/database"
	"github.com/jask/policyqa/internal/database/repository"
	"github.com/jask/policyqa/internal/document"
)

// UploadBackend is the part of the backend client UploadService needs.
type UploadBackend interface {
	UploadPDF(ctx context.Context, name, mediaType string, r io.Reader) (backend.UploadReceipt, error)
}

// UploadService sends the selected document and records the upload.
type UploadService struct {
	Backend UploadBackend
	Uploads *repository.UploadRepo // nil when history is disabled
	Logger  *slog.Logger
}

func (s *UploadService) Upload(ctx context.Context, sel document.Selection) (backend.UploadReceipt, error) {
	if sel.Path == "" {
		return backend.UploadReceipt{}, backend.ErrNoFile
	}
	f, err := sel.Open()
	if err != nil {
		return backend.UploadReceipt{}, fmt.Errorf("open %s: %w", sel.Name, err)
	}
	defer f.Close()

	receipt, err := s.Backend.UploadPDF(ctx, sel.Name, sel.MediaType, f)
	if err != nil {
		return receipt, err
	}
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.Info("upload.done", "file", sel.Name, "size", sel.Size, "req_id", receipt.RequestID, "message", receipt.Message)

	if s.Uploads == nil {
		return receipt, nil
	}
	rec := repository.UploadRecord{
		ID:        uuid.NewString(),
		FileName:  sel.Name,
		MediaType: sel.MediaType,
		SizeBytes: sel.Size,
		CreatedAt: database.Now(),
	}
	if receipt.RequestID != "" {
		id := receipt.RequestID
		rec.RequestID = &id
	}
	if receipt.Message != "" {
		msg := receipt.Message
		rec.Message = &msg
	}
	if err := s.Uploads.Insert(ctx, rec); err != nil {
		log.Warn("history.upload.insert_error", "req_id", receipt.RequestID, "error", err)
	}
	return receipt, nil
}
