package document

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"
	"github.com/nevinnnnnnn/ARTIKLE/internal/usecase/ingest"
	"github.com/nevinnnnnnn/ARTIKLE/internal/vectorstore"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"

	"github.com/google/uuid"
)

type Usecase struct {
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	stores    *vectorstore.Manager
	tasks     *ingest.Manager
	uploadDir string
	log       *logger.Logger
}

func NewUsecase(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	stores *vectorstore.Manager,
	tasks *ingest.Manager,
	uploadDir string,
	log *logger.Logger,
) (*Usecase, error) {
	if err := os.MkdirAll(uploadDir, 0o755); err != nil {
		return nil, err
	}
	return &Usecase{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		stores:    stores,
		tasks:     tasks,
		uploadDir: uploadDir,
		log:       log,
	}, nil
}

// Upload stores the file, creates the document record and kicks off
// background processing. Returns immediately; the document becomes
// queryable once its status reaches ready.
func (uc *Usecase) Upload(
	ctx context.Context,
	userID, filename string,
	fileData []byte,
	mimeType string,
	visibility entity.DocumentVisibility,
) (*entity.Document, error) {
	if mimeType != "application/pdf" {
		return nil, fmt.Errorf("unsupported file type: %s", mimeType)
	}

	stored := fmt.Sprintf("%s%s", uuid.New().String(), filepath.Ext(filename))
	filePath := filepath.Join(uc.uploadDir, stored)
	if err := os.WriteFile(filePath, fileData, 0o644); err != nil {
		return nil, fmt.Errorf("save upload: %w", err)
	}

	doc := &entity.Document{
		UserID:       userID,
		Filename:     stored,
		OriginalName: filename,
		FilePath:     filePath,
		FileSize:     int64(len(fileData)),
		MimeType:     mimeType,
		Status:       entity.StatusUploaded,
		Visibility:   visibility,
	}
	if err := uc.docRepo.Create(ctx, doc); err != nil {
		os.Remove(filePath)
		return nil, err
	}

	if err := uc.tasks.StartProcessing(doc.ID); err != nil && !errors.Is(err, entity.ErrDuplicateProcessing) {
		return nil, err
	}
	uc.log.Info("document uploaded", "document_id", doc.ID, "filename", filename, "size", doc.FileSize)
	return doc, nil
}

// Reprocess re-submits a document through the pipeline, restarting it
// from the uploaded state. A run already in flight makes this a no-op.
func (uc *Usecase) Reprocess(ctx context.Context, documentID, userID string) error {
	doc, err := uc.docRepo.FindByIDAndUserID(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found")
	}
	if uc.tasks.Running(documentID) {
		return entity.ErrDuplicateProcessing
	}

	if err := uc.docRepo.UpdateStatus(ctx, documentID, entity.StatusUploaded); err != nil {
		return err
	}
	return uc.tasks.StartProcessing(documentID)
}

func (uc *Usecase) List(ctx context.Context, userID string, page, limit int) ([]entity.Document, int, error) {
	return uc.docRepo.List(ctx, userID, page, limit)
}

func (uc *Usecase) GetByID(ctx context.Context, documentID, userID string) (*entity.Document, error) {
	return uc.docRepo.FindByIDAndUserID(ctx, documentID, userID)
}

// Delete removes the record, its chunks, the vector store and the
// uploaded file.
func (uc *Usecase) Delete(ctx context.Context, documentID, userID string) error {
	doc, err := uc.docRepo.FindByIDAndUserID(ctx, documentID, userID)
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("document not found")
	}

	if err := uc.chunkRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		return err
	}
	if err := uc.stores.DeleteStore(documentID); err != nil {
		return err
	}
	if doc.FilePath != "" {
		if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
			uc.log.Warn("could not remove uploaded file", "document_id", documentID, "error", err)
		}
	}
	return uc.docRepo.Delete(ctx, documentID)
}

// StoreStats exposes the vector store shape for a document the user
// can access.
func (uc *Usecase) StoreStats(ctx context.Context, documentID, userID string) (*vectorstore.Stats, error) {
	doc, err := uc.docRepo.FindByIDAndUserID(ctx, documentID, userID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document not found")
	}
	stats := uc.stores.GetStore(documentID).Stats()
	return &stats, nil
}

// WaitUntilIdle is a test/shutdown helper: blocks until no pipeline
// runs remain or the deadline passes.
func (uc *Usecase) WaitUntilIdle(timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if uc.tasks.ActiveCount() == 0 {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return uc.tasks.ActiveCount() == 0
}
