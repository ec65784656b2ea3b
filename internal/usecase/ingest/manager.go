package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/extractor"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"
	"github.com/nevinnnnnnn/ARTIKLE/internal/vectorstore"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/sync/semaphore"
)

// Extractor is the extraction collaborator boundary.
type Extractor interface {
	Extract(filePath string) (string, []extractor.Page, error)
}

type taskHandle struct {
	documentID string
	startedAt  time.Time
	cancel     context.CancelFunc
}

// Manager drives the per-document ingestion pipeline
// (extract → chunk → persist → embed → persist) as one cancellable
// unit, with at most one live run per document.
type Manager struct {
	docRepo   repository.DocumentRepository
	chunkRepo repository.ChunkRepository
	stores    *vectorstore.Manager
	extractor Extractor
	chunker   *Chunker
	log       *logger.Logger

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup
	extract *semaphore.Weighted

	mu    sync.Mutex
	tasks map[string]*taskHandle
}

func NewManager(
	docRepo repository.DocumentRepository,
	chunkRepo repository.ChunkRepository,
	stores *vectorstore.Manager,
	ext Extractor,
	chunker *Chunker,
	extractionWorkers int,
	log *logger.Logger,
) *Manager {
	if extractionWorkers <= 0 {
		extractionWorkers = 1
	}
	baseCtx, stop := context.WithCancel(context.Background())
	return &Manager{
		docRepo:   docRepo,
		chunkRepo: chunkRepo,
		stores:    stores,
		extractor: ext,
		chunker:   chunker,
		log:       log,
		baseCtx:   baseCtx,
		stop:      stop,
		extract:   semaphore.NewWeighted(int64(extractionWorkers)),
		tasks:     make(map[string]*taskHandle),
	}
}

// StartProcessing registers and launches a pipeline run for the
// document. A second call while the first is in flight returns
// ErrDuplicateProcessing without touching any shared state; callers
// treat that as a no-op.
func (m *Manager) StartProcessing(documentID string) error {
	runCtx, cancel := context.WithCancel(m.baseCtx)

	m.mu.Lock()
	if _, exists := m.tasks[documentID]; exists {
		m.mu.Unlock()
		cancel()
		return entity.ErrDuplicateProcessing
	}
	m.tasks[documentID] = &taskHandle{
		documentID: documentID,
		startedAt:  time.Now(),
		cancel:     cancel,
	}
	m.mu.Unlock()

	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer cancel()
		defer func() {
			m.mu.Lock()
			delete(m.tasks, documentID)
			m.mu.Unlock()
		}()
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("panic in document pipeline", "document_id", documentID, "panic", r)
				m.fail(documentID, fmt.Errorf("panic: %v", r))
			}
		}()

		if err := m.runPipeline(runCtx, documentID); err != nil {
			m.fail(documentID, err)
		}
	}()
	return nil
}

// Running reports whether a pipeline run is in flight for the document.
func (m *Manager) Running(documentID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tasks[documentID]
	return ok
}

// ActiveCount returns the number of in-flight pipeline runs.
func (m *Manager) ActiveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}

// Shutdown cancels all in-flight runs and waits for them to unwind,
// bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.stop()
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runPipeline(ctx context.Context, documentID string) error {
	started := time.Now()
	doc, err := m.docRepo.FindByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document %s not found", documentID)
	}

	m.log.Info("pipeline started", "document_id", documentID, "filename", doc.Filename)

	// Stage 1: extraction, CPU-bound, bounded by the worker pool so a
	// burst of uploads cannot starve everything else.
	if err := m.setStatus(ctx, documentID, entity.StatusExtracting); err != nil {
		return err
	}
	if err := m.extract.Acquire(ctx, 1); err != nil {
		return err
	}
	fullText, pages, err := m.extractor.Extract(doc.FilePath)
	m.extract.Release(1)
	if err != nil {
		return err
	}
	m.log.Debug("extracted", "document_id", documentID, "pages", len(pages), "chars", len(fullText))

	// Stage 2: chunking.
	if err := m.setStatus(ctx, documentID, entity.StatusChunking); err != nil {
		return err
	}
	drafts, err := m.chunker.Chunk(fullText, pages)
	if err != nil {
		return err
	}

	// Stage 3: persist chunks in one bulk write. A re-run replaces the
	// previous chunk set entirely.
	if err := m.chunkRepo.DeleteByDocumentID(ctx, documentID); err != nil {
		return fmt.Errorf("clear previous chunks: %w", err)
	}
	rows := make([]entity.DocumentChunk, len(drafts))
	for i, d := range drafts {
		rows[i] = entity.DocumentChunk{
			DocumentID: documentID,
			ChunkIndex: i,
			ChunkText:  d.Text,
			PageNumber: d.PageNumber,
			TokenCount: d.TokenCount,
		}
	}
	if err := m.chunkRepo.CreateBatch(ctx, rows); err != nil {
		return fmt.Errorf("persist chunks: %w", err)
	}
	if err := m.docRepo.UpdateTotalChunks(ctx, documentID, len(rows)); err != nil {
		return err
	}
	if err := m.setStatus(ctx, documentID, entity.StatusChunksPersisted); err != nil {
		return err
	}
	m.log.Debug("chunks persisted", "document_id", documentID, "chunks", len(rows))

	// Stage 4: embed and rebuild the vector store from scratch. Never
	// patched incrementally, so a re-run cannot leave stale or
	// duplicate vectors behind.
	if err := m.setStatus(ctx, documentID, entity.StatusEmbedding); err != nil {
		return err
	}
	persisted, err := m.chunkRepo.ListByDocumentID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("reload chunks: %w", err)
	}
	texts := make([]string, len(persisted))
	refs := make([]entity.ChunkRef, len(persisted))
	for i, ch := range persisted {
		texts[i] = ch.ChunkText
		refs[i] = entity.ChunkRef{
			ChunkID:    ch.ID,
			DocumentID: ch.DocumentID,
			ChunkIndex: ch.ChunkIndex,
			PageNumber: ch.PageNumber,
			TokenCount: ch.TokenCount,
			ChunkText:  ch.ChunkText,
		}
	}

	store := m.stores.GetStore(documentID)
	vecs, err := store.Rebuild(ctx, texts, refs)
	if err != nil {
		return fmt.Errorf("rebuild vector store: %w", err)
	}

	// Stage 5: durable embedding records, then the snapshot. The
	// embedding completion marker is set only after both succeed.
	providerName := store.Stats().Provider
	for i, ch := range persisted {
		if err := m.chunkRepo.UpdateEmbedding(ctx, ch.ID, pgvector.NewVector(vecs[i]), providerName); err != nil {
			return fmt.Errorf("persist embedding for chunk %d: %w", ch.ChunkIndex, err)
		}
	}
	if err := store.Save(); err != nil {
		return err
	}
	if err := m.docRepo.MarkEmbedded(ctx, documentID); err != nil {
		return err
	}
	if err := m.setStatus(ctx, documentID, entity.StatusReady); err != nil {
		return err
	}

	m.log.Info("pipeline complete",
		"document_id", documentID,
		"chunks", len(rows),
		"duration", time.Since(started).String(),
	)
	return nil
}

func (m *Manager) setStatus(ctx context.Context, documentID string, status entity.DocumentStatus) error {
	if err := m.docRepo.UpdateStatus(ctx, documentID, status); err != nil {
		return fmt.Errorf("update status to %s: %w", status, err)
	}
	return nil
}

// fail marks the document FAILED with a background context: the run
// context may already be cancelled, and the terminal state must still
// be recorded.
func (m *Manager) fail(documentID string, cause error) {
	m.log.Error("pipeline failed", "document_id", documentID, "error", cause)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.docRepo.UpdateStatus(ctx, documentID, entity.StatusFailed); err != nil {
		m.log.Error("could not mark document failed", "document_id", documentID, "error", err)
	}
}
