package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/embedding"
	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/extractor"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/vectorstore"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDocRepo struct {
	mu       sync.Mutex
	docs     map[string]*entity.Document
	statuses []entity.DocumentStatus
	embedded bool
}

func newFakeDocRepo(docs ...*entity.Document) *fakeDocRepo {
	r := &fakeDocRepo{docs: make(map[string]*entity.Document)}
	for _, d := range docs {
		r.docs[d.ID] = d
	}
	return r
}

func (r *fakeDocRepo) Create(_ context.Context, doc *entity.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[doc.ID] = doc
	return nil
}

func (r *fakeDocRepo) FindByID(_ context.Context, id string) (*entity.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	copied := *doc
	return &copied, nil
}

func (r *fakeDocRepo) FindByIDAndUserID(ctx context.Context, id, _ string) (*entity.Document, error) {
	return r.FindByID(ctx, id)
}

func (r *fakeDocRepo) List(_ context.Context, _ string, _, _ int) ([]entity.Document, int, error) {
	return nil, 0, nil
}

func (r *fakeDocRepo) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[id]; ok {
		doc.Status = status
	}
	r.statuses = append(r.statuses, status)
	return nil
}

func (r *fakeDocRepo) UpdateTotalChunks(_ context.Context, id string, total int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if doc, ok := r.docs[id]; ok {
		doc.TotalChunks = total
	}
	return nil
}

func (r *fakeDocRepo) MarkEmbedded(_ context.Context, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedded = true
	return nil
}

func (r *fakeDocRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

func (r *fakeDocRepo) status(id string) entity.DocumentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id].Status
}

func (r *fakeDocRepo) totalChunks(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.docs[id].TotalChunks
}

func (r *fakeDocRepo) markedEmbedded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.embedded
}

func (r *fakeDocRepo) statusTrail() []entity.DocumentStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.DocumentStatus, len(r.statuses))
	copy(out, r.statuses)
	return out
}

type fakeChunkRepo struct {
	mu          sync.Mutex
	chunks      []entity.DocumentChunk
	embedded    map[string]pgvector.Vector
	providers   map[string]string
	createCalls int
	deleteCalls int
	nextID      int
}

func newFakeChunkRepo() *fakeChunkRepo {
	return &fakeChunkRepo{
		embedded:  make(map[string]pgvector.Vector),
		providers: make(map[string]string),
	}
}

func (r *fakeChunkRepo) CreateBatch(_ context.Context, chunks []entity.DocumentChunk) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.createCalls++
	for _, ch := range chunks {
		ch.ID = fmt.Sprintf("chunk-%d", r.nextID)
		r.nextID++
		r.chunks = append(r.chunks, ch)
	}
	return nil
}

func (r *fakeChunkRepo) ListByDocumentID(_ context.Context, documentID string) ([]entity.DocumentChunk, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []entity.DocumentChunk
	for _, ch := range r.chunks {
		if ch.DocumentID == documentID {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (r *fakeChunkRepo) UpdateEmbedding(_ context.Context, chunkID string, emb pgvector.Vector, provider string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.embedded[chunkID] = emb
	r.providers[chunkID] = provider
	return nil
}

func (r *fakeChunkRepo) DeleteByDocumentID(_ context.Context, documentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleteCalls++
	kept := r.chunks[:0]
	for _, ch := range r.chunks {
		if ch.DocumentID != documentID {
			kept = append(kept, ch)
		}
	}
	r.chunks = kept
	return nil
}

func (r *fakeChunkRepo) CountByDocumentID(_ context.Context, documentID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, ch := range r.chunks {
		if ch.DocumentID == documentID {
			n++
		}
	}
	return n, nil
}

type fakeExtractor struct {
	text    string
	pages   []extractor.Page
	err     error
	block   chan struct{} // when non-nil, Extract waits for a close
	started chan struct{} // when non-nil, closed once Extract is entered
	once    sync.Once
}

func (e *fakeExtractor) Extract(_ string) (string, []extractor.Page, error) {
	if e.started != nil {
		e.once.Do(func() { close(e.started) })
	}
	if e.block != nil {
		<-e.block
	}
	return e.text, e.pages, e.err
}

func newTestManager(t *testing.T, docRepo *fakeDocRepo, chunkRepo *fakeChunkRepo, ext Extractor) (*Manager, *vectorstore.Manager) {
	t.Helper()
	provider, err := embedding.NewLexicalProvider(128)
	require.NoError(t, err)
	stores, err := vectorstore.NewManager(t.TempDir(), provider, 8, logger.NewNop())
	require.NoError(t, err)
	mgr := NewManager(docRepo, chunkRepo, stores, ext, NewChunker(1000, 1.3), 2, logger.NewNop())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = mgr.Shutdown(ctx)
	})
	return mgr, stores
}

func waitForIdle(t *testing.T, mgr *Manager, documentID string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !mgr.Running(documentID)
	}, 5*time.Second, 10*time.Millisecond)
}

func TestPipelineHappyPath(t *testing.T) {
	doc := &entity.Document{ID: "doc-1", Filename: "paper.pdf", FilePath: "/tmp/paper.pdf", Status: entity.StatusUploaded}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	ext := &fakeExtractor{
		text: "The water cycle moves moisture through the atmosphere.\n\nEvaporation lifts water from oceans and lakes.",
		pages: []extractor.Page{
			{Text: "The water cycle moves moisture through the atmosphere.\n\nEvaporation lifts water from oceans and lakes.", Number: 1},
		},
	}
	mgr, stores := newTestManager(t, docRepo, chunkRepo, ext)

	require.NoError(t, mgr.StartProcessing("doc-1"))
	waitForIdle(t, mgr, "doc-1")

	assert.Equal(t, entity.StatusReady, docRepo.status("doc-1"))
	assert.Equal(t, []entity.DocumentStatus{
		entity.StatusExtracting,
		entity.StatusChunking,
		entity.StatusChunksPersisted,
		entity.StatusEmbedding,
		entity.StatusReady,
	}, docRepo.statusTrail())
	assert.True(t, docRepo.markedEmbedded())

	chunks, err := chunkRepo.ListByDocumentID(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, 1, docRepo.totalChunks("doc-1"))

	// Every persisted chunk carries its embedding and provider name.
	for _, ch := range chunks {
		assert.Contains(t, chunkRepo.embedded, ch.ID)
		assert.Equal(t, "lexical", chunkRepo.providers[ch.ID])
	}

	stats := stores.GetStore("doc-1").Stats()
	assert.Equal(t, 1, stats.VectorCount)
}

func TestPipelineDuplicateStartIsNoOp(t *testing.T) {
	doc := &entity.Document{ID: "doc-1", FilePath: "/tmp/x.pdf", Status: entity.StatusUploaded}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	ext := &fakeExtractor{
		text:    "single paragraph of content",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	mgr, _ := newTestManager(t, docRepo, chunkRepo, ext)

	require.NoError(t, mgr.StartProcessing("doc-1"))
	<-ext.started

	err := mgr.StartProcessing("doc-1")
	assert.True(t, errors.Is(err, entity.ErrDuplicateProcessing))
	assert.Equal(t, 1, mgr.ActiveCount())

	close(ext.block)
	waitForIdle(t, mgr, "doc-1")

	// Exactly one pipeline ran: one delete, one batch insert.
	assert.Equal(t, 1, chunkRepo.deleteCalls)
	assert.Equal(t, 1, chunkRepo.createCalls)
	assert.Equal(t, entity.StatusReady, docRepo.status("doc-1"))
}

func TestPipelineWhitespaceDocumentFails(t *testing.T) {
	doc := &entity.Document{ID: "doc-1", FilePath: "/tmp/x.pdf", Status: entity.StatusUploaded}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	ext := &fakeExtractor{text: "   \n\n  \t  \n\n "}
	mgr, _ := newTestManager(t, docRepo, chunkRepo, ext)

	require.NoError(t, mgr.StartProcessing("doc-1"))
	waitForIdle(t, mgr, "doc-1")

	assert.Equal(t, entity.StatusFailed, docRepo.status("doc-1"))
	assert.Equal(t, 0, chunkRepo.createCalls, "no chunks persisted for an empty document")
}

func TestPipelineExtractionErrorFails(t *testing.T) {
	doc := &entity.Document{ID: "doc-1", FilePath: "/tmp/x.pdf", Status: entity.StatusUploaded}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	ext := &fakeExtractor{err: entity.ErrExtractionFailed}
	mgr, _ := newTestManager(t, docRepo, chunkRepo, ext)

	require.NoError(t, mgr.StartProcessing("doc-1"))
	waitForIdle(t, mgr, "doc-1")

	assert.Equal(t, entity.StatusFailed, docRepo.status("doc-1"))
}

func TestShutdownIdle(t *testing.T) {
	docRepo := newFakeDocRepo()
	mgr, _ := newTestManager(t, docRepo, newFakeChunkRepo(), &fakeExtractor{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, mgr.Shutdown(ctx))
}

func TestShutdownCancelsInFlightRun(t *testing.T) {
	doc := &entity.Document{ID: "doc-1", FilePath: "/tmp/x.pdf", Status: entity.StatusUploaded}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	ext := &fakeExtractor{
		text:    "paragraph of content",
		block:   make(chan struct{}),
		started: make(chan struct{}),
	}
	mgr, _ := newTestManager(t, docRepo, chunkRepo, ext)

	require.NoError(t, mgr.StartProcessing("doc-1"))
	<-ext.started

	// The extractor is still parked, so this shutdown can only end at
	// its deadline. It has already cancelled the run context.
	shortCtx, cancelShort := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShort()
	assert.ErrorIs(t, mgr.Shutdown(shortCtx), context.DeadlineExceeded)

	// Once the extractor comes back the run observes the cancellation,
	// unwinds, and the document lands in failed.
	close(ext.block)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, mgr.Shutdown(ctx))

	assert.False(t, mgr.Running("doc-1"))
	assert.Equal(t, entity.StatusFailed, docRepo.status("doc-1"))
	assert.Equal(t, 0, chunkRepo.createCalls, "no chunks persisted after cancellation")
}

func TestRerunReplacesChunkSet(t *testing.T) {
	doc := &entity.Document{ID: "doc-1", FilePath: "/tmp/x.pdf", Status: entity.StatusUploaded}
	docRepo := newFakeDocRepo(doc)
	chunkRepo := newFakeChunkRepo()
	ext := &fakeExtractor{text: "stable paragraph of content"}
	mgr, _ := newTestManager(t, docRepo, chunkRepo, ext)

	require.NoError(t, mgr.StartProcessing("doc-1"))
	waitForIdle(t, mgr, "doc-1")
	require.NoError(t, mgr.StartProcessing("doc-1"))
	waitForIdle(t, mgr, "doc-1")

	count, err := chunkRepo.CountByDocumentID(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count, "re-run must not duplicate chunks")
	assert.Equal(t, 2, chunkRepo.deleteCalls)
}
