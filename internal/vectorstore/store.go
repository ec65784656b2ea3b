package vectorstore

import (
	"context"
	"encoding/gob"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/embedding"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"
)

// Store is a per-document vector index: an N×D matrix of normalized
// vectors and a parallel metadata slice. Row count and metadata length
// are always equal; readers take the read lock, a rebuild holds the
// write lock for the whole swap.
type Store struct {
	documentID string
	provider   embedding.Provider
	batchSize  int
	log        *logger.Logger

	embeddingsPath string
	metadataPath   string

	mu        sync.RWMutex
	dim       int
	vectors   [][]float32
	meta      []entity.ChunkRef
	updatedAt time.Time
}

// Stats is a read-only snapshot of store shape and identity.
type Stats struct {
	DocumentID  string    `json:"documentId"`
	VectorCount int       `json:"vectorCount"`
	Dimension   int       `json:"dimension"`
	Provider    string    `json:"provider"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type matrixSnapshot struct {
	Dimension int
	Vectors   [][]float32
}

// NewStore opens the store for a document, restoring a persisted
// snapshot when one exists. A missing or unreadable snapshot pair
// yields an empty store with the provider's current dimension.
func NewStore(documentID, dir string, provider embedding.Provider, batchSize int, log *logger.Logger) *Store {
	if batchSize <= 0 {
		batchSize = 64
	}
	s := &Store{
		documentID:     documentID,
		provider:       provider,
		batchSize:      batchSize,
		log:            log,
		embeddingsPath: filepath.Join(dir, fmt.Sprintf("doc_%s_embeddings.gob", documentID)),
		metadataPath:   filepath.Join(dir, fmt.Sprintf("doc_%s_metadata.gob", documentID)),
		dim:            provider.Dimension(),
	}
	if err := s.Load(); err != nil {
		log.Warn("vector store snapshot unreadable, starting empty",
			"document_id", documentID, "error", err)
		s.reset()
	}
	return s
}

// AddTexts embeds the texts and appends rows with their metadata.
// Nothing is appended on any error, so readers never observe a
// partial add. Returns the computed vectors for callers that also
// persist them elsewhere.
func (s *Store) AddTexts(ctx context.Context, texts []string, meta []entity.ChunkRef) ([][]float32, error) {
	if len(texts) != len(meta) {
		return nil, fmt.Errorf("add_texts: %d texts but %d metadata entries", len(texts), len(meta))
	}
	if len(texts) == 0 {
		return nil, nil
	}

	vecs, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDims(vecs); err != nil {
		return nil, err
	}
	s.vectors = append(s.vectors, vecs...)
	s.meta = append(s.meta, meta...)
	s.updatedAt = time.Now()
	return vecs, nil
}

// Rebuild atomically replaces the entire store contents. Embedding
// happens outside the lock; readers observe either the old rows or the
// full new set, never an empty intermediate state.
func (s *Store) Rebuild(ctx context.Context, texts []string, meta []entity.ChunkRef) ([][]float32, error) {
	if len(texts) != len(meta) {
		return nil, fmt.Errorf("rebuild: %d texts but %d metadata entries", len(texts), len(meta))
	}

	vecs, err := s.embedAll(ctx, texts)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkDims(vecs); err != nil {
		return nil, err
	}
	s.dim = s.provider.Dimension()
	s.vectors = vecs
	s.meta = meta
	s.updatedAt = time.Now()
	return vecs, nil
}

// SimilaritySearch embeds the query and scores it against every row.
// Results are the top k with score >= threshold, sorted descending,
// ties kept in insertion order. An empty store yields an empty slice.
func (s *Store) SimilaritySearch(ctx context.Context, query string, k int, threshold float64) ([]entity.ScoredChunk, error) {
	s.mu.RLock()
	empty := len(s.vectors) == 0
	s.mu.RUnlock()
	if empty {
		return []entity.ScoredChunk{}, nil
	}

	qvec, err := s.provider.EmbedOne(ctx, query)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scores := make([]float64, len(s.vectors))
	for i, row := range s.vectors {
		scores[i] = cosine(qvec, row)
	}

	idxs := make([]int, len(scores))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool { return scores[idxs[a]] > scores[idxs[b]] })

	if k > len(idxs) {
		k = len(idxs)
	}
	results := make([]entity.ScoredChunk, 0, k)
	for _, idx := range idxs[:k] {
		if scores[idx] < threshold {
			continue
		}
		results = append(results, entity.ScoredChunk{Ref: s.meta[idx], Score: scores[idx]})
	}
	return results, nil
}

// Clear empties the store and removes any persisted snapshot.
// Idempotent.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset()

	for _, path := range []string{s.embeddingsPath, s.metadataPath} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove snapshot %s: %w", path, err)
		}
	}
	return nil
}

// Save serializes the matrix and metadata as the two snapshot
// artifacts for this document.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(s.embeddingsPath), 0o755); err != nil {
		return err
	}
	if err := writeGob(s.embeddingsPath, matrixSnapshot{Dimension: s.dim, Vectors: s.vectors}); err != nil {
		return fmt.Errorf("save embeddings snapshot: %w", err)
	}
	if err := writeGob(s.metadataPath, s.meta); err != nil {
		return fmt.Errorf("save metadata snapshot: %w", err)
	}
	s.log.Debug("vector store saved", "document_id", s.documentID, "rows", len(s.vectors))
	return nil
}

// Load restores the snapshot pair. When either artifact is missing the
// store initializes empty rather than failing.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matrix matrixSnapshot
	if err := readGob(s.embeddingsPath, &matrix); err != nil {
		if os.IsNotExist(err) {
			s.reset()
			return nil
		}
		return fmt.Errorf("load embeddings snapshot: %w", err)
	}
	var meta []entity.ChunkRef
	if err := readGob(s.metadataPath, &meta); err != nil {
		if os.IsNotExist(err) {
			s.reset()
			return nil
		}
		return fmt.Errorf("load metadata snapshot: %w", err)
	}
	if len(matrix.Vectors) != len(meta) {
		s.reset()
		return fmt.Errorf("%w: snapshot has %d rows but %d metadata entries",
			entity.ErrDimensionMismatch, len(matrix.Vectors), len(meta))
	}

	s.dim = matrix.Dimension
	s.vectors = matrix.Vectors
	if meta == nil {
		meta = []entity.ChunkRef{}
	}
	s.meta = meta
	s.updatedAt = time.Now()
	return nil
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		DocumentID:  s.documentID,
		VectorCount: len(s.meta),
		Dimension:   s.dim,
		Provider:    s.provider.Name(),
		LastUpdated: s.updatedAt,
	}
}

// embedAll runs the provider in bounded batches and concatenates the
// rows. Runs outside the store lock.
func (s *Store) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := s.provider.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// reset empties matrix and metadata together. Caller holds the lock.
func (s *Store) reset() {
	s.dim = s.provider.Dimension()
	s.vectors = nil
	s.meta = []entity.ChunkRef{}
	s.updatedAt = time.Now()
}

// checkDims guards the row-width invariant. Caller holds the lock.
func (s *Store) checkDims(vecs [][]float32) error {
	for i, v := range vecs {
		if len(v) != s.dim {
			return fmt.Errorf("%w: row %d has width %d, store expects %d",
				entity.ErrDimensionMismatch, i, len(v), s.dim)
		}
	}
	return nil
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func writeGob(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewEncoder(f).Encode(v)
}

func readGob(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return gob.NewDecoder(f).Decode(v)
}
