package vectorstore

import (
	"os"
	"sync"

	"github.com/nevinnnnnnn/ARTIKLE/internal/adapter/embedding"
	"github.com/nevinnnnnnn/ARTIKLE/pkg/logger"
)

// Manager hands out one Store per document id. Stores for different
// documents are fully independent; the manager lock only guards the
// map itself.
type Manager struct {
	dir       string
	provider  embedding.Provider
	batchSize int
	log       *logger.Logger

	mu     sync.Mutex
	stores map[string]*Store
}

func NewManager(dir string, provider embedding.Provider, batchSize int, log *logger.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &Manager{
		dir:       dir,
		provider:  provider,
		batchSize: batchSize,
		log:       log,
		stores:    make(map[string]*Store),
	}, nil
}

// GetStore returns the store for a document, opening (and loading any
// snapshot of) it on first use.
func (m *Manager) GetStore(documentID string) *Store {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stores[documentID]; ok {
		return s
	}
	s := NewStore(documentID, m.dir, m.provider, m.batchSize, m.log)
	m.stores[documentID] = s
	return s
}

// DeleteStore clears a document's store and forgets it.
func (m *Manager) DeleteStore(documentID string) error {
	m.mu.Lock()
	s, ok := m.stores[documentID]
	if ok {
		delete(m.stores, documentID)
	}
	m.mu.Unlock()

	if !ok {
		// Still remove any on-disk snapshot left by a previous process.
		s = NewStore(documentID, m.dir, m.provider, m.batchSize, m.log)
	}
	return s.Clear()
}

// SaveAll persists every open store.
func (m *Manager) SaveAll() error {
	m.mu.Lock()
	open := make([]*Store, 0, len(m.stores))
	for _, s := range m.stores {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		if err := s.Save(); err != nil {
			return err
		}
	}
	return nil
}

// AllStats reports stats for every open store.
func (m *Manager) AllStats() map[string]Stats {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]Stats, len(m.stores))
	for id, s := range m.stores {
		out[id] = s.Stats()
	}
	return out
}
