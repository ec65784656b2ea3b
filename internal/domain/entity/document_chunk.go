package entity

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// DocumentChunk is the canonical chunk record. The chunk owns the raw
// text; chunk_index is 0-based and monotonic per document with no gaps.
type DocumentChunk struct {
	ID         string          `db:"id" json:"id"`
	DocumentID string          `db:"document_id" json:"documentId"`
	ChunkIndex int             `db:"chunk_index" json:"chunkIndex"`
	ChunkText  string          `db:"chunk_text" json:"chunkText"`
	PageNumber *int            `db:"page_number" json:"pageNumber,omitempty"`
	TokenCount int             `db:"token_count" json:"tokenCount"`
	Embedding  pgvector.Vector `db:"embedding" json:"-"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}

// ChunkRef is the metadata carried alongside each vector store row,
// one entry per matrix row.
type ChunkRef struct {
	ChunkID    string `json:"chunkId"`
	DocumentID string `json:"documentId"`
	ChunkIndex int    `json:"chunkIndex"`
	PageNumber *int   `json:"pageNumber,omitempty"`
	TokenCount int    `json:"tokenCount"`
	ChunkText  string `json:"chunkText"`
}

// ScoredChunk is a vector store search hit.
type ScoredChunk struct {
	Ref   ChunkRef `json:"ref"`
	Score float64  `json:"score"`
}
