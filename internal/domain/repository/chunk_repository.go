package repository

import (
	"context"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"

	"github.com/pgvector/pgvector-go"
)

type ChunkRepository interface {
	// CreateBatch persists all chunks of one pipeline run in a single
	// transaction, in chunk_index order.
	CreateBatch(ctx context.Context, chunks []entity.DocumentChunk) error
	ListByDocumentID(ctx context.Context, documentID string) ([]entity.DocumentChunk, error)
	UpdateEmbedding(ctx context.Context, chunkID string, embedding pgvector.Vector, provider string) error
	DeleteByDocumentID(ctx context.Context, documentID string) error
	CountByDocumentID(ctx context.Context, documentID string) (int, error)
}
