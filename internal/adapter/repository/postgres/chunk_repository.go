package postgres

import (
	"context"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"
)

type chunkRepository struct {
	db *sqlx.DB
}

func NewChunkRepository(db *sqlx.DB) repository.ChunkRepository {
	return &chunkRepository{db: db}
}

// CreateBatch inserts all chunks in one transaction so a failed run
// never leaves a partial chunk set behind.
func (r *chunkRepository) CreateBatch(ctx context.Context, chunks []entity.DocumentChunk) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO document_chunks (id, document_id, chunk_index, chunk_text, page_number, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	for i := range chunks {
		chunks[i].ID = uuid.New().String()
		chunks[i].CreatedAt = time.Now()

		_, err := tx.ExecContext(ctx, query,
			chunks[i].ID,
			chunks[i].DocumentID,
			chunks[i].ChunkIndex,
			chunks[i].ChunkText,
			chunks[i].PageNumber,
			chunks[i].TokenCount,
			chunks[i].CreatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *chunkRepository) ListByDocumentID(ctx context.Context, documentID string) ([]entity.DocumentChunk, error) {
	var chunks []entity.DocumentChunk
	query := `
		SELECT id, document_id, chunk_index, chunk_text, page_number, token_count, created_at
		FROM document_chunks
		WHERE document_id = $1
		ORDER BY chunk_index
	`
	if err := r.db.SelectContext(ctx, &chunks, query, documentID); err != nil {
		return nil, err
	}
	return chunks, nil
}

// UpdateEmbedding stores the durable embedding record for a chunk.
func (r *chunkRepository) UpdateEmbedding(ctx context.Context, chunkID string, embedding pgvector.Vector, provider string) error {
	query := `UPDATE document_chunks SET embedding = $1, embedding_provider = $2 WHERE id = $3`
	_, err := r.db.ExecContext(ctx, query, embedding, provider, chunkID)
	return err
}

func (r *chunkRepository) DeleteByDocumentID(ctx context.Context, documentID string) error {
	query := `DELETE FROM document_chunks WHERE document_id = $1`
	_, err := r.db.ExecContext(ctx, query, documentID)
	return err
}

func (r *chunkRepository) CountByDocumentID(ctx context.Context, documentID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM document_chunks WHERE document_id = $1`
	if err := r.db.GetContext(ctx, &count, query, documentID); err != nil {
		return 0, err
	}
	return count, nil
}
