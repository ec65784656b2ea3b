package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type documentRepository struct {
	db *sqlx.DB
}

func NewDocumentRepository(db *sqlx.DB) repository.DocumentRepository {
	return &documentRepository{db: db}
}

func (r *documentRepository) Create(ctx context.Context, doc *entity.Document) error {
	doc.ID = uuid.New().String()
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = time.Now()

	query := `
		INSERT INTO documents (id, user_id, filename, original_name, file_path, file_size, mime_type, status, total_chunks, visibility, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		doc.ID, doc.UserID, doc.Filename, doc.OriginalName, doc.FilePath,
		doc.FileSize, doc.MimeType, doc.Status, doc.TotalChunks, doc.Visibility,
		doc.CreatedAt, doc.UpdatedAt,
	)
	return err
}

func (r *documentRepository) FindByID(ctx context.Context, id string) (*entity.Document, error) {
	var doc entity.Document
	query := `SELECT * FROM documents WHERE id = $1`
	err := r.db.GetContext(ctx, &doc, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) FindByIDAndUserID(ctx context.Context, id, userID string) (*entity.Document, error) {
	var doc entity.Document
	query := `SELECT * FROM documents WHERE id = $1 AND user_id = $2`
	err := r.db.GetContext(ctx, &doc, query, id, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepository) List(ctx context.Context, userID string, page, limit int) ([]entity.Document, int, error) {
	offset := (page - 1) * limit

	var docs []entity.Document
	query := `SELECT * FROM documents WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	if err := r.db.SelectContext(ctx, &docs, query, userID, limit, offset); err != nil {
		return nil, 0, err
	}

	var total int
	query = `SELECT COUNT(*) FROM documents WHERE user_id = $1`
	if err := r.db.GetContext(ctx, &total, query, userID); err != nil {
		return nil, 0, err
	}

	return docs, total, nil
}

func (r *documentRepository) UpdateStatus(ctx context.Context, id string, status entity.DocumentStatus) error {
	query := `UPDATE documents SET status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, status, id)
	return err
}

func (r *documentRepository) UpdateTotalChunks(ctx context.Context, id string, totalChunks int) error {
	query := `UPDATE documents SET total_chunks = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.db.ExecContext(ctx, query, totalChunks, id)
	return err
}

// MarkEmbedded stamps the embedding completion marker. Only set after
// the vector store for the document has been fully rebuilt and saved.
func (r *documentRepository) MarkEmbedded(ctx context.Context, id string) error {
	query := `UPDATE documents SET embedded_at = NOW(), updated_at = NOW() WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

func (r *documentRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
