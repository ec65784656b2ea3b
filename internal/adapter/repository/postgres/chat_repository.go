package postgres

import (
	"context"
	"time"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type chatRepository struct {
	db *sqlx.DB
}

func NewChatRepository(db *sqlx.DB) repository.ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) Create(ctx context.Context, msg *entity.ChatMessage) error {
	msg.ID = uuid.New().String()
	msg.CreatedAt = time.Now()

	query := `
		INSERT INTO chat_messages (id, user_id, document_id, question, answer, relevance_score, context_chunks, flagged, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		msg.ID, msg.UserID, msg.DocumentID, msg.Question, msg.Answer,
		msg.RelevanceScore, msg.ContextChunks, msg.Flagged, msg.CreatedAt,
	)
	return err
}

func (r *chatRepository) ListByUser(ctx context.Context, userID string, limit int) ([]entity.ChatMessage, error) {
	var msgs []entity.ChatMessage
	query := `
		SELECT * FROM chat_messages
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &msgs, query, userID, limit); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) ListByUserAndDocument(ctx context.Context, userID, documentID string, limit int) ([]entity.ChatMessage, error) {
	var msgs []entity.ChatMessage
	query := `
		SELECT * FROM chat_messages
		WHERE user_id = $1 AND document_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	if err := r.db.SelectContext(ctx, &msgs, query, userID, documentID, limit); err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *chatRepository) DeleteByUser(ctx context.Context, userID string, documentID string) (int, error) {
	query := `DELETE FROM chat_messages WHERE user_id = $1`
	args := []interface{}{userID}
	if documentID != "" {
		query += ` AND document_id = $2`
		args = append(args, documentID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
