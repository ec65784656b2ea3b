package repository

import (
	"context"

	"github.com/nevinnnnnnn/ARTIKLE/internal/domain/entity"
)

type ChatRepository interface {
	Create(ctx context.Context, msg *entity.ChatMessage) error
	ListByUser(ctx context.Context, userID string, limit int) ([]entity.ChatMessage, error)
	ListByUserAndDocument(ctx context.Context, userID, documentID string, limit int) ([]entity.ChatMessage, error)
	DeleteByUser(ctx context.Context, userID string, documentID string) (int, error)
}
