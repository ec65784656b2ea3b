package entity

import "time"

// ChatMessage is one persisted question/answer exchange. Append-only,
// never mutated after creation. Answer stays nil when generation failed
// before producing any text.
type ChatMessage struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"userId"`
	DocumentID     string    `db:"document_id" json:"documentId"`
	Question       string    `db:"question" json:"question"`
	Answer         *string   `db:"answer" json:"answer"`
	RelevanceScore float64   `db:"relevance_score" json:"relevanceScore"`
	ContextChunks  int       `db:"context_chunks" json:"contextChunks"`
	Flagged        bool      `db:"flagged" json:"flagged"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}
