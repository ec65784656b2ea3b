package dto

import "time"

type ChatRequest struct {
	DocumentID string `json:"documentId"`
	Query      string `json:"query"`
}

type ChatHistoryEntry struct {
	ID             string    `json:"id"`
	DocumentID     string    `json:"documentId"`
	Question       string    `json:"question"`
	Answer         *string   `json:"answer"`
	RelevanceScore float64   `json:"relevanceScore"`
	ContextChunks  int       `json:"contextChunks"`
	Flagged        bool      `json:"flagged"`
	Timestamp      time.Time `json:"timestamp"`
}

type ChatHistoryResponse struct {
	Data []ChatHistoryEntry `json:"data"`
}
