package dto

import "time"

type UploadDocumentResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type DocumentInfo struct {
	ID           string     `json:"id"`
	Filename     string     `json:"filename"`
	OriginalName string     `json:"originalName"`
	FileSize     int64      `json:"fileSize"`
	MimeType     string     `json:"mimeType"`
	Status       string     `json:"status"`
	TotalChunks  int        `json:"totalChunks"`
	Visibility   string     `json:"visibility"`
	EmbeddedAt   *time.Time `json:"embeddedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type ListDocumentsResponse struct {
	Data []DocumentInfo `json:"data"`
	Meta PaginationMeta `json:"meta"`
}

type PaginationMeta struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	TotalPages int `json:"totalPages"`
}
