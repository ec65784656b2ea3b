package entity

import "time"

type DocumentStatus string
type DocumentVisibility string

const (
	StatusUploaded        DocumentStatus = "uploaded"
	StatusExtracting      DocumentStatus = "extracting"
	StatusChunking        DocumentStatus = "chunking"
	StatusChunksPersisted DocumentStatus = "chunks_persisted"
	StatusEmbedding       DocumentStatus = "embedding"
	StatusReady           DocumentStatus = "ready"
	StatusFailed          DocumentStatus = "failed"

	VisibilityPublic  DocumentVisibility = "public"
	VisibilityPrivate DocumentVisibility = "private"
)

// Terminal reports whether the status ends a pipeline run. A failed
// document may be re-submitted, which restarts it from StatusUploaded.
func (s DocumentStatus) Terminal() bool {
	return s == StatusReady || s == StatusFailed
}

type Document struct {
	ID           string             `db:"id" json:"id"`
	UserID       string             `db:"user_id" json:"userId"`
	Filename     string             `db:"filename" json:"filename"`
	OriginalName string             `db:"original_name" json:"originalName"`
	FilePath     string             `db:"file_path" json:"-"`
	FileSize     int64              `db:"file_size" json:"fileSize"`
	MimeType     string             `db:"mime_type" json:"mimeType"`
	Status       DocumentStatus     `db:"status" json:"status"`
	TotalChunks  int                `db:"total_chunks" json:"totalChunks"`
	Visibility   DocumentVisibility `db:"visibility" json:"visibility"`
	EmbeddedAt   *time.Time         `db:"embedded_at" json:"embeddedAt,omitempty"`
	CreatedAt    time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time          `db:"updated_at" json:"updatedAt"`
}
