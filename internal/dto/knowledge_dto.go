package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateKnowledgeDocumentRequest struct {
	Title    string                 `json:"title" validate:"required,max=255"`
	Content  string                 `json:"content" validate:"required"`
	Source   string                 `json:"source" validate:"omitempty,max=255"`
	Metadata map[string]interface{} `json:"metadata"`
}

type CreateKnowledgeDocumentResponse struct {
	Id uuid.UUID `json:"id"`
}

type ShowKnowledgeDocumentResponse struct {
	Id         uuid.UUID              `json:"id"`
	Title      string                 `json:"title"`
	Content    string                 `json:"content"`
	Source     string                 `json:"source"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
	ChunkCount int64                  `json:"chunk_count"`
	CreatedAt  time.Time              `json:"created_at"`
	UpdatedAt  *time.Time             `json:"updated_at"`
}

type KnowledgeSearchResponse struct {
	DocumentId string  `json:"document_id"`
	Title      string  `json:"title"`
	Content    string  `json:"content"`
	Score      float32 `json:"score"`
}

// PublishEmbedKnowledgeMessage is the watermill payload of an embed job.
type PublishEmbedKnowledgeMessage struct {
	DocumentId uuid.UUID `json:"document_id"`
}
