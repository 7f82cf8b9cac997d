package entity

import (
	"time"

	"github.com/google/uuid"
)

// KnowledgeDocument is a source text the bot answers questions from.
type KnowledgeDocument struct {
	Id        uuid.UUID
	Title     string
	Content   string
	Source    string
	Metadata  map[string]interface{}
	CreatedAt time.Time
	UpdatedAt *time.Time
}

// KnowledgeEmbedding is one embedded chunk of a KnowledgeDocument.
type KnowledgeEmbedding struct {
	Id             uuid.UUID
	DocumentId     uuid.UUID
	Chunk          string
	EmbeddingValue []float32
	ChunkIndex     int
	CreatedAt      time.Time
}
