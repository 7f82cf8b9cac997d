package contract

import (
	"context"

	"whatsapp-orderbot-be/internal/entity"

	"github.com/google/uuid"
)

// ScoredKnowledgeChunk is an embedded chunk with its parent document title and
// cosine similarity to the query (1.0 = identical).
type ScoredKnowledgeChunk struct {
	Embedding     *entity.KnowledgeEmbedding
	DocumentTitle string
	Similarity    float64
}

type KnowledgeDocumentRepository interface {
	Create(ctx context.Context, document *entity.KnowledgeDocument) error
	FindById(ctx context.Context, id uuid.UUID) (*entity.KnowledgeDocument, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.KnowledgeDocument, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type KnowledgeEmbeddingRepository interface {
	// ReplaceForDocument swaps a document's chunks in one transaction.
	ReplaceForDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.KnowledgeEmbedding) error
	DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error
	CountByDocumentId(ctx context.Context, documentId uuid.UUID) (int64, error)
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*ScoredKnowledgeChunk, error)
}
