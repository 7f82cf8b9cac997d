package search

import (
	"context"
	"fmt"

	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/pkg/embedding"
	"whatsapp-orderbot-be/pkg/store"
)

// Orchestrator embeds a query and runs the vector search against the knowledge index.
type Orchestrator struct {
	embeddingProvider embedding.EmbeddingProvider
	embeddings        contract.KnowledgeEmbeddingRepository
	threshold         float64
}

func NewOrchestrator(embeddingProvider embedding.EmbeddingProvider, embeddings contract.KnowledgeEmbeddingRepository, threshold float64) *Orchestrator {
	return &Orchestrator{
		embeddingProvider: embeddingProvider,
		embeddings:        embeddings,
		threshold:         threshold,
	}
}

// Retrieve returns up to k passages ordered by similarity. An empty result is not an error.
func (o *Orchestrator) Retrieve(ctx context.Context, query string, k int) ([]store.Document, error) {
	embeddingRes, err := o.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	scored, err := o.embeddings.SearchSimilarWithScore(ctx, embeddingRes.Embedding.Values, k, o.threshold)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	docs := make([]store.Document, 0, len(scored))
	for _, s := range scored {
		if s == nil || s.Embedding == nil {
			continue
		}
		docs = append(docs, store.Document{
			ID:      s.Embedding.DocumentId.String(),
			Title:   s.DocumentTitle,
			Content: s.Embedding.Chunk,
			Score:   float32(s.Similarity),
			Metadata: map[string]interface{}{
				"chunk_index":  s.Embedding.ChunkIndex,
				"embedding_id": s.Embedding.Id.String(),
			},
		})
	}
	return docs, nil
}
