package search

import (
	"context"
	"errors"
	"testing"

	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	err      error
	lastTask string
}

func (s *stubEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	s.lastTask = taskType
	if s.err != nil {
		return nil, s.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{1, 0}}}, nil
}

type stubEmbeddingRepo struct {
	contract.KnowledgeEmbeddingRepository
	results   []*contract.ScoredKnowledgeChunk
	err       error
	lastLimit int
}

func (s *stubEmbeddingRepo) SearchSimilarWithScore(ctx context.Context, vec []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	s.lastLimit = limit
	return s.results, s.err
}

func TestOrchestrator_Retrieve(t *testing.T) {
	docID := uuid.New()
	repo := &stubEmbeddingRepo{
		results: []*contract.ScoredKnowledgeChunk{
			{
				Embedding:     &entity.KnowledgeEmbedding{Id: uuid.New(), DocumentId: docID, Chunk: "Open 8am to 6pm.", ChunkIndex: 2},
				DocumentTitle: "Hours",
				Similarity:    0.91,
			},
			nil,
		},
	}
	embedder := &stubEmbedder{}

	docs, err := NewOrchestrator(embedder, repo, 0).Retrieve(context.Background(), "when are you open", 1)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	assert.Equal(t, embedding.TaskRetrievalQuery, embedder.lastTask)
	assert.Equal(t, 1, repo.lastLimit)
	assert.Equal(t, docID.String(), docs[0].ID)
	assert.Equal(t, "Hours", docs[0].Title)
	assert.Equal(t, "Open 8am to 6pm.", docs[0].Content)
	assert.InDelta(t, 0.91, docs[0].Score, 0.0001)
	assert.Equal(t, 2, docs[0].Metadata["chunk_index"])
}

func TestOrchestrator_EmptyIndex(t *testing.T) {
	docs, err := NewOrchestrator(&stubEmbedder{}, &stubEmbeddingRepo{}, 0).Retrieve(context.Background(), "anything", 1)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestOrchestrator_Errors(t *testing.T) {
	boom := errors.New("boom")

	_, err := NewOrchestrator(&stubEmbedder{err: boom}, &stubEmbeddingRepo{}, 0).Retrieve(context.Background(), "q", 1)
	assert.ErrorIs(t, err, boom)

	_, err = NewOrchestrator(&stubEmbedder{}, &stubEmbeddingRepo{err: boom}, 0).Retrieve(context.Background(), "q", 1)
	assert.ErrorIs(t, err, boom)
}
