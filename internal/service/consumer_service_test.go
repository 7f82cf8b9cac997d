package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testTopic = "EMBED_KNOWLEDGE_DOCUMENT"

func seedDocument(t *testing.T, repo *memoryDocumentRepo, content string) *entity.KnowledgeDocument {
	t.Helper()
	doc := &entity.KnowledgeDocument{Id: uuid.New(), Title: "Price list", Content: content, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(context.Background(), doc))
	return doc
}

func TestConsumer_IndexDocumentChunksAndReplaces(t *testing.T) {
	docs := newMemoryDocumentRepo()
	embeddings := newMemoryEmbeddingRepo()
	bus := &recordingBus{}
	embedder := &countingEmbedder{}

	doc := seedDocument(t, docs, strings.Repeat("Maize flour costs 120 per kg. ", 120))
	cs := NewConsumerService(nil, testTopic, docs, embeddings, embedder, bus, nil)

	n, err := cs.IndexDocument(context.Background(), doc.Id)
	require.NoError(t, err)

	stored := embeddings.get(doc.Id)
	assert.Greater(t, n, 1)
	assert.Len(t, stored, n)
	assert.Equal(t, n, embedder.calls)
	for i, e := range stored {
		assert.Equal(t, i, e.ChunkIndex)
		assert.Equal(t, doc.Id, e.DocumentId)
		assert.LessOrEqual(t, len([]rune(e.Chunk)), chunkSize)
	}
	assert.True(t, strings.HasPrefix(stored[0].Chunk, "Price list\n\n"))
	assert.Equal(t, []string{events.TypeKnowledgeIndexed}, bus.types())

	// re-indexing replaces rather than appends
	_, err = cs.IndexDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Len(t, embeddings.get(doc.Id), n)
}

func TestConsumer_IndexMissingDocument(t *testing.T) {
	cs := NewConsumerService(nil, testTopic, newMemoryDocumentRepo(), newMemoryEmbeddingRepo(), &countingEmbedder{}, nil, nil)

	_, err := cs.IndexDocument(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrDocumentNotFound)
}

func TestConsumer_EmbeddingFailureStoresNothing(t *testing.T) {
	docs := newMemoryDocumentRepo()
	embeddings := newMemoryEmbeddingRepo()
	boom := errors.New("ollama down")
	doc := seedDocument(t, docs, "short text")

	cs := NewConsumerService(nil, testTopic, docs, embeddings, &countingEmbedder{failures: 1, err: boom}, nil, nil)

	_, err := cs.IndexDocument(context.Background(), doc.Id)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, embeddings.get(doc.Id))
}

func newTestPubSub() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
}

func TestConsumer_ConsumesPublishedJobs(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	docs := newMemoryDocumentRepo()
	embeddings := newMemoryEmbeddingRepo()
	doc := seedDocument(t, docs, "We deliver every Tuesday.")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := NewConsumerService(pubSub, testTopic, docs, embeddings, &countingEmbedder{}, nil, nil)
	require.NoError(t, cs.Consume(ctx))

	require.NoError(t, NewPublisherService(testTopic, pubSub).PublishEmbedKnowledge(context.Background(), doc.Id))

	assert.Eventually(t, func() bool {
		return len(embeddings.get(doc.Id)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestConsumer_RetriesThenSucceeds(t *testing.T) {
	pubSub := newTestPubSub()
	defer pubSub.Close()

	docs := newMemoryDocumentRepo()
	embeddings := newMemoryEmbeddingRepo()
	doc := seedDocument(t, docs, "Open 8am to 6pm.")
	embedder := &countingEmbedder{failures: 1, err: errors.New("transient")}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cs := NewConsumerService(pubSub, testTopic, docs, embeddings, embedder, nil, nil).(*consumerService)
	cs.retryDelay = time.Millisecond
	require.NoError(t, cs.Consume(ctx))

	require.NoError(t, NewPublisherService(testTopic, pubSub).PublishEmbedKnowledge(context.Background(), doc.Id))

	assert.Eventually(t, func() bool {
		return len(embeddings.get(doc.Id)) == 1
	}, 2*time.Second, 10*time.Millisecond)
}
