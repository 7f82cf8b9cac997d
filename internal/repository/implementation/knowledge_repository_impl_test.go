package implementation

import (
	"context"
	"log"
	"os"
	"testing"
	"time"

	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/model"
	"whatsapp-orderbot-be/pkg/database"
	"whatsapp-orderbot-be/pkg/embedding"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn, true)
	require.NoError(t, err)
	require.NoError(t, database.EnableVector(db))
	require.NoError(t, db.AutoMigrate(&model.KnowledgeDocument{}, &model.KnowledgeEmbedding{}))
	return db
}

// unitVector points along one axis so cosine similarity between two of them is 0 or 1.
func unitVector(axis int) []float32 {
	v := make([]float32, embedding.Dimensions)
	v[axis] = 1
	return v
}

func TestKnowledgeRepositories_Postgres(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	documents := NewKnowledgeDocumentRepository(db)
	embeddings := NewKnowledgeEmbeddingRepository(db)

	doc := &entity.KnowledgeDocument{
		Id:        uuid.New(),
		Title:     "Integration hours " + uuid.NewString(),
		Content:   "Open 8am to 6pm",
		Metadata:  map[string]interface{}{"lang": "en"},
		CreatedAt: time.Now(),
	}
	require.NoError(t, documents.Create(ctx, doc))
	t.Cleanup(func() { _ = documents.Delete(ctx, doc.Id) })

	found, err := documents.FindById(ctx, doc.Id)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "en", found.Metadata["lang"])

	chunks := []*entity.KnowledgeEmbedding{
		{Id: uuid.New(), Chunk: "Open 8am", EmbeddingValue: unitVector(700), ChunkIndex: 0},
		{Id: uuid.New(), Chunk: "to 6pm", EmbeddingValue: unitVector(701), ChunkIndex: 1},
	}
	require.NoError(t, embeddings.ReplaceForDocument(ctx, doc.Id, chunks))

	count, err := embeddings.CountByDocumentId(ctx, doc.Id)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	t.Run("nearest chunk first", func(t *testing.T) {
		results, err := embeddings.SearchSimilarWithScore(ctx, unitVector(701), 1, 0.99)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "to 6pm", results[0].Embedding.Chunk)
		assert.Equal(t, doc.Title, results[0].DocumentTitle)
		assert.InDelta(t, 1.0, results[0].Similarity, 0.0001)
	})

	t.Run("no threshold still returns dissimilar chunks", func(t *testing.T) {
		opposite := unitVector(701)
		opposite[701] = -1

		results, err := embeddings.SearchSimilarWithScore(ctx, opposite, 10000, 0)
		require.NoError(t, err)

		var found bool
		for _, r := range results {
			if r.Embedding.Chunk == "to 6pm" && r.Embedding.DocumentId == doc.Id {
				found = true
				assert.InDelta(t, -1.0, r.Similarity, 0.0001)
			}
		}
		assert.True(t, found)
	})

	t.Run("replace drops old chunks", func(t *testing.T) {
		require.NoError(t, embeddings.ReplaceForDocument(ctx, doc.Id, chunks[:1]))
		count, err := embeddings.CountByDocumentId(ctx, doc.Id)
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})

	t.Run("deleted documents are not searchable", func(t *testing.T) {
		require.NoError(t, documents.Delete(ctx, doc.Id))
		results, err := embeddings.SearchSimilarWithScore(ctx, unitVector(700), 5, 0.99)
		require.NoError(t, err)
		for _, r := range results {
			assert.NotEqual(t, doc.Id, r.Embedding.DocumentId)
		}

		gone, err := documents.FindById(ctx, doc.Id)
		require.NoError(t, err)
		assert.Nil(t, gone)
	})
}
