package implementation

import (
	"context"

	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/mapper"
	"whatsapp-orderbot-be/internal/model"
	"whatsapp-orderbot-be/internal/repository/contract"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type similarityRow struct {
	model.KnowledgeEmbedding
	DocumentTitle string
	Similarity    float64
}

type KnowledgeEmbeddingRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeMapper
}

func NewKnowledgeEmbeddingRepository(db *gorm.DB) contract.KnowledgeEmbeddingRepository {
	return &KnowledgeEmbeddingRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeMapper(),
	}
}

func (r *KnowledgeEmbeddingRepositoryImpl) ReplaceForDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.KnowledgeEmbedding) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", documentId).Delete(&model.KnowledgeEmbedding{}).Error; err != nil {
			return err
		}
		if len(embeddings) == 0 {
			return nil
		}

		models := make([]*model.KnowledgeEmbedding, len(embeddings))
		for i, e := range embeddings {
			e.DocumentId = documentId
			models[i] = r.mapper.EmbeddingToModel(e)
		}
		if err := tx.Create(models).Error; err != nil {
			return err
		}

		for i, m := range models {
			*embeddings[i] = *r.mapper.EmbeddingToEntity(m)
		}
		return nil
	})
}

func (r *KnowledgeEmbeddingRepositoryImpl) DeleteByDocumentId(ctx context.Context, documentId uuid.UUID) error {
	return r.db.WithContext(ctx).Where("document_id = ?", documentId).Delete(&model.KnowledgeEmbedding{}).Error
}

func (r *KnowledgeEmbeddingRepositoryImpl) CountByDocumentId(ctx context.Context, documentId uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.KnowledgeEmbedding{}).
		Where("document_id = ?", documentId).
		Count(&count).Error
	return count, err
}

// SearchSimilarWithScore returns the nearest chunks by cosine similarity,
// skipping chunks of soft-deleted documents. A threshold <= 0 applies no
// floor, so the nearest chunk is returned however dissimilar it is.
func (r *KnowledgeEmbeddingRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, threshold float64) ([]*contract.ScoredKnowledgeChunk, error) {
	var results []similarityRow
	if err := r.similarityQuery(ctx, embedding, limit, threshold).Scan(&results).Error; err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredKnowledgeChunk, len(results))
	for i := range results {
		scored[i] = &contract.ScoredKnowledgeChunk{
			Embedding:     r.mapper.EmbeddingToEntity(&results[i].KnowledgeEmbedding),
			DocumentTitle: results[i].DocumentTitle,
			Similarity:    results[i].Similarity,
		}
	}
	return scored, nil
}

// similarityQuery orders by the raw <=> distance so the HNSW
// vector_cosine_ops index can serve it.
func (r *KnowledgeEmbeddingRepositoryImpl) similarityQuery(ctx context.Context, embedding []float32, limit int, threshold float64) *gorm.DB {
	if limit <= 0 {
		limit = 1
	}
	queryVector := pgvector.NewVector(embedding)

	// pgvector cosine distance is 1 - cosine_similarity
	query := r.db.WithContext(ctx).
		Table("knowledge_embeddings").
		Select("knowledge_embeddings.*, knowledge_documents.title AS document_title, 1 - (knowledge_embeddings.embedding_value <=> ?) AS similarity", queryVector).
		Joins("JOIN knowledge_documents ON knowledge_documents.id = knowledge_embeddings.document_id").
		Where("knowledge_documents.deleted_at IS NULL")

	if threshold > 0 {
		query = query.Where("knowledge_embeddings.embedding_value <=> ? <= ?", queryVector, 1-threshold)
	}

	return query.
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:  "knowledge_embeddings.embedding_value <=> ?",
			Vars: []interface{}{queryVector},
		}}).
		Limit(limit)
}
