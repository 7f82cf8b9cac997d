package implementation

import (
	"context"
	"errors"

	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/mapper"
	"whatsapp-orderbot-be/internal/model"
	"whatsapp-orderbot-be/internal/repository/contract"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type KnowledgeDocumentRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeMapper
}

func NewKnowledgeDocumentRepository(db *gorm.DB) contract.KnowledgeDocumentRepository {
	return &KnowledgeDocumentRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeMapper(),
	}
}

func (r *KnowledgeDocumentRepositoryImpl) Create(ctx context.Context, document *entity.KnowledgeDocument) error {
	m := r.mapper.DocumentToModel(document)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*document = *r.mapper.DocumentToEntity(m)
	return nil
}

func (r *KnowledgeDocumentRepositoryImpl) FindById(ctx context.Context, id uuid.UUID) (*entity.KnowledgeDocument, error) {
	var m model.KnowledgeDocument
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.DocumentToEntity(&m), nil
}

func (r *KnowledgeDocumentRepositoryImpl) FindAll(ctx context.Context, limit, offset int) ([]*entity.KnowledgeDocument, error) {
	if limit <= 0 {
		limit = 20
	}
	var models []*model.KnowledgeDocument
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entities := make([]*entity.KnowledgeDocument, len(models))
	for i, m := range models {
		entities[i] = r.mapper.DocumentToEntity(m)
	}
	return entities, nil
}

// Delete soft-deletes the document and hard-deletes its chunks so they drop out of search.
func (r *KnowledgeDocumentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.KnowledgeEmbedding{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.KnowledgeDocument{}, "id = ?", id).Error
	})
}
