package mapper

import (
	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KnowledgeMapper struct{}

func NewKnowledgeMapper() *KnowledgeMapper {
	return &KnowledgeMapper{}
}

func (m *KnowledgeMapper) DocumentToEntity(d *model.KnowledgeDocument) *entity.KnowledgeDocument {
	if d == nil {
		return nil
	}

	e := &entity.KnowledgeDocument{
		Id:        d.Id,
		Title:     d.Title,
		Content:   d.Content,
		Source:    d.Source,
		Metadata:  map[string]interface{}(d.Metadata),
		CreatedAt: d.CreatedAt,
	}
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		e.UpdatedAt = &t
	}
	return e
}

func (m *KnowledgeMapper) DocumentToModel(e *entity.KnowledgeDocument) *model.KnowledgeDocument {
	if e == nil {
		return nil
	}

	d := &model.KnowledgeDocument{
		Id:        e.Id,
		Title:     e.Title,
		Content:   e.Content,
		Source:    e.Source,
		CreatedAt: e.CreatedAt,
	}
	if e.Metadata != nil {
		d.Metadata = datatypes.JSONMap(e.Metadata)
	}
	if e.UpdatedAt != nil {
		d.UpdatedAt = *e.UpdatedAt
	}
	return d
}

func (m *KnowledgeMapper) EmbeddingToEntity(k *model.KnowledgeEmbedding) *entity.KnowledgeEmbedding {
	if k == nil {
		return nil
	}

	return &entity.KnowledgeEmbedding{
		Id:             k.Id,
		DocumentId:     k.DocumentId,
		Chunk:          k.Chunk,
		EmbeddingValue: k.EmbeddingValue.Slice(),
		ChunkIndex:     k.ChunkIndex,
		CreatedAt:      k.CreatedAt,
	}
}

func (m *KnowledgeMapper) EmbeddingToModel(e *entity.KnowledgeEmbedding) *model.KnowledgeEmbedding {
	if e == nil {
		return nil
	}

	return &model.KnowledgeEmbedding{
		Id:             e.Id,
		DocumentId:     e.DocumentId,
		Chunk:          e.Chunk,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		ChunkIndex:     e.ChunkIndex,
		CreatedAt:      e.CreatedAt,
	}
}
