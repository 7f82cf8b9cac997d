package service

import (
	"context"
	"strings"
	"time"

	"whatsapp-orderbot-be/internal/dto"
	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/pkg/rag"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

const maxSearchResults = 10

type IKnowledgeService interface {
	Create(ctx context.Context, req *dto.CreateKnowledgeDocumentRequest) (*dto.CreateKnowledgeDocumentResponse, error)
	Show(ctx context.Context, id uuid.UUID) (*dto.ShowKnowledgeDocumentResponse, error)
	List(ctx context.Context, limit, offset int) ([]*dto.ShowKnowledgeDocumentResponse, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, k int) ([]*dto.KnowledgeSearchResponse, error)
}

type knowledgeService struct {
	documents        contract.KnowledgeDocumentRepository
	embeddings       contract.KnowledgeEmbeddingRepository
	publisherService IPublisherService
	retriever        rag.Retriever
	logger           logger.ILogger
}

func NewKnowledgeService(
	documents contract.KnowledgeDocumentRepository,
	embeddings contract.KnowledgeEmbeddingRepository,
	publisherService IPublisherService,
	retriever rag.Retriever,
	log logger.ILogger,
) IKnowledgeService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &knowledgeService{
		documents:        documents,
		embeddings:       embeddings,
		publisherService: publisherService,
		retriever:        retriever,
		logger:           log,
	}
}

func (s *knowledgeService) Create(ctx context.Context, req *dto.CreateKnowledgeDocumentRequest) (*dto.CreateKnowledgeDocumentResponse, error) {
	document := &entity.KnowledgeDocument{
		Id:        uuid.New(),
		Title:     strings.TrimSpace(req.Title),
		Content:   req.Content,
		Source:    req.Source,
		Metadata:  req.Metadata,
		CreatedAt: time.Now(),
	}

	if err := s.documents.Create(ctx, document); err != nil {
		return nil, err
	}

	// The document is saved; indexing can be re-triggered, so a queue failure is only logged.
	if err := s.publisherService.PublishEmbedKnowledge(ctx, document.Id); err != nil {
		s.logger.Error(logger.ModuleIngest, "Failed to enqueue embed job", map[string]interface{}{
			"document_id": document.Id.String(),
			"error":       err.Error(),
		})
	}

	return &dto.CreateKnowledgeDocumentResponse{Id: document.Id}, nil
}

func (s *knowledgeService) Show(ctx context.Context, id uuid.UUID) (*dto.ShowKnowledgeDocumentResponse, error) {
	document, err := s.documents.FindById(ctx, id)
	if err != nil {
		return nil, err
	}
	if document == nil {
		return nil, fiber.NewError(fiber.StatusNotFound, "Knowledge document not found")
	}

	chunks, err := s.embeddings.CountByDocumentId(ctx, id)
	if err != nil {
		return nil, err
	}

	res := toShowKnowledgeDocumentResponse(document)
	res.ChunkCount = chunks
	return res, nil
}

func (s *knowledgeService) List(ctx context.Context, limit, offset int) ([]*dto.ShowKnowledgeDocumentResponse, error) {
	documents, err := s.documents.FindAll(ctx, limit, offset)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.ShowKnowledgeDocumentResponse, 0, len(documents))
	for _, d := range documents {
		res = append(res, toShowKnowledgeDocumentResponse(d))
	}
	return res, nil
}

func (s *knowledgeService) Delete(ctx context.Context, id uuid.UUID) error {
	document, err := s.documents.FindById(ctx, id)
	if err != nil {
		return err
	}
	if document == nil {
		return fiber.NewError(fiber.StatusNotFound, "Knowledge document not found")
	}

	if err := s.documents.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info(logger.ModuleIngest, "Knowledge document deleted", map[string]interface{}{
		"document_id": id.String(),
	})
	return nil
}

func (s *knowledgeService) Search(ctx context.Context, query string, k int) ([]*dto.KnowledgeSearchResponse, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fiber.NewError(fiber.StatusBadRequest, "Query parameter q is required")
	}
	if k <= 0 {
		k = 1
	}
	if k > maxSearchResults {
		k = maxSearchResults
	}

	docs, err := s.retriever.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.KnowledgeSearchResponse, 0, len(docs))
	for _, d := range docs {
		res = append(res, &dto.KnowledgeSearchResponse{
			DocumentId: d.ID,
			Title:      d.Title,
			Content:    d.Content,
			Score:      d.Score,
		})
	}
	return res, nil
}

func toShowKnowledgeDocumentResponse(d *entity.KnowledgeDocument) *dto.ShowKnowledgeDocumentResponse {
	return &dto.ShowKnowledgeDocumentResponse{
		Id:        d.Id,
		Title:     d.Title,
		Content:   d.Content,
		Source:    d.Source,
		Metadata:  d.Metadata,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}
