package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"whatsapp-orderbot-be/internal/dto"
	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/pkg/embedding"
	"whatsapp-orderbot-be/pkg/events"
	"whatsapp-orderbot-be/pkg/utils"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

const (
	// ~375 tokens per chunk keeps every embedding model within its context window.
	chunkSize    = 1500
	chunkOverlap = 200

	maxEmbedAttempts = 3
	retryDelay       = 2 * time.Second
)

var ErrDocumentNotFound = errors.New("knowledge document not found")

type IConsumerService interface {
	Consume(ctx context.Context) error
	// IndexDocument chunks, embeds and stores a document synchronously.
	IndexDocument(ctx context.Context, documentId uuid.UUID) (int, error)
}

type consumerService struct {
	subscriber        message.Subscriber
	topicName         string
	documents         contract.KnowledgeDocumentRepository
	embeddings        contract.KnowledgeEmbeddingRepository
	embeddingProvider embedding.EmbeddingProvider
	events            events.Publisher
	logger            logger.ILogger
	retryDelay        time.Duration

	attempts map[string]int
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	documents contract.KnowledgeDocumentRepository,
	embeddings contract.KnowledgeEmbeddingRepository,
	embeddingProvider embedding.EmbeddingProvider,
	eventPublisher events.Publisher,
	log logger.ILogger,
) IConsumerService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &consumerService{
		subscriber:        subscriber,
		topicName:         topicName,
		documents:         documents,
		embeddings:        embeddings,
		embeddingProvider: embeddingProvider,
		events:            eventPublisher,
		logger:            log,
		retryDelay:        retryDelay,
		attempts:          make(map[string]int),
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedKnowledgeMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error(logger.ModuleIngest, "Failed to unmarshal embed job", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err.Error(),
		})
		msg.Ack() // a malformed payload never succeeds on retry
		return
	}

	chunks, err := cs.IndexDocument(ctx, payload.DocumentId)
	if errors.Is(err, ErrDocumentNotFound) {
		cs.logger.Warn(logger.ModuleIngest, "Document deleted before indexing", map[string]interface{}{
			"document_id": payload.DocumentId.String(),
		})
		msg.Ack()
		return
	}
	if err != nil {
		cs.attempts[msg.UUID]++
		attempt := cs.attempts[msg.UUID]
		details := map[string]interface{}{
			"document_id": payload.DocumentId.String(),
			"attempt":     attempt,
			"error":       err.Error(),
		}
		if attempt >= maxEmbedAttempts {
			delete(cs.attempts, msg.UUID)
			cs.logger.Error(logger.ModuleIngest, "Giving up on embed job", details)
			msg.Ack()
			return
		}
		cs.logger.Warn(logger.ModuleIngest, "Embed job failed, retrying", details)
		time.Sleep(cs.retryDelay)
		msg.Nack()
		return
	}

	delete(cs.attempts, msg.UUID)
	cs.logger.Info(logger.ModuleIngest, "Document indexed", map[string]interface{}{
		"document_id": payload.DocumentId.String(),
		"chunks":      chunks,
	})
	msg.Ack()
}

func (cs *consumerService) IndexDocument(ctx context.Context, documentId uuid.UUID) (int, error) {
	document, err := cs.documents.FindById(ctx, documentId)
	if err != nil {
		return 0, fmt.Errorf("load document %s: %w", documentId, err)
	}
	if document == nil {
		return 0, ErrDocumentNotFound
	}

	content := document.Content
	if document.Title != "" {
		content = fmt.Sprintf("%s\n\n%s", document.Title, document.Content)
	}

	chunks := utils.SplitText(content, chunkSize, chunkOverlap)
	newEmbeddings := make([]*entity.KnowledgeEmbedding, 0, len(chunks))

	for i, chunk := range chunks {
		res, err := cs.embeddingProvider.Generate(ctx, chunk, embedding.TaskRetrievalDocument)
		if err != nil {
			return 0, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		newEmbeddings = append(newEmbeddings, &entity.KnowledgeEmbedding{
			Id:             uuid.New(),
			DocumentId:     document.Id,
			Chunk:          chunk,
			EmbeddingValue: res.Embedding.Values,
			ChunkIndex:     i,
			CreatedAt:      time.Now(),
		})
	}

	if err := cs.embeddings.ReplaceForDocument(ctx, document.Id, newEmbeddings); err != nil {
		return 0, fmt.Errorf("store embeddings: %w", err)
	}

	cs.publishIndexed(ctx, document, len(newEmbeddings))
	return len(newEmbeddings), nil
}

func (cs *consumerService) publishIndexed(ctx context.Context, document *entity.KnowledgeDocument, chunks int) {
	if cs.events == nil {
		return
	}

	event := events.BaseEvent{
		Type:       events.TypeKnowledgeIndexed,
		OccurredAt: time.Now(),
		Data: map[string]interface{}{
			"document_id": document.Id.String(),
			"title":       document.Title,
			"chunks":      chunks,
		},
	}
	if err := cs.events.Publish(ctx, event); err != nil {
		cs.logger.Error(logger.ModuleEvents, "Failed to publish knowledge event", map[string]interface{}{
			"document_id": document.Id.String(),
			"error":       err.Error(),
		})
	}
}
