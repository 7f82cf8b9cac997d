package service

import (
	"context"
	"encoding/json"

	"whatsapp-orderbot-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

type IPublisherService interface {
	PublishEmbedKnowledge(ctx context.Context, documentId uuid.UUID) error
}

type publisherService struct {
	topicName string
	publisher message.Publisher
}

func NewPublisherService(topicName string, publisher message.Publisher) IPublisherService {
	return &publisherService{
		topicName: topicName,
		publisher: publisher,
	}
}

func (ps *publisherService) PublishEmbedKnowledge(ctx context.Context, documentId uuid.UUID) error {
	payload, err := json.Marshal(dto.PublishEmbedKnowledgeMessage{DocumentId: documentId})
	if err != nil {
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)

	return ps.publisher.Publish(ps.topicName, msg)
}
