package service

import (
	"context"
	"errors"
	"testing"

	"whatsapp-orderbot-be/internal/dto"
	"whatsapp-orderbot-be/pkg/store"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	published []uuid.UUID
	err       error
}

func (p *recordingPublisher) PublishEmbedKnowledge(ctx context.Context, documentId uuid.UUID) error {
	p.published = append(p.published, documentId)
	return p.err
}

type fixedRetriever struct {
	docs []store.Document
	gotK int
}

func (r *fixedRetriever) Retrieve(ctx context.Context, query string, k int) ([]store.Document, error) {
	r.gotK = k
	return r.docs, nil
}

func TestKnowledgeService_CreateEnqueuesEmbedJob(t *testing.T) {
	docs := newMemoryDocumentRepo()
	pub := &recordingPublisher{}
	svc := NewKnowledgeService(docs, newMemoryEmbeddingRepo(), pub, &fixedRetriever{}, nil)

	res, err := svc.Create(context.Background(), &dto.CreateKnowledgeDocumentRequest{Title: "  Hours ", Content: "8am to 6pm"})
	require.NoError(t, err)

	assert.Equal(t, []uuid.UUID{res.Id}, pub.published)
	stored, _ := docs.FindById(context.Background(), res.Id)
	require.NotNil(t, stored)
	assert.Equal(t, "Hours", stored.Title)
}

func TestKnowledgeService_CreateSurvivesQueueFailure(t *testing.T) {
	svc := NewKnowledgeService(newMemoryDocumentRepo(), newMemoryEmbeddingRepo(), &recordingPublisher{err: errors.New("closed")}, &fixedRetriever{}, nil)

	res, err := svc.Create(context.Background(), &dto.CreateKnowledgeDocumentRequest{Title: "t", Content: "c"})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, res.Id)
}

func TestKnowledgeService_ShowAndDeleteNotFound(t *testing.T) {
	svc := NewKnowledgeService(newMemoryDocumentRepo(), newMemoryEmbeddingRepo(), &recordingPublisher{}, &fixedRetriever{}, nil)

	_, err := svc.Show(context.Background(), uuid.New())
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)

	err = svc.Delete(context.Background(), uuid.New())
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusNotFound, fe.Code)
}

func TestKnowledgeService_Search(t *testing.T) {
	retriever := &fixedRetriever{docs: []store.Document{{ID: "d1", Title: "Hours", Content: "8am", Score: 0.8}}}
	svc := NewKnowledgeService(newMemoryDocumentRepo(), newMemoryEmbeddingRepo(), &recordingPublisher{}, retriever, nil)

	res, err := svc.Search(context.Background(), " hours ", 50)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "Hours", res[0].Title)
	assert.Equal(t, maxSearchResults, retriever.gotK)

	_, err = svc.Search(context.Background(), "  ", 1)
	var fe *fiber.Error
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, fiber.StatusBadRequest, fe.Code)
}
