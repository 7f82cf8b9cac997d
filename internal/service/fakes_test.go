package service

import (
	"context"
	"sync"

	"whatsapp-orderbot-be/internal/entity"
	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/pkg/embedding"
	"whatsapp-orderbot-be/pkg/events"

	"github.com/google/uuid"
)

type memoryDocumentRepo struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*entity.KnowledgeDocument
	err  error
}

func newMemoryDocumentRepo() *memoryDocumentRepo {
	return &memoryDocumentRepo{docs: make(map[uuid.UUID]*entity.KnowledgeDocument)}
}

func (r *memoryDocumentRepo) Create(ctx context.Context, d *entity.KnowledgeDocument) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	cp := *d
	r.docs[d.Id] = &cp
	return nil
}

func (r *memoryDocumentRepo) FindById(ctx context.Context, id uuid.UUID) (*entity.KnowledgeDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	d, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	cp := *d
	return &cp, nil
}

func (r *memoryDocumentRepo) FindAll(ctx context.Context, limit, offset int) ([]*entity.KnowledgeDocument, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.KnowledgeDocument, 0, len(r.docs))
	for _, d := range r.docs {
		out = append(out, d)
	}
	return out, nil
}

func (r *memoryDocumentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.docs, id)
	return nil
}

type memoryEmbeddingRepo struct {
	contract.KnowledgeEmbeddingRepository

	mu     sync.Mutex
	chunks map[uuid.UUID][]*entity.KnowledgeEmbedding
	err    error
}

func newMemoryEmbeddingRepo() *memoryEmbeddingRepo {
	return &memoryEmbeddingRepo{chunks: make(map[uuid.UUID][]*entity.KnowledgeEmbedding)}
}

func (r *memoryEmbeddingRepo) ReplaceForDocument(ctx context.Context, documentId uuid.UUID, embeddings []*entity.KnowledgeEmbedding) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.chunks[documentId] = embeddings
	return nil
}

func (r *memoryEmbeddingRepo) CountByDocumentId(ctx context.Context, documentId uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.chunks[documentId])), nil
}

func (r *memoryEmbeddingRepo) get(documentId uuid.UUID) []*entity.KnowledgeEmbedding {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.chunks[documentId]
}

type countingEmbedder struct {
	mu       sync.Mutex
	calls    int
	failures int // fail this many calls before succeeding
	err      error
}

func (e *countingEmbedder) Generate(ctx context.Context, text string, taskType string) (*embedding.EmbeddingResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failures > 0 {
		e.failures--
		return nil, e.err
	}
	return &embedding.EmbeddingResponse{Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{float32(len(text)), 1}}}, nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) types() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventType()
	}
	return out
}
