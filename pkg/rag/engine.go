package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/pkg/llm"
	"whatsapp-orderbot-be/pkg/rag/prompt"
	"whatsapp-orderbot-be/pkg/store"
)

const (
	DefaultTopK    = 1
	DefaultTimeout = 10 * time.Second

	// DefaultMaxTokens keeps a completion inside one WhatsApp message (1600 chars).
	DefaultMaxTokens = 400

	FallbackWithContext = "Here is what I found:\n\n"
	FallbackNoContext   = "Sorry, I couldn't find an answer to that. Please try rephrasing your question."
)

// ErrRetrievalFailure wraps every backend failure of the answer path.
var ErrRetrievalFailure = errors.New("retrieval failure")

// Retriever finds the passages most relevant to a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) ([]store.Document, error)
}

// Engine answers free-text questions from the knowledge index.
type Engine struct {
	retriever Retriever
	llm       llm.LLMProvider
	topK      int
	timeout   time.Duration
	logger    logger.ILogger

	// MaxTokens caps each completion. Zero leaves the provider default.
	MaxTokens int
}

func NewEngine(retriever Retriever, llmProvider llm.LLMProvider, topK int, timeout time.Duration, log logger.ILogger) *Engine {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &Engine{
		retriever: retriever,
		llm:       llmProvider,
		topK:      topK,
		timeout:   timeout,
		logger:    log,
		MaxTokens: DefaultMaxTokens,
	}
}

// Answer runs one retrieval and one completion. The returned text is never empty.
func (e *Engine) Answer(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()

	docs, err := e.retriever.Retrieve(ctx, query, e.topK)
	if err != nil {
		e.logger.Error(logger.ModuleRAG, "Retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
		return "", fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}

	builder := prompt.NewContextBuilder(docs, query)
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: prompt.SystemMessage},
		{Role: llm.RoleUser, Content: builder.Build()},
	}

	var opts []llm.Option
	if e.MaxTokens > 0 {
		opts = append(opts, llm.WithMaxTokens(e.MaxTokens))
	}

	answer, err := e.llm.Chat(ctx, history, opts...)
	if err != nil {
		e.logger.Error(logger.ModuleRAG, "Completion failed", map[string]interface{}{
			"error":    err.Error(),
			"passages": len(docs),
		})
		return "", fmt.Errorf("%w: %w", ErrRetrievalFailure, err)
	}

	if strings.TrimSpace(answer) == "" {
		e.logger.Warn(logger.ModuleRAG, "Empty completion, using fallback", map[string]interface{}{
			"passages": len(docs),
		})
		if builder.HasContext() {
			return FallbackWithContext + builder.Context(), nil
		}
		return FallbackNoContext, nil
	}

	e.logger.Info(logger.ModuleRAG, "Answer generated", map[string]interface{}{
		"passages":    len(docs),
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return answer, nil
}
