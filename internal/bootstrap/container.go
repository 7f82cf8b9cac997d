package bootstrap

import (
	"context"
	"log"
	"time"

	"whatsapp-orderbot-be/internal/config"
	"whatsapp-orderbot-be/internal/controller"
	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/internal/pkg/mailer"
	"whatsapp-orderbot-be/internal/pkg/serverutils"
	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/internal/repository/implementation"
	"whatsapp-orderbot-be/internal/repository/memory"
	"whatsapp-orderbot-be/internal/service"
	"whatsapp-orderbot-be/pkg/database"
	"whatsapp-orderbot-be/pkg/embedding"
	"whatsapp-orderbot-be/pkg/events"
	"whatsapp-orderbot-be/pkg/llm/factory"
	pktNats "whatsapp-orderbot-be/pkg/nats"
	"whatsapp-orderbot-be/pkg/order"
	"whatsapp-orderbot-be/pkg/rag"
	"whatsapp-orderbot-be/pkg/rag/search"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	WebhookController   controller.IWebhookController
	KnowledgeController controller.IKnowledgeController
	HealthController    controller.IHealthController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	Logger logger.ILogger

	closers []func()
}

// Close releases connections opened by NewContainer, last opened first.
func (c *Container) Close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
	c.closers = nil
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	c := &Container{}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	var alerts mailer.IEmailService
	if cfg.SMTP.Host != "" && cfg.SMTP.OperatorEmail != "" {
		alerts = mailer.NewEmailService(
			cfg.SMTP.Host,
			cfg.SMTP.Port,
			cfg.SMTP.Email,
			cfg.SMTP.Password,
			cfg.SMTP.SenderName,
			cfg.SMTP.OperatorEmail,
		)
	} else {
		log.Println("[INFO] Operator e-mail alerts disabled (SMTP_HOST or OPERATOR_EMAIL not set)")
	}

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)
	c.closers = append(c.closers, func() { _ = pubSub.Close() })

	// 3. Infrastructure
	// NATS
	var eventPublisher events.Publisher
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		eventPublisher = natsPub
		c.closers = append(c.closers, natsPub.Close)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	c.closers = append(c.closers, func() { _ = rdb.Close() })

	var dedupRepo contract.WebhookDedupRepository
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Webhook dedup falls back to memory", err)
		dedupRepo = memory.NewWebhookDedupRepository(cfg.Session.DedupWindow)
	} else {
		dedupRepo = implementation.NewWebhookDedupRepository(rdb)
	}

	// 4. Providers
	embeddingProvider, err := embedding.NewProvider(
		cfg.Ai.EmbeddingProvider,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.OllamaModel,
		cfg.Keys.GoogleGemini,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize Embedding Provider: %v", err)
	}
	log.Printf("[INFO] Using Embedding Provider: %s", cfg.Ai.EmbeddingProvider)

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GroqBaseURL,
		cfg.Keys.Groq,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 5. Repositories
	sessionRepo := memory.NewSessionRepository(cfg.Session.TTL)
	documentRepo := implementation.NewKnowledgeDocumentRepository(db)
	embeddingRepo := implementation.NewKnowledgeEmbeddingRepository(db)

	// 6. Domain
	retriever := search.NewOrchestrator(embeddingProvider, embeddingRepo, cfg.Ai.SimilarityFloor)
	answerEngine := rag.NewEngine(retriever, llmProvider, cfg.Ai.TopK, cfg.Ai.Timeout, sysLogger)
	answerEngine.MaxTokens = cfg.Ai.MaxTokens

	orderEvents := order.NewBusEventPublisher(eventPublisher, alerts, sysLogger)
	c.closers = append(c.closers, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := orderEvents.Wait(ctx); err != nil {
			log.Printf("[WARN] Order events still pending at shutdown: %v", err)
		}
	})
	dispatcher := order.NewHTTPDispatcher(cfg.Order.EndpointURL, cfg.Order.DispatchTimeout, orderEvents, sysLogger)
	if cfg.Order.EndpointURL == "" {
		log.Println("[WARN] ORDER_ENDPOINT_URL not set; orders will be acknowledged but not delivered")
	}

	// 7. Services
	conversationService := service.NewConversationService(sessionRepo, dispatcher, answerEngine, sysLogger)
	publisherService := service.NewPublisherService(cfg.Keys.KnowledgeTopic, pubSub)
	knowledgeService := service.NewKnowledgeService(documentRepo, embeddingRepo, publisherService, retriever, sysLogger)
	c.ConsumerService = service.NewConsumerService(
		pubSub,
		cfg.Keys.KnowledgeTopic,
		documentRepo,
		embeddingRepo,
		embeddingProvider,
		eventPublisher,
		sysLogger,
	)

	// 8. Controllers
	c.WebhookController = controller.NewWebhookController(conversationService, dedupRepo, cfg.Session.DedupWindow, sysLogger)
	c.KnowledgeController = controller.NewKnowledgeController(knowledgeService, serverutils.JwtMiddleware)
	c.HealthController = controller.NewHealthController(map[string]controller.HealthCheck{
		"database": func(ctx context.Context) bool {
			return database.Ping(ctx, db) == nil
		},
		"redis": func(ctx context.Context) bool {
			return rdb.Ping(ctx).Err() == nil
		},
		"nats": func(ctx context.Context) bool {
			return natsPub != nil && natsPub.Connected()
		},
	}, map[string]controller.HealthGauge{
		"pending_orders": sessionRepo.Count,
	})

	return c
}
