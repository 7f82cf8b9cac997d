package controller

import (
	"time"

	"whatsapp-orderbot-be/internal/constant"
	"whatsapp-orderbot-be/internal/dto"
	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/internal/repository/contract"
	"whatsapp-orderbot-be/internal/service"
	"whatsapp-orderbot-be/pkg/twiml"

	"github.com/gofiber/fiber/v2"
)

type IWebhookController interface {
	RegisterRoutes(r fiber.Router)
	Receive(ctx *fiber.Ctx) error
	MethodNotAllowed(ctx *fiber.Ctx) error
}

const (
	// pendingClaimTTL outlives the slowest possible handling of one message.
	pendingClaimTTL = 2 * time.Minute

	// duplicateWait stays under Twilio's 15s webhook timeout.
	duplicateWait      = 12 * time.Second
	duplicatePollEvery = 100 * time.Millisecond
)

type webhookController struct {
	conversation service.IConversationService
	dedup        contract.WebhookDedupRepository
	dedupWindow  time.Duration
	logger       logger.ILogger

	pendingTTL time.Duration
	waitFor    time.Duration
	pollEvery  time.Duration
}

func NewWebhookController(
	conversation service.IConversationService,
	dedup contract.WebhookDedupRepository,
	dedupWindow time.Duration,
	log logger.ILogger,
) IWebhookController {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &webhookController{
		conversation: conversation,
		dedup:        dedup,
		dedupWindow:  dedupWindow,
		logger:       log,
		pendingTTL:   pendingClaimTTL,
		waitFor:      duplicateWait,
		pollEvery:    duplicatePollEvery,
	}
}

func (c *webhookController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/whatsapp/v1")
	h.Post("webhook", c.Receive)
	h.All("webhook", c.MethodNotAllowed)
}

func (c *webhookController) Receive(ctx *fiber.Ctx) error {
	var req dto.TwilioWebhookRequest
	if err := ctx.BodyParser(&req); err != nil {
		c.logger.Warn(logger.ModuleWebhook, "Unreadable webhook body", map[string]interface{}{
			"error": err.Error(),
		})
		return c.reply(ctx, constant.ReplyInternalError)
	}

	c.logger.Info(logger.ModuleWebhook, "Incoming WhatsApp message", map[string]interface{}{
		"message_sid": req.MessageSid,
		"from":        req.From,
		"to":          req.To,
		"length":      len(req.Body),
	})

	if !c.claim(ctx, req.MessageSid) {
		c.logger.Info(logger.ModuleWebhook, "Duplicate delivery, replaying reply", map[string]interface{}{
			"message_sid": req.MessageSid,
		})
		return c.reply(ctx, c.awaitReply(ctx, req.MessageSid))
	}

	reply := c.conversation.HandleMessage(ctx.UserContext(), req.From, req.Body)

	c.remember(ctx, req.MessageSid, reply)
	return c.reply(ctx, reply)
}

func (c *webhookController) MethodNotAllowed(ctx *fiber.Ctx) error {
	return ctx.Status(fiber.StatusMethodNotAllowed).SendString("Only POST requests allowed")
}

// claim reports whether this delivery should run the router. Ids are
// reserved before routing so a retry that arrives mid-flight cannot start a
// second run. Dedup store failures never block a reply; the message is
// processed as new.
func (c *webhookController) claim(ctx *fiber.Ctx, messageSid string) bool {
	if c.dedup == nil || messageSid == "" {
		return true
	}
	claimed, err := c.dedup.Reserve(ctx.UserContext(), messageSid, c.pendingTTL)
	if err != nil {
		c.logger.Warn(logger.ModuleWebhook, "Dedup reserve failed", map[string]interface{}{
			"message_sid": messageSid,
			"error":       err.Error(),
		})
		return true
	}
	return claimed
}

// awaitReply waits for the delivery holding the claim to store its reply.
func (c *webhookController) awaitReply(ctx *fiber.Ctx, messageSid string) string {
	deadline := time.NewTimer(c.waitFor)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollEvery)
	defer ticker.Stop()

	for {
		reply, done, err := c.dedup.Lookup(ctx.UserContext(), messageSid)
		if err != nil {
			c.logger.Warn(logger.ModuleWebhook, "Dedup lookup failed", map[string]interface{}{
				"message_sid": messageSid,
				"error":       err.Error(),
			})
		} else if done {
			return reply
		}

		select {
		case <-ticker.C:
		case <-deadline.C:
			return constant.ReplyStillProcessing
		case <-ctx.UserContext().Done():
			return constant.ReplyStillProcessing
		}
	}
}

func (c *webhookController) remember(ctx *fiber.Ctx, messageSid string, reply string) {
	if c.dedup == nil || messageSid == "" {
		return
	}
	if err := c.dedup.Remember(ctx.UserContext(), messageSid, reply, c.dedupWindow); err != nil {
		c.logger.Warn(logger.ModuleWebhook, "Dedup store failed", map[string]interface{}{
			"message_sid": messageSid,
			"error":       err.Error(),
		})
	}
}

func (c *webhookController) reply(ctx *fiber.Ctx, text string) error {
	body, err := twiml.NewMessagingResponse(text).Marshal()
	if err != nil {
		return err
	}
	ctx.Set(fiber.HeaderContentType, twiml.ContentType)
	return ctx.Status(fiber.StatusOK).Send(body)
}
