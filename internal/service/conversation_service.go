package service

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"whatsapp-orderbot-be/internal/constant"
	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/pkg/order"
	"whatsapp-orderbot-be/pkg/store"
)

// AnswerEngine answers a free-text question.
type AnswerEngine interface {
	Answer(ctx context.Context, query string) (string, error)
}

// IConversationService turns one inbound message into exactly one reply.
type IConversationService interface {
	HandleMessage(ctx context.Context, senderId string, text string) string
}

type conversationService struct {
	sessions   store.SessionStore
	dispatcher order.Dispatcher
	answers    AnswerEngine
	logger     logger.ILogger
}

func NewConversationService(
	sessions store.SessionStore,
	dispatcher order.Dispatcher,
	answers AnswerEngine,
	log logger.ILogger,
) IConversationService {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &conversationService{
		sessions:   sessions,
		dispatcher: dispatcher,
		answers:    answers,
		logger:     log,
	}
}

func (s *conversationService) HandleMessage(ctx context.Context, senderId string, text string) (reply string) {
	msg := strings.TrimSpace(text)
	if msg == "" {
		return constant.ReplyEmptyMessage
	}

	// A sender's read, action and write happen as one unit.
	unlock := s.sessions.Lock(senderId)
	defer unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error(logger.ModuleRouter, "Recovered from panic while handling message", map[string]interface{}{
				"sender": senderId,
				"panic":  fmt.Sprint(r),
				"stack":  string(debug.Stack()),
			})
			reply = constant.ReplyInternalError
		}
	}()

	// Any message resolves a pending order, so the sender is Idle afterwards
	// whatever the outcome.
	if s.sessions.Swap(senderId, store.StateIdle) == store.StateAwaitingOrder {
		return s.handleOrderAttempt(ctx, senderId, msg)
	}

	if strings.EqualFold(msg, constant.OrderCommand) {
		s.sessions.Transition(senderId, store.StateAwaitingOrder)
		s.logger.Info(logger.ModuleRouter, "Order flow started", map[string]interface{}{
			"sender": senderId,
		})
		return constant.ReplyOrderPrompt
	}

	return s.handleQuestion(ctx, senderId, msg)
}

func (s *conversationService) handleOrderAttempt(ctx context.Context, senderId string, msg string) string {
	parsed, err := order.Parse(msg, senderId)
	if err != nil {
		var malformed *order.MalformedOrderError
		reason := err.Error()
		if errors.As(err, &malformed) {
			reason = malformed.Reason
		}
		s.logger.Info(logger.ModuleRouter, "Malformed order", map[string]interface{}{
			"sender": senderId,
			"reason": reason,
		})
		return fmt.Sprintf(constant.ReplyMalformedOrder, reason)
	}

	result := s.dispatcher.Dispatch(ctx, parsed)
	if result.Reply == "" {
		return order.ReplyOrderProcessing
	}
	return result.Reply
}

func (s *conversationService) handleQuestion(ctx context.Context, senderId string, msg string) string {
	answer, err := s.answers.Answer(ctx, msg)
	if err != nil {
		s.logger.Error(logger.ModuleRouter, "Answer engine failed", map[string]interface{}{
			"sender": senderId,
			"error":  err.Error(),
		})
		return constant.ReplyInternalError
	}
	return answer + constant.AnswerUpsellSuffix
}
