package order

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"whatsapp-orderbot-be/internal/pkg/logger"
	"whatsapp-orderbot-be/internal/pkg/mailer"
	pkgEvents "whatsapp-orderbot-be/pkg/events"

	"github.com/google/uuid"
)

const publishTimeout = 3 * time.Second

// EventPublisher makes dispatch outcomes observable outside the request.
type EventPublisher interface {
	PublishOrderDispatched(ctx context.Context, order *ParsedOrder, result DispatchResult)
}

// BusEventPublisher emits ORDER_* events and e-mails the operator when
// delivery is unknown. Both collaborators are optional. Sending happens in
// the background so a slow bus or SMTP server never holds up the reply.
type BusEventPublisher struct {
	publisher pkgEvents.Publisher
	alerts    mailer.IEmailService
	logger    logger.ILogger

	pending sync.WaitGroup
}

func NewBusEventPublisher(publisher pkgEvents.Publisher, alerts mailer.IEmailService, log logger.ILogger) *BusEventPublisher {
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &BusEventPublisher{
		publisher: publisher,
		alerts:    alerts,
		logger:    log,
	}
}

// PublishOrderDispatched returns immediately; use Wait to flush.
func (p *BusEventPublisher) PublishOrderDispatched(ctx context.Context, order *ParsedOrder, result DispatchResult) {
	alert := p.alerts != nil && result.Outcome == OutcomeDeliveryUnknown
	if p.publisher == nil && !alert {
		return
	}

	// the inbound request is usually finished before this runs
	ctx = context.WithoutCancel(ctx)

	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error(logger.ModuleEvents, "Recovered from panic while publishing order outcome", map[string]interface{}{
					"panic": fmt.Sprint(r),
					"stack": string(debug.Stack()),
				})
			}
		}()
		p.send(ctx, order, result, alert)
	}()
}

// Wait blocks until every outcome handed over so far has been sent, or ctx ends.
func (p *BusEventPublisher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *BusEventPublisher) send(ctx context.Context, order *ParsedOrder, result DispatchResult, alert bool) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if p.publisher != nil {
		p.publishEvent(ctx, order, result)
	}

	if alert {
		reason := "unknown"
		if result.Err != nil {
			reason = result.Err.Error()
		}
		if err := p.alerts.SendOrderAlert(mailer.OrderAlert{
			Name:       order.Name,
			Product:    order.Product,
			Quantity:   order.Quantity,
			Phone:      order.SenderPhone,
			RawMessage: order.RawMessage,
			Reason:     reason,
		}); err != nil {
			p.logger.Error(logger.ModuleEvents, "Failed to send order alert", map[string]interface{}{"error": err.Error()})
		}
	}
}

func (p *BusEventPublisher) publishEvent(ctx context.Context, order *ParsedOrder, result DispatchResult) {
	eventType := pkgEvents.TypeOrderDelivered
	if result.Outcome == OutcomeDeliveryUnknown {
		eventType = pkgEvents.TypeOrderDeliveryUnknown
	}

	data := map[string]interface{}{
		"event_id":    uuid.NewString(),
		"name":        order.Name,
		"product":     order.Product,
		"quantity":    order.Quantity,
		"phone":       order.SenderPhone,
		"outcome":     string(result.Outcome),
		"status_code": result.StatusCode,
		"duration_ms": result.Duration.Milliseconds(),
	}
	if result.Err != nil {
		data["error"] = result.Err.Error()
	}

	evt := pkgEvents.BaseEvent{
		Type:       eventType,
		Data:       data,
		OccurredAt: time.Now(),
	}

	if err := p.publisher.Publish(ctx, evt); err != nil {
		p.logger.Error(logger.ModuleEvents, "Failed to publish order event", map[string]interface{}{
			"error": err.Error(),
			"type":  eventType,
		})
	}
}
