package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"whatsapp-orderbot-be/internal/pkg/logger"
)

// DefaultDispatchTimeout bounds the single delivery attempt.
const DefaultDispatchTimeout = 10 * time.Second

const (
	ReplyOrderReceived   = "✅ Order received successfully! We'll get back to you shortly."
	ReplyOrderProcessing = "✅ Order received! It is being processed and we'll confirm shortly."
)

// DeliveryOutcome records whether the fulfillment system acknowledged an order.
// The sender sees a confirmation either way.
type DeliveryOutcome string

const (
	OutcomeDelivered       DeliveryOutcome = "DELIVERED"
	OutcomeDeliveryUnknown DeliveryOutcome = "DELIVERY_UNKNOWN"
)

var ErrEndpointNotConfigured = errors.New("order endpoint is not configured")

// DispatchResult is the outcome of one delivery attempt.
type DispatchResult struct {
	Outcome    DeliveryOutcome
	StatusCode int
	Err        error
	Reply      string
	Duration   time.Duration
}

// Dispatcher hands a parsed order to the fulfillment system. It never fails
// from the caller's point of view; downstream trouble degrades to OutcomeDeliveryUnknown.
type Dispatcher interface {
	Dispatch(ctx context.Context, order *ParsedOrder) DispatchResult
}

// Payload is the JSON body the fulfillment endpoint accepts.
type Payload struct {
	Name     string `json:"Name"`
	Product  string `json:"product"`
	Quantity int    `json:"quantity"`
	Phone    string `json:"phone"`
	Message  string `json:"message"`
}

func NewPayload(order *ParsedOrder) Payload {
	return Payload{
		Name:     order.Name,
		Product:  order.Product,
		Quantity: order.Quantity,
		Phone:    order.SenderPhone,
		Message:  order.RawMessage,
	}
}

type HTTPDispatcher struct {
	EndpointURL string
	Timeout     time.Duration
	Client      *http.Client

	events EventPublisher
	logger logger.ILogger
}

var _ Dispatcher = (*HTTPDispatcher)(nil)

// NewHTTPDispatcher makes at most one POST per order. events may be nil.
func NewHTTPDispatcher(endpointURL string, timeout time.Duration, events EventPublisher, log logger.ILogger) *HTTPDispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	if log == nil {
		log = logger.NewNopLogger()
	}
	return &HTTPDispatcher{
		EndpointURL: endpointURL,
		Timeout:     timeout,
		Client:      &http.Client{},
		events:      events,
		logger:      log,
	}
}

func (d *HTTPDispatcher) Dispatch(ctx context.Context, order *ParsedOrder) DispatchResult {
	start := time.Now()
	status, err := d.post(ctx, order)

	result := DispatchResult{
		Outcome:    OutcomeDelivered,
		StatusCode: status,
		Err:        err,
		Reply:      ReplyOrderReceived,
		Duration:   time.Since(start),
	}

	details := map[string]interface{}{
		"product":     order.Product,
		"quantity":    order.Quantity,
		"phone":       order.SenderPhone,
		"status_code": status,
		"duration_ms": result.Duration.Milliseconds(),
	}

	if err != nil {
		result.Outcome = OutcomeDeliveryUnknown
		result.Reply = ReplyOrderProcessing
		details["error"] = err.Error()
		d.logger.Warn(logger.ModuleOrder, "Order delivery unknown, acknowledged optimistically", details)
	} else {
		d.logger.Info(logger.ModuleOrder, "Order delivered to fulfillment", details)
	}

	if d.events != nil {
		d.events.PublishOrderDispatched(ctx, order, result)
	}

	return result
}

func (d *HTTPDispatcher) post(ctx context.Context, order *ParsedOrder) (int, error) {
	if d.EndpointURL == "" {
		return 0, ErrEndpointNotConfigured
	}

	payloadBytes, err := json.Marshal(NewPayload(order))
	if err != nil {
		return 0, fmt.Errorf("marshal order: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.EndpointURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("order endpoint request failed: %w", err)
	}
	defer resp.Body.Close()

	// drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, fmt.Errorf("order endpoint returned status %d", resp.StatusCode)
	}

	return resp.StatusCode, nil
}
