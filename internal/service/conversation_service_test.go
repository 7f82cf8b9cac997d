package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"whatsapp-orderbot-be/internal/constant"
	"whatsapp-orderbot-be/internal/repository/memory"
	"whatsapp-orderbot-be/pkg/order"
	"whatsapp-orderbot-be/pkg/rag"
	"whatsapp-orderbot-be/pkg/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDispatcher struct {
	mu     sync.Mutex
	orders []*order.ParsedOrder
	reply  string
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, o *order.ParsedOrder) order.DispatchResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders = append(f.orders, o)
	reply := f.reply
	if reply == "" {
		reply = order.ReplyOrderReceived
	}
	return order.DispatchResult{Outcome: order.OutcomeDelivered, Reply: reply}
}

func (f *fakeDispatcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakeEngine struct {
	mu      sync.Mutex
	answer  string
	err     error
	panics  bool
	release chan struct{}
	started chan struct{}
	queries []string
}

func (f *fakeEngine) Answer(ctx context.Context, query string) (string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()

	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	if f.panics {
		panic("engine exploded")
	}
	return f.answer, f.err
}

func (f *fakeEngine) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

const sender = "whatsapp:+254712345678"

func newTestConversation(engine *fakeEngine) (IConversationService, *memory.SessionRepository, *fakeDispatcher) {
	sessions := memory.NewSessionRepository(0)
	dispatcher := &fakeDispatcher{}
	if engine == nil {
		engine = &fakeEngine{answer: "We open at 8am."}
	}
	return NewConversationService(sessions, dispatcher, engine, nil), sessions, dispatcher
}

func TestConversation_EmptyMessage(t *testing.T) {
	svc, sessions, _ := newTestConversation(nil)

	for _, text := range []string{"", "   ", "\n\t"} {
		assert.Equal(t, constant.ReplyEmptyMessage, svc.HandleMessage(context.Background(), sender, text))
	}
	assert.Equal(t, store.StateIdle, sessions.Get(sender))

	sessions.Transition(sender, store.StateAwaitingOrder)
	assert.Equal(t, constant.ReplyEmptyMessage, svc.HandleMessage(context.Background(), sender, "  "))
	assert.Equal(t, store.StateAwaitingOrder, sessions.Get(sender), "empty message leaves state unchanged")
}

func TestConversation_OrderCommandAnyCasing(t *testing.T) {
	for _, text := range []string{"order", "ORDER", "Order", "  oRdEr  "} {
		t.Run(text, func(t *testing.T) {
			engine := &fakeEngine{answer: "x"}
			svc, sessions, _ := newTestConversation(engine)

			reply := svc.HandleMessage(context.Background(), sender, text)

			assert.Equal(t, constant.ReplyOrderPrompt, reply)
			assert.Equal(t, store.StateAwaitingOrder, sessions.Get(sender))
			assert.Zero(t, engine.calls())
		})
	}
}

func TestConversation_ValidOrderDispatches(t *testing.T) {
	svc, sessions, dispatcher := newTestConversation(nil)
	ctx := context.Background()

	svc.HandleMessage(ctx, sender, "order")
	reply := svc.HandleMessage(ctx, sender, "john, maize flour, 50")

	assert.Equal(t, order.ReplyOrderReceived, reply)
	assert.Equal(t, store.StateIdle, sessions.Get(sender))
	require.Equal(t, 1, dispatcher.count())

	got := dispatcher.orders[0]
	assert.Equal(t, "John", got.Name)
	assert.Equal(t, "Maize Flour", got.Product)
	assert.Equal(t, 50, got.Quantity)
	assert.Equal(t, "+254712345678", got.SenderPhone)
}

func TestConversation_MalformedOrderResetsToIdle(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		reason string
	}{
		{name: "two fields", text: "John, 50", reason: order.ReasonTooFewFields},
		{name: "non numeric", text: "John, Sugar, lots", reason: order.ReasonNonNumericQty},
		{name: "zero", text: "John, Sugar, 0", reason: order.ReasonNonPositiveQty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, sessions, dispatcher := newTestConversation(nil)
			ctx := context.Background()

			svc.HandleMessage(ctx, sender, "order")
			reply := svc.HandleMessage(ctx, sender, tt.text)

			assert.Equal(t, fmt.Sprintf(constant.ReplyMalformedOrder, tt.reason), reply)
			assert.Equal(t, store.StateIdle, sessions.Get(sender))
			assert.Zero(t, dispatcher.count())
		})
	}
}

func TestConversation_QuestionGetsAnswerWithUpsell(t *testing.T) {
	engine := &fakeEngine{answer: "We open at 8am."}
	svc, sessions, dispatcher := newTestConversation(engine)

	reply := svc.HandleMessage(context.Background(), sender, "  When do you open?  ")

	assert.Equal(t, "We open at 8am."+constant.AnswerUpsellSuffix, reply)
	assert.Equal(t, []string{"When do you open?"}, engine.queries)
	assert.Equal(t, store.StateIdle, sessions.Get(sender))
	assert.Zero(t, dispatcher.count())
}

func TestConversation_RetrievalFailure(t *testing.T) {
	engine := &fakeEngine{err: fmt.Errorf("%w: index down", rag.ErrRetrievalFailure)}
	svc, sessions, _ := newTestConversation(engine)

	reply := svc.HandleMessage(context.Background(), sender, "prices?")

	assert.Equal(t, constant.ReplyInternalError, reply)
	assert.Equal(t, store.StateIdle, sessions.Get(sender))

	engine.err = nil
	engine.answer = "ok"
	assert.True(t, strings.HasPrefix(svc.HandleMessage(context.Background(), sender, "prices?"), "ok"))
}

func TestConversation_PanicIsRecovered(t *testing.T) {
	engine := &fakeEngine{panics: true}
	svc, sessions, _ := newTestConversation(engine)

	reply := svc.HandleMessage(context.Background(), sender, "hello")
	assert.Equal(t, constant.ReplyInternalError, reply)

	done := make(chan struct{})
	go func() {
		sessions.Lock(sender)()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sender lock was not released after panic")
	}
}

func TestConversation_DistinctSendersConcurrently(t *testing.T) {
	svc, sessions, _ := newTestConversation(nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc.HandleMessage(context.Background(), fmt.Sprintf("whatsapp:+2547000%05d", i), "order")
		}(i)
	}
	wg.Wait()

	for i := 0; i < 100; i++ {
		assert.Equal(t, store.StateAwaitingOrder, sessions.Get(fmt.Sprintf("whatsapp:+2547000%05d", i)))
	}
	assert.Equal(t, store.StateIdle, sessions.Get("whatsapp:+254799999999"))
	assert.Equal(t, 100, sessions.Count())
}

func TestConversation_OrderThenOrderTextIsOrderAttempt(t *testing.T) {
	engine := &fakeEngine{answer: "x"}
	svc, sessions, dispatcher := newTestConversation(engine)
	ctx := context.Background()

	svc.HandleMessage(ctx, sender, "order")
	svc.HandleMessage(ctx, sender, "Jane, Sugar, 2")

	assert.Zero(t, engine.calls(), "second message must not reach the answer engine")
	assert.Equal(t, 1, dispatcher.count())
	assert.Equal(t, store.StateIdle, sessions.Get(sender))
}

func TestConversation_SameSenderIsSerialized(t *testing.T) {
	engine := &fakeEngine{
		answer:  "slow answer",
		started: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	svc, sessions, _ := newTestConversation(engine)
	ctx := context.Background()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		svc.HandleMessage(ctx, sender, "what do you sell?")
	}()
	<-engine.started

	go func() {
		defer wg.Done()
		svc.HandleMessage(ctx, sender, "order")
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, store.StateIdle, sessions.Get(sender), "second message must wait for the first")

	close(engine.release)
	wg.Wait()

	assert.Equal(t, store.StateAwaitingOrder, sessions.Get(sender))
}

func TestConversation_DispatcherWithoutReplyFallsBack(t *testing.T) {
	sessions := memory.NewSessionRepository(0)
	dispatcher := &emptyReplyDispatcher{}
	svc := NewConversationService(sessions, dispatcher, &fakeEngine{}, nil)

	svc.HandleMessage(context.Background(), sender, "order")
	reply := svc.HandleMessage(context.Background(), sender, "A, B, 1")

	assert.Equal(t, order.ReplyOrderProcessing, reply)
}

type emptyReplyDispatcher struct{}

func (emptyReplyDispatcher) Dispatch(ctx context.Context, o *order.ParsedOrder) order.DispatchResult {
	return order.DispatchResult{Outcome: order.OutcomeDeliveryUnknown, Err: errors.New("down")}
}
