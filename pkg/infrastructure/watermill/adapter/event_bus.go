package adapter

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/mateusmacedo/expresso-van/pkg/application"
	"github.com/mateusmacedo/expresso-van/pkg/domain"
)

const eventNameMetadataKey = "event_name"

// EventBus publica eventos de domínio em qualquer transporte do watermill
// (gochannel, redis stream, kafka). O tópico é o nome do evento.
//
// Quando um subscriber é informado, o primeiro RegisterHandler de cada
// evento abre uma assinatura que vive até o cancelamento de ctx. Sem
// subscriber o barramento apenas publica.
type EventBus[E domain.Event[D], D any] struct {
	ctx        context.Context
	publisher  message.Publisher
	subscriber message.Subscriber
	handlers   map[string][]application.EventHandler[E, D]
	mu         sync.RWMutex
	logger     application.AppLogger
}

func NewEventBus[E domain.Event[D], D any](
	ctx context.Context,
	publisher message.Publisher,
	subscriber message.Subscriber,
	logger application.AppLogger,
) *EventBus[E, D] {
	return &EventBus[E, D]{
		ctx:        ctx,
		publisher:  publisher,
		subscriber: subscriber,
		handlers:   make(map[string][]application.EventHandler[E, D]),
		logger:     logger,
	}
}

func (bus *EventBus[E, D]) RegisterHandler(eventName string, handler application.EventHandler[E, D]) {
	bus.mu.Lock()
	first := len(bus.handlers[eventName]) == 0
	bus.handlers[eventName] = append(bus.handlers[eventName], handler)
	bus.mu.Unlock()

	if !first || bus.subscriber == nil {
		return
	}

	messages, err := bus.subscriber.Subscribe(bus.ctx, eventName)
	if err != nil {
		application.LogError(bus.ctx, bus.logger, "error subscribing to event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return
	}

	go bus.consume(eventName, messages)
}

func (bus *EventBus[E, D]) consume(eventName string, messages <-chan *message.Message) {
	for msg := range messages {
		bus.handleMessage(eventName, msg)
	}
	application.LogDebug(bus.ctx, bus.logger, "subscription closed", map[string]interface{}{
		"event_name": eventName,
	})
}

func (bus *EventBus[E, D]) handleMessage(eventName string, msg *message.Message) {
	ctx := msg.Context()
	fields := map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	}

	payload, err := application.UnmarshalPayload[D](msg.Payload)
	if err != nil {
		// Mensagem malformada é descartada.
		application.LogError(ctx, bus.logger, "error unmarshalling event payload", err, fields)
		msg.Ack()
		return
	}

	typedEvent, ok := any(domain.NewEvent(eventName, payload)).(E)
	if !ok {
		application.LogError(ctx, bus.logger, "error casting event", nil, fields)
		msg.Ack()
		return
	}

	bus.mu.RLock()
	handlers := append([]application.EventHandler[E, D](nil), bus.handlers[eventName]...)
	bus.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler.Handle(ctx, typedEvent); err != nil {
			application.LogError(ctx, bus.logger, "error handling event", err, fields)
			msg.Nack()
			return
		}
	}

	application.LogDebug(ctx, bus.logger, "event handled", fields)
	msg.Ack()
}

func (bus *EventBus[E, D]) Publish(ctx context.Context, event E) error {
	eventName := event.EventName()

	payload, err := application.MarshalPayload(event.Payload())
	if err != nil {
		application.LogError(ctx, bus.logger, "error marshalling event payload", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(eventNameMetadataKey, eventName)

	if err := bus.publisher.Publish(eventName, msg); err != nil {
		application.LogError(ctx, bus.logger, "error publishing event", err, map[string]interface{}{
			"event_name": eventName,
		})
		return err
	}

	application.LogInfo(ctx, bus.logger, "event published", map[string]interface{}{
		"event_name": eventName,
		"message_id": msg.UUID,
	})
	return nil
}
