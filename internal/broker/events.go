package broker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/V1trixz/Discod-Bot-Vendas/internal/models"
	"github.com/V1trixz/Discod-Bot-Vendas/internal/util"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher is the write side of the event bus.
type Publisher interface {
	Publish(ctx context.Context, key string, event interface{}) error
}

// EventPublisher publishes order lifecycle events.
type EventPublisher struct {
	publisher Publisher
}

func NewEventPublisher(publisher Publisher) *EventPublisher {
	return &EventPublisher{publisher: publisher}
}

// PublishOrderEvent stamps the event id and time when missing.
func (ep *EventPublisher) PublishOrderEvent(ctx context.Context, event *models.OrderEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	return ep.publisher.Publish(ctx, "order-"+event.OrderID, event)
}

type OrderEventHandlerFunc func(ctx context.Context, event *models.OrderEvent) error

// EventHandler routes decoded order events to registered handlers.
type EventHandler struct {
	handlers map[models.EventType][]OrderEventHandlerFunc
	logger   *zap.Logger
}

func NewEventHandler() *EventHandler {
	return &EventHandler{
		handlers: make(map[models.EventType][]OrderEventHandlerFunc),
		logger:   util.Named("events"),
	}
}

func (eh *EventHandler) On(eventType models.EventType, handler OrderEventHandlerFunc) {
	eh.handlers[eventType] = append(eh.handlers[eventType], handler)
}

// HandleMessage decodes and dispatches a Kafka message. Undecodable messages
// are logged and acknowledged so they cannot block the partition.
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var event models.OrderEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		eh.logger.Warn("Dropping undecodable event",
			zap.String("key", string(msg.Key)),
			zap.Error(err))
		return nil
	}

	handlers, ok := eh.handlers[event.EventType]
	if !ok {
		eh.logger.Debug("No handler for event type", zap.String("event_type", string(event.EventType)))
		return nil
	}

	for _, h := range handlers {
		if err := h(ctx, &event); err != nil {
			return err
		}
	}
	return nil
}
