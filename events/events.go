// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fashalt/fashaltbackend/config"
	"github.com/fashalt/fashaltbackend/logger"
	"github.com/fashalt/fashaltbackend/models"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	OrderCreated       EventType = "order.created"
	OrderStatusChanged EventType = "order.status_changed"
	OrderDeleted       EventType = "order.deleted"
)

type OrderEvent struct {
	Type       EventType          `json:"type"`
	OrderID    string             `json:"orderId"`
	UserID     string             `json:"userId"`
	Status     models.OrderStatus `json:"status,omitempty"`
	Total      float64            `json:"total"`
	OccurredAt time.Time          `json:"occurredAt"`
}

func NewOrderEvent(t EventType, o *models.Order) OrderEvent {
	return OrderEvent{
		Type:       t,
		OrderID:    o.OrderID,
		UserID:     o.UserID.Hex(),
		Status:     o.Status,
		Total:      o.Total,
		OccurredAt: time.Now().UTC(),
	}
}

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.OrderTopic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            3,
		WriteTimeout:           5 * time.Second,
		// Publish runs on the request path; flush each event instead of waiting for a batch.
		BatchSize:    1,
		BatchTimeout: 10 * time.Millisecond,
	}
	logger.Info(context.Background(), "kafka publisher created", "brokers", cfg.Brokers, "topic", cfg.OrderTopic)
	return &KafkaPublisher{writer: writer}
}

// Publish keys messages by order id so events of one order stay ordered.
func (p *KafkaPublisher) Publish(ctx context.Context, ev OrderEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(ev.Type)},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	logger.Debug(ctx, "order event published", "type", ev.Type, "order_id", ev.OrderID)
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

type Noop struct{}

func (Noop) Publish(context.Context, OrderEvent) error { return nil }
