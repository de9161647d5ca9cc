package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shadowcc/keyshop/internal/domain"
)

const (
	KindConfirmationRequest = "order.confirmation_requested"
	KindNewOrderAlert       = "order.confirmed"
)

// Producer is satisfied by *kafka.Writer and the traced otelkafka writer.
type Producer interface {
	WriteMessage(ctx context.Context, msg kafka.Message) error
	Close() error
}

// Envelope is the message body consumed by the mail worker.
type Envelope struct {
	Kind       string       `json:"kind"`
	OrderID    string       `json:"order_id"`
	Order      domain.Order `json:"order"`
	ConfirmURL string       `json:"confirm_url,omitempty"`
}

// KafkaNotifier publishes one message per notification, keyed by order id so
// all messages for an order land on the same partition.
type KafkaNotifier struct {
	producer Producer
	logger   *zap.Logger
}

func NewKafkaNotifier(producer Producer, logger *zap.Logger) *KafkaNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KafkaNotifier{producer: producer, logger: logger}
}

func (n *KafkaNotifier) SendConfirmationRequest(ctx context.Context, req domain.ConfirmationRequest) error {
	return n.publish(ctx, Envelope{
		Kind:       KindConfirmationRequest,
		OrderID:    req.Order.ID,
		Order:      req.Order,
		ConfirmURL: req.ConfirmURL,
	})
}

func (n *KafkaNotifier) SendNewOrderAlert(ctx context.Context, order domain.Order) error {
	return n.publish(ctx, Envelope{
		Kind:    KindNewOrderAlert,
		OrderID: order.ID,
		Order:   order,
	})
}

func (n *KafkaNotifier) Close() error {
	return n.producer.Close()
}

func (n *KafkaNotifier) publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode %s: %w", env.Kind, err)
	}

	msg := kafka.Message{
		Key:   []byte(env.OrderID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(env.Kind)},
		},
	}
	if err := n.producer.WriteMessage(ctx, msg); err != nil {
		n.logger.Error("failed to publish notification",
			zap.Error(err),
			zap.String("kind", env.Kind),
			zap.String("order_id", env.OrderID),
		)
		return fmt.Errorf("publish %s: %w", env.Kind, err)
	}

	n.logger.Debug("notification published", zap.String("kind", env.Kind), zap.String("order_id", env.OrderID))
	return nil
}
