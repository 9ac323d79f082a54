package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Event types published to the notification topic
const (
	EventOrderAcquired   = "order.acquired"
	EventProviderSale    = "provider.sale"
	EventOrderRenovated  = "order.renovated"
	EventPaymentRequired = "payment.required"
	EventNearExpiration  = "near.expiration"
)

// Config holds the Kafka notification settings
type Config struct {
	// Brokers is the Kafka bootstrap broker list
	Brokers []string
	// Topic is the notification topic
	Topic string
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return fmt.Errorf("notification: at least one Kafka broker is required")
	}
	if c.Topic == "" {
		return fmt.Errorf("notification: topic is required")
	}
	return nil
}

// messageWriter is the part of kafka.Writer the sender uses
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// notificationEvent is the wire format of a published notification
type notificationEvent struct {
	Type      string          `json:"type"`
	OrderID   string          `json:"order_id"`
	ItemID    string          `json:"item_id,omitempty"`
	ProductID string          `json:"product_id,omitempty"`
	Total     decimal.Decimal `json:"total,omitempty"`
	Currency  string          `json:"currency,omitempty"`
	DaysLeft  *int            `json:"days_left,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// KafkaSender publishes charging lifecycle notifications to a Kafka topic.
// It implements the notification collaborator contract of the charging
// engine; delivery is fire-and-forget from the engine's point of view.
type KafkaSender struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
	now    func() time.Time
}

// NewKafkaSender creates a Kafka notification sender
func NewKafkaSender(config *Config, logger *zap.Logger) (*KafkaSender, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Topic:                  config.Topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           100 * time.Millisecond,
	}
	return &KafkaSender{
		writer: writer,
		topic:  config.Topic,
		logger: logger,
		now:    time.Now,
	}, nil
}

// SendAcquiredNotification notifies the customer that the acquisition
// completed
func (s *KafkaSender) SendAcquiredNotification(ctx context.Context, order *ordering.Order) error {
	return s.publish(ctx, order.OrderID, notificationEvent{
		Type:    EventOrderAcquired,
		OrderID: order.OrderID,
	})
}

// SendProviderNotification notifies the offering provider about a sold item
func (s *KafkaSender) SendProviderNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	return s.publish(ctx, order.OrderID, notificationEvent{
		Type:      EventProviderSale,
		OrderID:   order.OrderID,
		ItemID:    contract.ItemID,
		ProductID: contract.ProductID,
	})
}

// SendRenovationNotification notifies the customer that a renovation charge
// was committed
func (s *KafkaSender) SendRenovationNotification(ctx context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction) error {
	total := decimal.Zero
	currency := ""
	for _, transaction := range transactions {
		total = total.Add(transaction.Price)
		currency = transaction.Currency
	}
	return s.publish(ctx, order.OrderID, notificationEvent{
		Type:     EventOrderRenovated,
		OrderID:  order.OrderID,
		Total:    total,
		Currency: currency,
	})
}

// SendPaymentRequiredNotification tells the customer an expired contract
// needs a payment to be restored
func (s *KafkaSender) SendPaymentRequiredNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	return s.publish(ctx, order.OrderID, notificationEvent{
		Type:      EventPaymentRequired,
		OrderID:   order.OrderID,
		ItemID:    contract.ItemID,
		ProductID: contract.ProductID,
	})
}

// SendNearExpirationNotification warns the customer about an expiring
// contract
func (s *KafkaSender) SendNearExpirationNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract, daysLeft int) error {
	return s.publish(ctx, order.OrderID, notificationEvent{
		Type:      EventNearExpiration,
		OrderID:   order.OrderID,
		ItemID:    contract.ItemID,
		ProductID: contract.ProductID,
		DaysLeft:  &daysLeft,
	})
}

// Close flushes and closes the underlying writer
func (s *KafkaSender) Close() error {
	return s.writer.Close()
}

func (s *KafkaSender) publish(ctx context.Context, key string, event notificationEvent) error {
	event.Timestamp = s.now()
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("notification: failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("notification: failed to publish %s: %w", event.Type, err)
	}

	s.logger.Debug("Notification published",
		zap.String("type", event.Type),
		zap.String("order_id", event.OrderID),
		zap.String("topic", s.topic),
	)
	return nil
}
