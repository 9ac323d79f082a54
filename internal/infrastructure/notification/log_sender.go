package notification

import (
	"context"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// LogSender records charging lifecycle notifications in the application log.
// It stands in for the Kafka sender when no broker is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a log-backed notification sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendAcquiredNotification(_ context.Context, order *ordering.Order) error {
	s.logger.Info("Notification", zap.String("type", EventOrderAcquired), zap.String("order_id", order.OrderID))
	return nil
}

func (s *LogSender) SendProviderNotification(_ context.Context, order *ordering.Order, contract *ordering.Contract) error {
	s.logger.Info("Notification", zap.String("type", EventProviderSale),
		zap.String("order_id", order.OrderID), zap.String("item_id", contract.ItemID))
	return nil
}

func (s *LogSender) SendRenovationNotification(_ context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction) error {
	s.logger.Info("Notification", zap.String("type", EventOrderRenovated),
		zap.String("order_id", order.OrderID), zap.Int("transactions", len(transactions)))
	return nil
}

func (s *LogSender) SendPaymentRequiredNotification(_ context.Context, order *ordering.Order, contract *ordering.Contract) error {
	s.logger.Info("Notification", zap.String("type", EventPaymentRequired),
		zap.String("order_id", order.OrderID), zap.String("item_id", contract.ItemID))
	return nil
}

func (s *LogSender) SendNearExpirationNotification(_ context.Context, order *ordering.Order, contract *ordering.Contract, daysLeft int) error {
	s.logger.Info("Notification", zap.String("type", EventNearExpiration),
		zap.String("order_id", order.OrderID), zap.String("item_id", contract.ItemID), zap.Int("days_left", daysLeft))
	return nil
}
