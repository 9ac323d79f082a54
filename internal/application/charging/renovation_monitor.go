package charging

import (
	"context"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// MonitorConfig holds the renovation monitor settings
type MonitorConfig struct {
	// NearExpirationDays is how many days before expiration the customer is
	// warned
	NearExpirationDays int
	// UsagePeriod is the length of a pay-per-use settlement period
	UsagePeriod ordering.ChargePeriod
}

// DefaultMonitorConfig returns the default monitor settings
func DefaultMonitorConfig() MonitorConfig {
	return MonitorConfig{
		NearExpirationDays: 7,
		UsagePeriod:        ordering.ChargePeriodMonthly,
	}
}

// RenovationMonitor sweeps the order base looking for contracts whose paid
// period is about to expire or has already expired. Expired contracts get
// their product suspended in the inventory; near-expiration contracts only
// generate a customer warning. The sweep is side-effect-only and best-effort,
// a failure on one contract never stops the rest of the scan.
type RenovationMonitor struct {
	orders    ordering.OrderRepository
	inventory InventoryClient
	notifier  NotificationSender
	assets    AssetHooks
	cfg       MonitorConfig
	logger    *zap.Logger
	now       func() time.Time
}

// NewRenovationMonitor creates a renovation monitor
func NewRenovationMonitor(
	orders ordering.OrderRepository,
	inventory InventoryClient,
	notifier NotificationSender,
	assets AssetHooks,
	cfg MonitorConfig,
	logger *zap.Logger,
) *RenovationMonitor {
	return &RenovationMonitor{
		orders:    orders,
		inventory: inventory,
		notifier:  notifier,
		assets:    assets,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Sweep scans every order once and handles pending renovations
func (m *RenovationMonitor) Sweep(ctx context.Context) error {
	orders, err := m.orders.FindAll(ctx)
	if err != nil {
		return err
	}

	checked := 0
	for i := range orders {
		order := &orders[i]
		for j := range order.Contracts {
			contract := &order.Contracts[j]
			if contract.Terminated {
				continue
			}
			m.checkContract(ctx, order, contract)
			checked++
		}
	}

	m.logger.Info("Renovation sweep finished", zap.Int("orders", len(orders)), zap.Int("contracts", checked))
	return nil
}

// checkContract inspects the expiration of one contract. The earliest
// expiring price part determines the contract's fate.
func (m *RenovationMonitor) checkContract(ctx context.Context, order *ordering.Order, contract *ordering.Contract) {
	expiration, ok := m.contractExpiration(order, contract)
	if !ok {
		return
	}

	daysLeft := int(expiration.Sub(m.now()).Hours() / 24)
	switch {
	case daysLeft < 0:
		m.suspendContract(ctx, order, contract)
	case daysLeft < m.cfg.NearExpirationDays:
		if err := m.notifier.SendNearExpirationNotification(ctx, order, contract, daysLeft); err != nil {
			m.logger.Warn("Failed to send near-expiration notification",
				zap.String("order_id", order.OrderID),
				zap.String("item_id", contract.ItemID),
				zap.Error(err))
		}
	}
}

// contractExpiration returns the earliest date the contract's paid period
// runs out, or false when the contract never expires. A pay-per-use contract
// with no charge history counts its settlement period from the order date.
func (m *RenovationMonitor) contractExpiration(order *ordering.Order, contract *ordering.Contract) (time.Time, bool) {
	var earliest time.Time
	found := false

	for _, part := range contract.PricingModel.Subscription {
		if !found || part.RenovationDate.Before(earliest) {
			earliest = part.RenovationDate
			found = true
		}
	}

	if contract.PricingModel.HasPayPerUse() {
		start, ok := contract.LastChargeOfConcept(ordering.ChargeConceptUsage)
		if !ok {
			if last, hasAny := contract.LastChargeDate(); hasAny {
				start = last
			} else {
				start = order.Date
			}
		}
		if expiry, err := m.cfg.UsagePeriod.NextRenovation(start); err == nil {
			if !found || expiry.Before(earliest) {
				earliest = expiry
				found = true
			}
		}
	}

	return earliest, found
}

// suspendContract cuts access to an expired product and tells the customer a
// payment is required to restore it
func (m *RenovationMonitor) suspendContract(ctx context.Context, order *ordering.Order, contract *ordering.Contract) {
	m.logger.Info("Suspending expired product",
		zap.String("order_id", order.OrderID),
		zap.String("item_id", contract.ItemID),
		zap.String("product_id", contract.ProductID),
	)

	if err := m.assets.OnProductSuspended(ctx, order, contract); err != nil {
		m.logger.Warn("Asset suspension hook failed",
			zap.String("order_id", order.OrderID),
			zap.String("item_id", contract.ItemID),
			zap.Error(err))
	}
	if err := m.inventory.SuspendProduct(ctx, contract.ProductID); err != nil {
		m.logger.Warn("Failed to suspend product in inventory",
			zap.String("order_id", order.OrderID),
			zap.String("product_id", contract.ProductID),
			zap.Error(err))
	}
	if err := m.notifier.SendPaymentRequiredNotification(ctx, order, contract); err != nil {
		m.logger.Warn("Failed to send payment-required notification",
			zap.String("order_id", order.OrderID),
			zap.String("item_id", contract.ItemID),
			zap.Error(err))
	}
}
