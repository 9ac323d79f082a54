package plugin

import (
	"context"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// Hooks dispatches asset lifecycle events to the plugin bound to the asset
// type of a contract's offering. It implements the asset hooks contract of
// the charging engine. Contracts whose offering has no plugin are silently
// skipped.
type Hooks struct {
	registry  *Registry
	offerings ordering.OfferingRepository
	logger    *zap.Logger
}

// NewHooks creates an asset hooks dispatcher
func NewHooks(registry *Registry, offerings ordering.OfferingRepository, logger *zap.Logger) *Hooks {
	return &Hooks{
		registry:  registry,
		offerings: offerings,
		logger:    logger,
	}
}

// OnProductAcquired dispatches the acquisition event
func (h *Hooks) OnProductAcquired(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	p, ok := h.resolve(ctx, contract)
	if !ok {
		return nil
	}
	return p.OnProductAcquired(ctx, order, contract)
}

// OnProductSuspended dispatches the suspension event
func (h *Hooks) OnProductSuspended(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	p, ok := h.resolve(ctx, contract)
	if !ok {
		return nil
	}
	return p.OnProductSuspended(ctx, order, contract)
}

// OnUsageRefreshed dispatches the usage settlement event
func (h *Hooks) OnUsageRefreshed(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	p, ok := h.resolve(ctx, contract)
	if !ok {
		return nil
	}
	return p.OnUsageRefreshed(ctx, order, contract)
}

func (h *Hooks) resolve(ctx context.Context, contract *ordering.Contract) (ResourcePlugin, bool) {
	offering, err := h.offerings.FindByID(ctx, contract.OfferingID)
	if err != nil {
		h.logger.Warn("Could not resolve offering for asset hook",
			zap.String("item_id", contract.ItemID),
			zap.Error(err))
		return nil, false
	}
	if offering.AssetType == "" {
		return nil, false
	}
	return h.registry.Plugin(offering.AssetType)
}
