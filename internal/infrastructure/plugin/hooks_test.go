package plugin

import (
	"context"
	"testing"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePlugin struct {
	assetType string
	acquired  []string
	suspended []string
	refreshed []string
}

func (p *fakePlugin) AssetType() string { return p.assetType }

func (p *fakePlugin) OnProductAcquired(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	p.acquired = append(p.acquired, contract.ItemID)
	return nil
}

func (p *fakePlugin) OnProductSuspended(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	p.suspended = append(p.suspended, contract.ItemID)
	return nil
}

func (p *fakePlugin) OnUsageRefreshed(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	p.refreshed = append(p.refreshed, contract.ItemID)
	return nil
}

type staticOfferings struct {
	offerings map[uuid.UUID]*ordering.Offering
}

func (s *staticOfferings) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Offering, error) {
	offering, ok := s.offerings[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return offering, nil
}

func TestHooks_DispatchesToBoundPlugin(t *testing.T) {
	registry := NewRegistry()
	p := &fakePlugin{assetType: "cloud-service"}
	registry.Register(p)

	offeringID := uuid.New()
	offerings := &staticOfferings{offerings: map[uuid.UUID]*ordering.Offering{
		offeringID: {AssetType: "cloud-service"},
	}}
	hooks := NewHooks(registry, offerings, zap.NewNop())

	order, err := ordering.NewOrder("order-1", uuid.New(), []ordering.Contract{{ItemID: "item-1", OfferingID: offeringID}})
	require.NoError(t, err)

	require.NoError(t, hooks.OnProductAcquired(context.Background(), order, &order.Contracts[0]))
	require.NoError(t, hooks.OnProductSuspended(context.Background(), order, &order.Contracts[0]))
	require.NoError(t, hooks.OnUsageRefreshed(context.Background(), order, &order.Contracts[0]))

	assert.Equal(t, []string{"item-1"}, p.acquired)
	assert.Equal(t, []string{"item-1"}, p.suspended)
	assert.Equal(t, []string{"item-1"}, p.refreshed)
}

func TestHooks_SkipsOfferingsWithoutPlugin(t *testing.T) {
	registry := NewRegistry()
	offeringID := uuid.New()
	offerings := &staticOfferings{offerings: map[uuid.UUID]*ordering.Offering{
		offeringID: {AssetType: "unmanaged"},
	}}
	hooks := NewHooks(registry, offerings, zap.NewNop())

	order, err := ordering.NewOrder("order-1", uuid.New(), []ordering.Contract{{ItemID: "item-1", OfferingID: offeringID}})
	require.NoError(t, err)

	assert.NoError(t, hooks.OnProductAcquired(context.Background(), order, &order.Contracts[0]))
}

func TestHooks_UnresolvableOfferingIsNotFatal(t *testing.T) {
	hooks := NewHooks(NewRegistry(), &staticOfferings{offerings: map[uuid.UUID]*ordering.Offering{}}, zap.NewNop())

	order, err := ordering.NewOrder("order-1", uuid.New(), []ordering.Contract{{ItemID: "item-1", OfferingID: uuid.New()}})
	require.NoError(t, err)

	assert.NoError(t, hooks.OnProductAcquired(context.Background(), order, &order.Contracts[0]))
}

func TestRegistry_ReplaceAndLookup(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Plugin("cloud-service")
	assert.False(t, ok)

	first := &fakePlugin{assetType: "cloud-service"}
	second := &fakePlugin{assetType: "cloud-service"}
	registry.Register(first)
	registry.Register(second)

	p, ok := registry.Plugin("cloud-service")
	require.True(t, ok)
	assert.Same(t, second, p)
}
