package plugin

import (
	"context"
	"sync"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
)

// ResourcePlugin provisions and suspends access to a digital asset type. A
// plugin is bound to the asset type of the offerings it manages; offerings
// without a plugin need no provisioning.
type ResourcePlugin interface {
	// AssetType returns the asset type the plugin manages
	AssetType() string
	// OnProductAcquired provisions access after a committed acquisition
	OnProductAcquired(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
	// OnProductSuspended cuts access after an expired renovation
	OnProductSuspended(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
	// OnUsageRefreshed runs after a committed usage charge has rated the
	// consumed usage documents
	OnUsageRefreshed(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
}

// Registry maps asset types to their resource plugins. Registration happens
// at startup; lookups are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]ResourcePlugin
}

// NewRegistry creates an empty plugin registry
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]ResourcePlugin)}
}

// Register adds a resource plugin, replacing any previous plugin of the same
// asset type
func (r *Registry) Register(p ResourcePlugin) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plugins[p.AssetType()] = p
}

// Plugin returns the plugin bound to the given asset type
func (r *Registry) Plugin(assetType string) (ResourcePlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[assetType]
	return p, ok
}
