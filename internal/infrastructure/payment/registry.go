package payment

import (
	"sort"
	"sync"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/payment"
)

// GatewayRegistry is the in-memory implementation of the gateway registry.
// Adapters are registered at startup; lookups are safe for concurrent use.
type GatewayRegistry struct {
	mu       sync.RWMutex
	gateways map[payment.GatewayType]payment.Gateway
}

// NewGatewayRegistry creates an empty gateway registry
func NewGatewayRegistry() *GatewayRegistry {
	return &GatewayRegistry{gateways: make(map[payment.GatewayType]payment.Gateway)}
}

// Register adds a gateway adapter, replacing any previous adapter of the
// same type
func (r *GatewayRegistry) Register(gateway payment.Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[gateway.GatewayType()] = gateway
}

// Gateway returns the adapter registered for the given type
func (r *GatewayRegistry) Gateway(gatewayType payment.GatewayType) (payment.Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	gateway, ok := r.gateways[gatewayType]
	if !ok {
		return nil, payment.ErrGatewayNotRegistered
	}
	return gateway, nil
}

// Types lists the registered gateway types in stable order
func (r *GatewayRegistry) Types() []payment.GatewayType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]payment.GatewayType, 0, len(r.gateways))
	for gatewayType := range r.gateways {
		types = append(types, gatewayType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
