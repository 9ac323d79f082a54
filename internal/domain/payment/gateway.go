package payment

import (
	"context"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
)

// GatewayType identifies a concrete payment gateway implementation
type GatewayType string

// Client is a payment session bound to one order. A client is created per
// charge attempt, starts the redirection payment for the aggregate
// transaction list, and exposes the checkout URL the customer must visit to
// approve the charge.
type Client interface {
	// StartRedirectionPayment submits the charge transactions to the gateway
	StartRedirectionPayment(ctx context.Context, transactions []ordering.ChargeTransaction) error
	// CheckoutURL returns the redirect URL obtained from the gateway.
	// Valid only after a successful StartRedirectionPayment.
	CheckoutURL() string
}

// Gateway is the capability interface every payment gateway adapter
// implements. Concrete adapters live in the infrastructure layer and are
// resolved from the registry at startup, never at call time.
type Gateway interface {
	// GatewayType returns the type identifier of this gateway
	GatewayType() GatewayType
	// NewClient creates a payment session bound to the given order
	NewClient(order *ordering.Order) Client
}

// Registry maps gateway type identifiers to configured gateway adapters
type Registry interface {
	// Gateway returns the adapter registered for the given type
	Gateway(gatewayType GatewayType) (Gateway, error)
	// Types lists the registered gateway types
	Types() []GatewayType
}

// ErrGatewayNotRegistered is returned when no adapter is registered for the
// requested gateway type
var ErrGatewayNotRegistered = shared.NewDomainError("GATEWAY_NOT_REGISTERED", "No payment gateway registered for the requested type")
