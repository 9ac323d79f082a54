package charging

import (
	"context"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UsageState is the rating lifecycle state of a usage document in the usage
// collaborator
type UsageState string

const (
	// UsageStateGuided marks usage that has been measured but not charged
	UsageStateGuided UsageState = "Guided"
	// UsageStateRated marks usage that has been consumed by a committed charge
	UsageStateRated UsageState = "Rated"
)

// UsageDocument is the raw usage measurement reported by the usage
// collaborator
type UsageDocument struct {
	ID    string
	Unit  string
	Value decimal.Decimal
	Date  time.Time
}

// RateUsageRequest carries the rating of one consumed usage document
type RateUsageRequest struct {
	UsageID   string
	ChargeRef string
	DutyFree  decimal.Decimal
	Price     decimal.Decimal
	TaxRate   decimal.Decimal
	Currency  string
	ProductID string
}

// UsageClient is the usage collaborator contract
type UsageClient interface {
	// GetCustomerUsage returns the usage documents of a product in the given state
	GetCustomerUsage(ctx context.Context, customer string, productID string, state UsageState) ([]UsageDocument, error)
	// RateUsage moves one usage document from Guided to Rated
	RateUsage(ctx context.Context, req RateUsageRequest) error
}

// ChargeReport pairs a committed charge with its product and the validity
// bounds of the paid period
type ChargeReport struct {
	Charge    ordering.Charge
	ProductID string
	ValidFrom *time.Time
	ValidTo   *time.Time
}

// BillingClient is the billing collaborator contract
type BillingClient interface {
	// CreateBatchCharges reports every committed charge of one resolution as a
	// single customer bill and returns the created rate identifiers
	CreateBatchCharges(ctx context.Context, party string, reports []ChargeReport) ([]string, error)
}

// OrderingClient is the external ordering collaborator contract
type OrderingClient interface {
	// UpdateItemsState transitions every item of the order to the given state
	UpdateItemsState(ctx context.Context, order *ordering.Order, state string) error
}

// ItemStateFailed marks order items whose charge was never confirmed
const ItemStateFailed = "Failed"

// InventoryClient is the external inventory collaborator contract
type InventoryClient interface {
	// SuspendProduct suspends access to an expired product
	SuspendProduct(ctx context.Context, productID string) error
}

// NotificationSender delivers best-effort customer and provider
// notifications. Failures never affect committed financial state.
type NotificationSender interface {
	SendAcquiredNotification(ctx context.Context, order *ordering.Order) error
	SendProviderNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
	SendRenovationNotification(ctx context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction) error
	SendPaymentRequiredNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
	SendNearExpirationNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract, daysLeft int) error
}

// InvoiceBuilder renders the invoice document for a committed transaction.
// Invoicing is best-effort; a failure leaves the charge's invoice path empty.
type InvoiceBuilder interface {
	GenerateInvoice(ctx context.Context, order *ordering.Order, contract *ordering.Contract, transaction *ordering.ChargeTransaction, concept ordering.ChargeConcept) (string, error)
}

// AssetHooks dispatches provisioning events to the resource plugin bound to a
// contract's asset type. Hook failures are logged and swallowed.
type AssetHooks interface {
	OnProductAcquired(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
	OnProductSuspended(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
	OnUsageRefreshed(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error
}

// WatchdogScheduler arms the one-shot rollback job guarding an in-flight
// charge. Jobs are keyed by order id; arming an order that already has a job
// replaces it, and Disarm cancels the job before it fires.
type WatchdogScheduler interface {
	Arm(orderID uuid.UUID, delay time.Duration, fire func(ctx context.Context, orderID uuid.UUID))
	Disarm(orderID uuid.UUID) bool
}

// CheckoutSession is the redirect handle of an in-flight charge attempt
type CheckoutSession struct {
	OrderID     uuid.UUID             `json:"order_id"`
	Concept     ordering.ChargeConcept `json:"concept"`
	CheckoutURL string                `json:"checkout_url"`
	CreatedAt   time.Time             `json:"created_at"`
}

// CheckoutSessionStore keeps checkout sessions for the lifetime of the
// watchdog window so the redirect URL can be re-served while the charge is
// pending
type CheckoutSessionStore interface {
	Save(ctx context.Context, session *CheckoutSession, ttl time.Duration) error
	Find(ctx context.Context, orderID uuid.UUID) (*CheckoutSession, error)
	Delete(ctx context.Context, orderID uuid.UUID) error
}
