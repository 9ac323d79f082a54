package ordering

import (
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderState is the lifecycle state of an order
type OrderState string

const (
	// OrderStatePending indicates a charge attempt is awaiting gateway confirmation
	OrderStatePending OrderState = "pending"
	// OrderStatePaid indicates the order has no unconfirmed charges
	OrderStatePaid OrderState = "paid"
	// OrderStateFailed indicates the initial charge was never confirmed
	OrderStateFailed OrderState = "failed"
)

// ChargeConcept is the charge cycle type
type ChargeConcept string

const (
	// ChargeConceptInitial is the first charge of an acquisition
	ChargeConceptInitial ChargeConcept = "initial"
	// ChargeConceptRecurring renews due subscription parts
	ChargeConceptRecurring ChargeConcept = "recurring"
	// ChargeConceptUsage charges accumulated pay-per-use consumption
	ChargeConceptUsage ChargeConcept = "usage"
)

// IsValid returns true if the concept is one of the supported charge types
func (c ChargeConcept) IsValid() bool {
	switch c {
	case ChargeConceptInitial, ChargeConceptRecurring, ChargeConceptUsage:
		return true
	default:
		return false
	}
}

// String returns the string representation of the concept
func (c ChargeConcept) String() string {
	return string(c)
}

// PendingPayment is the snapshot of an in-flight charge attempt. At most one
// pending payment may exist per order at a time.
type PendingPayment struct {
	Concept       ChargeConcept       `json:"concept"`
	Transactions  []ChargeTransaction `json:"transactions"`
	FreeContracts []string            `json:"free_contracts,omitempty"`
}

// Order is the aggregate representing a customer's purchase of one or more
// items, each covered by its own contract
type Order struct {
	shared.BaseAggregateRoot
	OrderID        string
	State          OrderState
	OwnerID        uuid.UUID
	Date           time.Time
	Contracts      []Contract
	PendingPayment *PendingPayment
	// ChargeLock arbitrates between the timeout watchdog and the gateway
	// completion path. It is ephemeral and never part of business state.
	ChargeLock bool
}

// NewOrder creates an order owned by the given organization
func NewOrder(orderID string, ownerID uuid.UUID, contracts []Contract) (*Order, error) {
	if orderID == "" {
		return nil, shared.NewDomainError("INVALID_ORDER_ID", "Order ID cannot be empty")
	}
	if ownerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_OWNER", "Owner organization cannot be empty")
	}
	return &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderID:           orderID,
		State:             OrderStatePending,
		OwnerID:           ownerID,
		Date:              time.Now(),
		Contracts:         contracts,
	}, nil
}

// ActiveContracts returns the non-terminated contracts of the order
func (o *Order) ActiveContracts() []Contract {
	active := make([]Contract, 0, len(o.Contracts))
	for _, c := range o.Contracts {
		if !c.Terminated {
			active = append(active, c)
		}
	}
	return active
}

// ContractByItem returns the contract covering the given order item
func (o *Order) ContractByItem(itemID string) (*Contract, error) {
	for i := range o.Contracts {
		if o.Contracts[i].ItemID == itemID {
			return &o.Contracts[i], nil
		}
	}
	return nil, shared.NewDomainError("CONTRACT_NOT_FOUND", "No contract for order item "+itemID)
}

// BeginCharge records the in-flight charge attempt on the order. It fails if
// another charge attempt is already pending.
func (o *Order) BeginCharge(pending *PendingPayment) error {
	if o.PendingPayment != nil {
		return NewOrderingError("the order has a pending charge attempt")
	}
	o.PendingPayment = pending
	return nil
}

// SetPaid marks the order as paid and clears any pending payment snapshot
func (o *Order) SetPaid() {
	o.State = OrderStatePaid
	o.PendingPayment = nil
}

// ReplaceContract swaps the contract covering the given item for the updated
// one, preserving the contract order
func (o *Order) ReplaceContract(updated Contract) {
	for i := range o.Contracts {
		if o.Contracts[i].ItemID == updated.ItemID {
			o.Contracts[i] = updated
			return
		}
	}
}
