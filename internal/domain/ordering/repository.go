package ordering

import (
	"context"

	"github.com/google/uuid"
)

// OrderRepository persists orders. Besides plain CRUD it exposes the atomic
// charge-lock claim used to arbitrate between the timeout watchdog and the
// gateway completion path. Implementations must back AcquireChargeLock with a
// single atomic read-modify-write against the durable store.
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindAll(ctx context.Context) ([]Order, error)
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error

	// AcquireChargeLock atomically claims the order's charge lock.
	// It returns false when the lock was already held.
	AcquireChargeLock(ctx context.Context, id uuid.UUID) (bool, error)
	// ReleaseChargeLock releases a previously acquired claim
	ReleaseChargeLock(ctx context.Context, id uuid.UUID) error
}

// OrganizationRepository persists owning organizations
type OrganizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	Save(ctx context.Context, org *Organization) error
}

// OfferingRepository reads offerings referenced by contracts
type OfferingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Offering, error)
}
