package ordering

import (
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Offering is the catalog entry a contract grants access to. Only the fields
// the charging engine needs are modeled here; catalog management is out of
// scope.
type Offering struct {
	shared.BaseEntity
	OfferingID  string
	Name        string
	Description string
	AssetType   string
}

// Organization owns orders and accumulates the offerings it has acquired
type Organization struct {
	shared.BaseAggregateRoot
	Name              string
	AcquiredOfferings []uuid.UUID
}

// GrantOffering records the offering as acquired by the organization.
// Granting an already-acquired offering is a no-op.
func (org *Organization) GrantOffering(offeringID uuid.UUID) {
	for _, id := range org.AcquiredOfferings {
		if id == offeringID {
			return
		}
	}
	org.AcquiredOfferings = append(org.AcquiredOfferings, offeringID)
}
