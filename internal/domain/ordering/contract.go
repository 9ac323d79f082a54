package ordering

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Charge is the immutable record of a committed charge against a contract.
// Charges are created exactly once per successful commit and are only ever
// appended to a contract's history.
type Charge struct {
	Date     time.Time       `json:"date"`
	Cost     decimal.Decimal `json:"cost"`
	DutyFree decimal.Decimal `json:"duty_free"`
	Currency string          `json:"currency"`
	Concept  ChargeConcept   `json:"concept"`
	Invoice  string          `json:"invoice"`
}

// Contract is the per-item agreement inside an order, carrying its own
// pricing model and charge history
type Contract struct {
	ItemID       string       `json:"item_id"`
	OfferingID   uuid.UUID    `json:"offering_id"`
	ProductID    string       `json:"product_id"`
	PricingModel PricingModel `json:"pricing_model"`
	Charges      []Charge     `json:"charges,omitempty"`
	LastCharge   *time.Time   `json:"last_charge,omitempty"`
	Terminated   bool         `json:"terminated"`
}

// AppendCharge records a committed charge on the contract history.
// The history never shrinks; only the completion finalizer appends.
func (c *Contract) AppendCharge(charge Charge) {
	c.Charges = append(c.Charges, charge)
}

// LastChargeDate returns the date of the most recent committed charge, or
// false when the contract has never been charged
func (c *Contract) LastChargeDate() (time.Time, bool) {
	if len(c.Charges) == 0 {
		return time.Time{}, false
	}
	return c.Charges[len(c.Charges)-1].Date, true
}

// LastChargeOfConcept returns the date of the most recent committed charge
// with the given concept, or false when none exists
func (c *Contract) LastChargeOfConcept(concept ChargeConcept) (time.Time, bool) {
	for i := len(c.Charges) - 1; i >= 0; i-- {
		if c.Charges[i].Concept == concept {
			return c.Charges[i].Date, true
		}
	}
	return time.Time{}, false
}
