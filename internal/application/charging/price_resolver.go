package charging

import (
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PriceEstimate is the outcome of resolving the price of a related model.
// Altered reports whether the model's alteration actually changed the price;
// AppliedAccounting carries the per-record rating detail when usage
// accounting was supplied.
type PriceEstimate struct {
	Price             decimal.Decimal
	DutyFree          decimal.Decimal
	Altered           bool
	AppliedAccounting []ordering.AppliedAccounting
}

// PriceResolver computes the monetary total of the price parts being charged.
// Pricing math is pluggable; the engine only depends on this contract.
type PriceResolver interface {
	ResolvePrice(model ordering.RelatedModel, accounting []ordering.AccountingEntry) (*PriceEstimate, error)
}

// AdaptAccounting converts raw usage documents into the accounting entries
// consumed by the price resolver
func AdaptAccounting(docs []UsageDocument) []ordering.AccountingEntry {
	entries := make([]ordering.AccountingEntry, 0, len(docs))
	for _, doc := range docs {
		entries = append(entries, ordering.AccountingEntry{
			UsageID: doc.ID,
			Unit:    doc.Unit,
			Value:   doc.Value,
			Date:    doc.Date,
		})
	}
	return entries
}

// StandardPriceResolver prices a related model by summing its one-time and
// subscription parts, rating usage as quantity times unit price, and applying
// the optional alteration on top
type StandardPriceResolver struct{}

// NewStandardPriceResolver creates the default price resolver
func NewStandardPriceResolver() *StandardPriceResolver {
	return &StandardPriceResolver{}
}

// ResolvePrice implements PriceResolver
func (r *StandardPriceResolver) ResolvePrice(model ordering.RelatedModel, accounting []ordering.AccountingEntry) (*PriceEstimate, error) {
	estimate := &PriceEstimate{Price: decimal.Zero, DutyFree: decimal.Zero}

	for _, part := range model.SinglePayment {
		estimate.Price = estimate.Price.Add(part.Value)
		estimate.DutyFree = estimate.DutyFree.Add(part.DutyFree)
	}

	for _, part := range model.Subscription {
		estimate.Price = estimate.Price.Add(part.Value)
		estimate.DutyFree = estimate.DutyFree.Add(part.DutyFree)
	}

	if len(model.PayPerUse) > 0 {
		if len(accounting) == 0 {
			return nil, shared.NewDomainError("MISSING_ACCOUNTING", "A pay-per-use model cannot be priced without accounting records")
		}
		r.rateAccounting(model.PayPerUse, accounting, estimate)
	}

	if model.Alteration != nil {
		r.applyAlteration(*model.Alteration, estimate)
	}

	estimate.Price = estimate.Price.Round(2)
	estimate.DutyFree = estimate.DutyFree.Round(2)
	return estimate, nil
}

// rateAccounting prices every accounting entry against the usage part
// covering its unit and accumulates the applied-accounting detail
func (r *StandardPriceResolver) rateAccounting(parts []ordering.UsagePart, accounting []ordering.AccountingEntry, estimate *PriceEstimate) {
	for _, part := range parts {
		applied := ordering.AppliedAccounting{Model: part}
		for _, entry := range accounting {
			if entry.Unit != part.Unit {
				continue
			}
			price := part.Value.Mul(entry.Value).Round(2)
			dutyFree := part.DutyFree.Mul(entry.Value).Round(2)
			applied.Accounting = append(applied.Accounting, ordering.RatedEntry{
				UsageID:  entry.UsageID,
				Price:    price,
				DutyFree: dutyFree,
			})
			estimate.Price = estimate.Price.Add(price)
			estimate.DutyFree = estimate.DutyFree.Add(dutyFree)
		}
		if len(applied.Accounting) > 0 {
			estimate.AppliedAccounting = append(estimate.AppliedAccounting, applied)
		}
	}
}

// applyAlteration applies a fixed or percentage alteration when its price
// condition holds, and records whether the price was actually altered
func (r *StandardPriceResolver) applyAlteration(alteration ordering.Alteration, estimate *PriceEstimate) {
	if !alteration.AppliesTo(estimate.Price) {
		return
	}

	switch alteration.Type {
	case ordering.AlterationTypePercentage:
		hundred := decimal.NewFromInt(100)
		estimate.Price = estimate.Price.Add(estimate.Price.Mul(alteration.Value).Div(hundred))
		estimate.DutyFree = estimate.DutyFree.Add(estimate.DutyFree.Mul(alteration.Value).Div(hundred))
		estimate.Altered = true
	case ordering.AlterationTypeFixed:
		estimate.Price = estimate.Price.Add(alteration.Value)
		estimate.DutyFree = estimate.DutyFree.Add(alteration.DutyFree)
		estimate.Altered = true
	}
}
