package ordering

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountingEntry is a single unrated usage measurement consumed by a usage
// charge. Entries are adapted from the raw usage documents reported by the
// usage collaborator.
type AccountingEntry struct {
	UsageID string          `json:"usage_id"`
	Unit    string          `json:"unit"`
	Value   decimal.Decimal `json:"value"`
	Date    time.Time       `json:"date"`
}

// RatedEntry is an accounting entry with its computed price share
type RatedEntry struct {
	UsageID  string          `json:"usage_id"`
	Price    decimal.Decimal `json:"price"`
	DutyFree decimal.Decimal `json:"duty_free"`
}

// AppliedAccounting groups the rated entries consumed under one usage price
// part. It is carried on the transaction so the completion finalizer can push
// each rating to the usage collaborator.
type AppliedAccounting struct {
	Model      UsagePart    `json:"model"`
	Accounting []RatedEntry `json:"accounting"`
}

// RelatedModel is the subset of a contract's pricing model actually being
// charged by one transaction. For renovations it additionally carries the
// subscription parts that were not due, so the commit step can restore them
// unmodified.
type RelatedModel struct {
	SinglePayment []PricePart         `json:"single_payment,omitempty"`
	Subscription  []SubscriptionPart  `json:"subscription,omitempty"`
	Unmodified    []SubscriptionPart  `json:"unmodified,omitempty"`
	PayPerUse     []UsagePart         `json:"pay_per_use,omitempty"`
	Alteration    *Alteration         `json:"alteration,omitempty"`
	Accounting    []AppliedAccounting `json:"accounting,omitempty"`
}

// IsEmpty reports whether the related model contains no chargeable parts
func (m RelatedModel) IsEmpty() bool {
	return len(m.SinglePayment) == 0 && len(m.Subscription) == 0 &&
		len(m.PayPerUse) == 0 && m.Alteration == nil
}

// ChargeTransaction is the transient computed charge for one contract,
// prepared for submission to the payment gateway. It is persisted only as
// part of an order's pending payment snapshot.
type ChargeTransaction struct {
	ItemID            string              `json:"item"`
	Price             decimal.Decimal     `json:"price"`
	DutyFree          decimal.Decimal     `json:"duty_free"`
	Currency          string              `json:"currency"`
	Description       string              `json:"description"`
	RelatedModel      RelatedModel        `json:"related_model"`
	AppliedAccounting []AppliedAccounting `json:"applied_accounting,omitempty"`
}
