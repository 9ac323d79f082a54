package ordering

import (
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ChargePeriod represents the recurrence unit of a subscription price part
type ChargePeriod string

const (
	ChargePeriodDaily     ChargePeriod = "daily"
	ChargePeriodWeekly    ChargePeriod = "weekly"
	ChargePeriodMonthly   ChargePeriod = "monthly"
	ChargePeriodQuarterly ChargePeriod = "quarterly"
	ChargePeriodYearly    ChargePeriod = "yearly"
)

// periodDays maps each recurrence unit to its length in days
var periodDays = map[ChargePeriod]int{
	ChargePeriodDaily:     1,
	ChargePeriodWeekly:    7,
	ChargePeriodMonthly:   30,
	ChargePeriodQuarterly: 90,
	ChargePeriodYearly:    365,
}

// IsValid returns true if the charge period is a supported recurrence unit
func (p ChargePeriod) IsValid() bool {
	_, ok := periodDays[p]
	return ok
}

// Days returns the period length in days
func (p ChargePeriod) Days() (int, error) {
	days, ok := periodDays[p]
	if !ok {
		return 0, shared.NewDomainError("INVALID_CHARGE_PERIOD", "Unsupported charge period: "+string(p))
	}
	return days, nil
}

// NextRenovation computes the renovation date for a charge applied at the
// given instant
func (p ChargePeriod) NextRenovation(from time.Time) (time.Time, error) {
	days, err := p.Days()
	if err != nil {
		return time.Time{}, err
	}
	return from.Add(time.Duration(days) * 24 * time.Hour), nil
}

// AlterationType distinguishes how an alteration modifies the computed price
type AlterationType string

const (
	// AlterationTypePercentage applies a percentage discount or fee
	AlterationTypePercentage AlterationType = "percentage"
	// AlterationTypeFixed applies a fixed amount discount or fee
	AlterationTypeFixed AlterationType = "fixed"
)

// AlterationPeriod defines when an alteration applies
type AlterationPeriod string

const (
	// AlterationPeriodOneTime applies only to the initial charge
	AlterationPeriodOneTime AlterationPeriod = "one time"
	// AlterationPeriodRecurring applies to every charge cycle
	AlterationPeriodRecurring AlterationPeriod = "recurring"
)

// PriceConditionOp is the comparison operator of an alteration condition
type PriceConditionOp string

const (
	PriceConditionGT PriceConditionOp = "gt"
	PriceConditionGE PriceConditionOp = "ge"
	PriceConditionLT PriceConditionOp = "lt"
	PriceConditionLE PriceConditionOp = "le"
	PriceConditionEQ PriceConditionOp = "eq"
)

// PriceCondition gates an alteration on the pre-alteration price
type PriceCondition struct {
	Op    PriceConditionOp `json:"op"`
	Value decimal.Decimal  `json:"value"`
}

// Matches reports whether the given price satisfies the condition
func (c PriceCondition) Matches(price decimal.Decimal) bool {
	switch c.Op {
	case PriceConditionGT:
		return price.GreaterThan(c.Value)
	case PriceConditionGE:
		return price.GreaterThanOrEqual(c.Value)
	case PriceConditionLT:
		return price.LessThan(c.Value)
	case PriceConditionLE:
		return price.LessThanOrEqual(c.Value)
	case PriceConditionEQ:
		return price.Equal(c.Value)
	default:
		return false
	}
}

// PricePart is a one-time price component of a pricing model
type PricePart struct {
	Label    string          `json:"label"`
	Value    decimal.Decimal `json:"value"`
	DutyFree decimal.Decimal `json:"duty_free"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// SubscriptionPart is a recurring price component. It becomes due for
// renovation once RenovationDate has passed.
type SubscriptionPart struct {
	PricePart
	Unit           ChargePeriod `json:"unit"`
	RenovationDate time.Time    `json:"renovation_date"`
}

// Due reports whether the subscription must be renewed at the given instant
func (s SubscriptionPart) Due(now time.Time) bool {
	return s.RenovationDate.Before(now)
}

// UsagePart prices a unit of consumption for pay-per-use contracts
type UsagePart struct {
	Label    string          `json:"label"`
	Unit     string          `json:"unit"`
	Value    decimal.Decimal `json:"value"`
	DutyFree decimal.Decimal `json:"duty_free"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// Alteration is an optional discount or fee applied on top of the priced parts
type Alteration struct {
	Type      AlterationType   `json:"type"`
	Period    AlterationPeriod `json:"period"`
	Value     decimal.Decimal  `json:"value"`
	DutyFree  decimal.Decimal  `json:"duty_free"`
	Condition *PriceCondition  `json:"condition,omitempty"`
}

// AppliesTo reports whether the alteration condition (if any) holds for the
// given pre-alteration price
func (a Alteration) AppliesTo(price decimal.Decimal) bool {
	if a.Condition == nil {
		return true
	}
	return a.Condition.Matches(price)
}

// PricingModel is the set of price parts governing a contract's charges
type PricingModel struct {
	GeneralCurrency string             `json:"general_currency"`
	SinglePayment   []PricePart        `json:"single_payment,omitempty"`
	Subscription    []SubscriptionPart `json:"subscription,omitempty"`
	PayPerUse       []UsagePart        `json:"pay_per_use,omitempty"`
	Alteration      *Alteration        `json:"alteration,omitempty"`
}

// HasSinglePayment reports whether the model carries one-time price parts
func (m PricingModel) HasSinglePayment() bool {
	return len(m.SinglePayment) > 0
}

// HasSubscription reports whether the model carries recurring price parts
func (m PricingModel) HasSubscription() bool {
	return len(m.Subscription) > 0
}

// HasPayPerUse reports whether the model carries usage price parts
func (m PricingModel) HasPayPerUse() bool {
	return len(m.PayPerUse) > 0
}

// SplitSubscriptions partitions the subscription parts into the set due for
// renovation at the given instant and the set still covered by a previous
// charge. The unmodified set must be merged back untouched after commit.
func (m PricingModel) SplitSubscriptions(now time.Time) (due, unmodified []SubscriptionPart) {
	for _, s := range m.Subscription {
		if s.Due(now) {
			due = append(due, s)
		} else {
			unmodified = append(unmodified, s)
		}
	}
	return due, unmodified
}
