package dto

import (
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PriceConditionDTO gates an alteration on the pre-alteration price
type PriceConditionDTO struct {
	Op    string          `json:"op" binding:"required,oneof=gt ge lt le eq"`
	Value decimal.Decimal `json:"value" binding:"required"`
}

// PricePartDTO is a one-time price component
type PricePartDTO struct {
	Label    string          `json:"label"`
	Value    decimal.Decimal `json:"value" binding:"required"`
	DutyFree decimal.Decimal `json:"duty_free"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// SubscriptionPartDTO is a recurring price component
type SubscriptionPartDTO struct {
	PricePartDTO
	Unit           string    `json:"unit" binding:"required,oneof=daily weekly monthly quarterly yearly"`
	RenovationDate time.Time `json:"renovation_date"`
}

// UsagePartDTO prices a unit of consumption
type UsagePartDTO struct {
	Label    string          `json:"label"`
	Unit     string          `json:"unit" binding:"required"`
	Value    decimal.Decimal `json:"value" binding:"required"`
	DutyFree decimal.Decimal `json:"duty_free"`
	TaxRate  decimal.Decimal `json:"tax_rate"`
}

// AlterationDTO is an optional discount or fee on top of the priced parts
type AlterationDTO struct {
	Type      string             `json:"type" binding:"required,oneof=percentage fixed"`
	Period    string             `json:"period" binding:"required,oneof='one time' recurring"`
	Value     decimal.Decimal    `json:"value" binding:"required"`
	DutyFree  decimal.Decimal    `json:"duty_free"`
	Condition *PriceConditionDTO `json:"condition,omitempty"`
}

// PricingModelDTO carries the price parts governing a contract
type PricingModelDTO struct {
	GeneralCurrency string                `json:"general_currency" binding:"required,iso4217"`
	SinglePayment   []PricePartDTO        `json:"single_payment,omitempty"`
	Subscription    []SubscriptionPartDTO `json:"subscription,omitempty"`
	PayPerUse       []UsagePartDTO        `json:"pay_per_use,omitempty"`
	Alteration      *AlterationDTO        `json:"alteration,omitempty"`
}

// ContractDTO is the per-item agreement inside a charging request
type ContractDTO struct {
	ItemID       string          `json:"item_id" binding:"required"`
	OfferingID   string          `json:"offering_id" binding:"required,uuid"`
	ProductID    string          `json:"product_id"`
	PricingModel PricingModelDTO `json:"pricing_model" binding:"required"`
}

// ChargingRequest starts the charging resolution of a new acquisition
type ChargingRequest struct {
	OrderID    string        `json:"order_id" binding:"required"`
	CustomerID string        `json:"customer_id" binding:"required,uuid"`
	Contracts  []ContractDTO `json:"contracts" binding:"required,min=1,dive"`
}

// RenovationRequest starts a recurring or usage charge on an existing order
type RenovationRequest struct {
	Concept string `json:"concept" binding:"required,oneof=recurring usage"`
}

// ChargingResponse is the outcome of a charging resolution
type ChargingResponse struct {
	ID          string `json:"id"`
	OrderID     string `json:"order_id"`
	State       string `json:"state"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// CheckoutSessionResponse re-serves the redirect handle of a pending charge
type CheckoutSessionResponse struct {
	OrderID     string    `json:"order_id"`
	Concept     string    `json:"concept"`
	CheckoutURL string    `json:"checkout_url"`
	CreatedAt   time.Time `json:"created_at"`
}

// CallbackRequest identifies the order a gateway callback refers to
type CallbackRequest struct {
	OrderID string `form:"order_id" binding:"required,uuid"`
}

// ToDomain converts the charging request into an order aggregate
func (r *ChargingRequest) ToDomain() (*ordering.Order, error) {
	ownerID, err := uuid.Parse(r.CustomerID)
	if err != nil {
		return nil, err
	}

	contracts := make([]ordering.Contract, 0, len(r.Contracts))
	for _, c := range r.Contracts {
		contract, err := c.ToDomain()
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, *contract)
	}

	return ordering.NewOrder(r.OrderID, ownerID, contracts)
}

// ToDomain converts the contract DTO into a domain contract
func (c *ContractDTO) ToDomain() (*ordering.Contract, error) {
	offeringID, err := uuid.Parse(c.OfferingID)
	if err != nil {
		return nil, err
	}

	return &ordering.Contract{
		ItemID:       c.ItemID,
		OfferingID:   offeringID,
		ProductID:    c.ProductID,
		PricingModel: c.PricingModel.ToDomain(),
	}, nil
}

// ToDomain converts the pricing model DTO into the domain model
func (m *PricingModelDTO) ToDomain() ordering.PricingModel {
	model := ordering.PricingModel{GeneralCurrency: m.GeneralCurrency}

	for _, p := range m.SinglePayment {
		model.SinglePayment = append(model.SinglePayment, ordering.PricePart{
			Label:    p.Label,
			Value:    p.Value,
			DutyFree: p.DutyFree,
			TaxRate:  p.TaxRate,
		})
	}
	for _, s := range m.Subscription {
		model.Subscription = append(model.Subscription, ordering.SubscriptionPart{
			PricePart: ordering.PricePart{
				Label:    s.Label,
				Value:    s.Value,
				DutyFree: s.DutyFree,
				TaxRate:  s.TaxRate,
			},
			Unit:           ordering.ChargePeriod(s.Unit),
			RenovationDate: s.RenovationDate,
		})
	}
	for _, u := range m.PayPerUse {
		model.PayPerUse = append(model.PayPerUse, ordering.UsagePart{
			Label:    u.Label,
			Unit:     u.Unit,
			Value:    u.Value,
			DutyFree: u.DutyFree,
			TaxRate:  u.TaxRate,
		})
	}
	if m.Alteration != nil {
		alteration := &ordering.Alteration{
			Type:     ordering.AlterationType(m.Alteration.Type),
			Period:   ordering.AlterationPeriod(m.Alteration.Period),
			Value:    m.Alteration.Value,
			DutyFree: m.Alteration.DutyFree,
		}
		if m.Alteration.Condition != nil {
			alteration.Condition = &ordering.PriceCondition{
				Op:    ordering.PriceConditionOp(m.Alteration.Condition.Op),
				Value: m.Alteration.Condition.Value,
			}
		}
		model.Alteration = alteration
	}
	return model
}

// NewChargingResponse builds the resolution outcome from the order and the
// checkout URL returned by the engine
func NewChargingResponse(order *ordering.Order, redirectURL string) ChargingResponse {
	return ChargingResponse{
		ID:          order.ID.String(),
		OrderID:     order.OrderID,
		State:       string(order.State),
		RedirectURL: redirectURL,
	}
}
