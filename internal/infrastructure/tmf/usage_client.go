package tmf

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/billing"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const usageTimeLayout = time.RFC3339

// UsageClient talks to the TM Forum usage management API. It implements the
// usage collaborator contract of the charging engine.
type UsageClient struct {
	*restClient
	baseURL string
}

// NewUsageClient creates a usage management API client
func NewUsageClient(config *Config, logger *zap.Logger) (*UsageClient, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &UsageClient{
		restClient: newRESTClient(config.Timeout, logger),
		baseURL:    config.UsageURL,
	}, nil
}

// usageCharacteristic is one name-value pair of a usage document
type usageCharacteristic struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// usageResource is the wire representation of a usage document
type usageResource struct {
	ID                  string                `json:"id"`
	Date                string                `json:"date"`
	State               string                `json:"status"`
	UsageCharacteristic []usageCharacteristic `json:"usageCharacteristic"`
}

// ratedUsage is the rating detail attached to a usage document when it is
// consumed by a committed charge
type ratedUsage struct {
	RatingDate        string `json:"ratingDate"`
	UsageRatingTag    string `json:"usageRatingTag"`
	TaxRate           string `json:"taxRate"`
	TaxIncludedAmount string `json:"taxIncludedRatingAmount"`
	TaxExcludedAmount string `json:"taxExcludedRatingAmount"`
	CurrencyCode      string `json:"currencyCode"`
	ProductRef        string `json:"productRef"`
}

// GetCustomerUsage returns the usage documents of a product in the given
// rating state
func (c *UsageClient) GetCustomerUsage(ctx context.Context, customer string, productID string, state charging.UsageState) ([]charging.UsageDocument, error) {
	query := url.Values{}
	query.Set("status", string(state))
	query.Set("relatedParty.id", customer)
	query.Set("usageCharacteristic.productId", productID)

	var resources []usageResource
	if err := c.do(ctx, "GET", c.baseURL+"/usage?"+query.Encode(), nil, &resources); err != nil {
		return nil, err
	}

	docs := make([]charging.UsageDocument, 0, len(resources))
	for _, resource := range resources {
		doc, err := c.adaptUsage(resource)
		if err != nil {
			c.logger.Warn("Skipping malformed usage document", zap.String("usage_id", resource.ID), zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// adaptUsage extracts the unit and value characteristics of a usage resource
func (c *UsageClient) adaptUsage(resource usageResource) (charging.UsageDocument, error) {
	doc := charging.UsageDocument{ID: resource.ID}

	date, err := time.Parse(usageTimeLayout, resource.Date)
	if err != nil {
		return doc, fmt.Errorf("tmf: invalid usage date %q: %w", resource.Date, err)
	}
	doc.Date = date

	var hasValue bool
	for _, characteristic := range resource.UsageCharacteristic {
		switch characteristic.Name {
		case "unit":
			doc.Unit = characteristic.Value
		case "value":
			value, err := decimal.NewFromString(characteristic.Value)
			if err != nil {
				return doc, fmt.Errorf("tmf: invalid usage value %q: %w", characteristic.Value, err)
			}
			doc.Value = value
			hasValue = true
		}
	}

	if doc.Unit == "" || !hasValue {
		return doc, fmt.Errorf("tmf: usage document %s misses unit or value", resource.ID)
	}
	return doc, nil
}

// RateUsage attaches the rating of a committed charge to a usage document and
// moves it to the Rated state. Tax rates go on the wire in fractional form
// regardless of how the pricing model spells them.
func (c *UsageClient) RateUsage(ctx context.Context, req charging.RateUsageRequest) error {
	taxRate, err := billing.NormalizeTaxRate(req.TaxRate.String())
	if err != nil {
		return err
	}
	patch := map[string]any{
		"status": string(charging.UsageStateRated),
		"ratedProductUsage": []ratedUsage{{
			RatingDate:        req.ChargeRef,
			UsageRatingTag:    "usage",
			TaxRate:           taxRate,
			TaxIncludedAmount: req.Price.String(),
			TaxExcludedAmount: req.DutyFree.String(),
			CurrencyCode:      req.Currency,
			ProductRef:        req.ProductID,
		}},
	}

	if err := c.do(ctx, "PATCH", c.baseURL+"/usage/"+req.UsageID, patch, nil); err != nil {
		return err
	}

	c.logger.Debug("Usage document rated",
		zap.String("usage_id", req.UsageID),
		zap.String("charge_ref", req.ChargeRef),
	)
	return nil
}
