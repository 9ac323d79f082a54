package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/payment"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GatewayTypeRedirect identifies the generic redirection gateway adapter
const GatewayTypeRedirect payment.GatewayType = "redirect"

// RedirectAdapter implements the payment gateway contract against a
// checkout-style API: the aggregate transaction list is submitted once and
// the customer approves the charge on the returned checkout page
type RedirectAdapter struct {
	config     *RedirectConfig
	httpClient *http.Client
	logger     *zap.Logger
}

// NewRedirectAdapter creates a redirection gateway adapter
func NewRedirectAdapter(config *RedirectConfig, logger *zap.Logger) (*RedirectAdapter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RedirectAdapter{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// GatewayType returns the gateway type identifier
func (a *RedirectAdapter) GatewayType() payment.GatewayType {
	return GatewayTypeRedirect
}

// NewClient creates a payment session bound to the given order
func (a *RedirectAdapter) NewClient(order *ordering.Order) payment.Client {
	return &redirectClient{adapter: a, order: order}
}

// checkoutItem is the wire representation of one charge transaction
type checkoutItem struct {
	Item        string `json:"item"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
}

// checkoutRequest creates a checkout covering the whole charge
type checkoutRequest struct {
	Reference string         `json:"reference"`
	Total     string         `json:"total"`
	Currency  string         `json:"currency"`
	Items     []checkoutItem `json:"items"`
	ReturnURL string         `json:"return_url"`
	CancelURL string         `json:"cancel_url"`
}

// checkoutResponse is the gateway's answer to a checkout creation
type checkoutResponse struct {
	ID          string `json:"id"`
	CheckoutURL string `json:"checkout_url"`
}

// redirectClient is a payment session bound to one order
type redirectClient struct {
	adapter     *RedirectAdapter
	order       *ordering.Order
	checkoutURL string
}

// StartRedirectionPayment submits the charge transactions to the gateway.
// All transactions of a charge share one checkout, so the customer approves
// the whole order in a single redirect.
func (c *redirectClient) StartRedirectionPayment(ctx context.Context, transactions []ordering.ChargeTransaction) error {
	if len(transactions) == 0 {
		return ordering.NewPaymentError("no transactions to charge")
	}

	total := decimal.Zero
	currency := transactions[0].Currency
	items := make([]checkoutItem, 0, len(transactions))
	for _, transaction := range transactions {
		total = total.Add(transaction.Price)
		items = append(items, checkoutItem{
			Item:        transaction.ItemID,
			Description: transaction.Description,
			Amount:      transaction.Price.StringFixed(2),
			Currency:    transaction.Currency,
		})
	}

	request := checkoutRequest{
		Reference: c.order.OrderID,
		Total:     total.StringFixed(2),
		Currency:  currency,
		Items:     items,
		ReturnURL: c.adapter.config.ReturnURL,
		CancelURL: c.adapter.config.CancelURL,
	}

	response, err := c.adapter.createCheckout(ctx, request)
	if err != nil {
		return err
	}
	c.checkoutURL = response.CheckoutURL

	c.adapter.logger.Info("Checkout created",
		zap.String("order_id", c.order.OrderID),
		zap.String("checkout_id", response.ID),
		zap.String("total", request.Total),
	)
	return nil
}

// CheckoutURL returns the redirect URL of the created checkout
func (c *redirectClient) CheckoutURL() string {
	return c.checkoutURL
}

func (a *RedirectAdapter) createCheckout(ctx context.Context, request checkoutRequest) (*checkoutResponse, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, ordering.NewPaymentError(fmt.Sprintf("failed to marshal checkout request: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.APIURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, ordering.NewPaymentError(fmt.Sprintf("failed to build checkout request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")
	if a.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, ordering.NewPaymentError(fmt.Sprintf("checkout request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, ordering.NewPaymentError(fmt.Sprintf("gateway returned status %d: %s", resp.StatusCode, string(detail)))
	}

	var response checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, ordering.NewPaymentError(fmt.Sprintf("failed to decode checkout response: %v", err))
	}
	if response.CheckoutURL == "" {
		return nil, ordering.NewPaymentError("gateway returned no checkout URL")
	}
	return &response, nil
}
