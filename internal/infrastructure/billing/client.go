package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the billing system connection settings
type Config struct {
	// URL is the base URL of the billing API
	URL string
	// APIKey authenticates the reporting requests, empty disables auth
	APIKey string
	// Timeout bounds every reporting request
	Timeout time.Duration
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.URL == "" {
		return fmt.Errorf("billing: URL is required")
	}
	return nil
}

// Client reports committed charges to the external billing system. It
// implements the billing collaborator contract of the charging engine.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a billing client
func NewClient(config *Config, logger *zap.Logger) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// customerBill is the reporting payload of one aggregated bill. Total sums
// every rate line and References lists the source charge of every line.
type customerBill struct {
	Party      string          `json:"party"`
	Lines      []BillLine      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	DutyFree   decimal.Decimal `json:"dutyFree"`
	References []string        `json:"references"`
}

// createdRates is the billing API response to a submitted bill
type createdRates struct {
	IDs []string `json:"ids"`
}

// CreateBatchCharges reports the committed charges of one resolution as a
// single customer bill. It implements the billing collaborator contract of
// the charging engine.
func (c *Client) CreateBatchCharges(ctx context.Context, party string, reports []charging.ChargeReport) ([]string, error) {
	lines := make([]RateLine, 0, len(reports))
	for _, report := range reports {
		lines = append(lines, RateLine{
			Type:       string(report.Charge.Concept),
			PeriodFrom: report.ValidFrom,
			PeriodTo:   report.ValidTo,
			Cost:       report.Charge.Cost,
			DutyFree:   report.Charge.DutyFree,
			TaxRate:    deriveTaxRate(report.Charge.Cost, report.Charge.DutyFree),
			Currency:   report.Charge.Currency,
			ProductID:  report.ProductID,
			Reference:  report.Charge.Date.UTC().Format(time.RFC3339),
		})
	}
	return c.CreateBatchCustomerRates(ctx, lines, party)
}

// CreateBatchCustomerRates aggregates the given rate lines into one customer
// bill, submits it to the billing API and returns the created rate
// identifiers
func (c *Client) CreateBatchCustomerRates(ctx context.Context, lines []RateLine, party string) ([]string, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	bill := customerBill{
		Party: party,
		Lines: AggregateRateLines(lines),
	}
	for _, line := range lines {
		bill.Total = bill.Total.Add(line.Cost)
		bill.DutyFree = bill.DutyFree.Add(line.DutyFree)
		bill.References = append(bill.References, line.Reference)
	}

	body, err := json.Marshal(bill)
	if err != nil {
		return nil, fmt.Errorf("billing: failed to marshal bill: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.URL+"/rss/cdrs", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("billing: failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("billing: unexpected status %d: %s", resp.StatusCode, string(payload))
	}

	var created createdRates
	if len(payload) > 0 {
		// a billing backend that answers with no body still committed the bill
		_ = json.Unmarshal(payload, &created)
	}

	c.logger.Debug("Charges reported to billing system",
		zap.String("party", party),
		zap.Int("rate_lines", len(lines)),
		zap.Int("bill_lines", len(bill.Lines)),
	)
	return created.IDs, nil
}

// deriveTaxRate recovers the fractional tax rate from the taxed and duty-free
// amounts of a charge
func deriveTaxRate(cost, dutyFree decimal.Decimal) string {
	if dutyFree.IsZero() {
		return "0"
	}
	rate := cost.Sub(dutyFree).Div(dutyFree).Round(2)
	return rate.String()
}
