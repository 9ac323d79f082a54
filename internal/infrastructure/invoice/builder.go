package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Config holds the invoice builder settings
type Config struct {
	// MediaDir is the directory invoice documents are written to
	MediaDir string
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.MediaDir == "" {
		return fmt.Errorf("invoice: media directory is required")
	}
	return nil
}

// Builder renders committed charges as JSON invoice documents on disk. It
// implements the invoice collaborator contract of the charging engine.
type Builder struct {
	config *Config
	logger *zap.Logger
	now    func() time.Time
}

// NewBuilder creates an invoice builder
func NewBuilder(config *Config, logger *zap.Logger) (*Builder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(config.MediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("invoice: cannot create media directory: %w", err)
	}
	return &Builder{
		config: config,
		logger: logger,
		now:    time.Now,
	}, nil
}

// invoiceLine is one priced row of the invoice document
type invoiceLine struct {
	Label    string `json:"label"`
	Amount   string `json:"amount"`
	DutyFree string `json:"duty_free"`
}

// document is the rendered invoice
type document struct {
	OrderID     string        `json:"order_id"`
	ItemID      string        `json:"item_id"`
	ProductID   string        `json:"product_id"`
	Concept     string        `json:"concept"`
	Date        time.Time     `json:"date"`
	Description string        `json:"description"`
	Currency    string        `json:"currency"`
	Total       string        `json:"total"`
	TotalNet    string        `json:"total_net"`
	Tax         string        `json:"tax"`
	Lines       []invoiceLine `json:"lines"`
}

// GenerateInvoice writes the invoice document for a committed transaction and
// returns the document path
func (b *Builder) GenerateInvoice(ctx context.Context, order *ordering.Order, contract *ordering.Contract, transaction *ordering.ChargeTransaction, concept ordering.ChargeConcept) (string, error) {
	doc := document{
		OrderID:     order.OrderID,
		ItemID:      contract.ItemID,
		ProductID:   contract.ProductID,
		Concept:     concept.String(),
		Date:        b.now().UTC(),
		Description: transaction.Description,
		Currency:    transaction.Currency,
		Total:       transaction.Price.StringFixed(2),
		TotalNet:    transaction.DutyFree.StringFixed(2),
		Tax:         transaction.Price.Sub(transaction.DutyFree).StringFixed(2),
		Lines:       buildLines(transaction),
	}

	payload, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("invoice: failed to render document: %w", err)
	}

	name := fmt.Sprintf("invoice_%s_%s_%d.json", order.OrderID, contract.ItemID, b.now().UnixNano())
	path := filepath.Join(b.config.MediaDir, name)
	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return "", fmt.Errorf("invoice: failed to write document: %w", err)
	}

	b.logger.Debug("Invoice generated",
		zap.String("order_id", order.OrderID),
		zap.String("item_id", contract.ItemID),
		zap.String("path", path),
	)
	return path, nil
}

// buildLines flattens the charged price parts into invoice rows
func buildLines(transaction *ordering.ChargeTransaction) []invoiceLine {
	var lines []invoiceLine
	related := transaction.RelatedModel

	for _, part := range related.SinglePayment {
		lines = append(lines, invoiceLine{Label: part.Label, Amount: part.Value.StringFixed(2), DutyFree: part.DutyFree.StringFixed(2)})
	}
	for _, part := range related.Subscription {
		lines = append(lines, invoiceLine{Label: part.Label, Amount: part.Value.StringFixed(2), DutyFree: part.DutyFree.StringFixed(2)})
	}
	for _, applied := range transaction.AppliedAccounting {
		total := decimal.Zero
		dutyFree := decimal.Zero
		for _, entry := range applied.Accounting {
			total = total.Add(entry.Price)
			dutyFree = dutyFree.Add(entry.DutyFree)
		}
		lines = append(lines, invoiceLine{Label: applied.Model.Label, Amount: total.StringFixed(2), DutyFree: dutyFree.StringFixed(2)})
	}
	if related.Alteration != nil {
		label := "Discount"
		if related.Alteration.Value.IsPositive() && related.Alteration.Type == ordering.AlterationTypeFixed {
			label = "Fee"
		}
		lines = append(lines, invoiceLine{Label: label, Amount: related.Alteration.Value.StringFixed(2), DutyFree: related.Alteration.DutyFree.StringFixed(2)})
	}
	return lines
}
