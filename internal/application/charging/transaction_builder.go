package charging

import (
	"context"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// TransactionBuilder turns the pending price parts of one contract into a
// charge transaction ready for gateway submission
type TransactionBuilder struct {
	resolver  PriceResolver
	offerings ordering.OfferingRepository
	logger    *zap.Logger
}

// NewTransactionBuilder creates a new TransactionBuilder
func NewTransactionBuilder(resolver PriceResolver, offerings ordering.OfferingRepository, logger *zap.Logger) *TransactionBuilder {
	return &TransactionBuilder{
		resolver:  resolver,
		offerings: offerings,
		logger:    logger,
	}
}

// Build resolves the price of the related model and assembles the charge
// transaction for the contract. When the related model carries an alteration
// that did not affect the price, the alteration is stripped so the committed
// record never reports an alteration that was not applied.
func (b *TransactionBuilder) Build(ctx context.Context, contract *ordering.Contract, related ordering.RelatedModel, accounting []ordering.AccountingEntry) (*ordering.ChargeTransaction, error) {
	estimate, err := b.resolver.ResolvePrice(related, accounting)
	if err != nil {
		return nil, err
	}

	if related.Alteration != nil && !estimate.Altered {
		related.Alteration = nil
	}

	offering, err := b.offerings.FindByID(ctx, contract.OfferingID)
	if err != nil {
		return nil, err
	}

	transaction := &ordering.ChargeTransaction{
		ItemID:       contract.ItemID,
		Price:        estimate.Price,
		DutyFree:     estimate.DutyFree,
		Currency:     contract.PricingModel.GeneralCurrency,
		Description:  offering.Description,
		RelatedModel: related,
	}

	if accounting != nil {
		transaction.AppliedAccounting = estimate.AppliedAccounting
	}

	b.logger.Debug("Transaction appended for order item",
		zap.String("item_id", contract.ItemID),
		zap.String("price", estimate.Price.String()),
		zap.String("currency", transaction.Currency),
	)
	return transaction, nil
}
