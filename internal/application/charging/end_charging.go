package charging

import (
	"context"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"go.uber.org/zap"
)

// EndCharging commits a confirmed charge. It stamps the charge timestamp on
// every charged contract, appends the immutable charge records, reports
// renovation charges to the billing collaborator, grants the acquired
// offerings, and persists the updated order and organization. Committed
// financial state is written before any best-effort side effect runs.
func (e *Engine) EndCharging(ctx context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction, freeItems []string, concept ordering.ChargeConcept) error {
	order.SetPaid()
	timestamp := e.now()

	org, err := e.orgs.FindByID(ctx, order.OwnerID)
	if err != nil {
		return err
	}

	var reports []ChargeReport
	for i := range transactions {
		transaction := &transactions[i]
		contract, err := order.ContractByItem(transaction.ItemID)
		if err != nil {
			return err
		}
		contract.LastCharge = &timestamp

		var validFrom, validTo *time.Time
		switch concept {
		case ordering.ChargeConceptInitial:
			validFrom, validTo = e.endInitialCharge(ctx, order, contract, timestamp, org)
		case ordering.ChargeConceptRecurring:
			validFrom, validTo = e.endRenovationCharge(contract, transaction, timestamp)
		default:
			validFrom, validTo, err = e.endUsageCharge(ctx, order, contract, transaction, timestamp)
			if err != nil {
				return err
			}
		}

		invoicePath, err := e.collab.Invoices.GenerateInvoice(ctx, order, contract, transaction, concept)
		if err != nil {
			e.logger.Warn("Failed to generate invoice",
				zap.String("order_id", order.OrderID),
				zap.String("item_id", transaction.ItemID),
				zap.Error(err))
			invoicePath = ""
		}

		charge := ordering.Charge{
			Date:     timestamp,
			Cost:     transaction.Price,
			DutyFree: transaction.DutyFree,
			Currency: transaction.Currency,
			Concept:  concept,
			Invoice:  invoicePath,
		}
		contract.AppendCharge(charge)

		if concept != ordering.ChargeConceptInitial {
			reports = append(reports, ChargeReport{
				Charge:    charge,
				ProductID: contract.ProductID,
				ValidFrom: validFrom,
				ValidTo:   validTo,
			})
		}
	}

	if len(reports) > 0 {
		if _, err := e.collab.Billing.CreateBatchCharges(ctx, org.Name, reports); err != nil {
			return err
		}
	}

	for _, itemID := range freeItems {
		contract, err := order.ContractByItem(itemID)
		if err != nil {
			return err
		}
		e.grantContract(ctx, order, contract, org)
	}

	if err := e.orgs.Save(ctx, org); err != nil {
		return err
	}
	if err := e.orders.Save(ctx, order); err != nil {
		return err
	}

	e.notifyCommitted(ctx, order, transactions, freeItems, concept)

	e.logger.Info("Charge committed",
		zap.String("order_id", order.OrderID),
		zap.String("concept", concept.String()),
		zap.Int("transactions", len(transactions)),
		zap.Int("free_items", len(freeItems)),
	)
	return nil
}

// endInitialCharge activates an acquired contract. Every subscription part
// gets its first renovation date stamped from the charge timestamp and the
// offering is granted to the owner organization.
func (e *Engine) endInitialCharge(ctx context.Context, order *ordering.Order, contract *ordering.Contract, timestamp time.Time, org *ordering.Organization) (*time.Time, *time.Time) {
	validTo := e.restampSubscriptions(contract.PricingModel.Subscription, timestamp)
	e.grantContract(ctx, order, contract, org)
	return &timestamp, validTo
}

// endRenovationCharge advances the renovation dates of the charged
// subscription parts and restores the parts that were not due
func (e *Engine) endRenovationCharge(contract *ordering.Contract, transaction *ordering.ChargeTransaction, timestamp time.Time) (*time.Time, *time.Time) {
	renewed := make([]ordering.SubscriptionPart, len(transaction.RelatedModel.Subscription))
	copy(renewed, transaction.RelatedModel.Subscription)
	validTo := e.restampSubscriptions(renewed, timestamp)

	contract.PricingModel.Subscription = append(renewed, transaction.RelatedModel.Unmodified...)
	return &timestamp, validTo
}

// endUsageCharge pushes the rating of every consumed usage document to the
// usage collaborator. The charge timestamp doubles as the charge reference
// tying each rated document to the committed charge. The settled period
// starts at the contract's most recent charge, whatever its concept, or at
// the order date when nothing was ever charged.
func (e *Engine) endUsageCharge(ctx context.Context, order *ordering.Order, contract *ordering.Contract, transaction *ordering.ChargeTransaction, timestamp time.Time) (*time.Time, *time.Time, error) {
	chargeRef := timestamp.UTC().Format(time.RFC3339)
	for _, applied := range transaction.AppliedAccounting {
		for _, entry := range applied.Accounting {
			req := RateUsageRequest{
				UsageID:   entry.UsageID,
				ChargeRef: chargeRef,
				DutyFree:  entry.DutyFree,
				Price:     entry.Price,
				TaxRate:   applied.Model.TaxRate,
				Currency:  transaction.Currency,
				ProductID: contract.ProductID,
			}
			if err := e.collab.Usage.RateUsage(ctx, req); err != nil {
				return nil, nil, err
			}
		}
	}
	transaction.RelatedModel.Accounting = transaction.AppliedAccounting

	if err := e.collab.Assets.OnUsageRefreshed(ctx, order, contract); err != nil {
		e.logger.Warn("Usage settlement hook failed",
			zap.String("order_id", order.OrderID),
			zap.String("item_id", contract.ItemID),
			zap.Error(err))
	}

	validFrom := order.Date
	if last, ok := contract.LastChargeDate(); ok {
		validFrom = last
	}
	return &validFrom, &timestamp, nil
}

// restampSubscriptions advances every part's renovation date from the charge
// timestamp and returns the latest one, which bounds the paid period
func (e *Engine) restampSubscriptions(parts []ordering.SubscriptionPart, timestamp time.Time) *time.Time {
	var latest *time.Time
	for i := range parts {
		next, err := parts[i].Unit.NextRenovation(timestamp)
		if err != nil {
			e.logger.Warn("Skipping subscription part with unknown period",
				zap.String("label", parts[i].Label),
				zap.String("unit", string(parts[i].Unit)))
			continue
		}
		parts[i].RenovationDate = next
		if latest == nil || next.After(*latest) {
			renovation := next
			latest = &renovation
		}
	}
	return latest
}

// grantContract records the offering on the owner organization and fires the
// acquisition hook of the contract's asset plugin
func (e *Engine) grantContract(ctx context.Context, order *ordering.Order, contract *ordering.Contract, org *ordering.Organization) {
	org.GrantOffering(contract.OfferingID)
	if err := e.collab.Assets.OnProductAcquired(ctx, order, contract); err != nil {
		e.logger.Warn("Asset acquisition hook failed",
			zap.String("order_id", order.OrderID),
			zap.String("item_id", contract.ItemID),
			zap.Error(err))
	}
}

// notifyCommitted sends the post-commit notifications. Delivery failures are
// logged and swallowed, the charge is already committed.
func (e *Engine) notifyCommitted(ctx context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction, freeItems []string, concept ordering.ChargeConcept) {
	if concept == ordering.ChargeConceptInitial {
		if err := e.collab.Notifier.SendAcquiredNotification(ctx, order); err != nil {
			e.logger.Warn("Failed to send acquisition notification", zap.String("order_id", order.OrderID), zap.Error(err))
		}
		for i := range order.Contracts {
			contract := &order.Contracts[i]
			if contract.Terminated {
				continue
			}
			if err := e.collab.Notifier.SendProviderNotification(ctx, order, contract); err != nil {
				e.logger.Warn("Failed to send provider notification",
					zap.String("order_id", order.OrderID),
					zap.String("item_id", contract.ItemID),
					zap.Error(err))
			}
		}
		return
	}

	if err := e.collab.Notifier.SendRenovationNotification(ctx, order, transactions); err != nil {
		e.logger.Warn("Failed to send renovation notification", zap.String("order_id", order.OrderID), zap.Error(err))
	}
}
