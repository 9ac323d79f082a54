package charging

import (
	"context"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Config holds the engine settings
type Config struct {
	// GatewayType selects the payment gateway adapter used for checkouts
	GatewayType payment.GatewayType
	// ChargeTimeout is the watchdog delay before an unconfirmed charge is
	// rolled back
	ChargeTimeout time.Duration
	// SessionTTL is how long an open checkout session is retained
	SessionTTL time.Duration
}

// DefaultConfig returns the default engine settings
func DefaultConfig() Config {
	return Config{
		GatewayType:   "redirect",
		ChargeTimeout: 5 * time.Minute,
		SessionTTL:    30 * time.Minute,
	}
}

// Collaborators groups the external services the engine drives. All of them
// are called with plain domain data, so any concrete binding satisfies the
// contract.
type Collaborators struct {
	Billing   BillingClient
	Usage     UsageClient
	Ordering  OrderingClient
	Notifier  NotificationSender
	Invoices  InvoiceBuilder
	Assets    AssetHooks
}

// Engine resolves and finalizes monetary charges against a customer order.
// It decides what to charge per concept, builds the provisional charge
// transactions, hands them to the payment gateway, and commits the financial
// and contractual state changes only once the gateway confirms. A timeout
// watchdog guards every dispatched charge; the order's charge lock guarantees
// that, per charge cycle, exactly one of the completion path and the watchdog
// mutates the order.
type Engine struct {
	orders    ordering.OrderRepository
	orgs      ordering.OrganizationRepository
	builder   *TransactionBuilder
	gateways  payment.Registry
	watchdog  WatchdogScheduler
	sessions  CheckoutSessionStore
	collab    Collaborators
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine creates a charging resolution engine
func NewEngine(
	orders ordering.OrderRepository,
	orgs ordering.OrganizationRepository,
	builder *TransactionBuilder,
	gateways payment.Registry,
	watchdog WatchdogScheduler,
	sessions CheckoutSessionStore,
	collab Collaborators,
	cfg Config,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		orders:   orders,
		orgs:     orgs,
		builder:  builder,
		gateways: gateways,
		watchdog: watchdog,
		sessions: sessions,
		collab:   collab,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// ResolveCharging calculates the charge of a customer depending on the
// pricing models involved and the charge concept. When contracts is nil all
// non-terminated contracts of the order are processed. It returns the URL
// where the customer approves the charge, or empty when no payment was
// required.
func (e *Engine) ResolveCharging(ctx context.Context, order *ordering.Order, concept ordering.ChargeConcept, contracts []ordering.Contract) (string, error) {
	if !concept.IsValid() {
		e.logger.Error("Invalid charge type requested", zap.String("concept", concept.String()))
		return "", ordering.NewInvalidChargeTypeError(concept)
	}

	if contracts == nil {
		contracts = order.ActiveContracts()
	}

	e.logger.Info("Resolving charging",
		zap.String("order_id", order.OrderID),
		zap.String("concept", concept.String()),
		zap.Int("contracts", len(contracts)),
	)

	switch concept {
	case ordering.ChargeConceptInitial:
		return e.processInitialCharge(ctx, order, contracts)
	case ordering.ChargeConceptRecurring:
		return e.processRenovationCharge(ctx, order, contracts)
	default:
		return e.processUsageCharge(ctx, order, contracts)
	}
}

// processInitialCharge resolves initial charges, which can include single
// payments and the first payment of subscriptions. Contracts with none of
// those parts are granted for free.
func (e *Engine) processInitialCharge(ctx context.Context, order *ordering.Order, contracts []ordering.Contract) (string, error) {
	var transactions []ordering.ChargeTransaction
	var freeItems []string

	for _, contract := range contracts {
		model := contract.PricingModel
		related := ordering.RelatedModel{
			SinglePayment: model.SinglePayment,
			Subscription:  model.Subscription,
			Alteration:    model.Alteration,
		}

		// Pay-per-use parts are never charged at acquisition time; a
		// contract priced only by usage is free here.
		if related.IsEmpty() {
			freeItems = append(freeItems, contract.ItemID)
			continue
		}

		transaction, err := e.builder.Build(ctx, &contract, related, nil)
		if err != nil {
			return "", err
		}
		transactions = append(transactions, *transaction)
	}

	if len(transactions) == 0 {
		e.logger.Debug("No initial charges required", zap.String("order_id", order.OrderID))
		order.SetPaid()
		if err := e.EndCharging(ctx, order, nil, freeItems, ordering.ChargeConceptInitial); err != nil {
			return "", err
		}
		return "", nil
	}

	return e.dispatch(ctx, order, &ordering.PendingPayment{
		Concept:       ordering.ChargeConceptInitial,
		Transactions:  transactions,
		FreeContracts: freeItems,
	})
}

// processRenovationCharge resolves the renovation of due subscription parts
func (e *Engine) processRenovationCharge(ctx context.Context, order *ordering.Order, contracts []ordering.Contract) (string, error) {
	now := e.now()
	var transactions []ordering.ChargeTransaction

	for _, contract := range contracts {
		if !contract.PricingModel.HasSubscription() {
			continue
		}

		due, unmodified := contract.PricingModel.SplitSubscriptions(now)
		if len(due) == 0 {
			continue
		}

		related := ordering.RelatedModel{
			Subscription: due,
			Unmodified:   unmodified,
		}
		if alt := contract.PricingModel.Alteration; alt != nil && alt.Period == ordering.AlterationPeriodRecurring {
			related.Alteration = alt
		}

		transaction, err := e.builder.Build(ctx, &contract, related, nil)
		if err != nil {
			return "", err
		}
		transactions = append(transactions, *transaction)
	}

	return e.executeRenovation(ctx, order, transactions, ordering.ChargeConceptRecurring,
		"there are no recurring payments to renovate")
}

// processUsageCharge resolves pay-per-use charges from the unrated usage
// accounting of each contract
func (e *Engine) processUsageCharge(ctx context.Context, order *ordering.Order, contracts []ordering.Contract) (string, error) {
	org, err := e.orgs.FindByID(ctx, order.OwnerID)
	if err != nil {
		return "", err
	}

	var transactions []ordering.ChargeTransaction
	for _, contract := range contracts {
		if !contract.PricingModel.HasPayPerUse() {
			continue
		}

		docs, err := e.collab.Usage.GetCustomerUsage(ctx, org.Name, contract.ProductID, UsageStateGuided)
		if err != nil {
			return "", err
		}
		accounting := AdaptAccounting(docs)
		if len(accounting) == 0 {
			continue
		}

		related := ordering.RelatedModel{PayPerUse: contract.PricingModel.PayPerUse}
		if alt := contract.PricingModel.Alteration; alt != nil && alt.Period == ordering.AlterationPeriodRecurring {
			related.Alteration = alt
		}

		transaction, err := e.builder.Build(ctx, &contract, related, accounting)
		if err != nil {
			return "", err
		}
		transactions = append(transactions, *transaction)
	}

	return e.executeRenovation(ctx, order, transactions, ordering.ChargeConceptUsage,
		"there are no usage payments to renovate")
}

// executeRenovation dispatches a renovation transaction set, or fails with an
// OrderingError when nothing is due. The order only transitions to pending
// once at least one due transaction exists, so a failed precondition never
// leaves the order half-renewed.
func (e *Engine) executeRenovation(ctx context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction, concept ordering.ChargeConcept, emptyMsg string) (string, error) {
	if len(transactions) == 0 {
		if order.State != ordering.OrderStatePaid {
			order.SetPaid()
			if err := e.orders.Save(ctx, order); err != nil {
				return "", err
			}
		}
		e.logger.Info("Nothing to renovate", zap.String("order_id", order.OrderID), zap.String("concept", concept.String()))
		return "", ordering.NewOrderingError(emptyMsg)
	}

	order.State = ordering.OrderStatePending
	return e.dispatch(ctx, order, &ordering.PendingPayment{
		Concept:      concept,
		Transactions: transactions,
	})
}

// dispatch submits the aggregate transaction list to the configured payment
// gateway, persists the pending payment snapshot, and arms the timeout
// watchdog for the charge. The pending snapshot is claimed before the gateway
// is contacted so an order with an in-flight charge never opens a second
// gateway session.
func (e *Engine) dispatch(ctx context.Context, order *ordering.Order, pending *ordering.PendingPayment) (string, error) {
	gateway, err := e.gateways.Gateway(e.cfg.GatewayType)
	if err != nil {
		return "", err
	}

	if err := order.BeginCharge(pending); err != nil {
		return "", err
	}

	client := gateway.NewClient(order)
	if err := client.StartRedirectionPayment(ctx, pending.Transactions); err != nil {
		return "", err
	}
	checkoutURL := client.CheckoutURL()
	if err := e.orders.Save(ctx, order); err != nil {
		return "", err
	}

	session := &CheckoutSession{
		OrderID:     order.ID,
		Concept:     pending.Concept,
		CheckoutURL: checkoutURL,
		CreatedAt:   e.now(),
	}
	if err := e.sessions.Save(ctx, session, e.cfg.SessionTTL); err != nil {
		e.logger.Warn("Failed to store checkout session", zap.String("order_id", order.OrderID), zap.Error(err))
	}

	e.watchdog.Arm(order.ID, e.cfg.ChargeTimeout, e.HandleChargeTimeout)

	e.logger.Info("Charge dispatched to payment gateway",
		zap.String("order_id", order.OrderID),
		zap.String("concept", pending.Concept.String()),
		zap.Int("transactions", len(pending.Transactions)),
		zap.String("checkout_url", checkoutURL),
	)
	return checkoutURL, nil
}

// HandleChargeTimeout is the watchdog callback rolling back an unconfirmed
// charge. It claims the order's charge lock first; when the completion path
// already holds or took the claim, the rollback is a no-op. The handler never
// returns an error, its only externally visible effect is order mutation.
func (e *Engine) HandleChargeTimeout(ctx context.Context, orderID uuid.UUID) {
	acquired, err := e.orders.AcquireChargeLock(ctx, orderID)
	if err != nil {
		e.logger.Error("Watchdog could not claim order", zap.String("order_id", orderID.String()), zap.Error(err))
		return
	}
	if !acquired {
		e.logger.Debug("Watchdog lost the claim, completion in progress", zap.String("order_id", orderID.String()))
		return
	}
	defer e.releaseChargeLock(ctx, orderID)

	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		e.logger.Error("Watchdog could not load order", zap.String("order_id", orderID.String()), zap.Error(err))
		return
	}
	if order.State != ordering.OrderStatePending || order.PendingPayment == nil {
		return
	}

	switch order.PendingPayment.Concept {
	case ordering.ChargeConceptInitial:
		e.rollbackInitialCharge(ctx, order)
	default:
		e.rollbackRenovationCharge(ctx, order)
	}

	if err := e.sessions.Delete(ctx, orderID); err != nil {
		e.logger.Warn("Failed to drop checkout session", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}

// rollbackInitialCharge fails the whole acquisition: the ordering
// collaborator is told every item failed and the order is removed
func (e *Engine) rollbackInitialCharge(ctx context.Context, order *ordering.Order) {
	if err := e.collab.Ordering.UpdateItemsState(ctx, order, ItemStateFailed); err != nil {
		e.logger.Error("Failed to notify ordering collaborator about failed items",
			zap.String("order_id", order.OrderID), zap.Error(err))
	}
	if err := e.orders.Delete(ctx, order.ID); err != nil {
		e.logger.Error("Failed to delete timed out order", zap.String("order_id", order.OrderID), zap.Error(err))
		return
	}
	e.logger.Info("Initial charge timed out, order failed", zap.String("order_id", order.OrderID))
}

// rollbackRenovationCharge abandons the unconfirmed renovation: the product
// was already active, so the order reverts to paid with its previous terms
func (e *Engine) rollbackRenovationCharge(ctx context.Context, order *ordering.Order) {
	order.SetPaid()
	if err := e.orders.Save(ctx, order); err != nil {
		e.logger.Error("Failed to revert timed out order", zap.String("order_id", order.OrderID), zap.Error(err))
		return
	}
	e.logger.Info("Renovation charge timed out, order reverted to paid", zap.String("order_id", order.OrderID))
}

// OnPaymentConfirmed finalizes a charge once the gateway reports success. It
// takes the same claim the watchdog contends for, so a late confirmation
// racing an expiring timeout can never double-process the order; the loser of
// the race observes the claim and does nothing.
func (e *Engine) OnPaymentConfirmed(ctx context.Context, orderID uuid.UUID) error {
	acquired, err := e.orders.AcquireChargeLock(ctx, orderID)
	if err != nil {
		return err
	}
	if !acquired {
		e.logger.Info("Payment confirmation lost the claim, charge already being processed",
			zap.String("order_id", orderID.String()))
		return nil
	}
	defer e.releaseChargeLock(ctx, orderID)

	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.State != ordering.OrderStatePending || order.PendingPayment == nil {
		e.logger.Info("Payment confirmation for a non-pending order ignored", zap.String("order_id", order.OrderID))
		return nil
	}

	e.watchdog.Disarm(orderID)

	pending := order.PendingPayment
	if err := e.EndCharging(ctx, order, pending.Transactions, pending.FreeContracts, pending.Concept); err != nil {
		return err
	}

	if err := e.sessions.Delete(ctx, orderID); err != nil {
		e.logger.Warn("Failed to drop checkout session", zap.String("order_id", orderID.String()), zap.Error(err))
	}
	return nil
}

// OnPaymentCanceled rolls back a charge the customer abandoned at the
// gateway. It contends for the same claim as the watchdog and the completion
// path; when the claim is lost the charge is already being resolved and the
// cancellation is a no-op.
func (e *Engine) OnPaymentCanceled(ctx context.Context, orderID uuid.UUID) error {
	acquired, err := e.orders.AcquireChargeLock(ctx, orderID)
	if err != nil {
		return err
	}
	if !acquired {
		e.logger.Info("Payment cancellation lost the claim, charge already being processed",
			zap.String("order_id", orderID.String()))
		return nil
	}
	defer e.releaseChargeLock(ctx, orderID)

	order, err := e.orders.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order.State != ordering.OrderStatePending || order.PendingPayment == nil {
		e.logger.Info("Payment cancellation for a non-pending order ignored", zap.String("order_id", order.OrderID))
		return nil
	}

	e.watchdog.Disarm(orderID)

	switch order.PendingPayment.Concept {
	case ordering.ChargeConceptInitial:
		e.rollbackInitialCharge(ctx, order)
	default:
		e.rollbackRenovationCharge(ctx, order)
	}

	if err := e.sessions.Delete(ctx, orderID); err != nil {
		e.logger.Warn("Failed to drop checkout session", zap.String("order_id", orderID.String()), zap.Error(err))
	}
	return nil
}

func (e *Engine) releaseChargeLock(ctx context.Context, orderID uuid.UUID) {
	if err := e.orders.ReleaseChargeLock(ctx, orderID); err != nil {
		e.logger.Error("Failed to release charge lock", zap.String("order_id", orderID.String()), zap.Error(err))
	}
}
