package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargeWatchdog runs the one-shot rollback timers guarding in-flight
// charges. Timers are kept in memory keyed by order id; a fired or disarmed
// timer is removed from the table. The watchdog implements the scheduler
// contract of the charging engine.
type ChargeWatchdog struct {
	mu     sync.Mutex
	timers map[uuid.UUID]*time.Timer
	logger *zap.Logger

	// baseCtx is the context handed to fired callbacks
	baseCtx context.Context
}

// NewChargeWatchdog creates a charge watchdog. The given context is passed to
// every fired callback and canceling it stops in-flight rollbacks.
func NewChargeWatchdog(ctx context.Context, logger *zap.Logger) *ChargeWatchdog {
	return &ChargeWatchdog{
		timers:  make(map[uuid.UUID]*time.Timer),
		logger:  logger,
		baseCtx: ctx,
	}
}

// Arm schedules the rollback callback for the order. Arming an order that
// already has a timer replaces it.
func (w *ChargeWatchdog) Arm(orderID uuid.UUID, delay time.Duration, fire func(ctx context.Context, orderID uuid.UUID)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.timers[orderID]; ok {
		timer.Stop()
	}

	w.timers[orderID] = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.timers, orderID)
		w.mu.Unlock()

		w.logger.Info("Charge watchdog fired", zap.String("order_id", orderID.String()))
		fire(w.baseCtx, orderID)
	})

	w.logger.Debug("Charge watchdog armed",
		zap.String("order_id", orderID.String()),
		zap.Duration("delay", delay),
	)
}

// Disarm cancels the timer of the order. It returns false when no timer was
// armed, which happens when the timer already fired.
func (w *ChargeWatchdog) Disarm(orderID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	timer, ok := w.timers[orderID]
	if !ok {
		return false
	}
	timer.Stop()
	delete(w.timers, orderID)

	w.logger.Debug("Charge watchdog disarmed", zap.String("order_id", orderID.String()))
	return true
}

// Shutdown cancels every armed timer
func (w *ChargeWatchdog) Shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for orderID, timer := range w.timers {
		timer.Stop()
		delete(w.timers, orderID)
	}
	w.logger.Info("Charge watchdog stopped")
}
