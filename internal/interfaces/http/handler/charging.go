package handler

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/infrastructure/telemetry"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ChargingService is the engine surface the HTTP layer drives
type ChargingService interface {
	ResolveCharging(ctx context.Context, order *ordering.Order, concept ordering.ChargeConcept, contracts []ordering.Contract) (string, error)
	OnPaymentConfirmed(ctx context.Context, orderID uuid.UUID) error
	OnPaymentCanceled(ctx context.Context, orderID uuid.UUID) error
}

// ChargingHandler exposes the charging resolution API. An acquisition posts
// its order once; renovations re-trigger charging on the stored order.
type ChargingHandler struct {
	BaseHandler
	engine   ChargingService
	orders   ordering.OrderRepository
	sessions charging.CheckoutSessionStore
	metrics  *telemetry.ChargingMetrics
	logger   *zap.Logger
}

// NewChargingHandler creates a new ChargingHandler
func NewChargingHandler(
	engine ChargingService,
	orders ordering.OrderRepository,
	sessions charging.CheckoutSessionStore,
	logger *zap.Logger,
) *ChargingHandler {
	return &ChargingHandler{
		engine:   engine,
		orders:   orders,
		sessions: sessions,
		logger:   logger,
	}
}

// SetMetrics attaches the business metrics recorder. Without it the handler
// serves requests but records nothing.
func (h *ChargingHandler) SetMetrics(metrics *telemetry.ChargingMetrics) {
	h.metrics = metrics
}

// recordResolution labels the resolution outcome for the metrics backend
func (h *ChargingHandler) recordResolution(c *gin.Context, concept ordering.ChargeConcept, redirectURL string, err error, started time.Time) {
	if h.metrics == nil {
		return
	}

	outcome := telemetry.ChargeOutcomeCommitted
	switch {
	case err != nil:
		outcome = telemetry.ChargeOutcomeFailed
	case redirectURL != "":
		outcome = telemetry.ChargeOutcomeRedirect
	case concept == ordering.ChargeConceptInitial:
		outcome = telemetry.ChargeOutcomeFree
	}

	ctx := c.Request.Context()
	h.metrics.RecordChargeResolved(ctx, concept.String(), outcome)
	h.metrics.RecordResolutionDuration(ctx, time.Since(started).Seconds(), concept.String())
}

// RegisterRoutes registers the charging routes
func (h *ChargingHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/charging/orders")
	{
		orders.POST("", h.ResolveCharging)
		orders.GET("/:id", h.GetOrder)
		orders.POST("/:id/renew", h.RenewOrder)
		orders.GET("/:id/checkout", h.GetCheckoutSession)
	}
}

// ResolveCharging accepts a new acquisition order and resolves its initial
// charge. The response carries the gateway redirect URL when a payment is
// required, or the already-paid order when every contract was free.
func (h *ChargingHandler) ResolveCharging(c *gin.Context) {
	var req dto.ChargingRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid charging request: "+err.Error())
		return
	}

	order, err := req.ToDomain()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if err := h.orders.Save(c.Request.Context(), order); err != nil {
		h.logger.Error("Failed to persist order", zap.String("order_id", order.OrderID), zap.Error(err))
		h.InternalError(c, "Failed to persist order")
		return
	}

	started := time.Now()
	redirectURL, err := h.engine.ResolveCharging(c.Request.Context(), order, ordering.ChargeConceptInitial, nil)
	h.recordResolution(c, ordering.ChargeConceptInitial, redirectURL, err, started)
	if err != nil {
		h.handleChargingError(c, err)
		return
	}

	h.Created(c, dto.NewChargingResponse(order, redirectURL))
}

// RenewOrder resolves a recurring or usage charge on an existing order
func (h *ChargingHandler) RenewOrder(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	var req dto.RenovationRequest
	if err := c.ShouldBindWith(&req, binding.JSON); err != nil {
		h.BadRequest(c, "Invalid renovation request: "+err.Error())
		return
	}

	order, err := h.orders.FindByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	concept := ordering.ChargeConcept(req.Concept)
	started := time.Now()
	redirectURL, err := h.engine.ResolveCharging(c.Request.Context(), order, concept, nil)
	h.recordResolution(c, concept, redirectURL, err, started)
	if err != nil {
		h.handleChargingError(c, err)
		return
	}

	h.Success(c, dto.NewChargingResponse(order, redirectURL))
}

// GetOrder returns the stored order with its charging state
func (h *ChargingHandler) GetOrder(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	order, err := h.orders.FindByID(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.NewChargingResponse(order, ""))
}

// GetCheckoutSession re-serves the redirect handle of a pending charge so a
// customer who lost the checkout page can resume the payment
func (h *ChargingHandler) GetCheckoutSession(c *gin.Context) {
	orderID, ok := h.parseOrderID(c)
	if !ok {
		return
	}

	session, err := h.sessions.Find(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.CheckoutSessionResponse{
		OrderID:     session.OrderID.String(),
		Concept:     session.Concept.String(),
		CheckoutURL: session.CheckoutURL,
		CreatedAt:   session.CreatedAt,
	})
}

// parseOrderID binds and parses the order ID path parameter
func (h *ChargingHandler) parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	var req dto.IDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		h.BadRequest(c, "Invalid order ID")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(req.ID)
	if err != nil {
		h.BadRequest(c, "Invalid order ID")
		return uuid.Nil, false
	}
	return id, true
}

// handleChargingError maps engine errors onto the charging error codes
func (h *ChargingHandler) handleChargingError(c *gin.Context, err error) {
	var orderingErr *ordering.OrderingError
	if errors.As(err, &orderingErr) {
		if strings.Contains(orderingErr.Message, "pending charge") {
			h.ErrorWithCode(c, dto.ErrCodeChargePending, orderingErr.Message)
			return
		}
		if strings.Contains(orderingErr.Message, "to renovate") {
			h.ErrorWithCode(c, dto.ErrCodeNothingToRenovate, orderingErr.Message)
			return
		}
		h.ErrorWithCode(c, dto.ErrCodeInvalidState, orderingErr.Message)
		return
	}

	var invalidConcept *ordering.InvalidChargeTypeError
	if errors.As(err, &invalidConcept) {
		h.ErrorWithCode(c, dto.ErrCodeInvalidInput, invalidConcept.Error())
		return
	}

	var paymentErr *ordering.PaymentError
	if errors.As(err, &paymentErr) {
		h.ErrorWithCode(c, dto.ErrCodeGatewayUnavailable, paymentErr.Message)
		return
	}

	h.HandleError(c, err)
}
