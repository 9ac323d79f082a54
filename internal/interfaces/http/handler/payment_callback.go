package handler

import (
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PaymentCallbackHandler handles the payment gateway return endpoints. The
// gateway redirects the customer here after the checkout page, carrying the
// order reference; these endpoints are the only external drivers of charge
// completion and cancellation.
type PaymentCallbackHandler struct {
	BaseHandler
	engine ChargingService
	logger *zap.Logger
}

// NewPaymentCallbackHandler creates a new PaymentCallbackHandler
func NewPaymentCallbackHandler(engine ChargingService, logger *zap.Logger) *PaymentCallbackHandler {
	return &PaymentCallbackHandler{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers the gateway return routes
func (h *PaymentCallbackHandler) RegisterRoutes(rg *gin.RouterGroup) {
	payment := rg.Group("/charging/payment")
	{
		payment.GET("/accept", h.HandleAccept)
		payment.GET("/cancel", h.HandleCancel)
	}
}

// PaymentCallbackResponse reports the processing outcome of a gateway return
type PaymentCallbackResponse struct {
	OrderID string `json:"order_id"`
	Result  string `json:"result"`
}

// HandleAccept finalizes the charge the customer approved at the gateway.
// A late accept racing the timeout watchdog is safe: whichever side claims
// the order first wins and the other is a no-op.
func (h *PaymentCallbackHandler) HandleAccept(c *gin.Context) {
	orderID, ok := h.bindCallback(c)
	if !ok {
		return
	}

	if err := h.engine.OnPaymentConfirmed(c.Request.Context(), orderID); err != nil {
		h.logger.Error("Payment confirmation failed", zap.String("order_id", orderID.String()), zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Success(c, PaymentCallbackResponse{OrderID: orderID.String(), Result: "accepted"})
}

// HandleCancel rolls back the charge the customer abandoned at the gateway
func (h *PaymentCallbackHandler) HandleCancel(c *gin.Context) {
	orderID, ok := h.bindCallback(c)
	if !ok {
		return
	}

	if err := h.engine.OnPaymentCanceled(c.Request.Context(), orderID); err != nil {
		h.logger.Error("Payment cancellation failed", zap.String("order_id", orderID.String()), zap.Error(err))
		h.HandleError(c, err)
		return
	}

	h.Success(c, PaymentCallbackResponse{OrderID: orderID.String(), Result: "canceled"})
}

// bindCallback extracts and validates the order reference of the callback
func (h *PaymentCallbackHandler) bindCallback(c *gin.Context) (uuid.UUID, bool) {
	var req dto.CallbackRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, "Missing or invalid order reference")
		return uuid.Nil, false
	}
	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		h.BadRequest(c, "Missing or invalid order reference")
		return uuid.Nil, false
	}
	return orderID, true
}
