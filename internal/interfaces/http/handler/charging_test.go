package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/application/charging"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/shared"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newChargingRouter(engine *MockChargingService, orders *MockOrderRepository, sessions *MockSessionStore) *gin.Engine {
	h := NewChargingHandler(engine, orders, sessions, zap.NewNop())
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterRoutes(api)
	return r
}

func chargingRequestBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"order_id":    "order-12",
		"customer_id": uuid.New().String(),
		"contracts": []map[string]any{
			{
				"item_id":     "1",
				"offering_id": uuid.New().String(),
				"product_id":  "prod-1",
				"pricing_model": map[string]any{
					"general_currency": "EUR",
					"single_payment": []map[string]any{
						{"label": "One time", "value": "10.00", "duty_free": "8.26", "tax_rate": "21"},
					},
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestResolveCharging(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orders.On("Save", mock.Anything, mock.AnythingOfType("*ordering.Order")).Return(nil)
	engine.On("ResolveCharging", mock.Anything, mock.AnythingOfType("*ordering.Order"), ordering.ChargeConceptInitial, []ordering.Contract(nil)).
		Return("https://gateway.example.com/checkout/abc", nil)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders", bytes.NewReader(chargingRequestBody(t)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)

	data := resp.Data.(map[string]any)
	assert.Equal(t, "order-12", data["order_id"])
	assert.Equal(t, "https://gateway.example.com/checkout/abc", data["redirect_url"])

	engine.AssertExpectations(t)
	orders.AssertExpectations(t)
}

func TestResolveChargingFreeOrder(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	engine.On("ResolveCharging", mock.Anything, mock.Anything, ordering.ChargeConceptInitial, []ordering.Contract(nil)).
		Return("", nil)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders", bytes.NewReader(chargingRequestBody(t)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)

	_, hasRedirect := data["redirect_url"]
	assert.False(t, hasRedirect)
}

func TestResolveChargingInvalidBody(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders", bytes.NewReader([]byte(`{"order_id": ""}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	engine.AssertNotCalled(t, "ResolveCharging")
}

func TestResolveChargingPendingCharge(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	engine.On("ResolveCharging", mock.Anything, mock.Anything, ordering.ChargeConceptInitial, []ordering.Contract(nil)).
		Return("", ordering.NewOrderingError("the order has a pending charge attempt"))

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders", bytes.NewReader(chargingRequestBody(t)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeChargePending, resp.Error.Code)
}

func TestResolveChargingGatewayFailure(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orders.On("Save", mock.Anything, mock.Anything).Return(nil)
	engine.On("ResolveCharging", mock.Anything, mock.Anything, ordering.ChargeConceptInitial, []ordering.Contract(nil)).
		Return("", ordering.NewPaymentError("checkout creation failed"))

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders", bytes.NewReader(chargingRequestBody(t)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestRenewOrder(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	order, err := ordering.NewOrder("order-12", uuid.New(), nil)
	require.NoError(t, err)
	order.SetPaid()

	orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	engine.On("ResolveCharging", mock.Anything, order, ordering.ChargeConceptRecurring, []ordering.Contract(nil)).
		Return("https://gateway.example.com/checkout/renew", nil)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders/"+order.ID.String()+"/renew",
		bytes.NewReader([]byte(`{"concept":"recurring"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "https://gateway.example.com/checkout/renew", data["redirect_url"])
}

func TestRenewOrderNothingDue(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	order, err := ordering.NewOrder("order-12", uuid.New(), nil)
	require.NoError(t, err)

	orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)
	engine.On("ResolveCharging", mock.Anything, order, ordering.ChargeConceptUsage, []ordering.Contract(nil)).
		Return("", ordering.NewOrderingError("there are no usage payments to renovate"))

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders/"+order.ID.String()+"/renew",
		bytes.NewReader([]byte(`{"concept":"usage"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Error)
	assert.Equal(t, dto.ErrCodeNothingToRenovate, resp.Error.Code)
}

func TestRenewOrderInvalidConcept(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders/"+uuid.New().String()+"/renew",
		bytes.NewReader([]byte(`{"concept":"initial"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	engine.AssertNotCalled(t, "ResolveCharging")
}

func TestRenewOrderNotFound(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orderID := uuid.New()
	orders.On("FindByID", mock.Anything, orderID).Return(nil, shared.ErrNotFound)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/v1/charging/orders/"+orderID.String()+"/renew",
		bytes.NewReader([]byte(`{"concept":"recurring"}`)))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetOrder(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	order, err := ordering.NewOrder("order-12", uuid.New(), nil)
	require.NoError(t, err)
	order.SetPaid()

	orders.On("FindByID", mock.Anything, order.ID).Return(order, nil)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/charging/orders/"+order.ID.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "paid", data["state"])
}

func TestGetOrderInvalidID(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/charging/orders/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetCheckoutSession(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orderID := uuid.New()
	session := &charging.CheckoutSession{
		OrderID:     orderID,
		Concept:     ordering.ChargeConceptInitial,
		CheckoutURL: "https://gateway.example.com/checkout/abc",
		CreatedAt:   time.Now().UTC(),
	}
	sessions.On("Find", mock.Anything, orderID).Return(session, nil)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/charging/orders/"+orderID.String()+"/checkout", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp dto.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data := resp.Data.(map[string]any)
	assert.Equal(t, "https://gateway.example.com/checkout/abc", data["checkout_url"])
	assert.Equal(t, "initial", data["concept"])
}

func TestGetCheckoutSessionExpired(t *testing.T) {
	engine := new(MockChargingService)
	orders := new(MockOrderRepository)
	sessions := new(MockSessionStore)

	orderID := uuid.New()
	sessions.On("Find", mock.Anything, orderID).Return(nil, shared.ErrNotFound)

	r := newChargingRouter(engine, orders, sessions)
	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/v1/charging/orders/"+orderID.String()+"/checkout", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
