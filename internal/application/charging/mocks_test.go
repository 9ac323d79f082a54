package charging

import (
	"context"
	"sync"
	"time"

	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/ordering"
	"github.com/FIWARE-TMForum/business-ecosystem-charging-backend/internal/domain/payment"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderRepository is a mock implementation of ordering.OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) FindAll(ctx context.Context) ([]ordering.Order, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ordering.Order), args.Error(1)
}

func (m *MockOrderRepository) Save(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderRepository) AcquireChargeLock(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) ReleaseChargeLock(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// MockOrganizationRepository is a mock implementation of ordering.OrganizationRepository
type MockOrganizationRepository struct {
	mock.Mock
}

func (m *MockOrganizationRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Organization), args.Error(1)
}

func (m *MockOrganizationRepository) Save(ctx context.Context, org *ordering.Organization) error {
	args := m.Called(ctx, org)
	return args.Error(0)
}

// MockOfferingRepository is a mock implementation of ordering.OfferingRepository
type MockOfferingRepository struct {
	mock.Mock
}

func (m *MockOfferingRepository) FindByID(ctx context.Context, id uuid.UUID) (*ordering.Offering, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ordering.Offering), args.Error(1)
}

// MockBillingClient is a mock implementation of BillingClient
type MockBillingClient struct {
	mock.Mock
}

func (m *MockBillingClient) CreateBatchCharges(ctx context.Context, party string, reports []ChargeReport) ([]string, error) {
	args := m.Called(ctx, party, reports)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// MockUsageClient is a mock implementation of UsageClient
type MockUsageClient struct {
	mock.Mock
}

func (m *MockUsageClient) GetCustomerUsage(ctx context.Context, customer string, productID string, state UsageState) ([]UsageDocument, error) {
	args := m.Called(ctx, customer, productID, state)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]UsageDocument), args.Error(1)
}

func (m *MockUsageClient) RateUsage(ctx context.Context, req RateUsageRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

// MockOrderingClient is a mock implementation of OrderingClient
type MockOrderingClient struct {
	mock.Mock
}

func (m *MockOrderingClient) UpdateItemsState(ctx context.Context, order *ordering.Order, state string) error {
	args := m.Called(ctx, order, state)
	return args.Error(0)
}

// MockInventoryClient is a mock implementation of InventoryClient
type MockInventoryClient struct {
	mock.Mock
}

func (m *MockInventoryClient) SuspendProduct(ctx context.Context, productID string) error {
	args := m.Called(ctx, productID)
	return args.Error(0)
}

// MockNotificationSender is a mock implementation of NotificationSender
type MockNotificationSender struct {
	mock.Mock
}

func (m *MockNotificationSender) SendAcquiredNotification(ctx context.Context, order *ordering.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockNotificationSender) SendProviderNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	args := m.Called(ctx, order, contract)
	return args.Error(0)
}

func (m *MockNotificationSender) SendRenovationNotification(ctx context.Context, order *ordering.Order, transactions []ordering.ChargeTransaction) error {
	args := m.Called(ctx, order, transactions)
	return args.Error(0)
}

func (m *MockNotificationSender) SendPaymentRequiredNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	args := m.Called(ctx, order, contract)
	return args.Error(0)
}

func (m *MockNotificationSender) SendNearExpirationNotification(ctx context.Context, order *ordering.Order, contract *ordering.Contract, daysLeft int) error {
	args := m.Called(ctx, order, contract, daysLeft)
	return args.Error(0)
}

// MockInvoiceBuilder is a mock implementation of InvoiceBuilder
type MockInvoiceBuilder struct {
	mock.Mock
}

func (m *MockInvoiceBuilder) GenerateInvoice(ctx context.Context, order *ordering.Order, contract *ordering.Contract, transaction *ordering.ChargeTransaction, concept ordering.ChargeConcept) (string, error) {
	args := m.Called(ctx, order, contract, transaction, concept)
	return args.String(0), args.Error(1)
}

// MockAssetHooks is a mock implementation of AssetHooks
type MockAssetHooks struct {
	mock.Mock
}

func (m *MockAssetHooks) OnProductAcquired(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	args := m.Called(ctx, order, contract)
	return args.Error(0)
}

func (m *MockAssetHooks) OnProductSuspended(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	args := m.Called(ctx, order, contract)
	return args.Error(0)
}

func (m *MockAssetHooks) OnUsageRefreshed(ctx context.Context, order *ordering.Order, contract *ordering.Contract) error {
	args := m.Called(ctx, order, contract)
	return args.Error(0)
}

// MockSessionStore is a mock implementation of CheckoutSessionStore
type MockSessionStore struct {
	mock.Mock
}

func (m *MockSessionStore) Save(ctx context.Context, session *CheckoutSession, ttl time.Duration) error {
	args := m.Called(ctx, session, ttl)
	return args.Error(0)
}

func (m *MockSessionStore) Find(ctx context.Context, orderID uuid.UUID) (*CheckoutSession, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*CheckoutSession), args.Error(1)
}

func (m *MockSessionStore) Delete(ctx context.Context, orderID uuid.UUID) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// fakeWatchdog records armed and disarmed jobs without any timers
type fakeWatchdog struct {
	mu       sync.Mutex
	armed    map[uuid.UUID]func(ctx context.Context, orderID uuid.UUID)
	disarmed []uuid.UUID
}

func newFakeWatchdog() *fakeWatchdog {
	return &fakeWatchdog{armed: make(map[uuid.UUID]func(ctx context.Context, orderID uuid.UUID))}
}

func (w *fakeWatchdog) Arm(orderID uuid.UUID, delay time.Duration, fire func(ctx context.Context, orderID uuid.UUID)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.armed[orderID] = fire
}

func (w *fakeWatchdog) Disarm(orderID uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.armed[orderID]
	delete(w.armed, orderID)
	w.disarmed = append(w.disarmed, orderID)
	return ok
}

// fakeGateway serves a fixed checkout URL and records the submitted
// transactions
type fakeGateway struct {
	checkoutURL string
	startErr    error
	submitted   []ordering.ChargeTransaction
}

func (g *fakeGateway) GatewayType() payment.GatewayType {
	return "redirect"
}

func (g *fakeGateway) NewClient(order *ordering.Order) payment.Client {
	return &fakeGatewayClient{gateway: g}
}

type fakeGatewayClient struct {
	gateway *fakeGateway
}

func (c *fakeGatewayClient) StartRedirectionPayment(ctx context.Context, transactions []ordering.ChargeTransaction) error {
	if c.gateway.startErr != nil {
		return c.gateway.startErr
	}
	c.gateway.submitted = transactions
	return nil
}

func (c *fakeGatewayClient) CheckoutURL() string {
	return c.gateway.checkoutURL
}

// fakeRegistry resolves every gateway type to a single fake gateway
type fakeRegistry struct {
	gateway payment.Gateway
	err     error
}

func (r *fakeRegistry) Gateway(gatewayType payment.GatewayType) (payment.Gateway, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.gateway, nil
}

func (r *fakeRegistry) Types() []payment.GatewayType {
	return []payment.GatewayType{"redirect"}
}
