package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	"github.com/cassiomorais/storefront/internal/domain/commerce"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
)

// --- Payment Gateway Mock ---

// MockGateway is a mock implementation of payment.Gateway that records every call.
type MockGateway struct {
	mu   sync.Mutex
	next int

	Authorized []payment.AuthorizationRequest
	Captured   []string
	Voided     []string

	ExecutePaymentFunc func(ctx context.Context, req payment.AuthorizationRequest) (string, error)
	CaptureFunc        func(ctx context.Context, code string) error
	VoidFunc           func(ctx context.Context, code string) error
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

func (m *MockGateway) ExecutePayment(ctx context.Context, req payment.AuthorizationRequest) (string, error) {
	m.mu.Lock()
	m.Authorized = append(m.Authorized, req)
	m.next++
	code := fmt.Sprintf("AUTH-%d", m.next)
	m.mu.Unlock()

	if m.ExecutePaymentFunc != nil {
		return m.ExecutePaymentFunc(ctx, req)
	}
	return code, nil
}

func (m *MockGateway) Capture(ctx context.Context, code string) error {
	if m.CaptureFunc != nil {
		if err := m.CaptureFunc(ctx, code); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Captured = append(m.Captured, code)
	return nil
}

func (m *MockGateway) Void(ctx context.Context, code string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.VoidFunc != nil {
		if err := m.VoidFunc(ctx, code); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Voided = append(m.Voided, code)
	return nil
}

// --- Order Service Mock ---

// MockOrderService is an in-memory commerce provider. Placed orders create active subscriptions.
// Mock writes fail on a done context, the way network clients do.
type MockOrderService struct {
	mu            sync.Mutex
	nextOrder     int
	nextSub       int
	subscriptions map[string]*commerce.Subscription

	Orders  []commerce.Order
	Patches []commerce.Subscription

	CreateOrderFunc       func(ctx context.Context, order commerce.Order) (*commerce.Order, error)
	GetSubscriptionFunc   func(ctx context.Context, customerID, subscriptionID string) (*commerce.Subscription, error)
	PatchSubscriptionFunc func(ctx context.Context, customerID string, sub *commerce.Subscription) (*commerce.Subscription, error)
}

func NewMockOrderService() *MockOrderService {
	return &MockOrderService{subscriptions: make(map[string]*commerce.Subscription)}
}

func subscriptionKey(customerID, subscriptionID string) string {
	return customerID + "/" + subscriptionID
}

// AddSubscription seeds a provider-side subscription.
func (m *MockOrderService) AddSubscription(sub *commerce.Subscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscriptions[subscriptionKey(sub.CustomerID, sub.ID)] = sub.Clone()
}

// Subscription returns the current provider-side state, or nil.
func (m *MockOrderService) Subscription(customerID, subscriptionID string) *commerce.Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.subscriptions[subscriptionKey(customerID, subscriptionID)]
	if !ok {
		return nil
	}
	return sub.Clone()
}

func (m *MockOrderService) CreateOrder(ctx context.Context, order commerce.Order) (*commerce.Order, error) {
	if m.CreateOrderFunc != nil {
		return m.CreateOrderFunc(ctx, order)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextOrder++
	placed := order
	placed.ID = fmt.Sprintf("order-%d", m.nextOrder)
	placed.CreatedAt = time.Now().UTC()
	placed.LineItems = make([]commerce.OrderLineItem, len(order.LineItems))
	for i, line := range order.LineItems {
		m.nextSub++
		line.SubscriptionID = fmt.Sprintf("sub-%d", m.nextSub)
		placed.LineItems[i] = line
		m.subscriptions[subscriptionKey(order.CustomerID, line.SubscriptionID)] = &commerce.Subscription{
			ID:                line.SubscriptionID,
			CustomerID:        order.CustomerID,
			OfferID:           line.OfferID,
			FriendlyName:      line.FriendlyName,
			Quantity:          line.Quantity,
			Status:            commerce.StatusActive,
			AutoRenew:         true,
			BillingCycle:      commerce.BillingMonthly,
			CommitmentEndDate: commerce.BillingMonthly.Term(placed.CreatedAt),
		}
	}
	m.Orders = append(m.Orders, placed)
	return &placed, nil
}

func (m *MockOrderService) GetSubscription(ctx context.Context, customerID, subscriptionID string) (*commerce.Subscription, error) {
	if m.GetSubscriptionFunc != nil {
		return m.GetSubscriptionFunc(ctx, customerID, subscriptionID)
	}
	if sub := m.Subscription(customerID, subscriptionID); sub != nil {
		return sub, nil
	}
	return nil, &commerce.ProviderError{
		Kind:      commerce.ProviderNotFound,
		Operation: "get subscription",
		Message:   "subscription " + subscriptionID + " not found",
	}
}

func (m *MockOrderService) PatchSubscription(ctx context.Context, customerID string, sub *commerce.Subscription) (*commerce.Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.PatchSubscriptionFunc != nil {
		return m.PatchSubscriptionFunc(ctx, customerID, sub)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Patches = append(m.Patches, *sub.Clone())
	m.subscriptions[subscriptionKey(customerID, sub.ID)] = sub.Clone()
	return sub.Clone(), nil
}

// --- Subscriptions Repository Mock ---

// MockSubscriptionsRepository is a mock implementation of subscription.SubscriptionsRepository.
type MockSubscriptionsRepository struct {
	mu      sync.Mutex
	records map[string]subscription.CustomerSubscriptionEntity

	AddFunc                func(ctx context.Context, e subscription.CustomerSubscriptionEntity) (subscription.CustomerSubscriptionEntity, error)
	UpdateFunc             func(ctx context.Context, e subscription.CustomerSubscriptionEntity) (subscription.CustomerSubscriptionEntity, error)
	DeleteFunc             func(ctx context.Context, e subscription.CustomerSubscriptionEntity) error
	RetrieveByCustomerFunc func(ctx context.Context, customerID string) ([]subscription.CustomerSubscriptionEntity, error)
}

func NewMockSubscriptionsRepository() *MockSubscriptionsRepository {
	return &MockSubscriptionsRepository{records: make(map[string]subscription.CustomerSubscriptionEntity)}
}

// Seed stores records without going through Add.
func (m *MockSubscriptionsRepository) Seed(records ...subscription.CustomerSubscriptionEntity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range records {
		m.records[subscriptionKey(r.CustomerID, r.SubscriptionID)] = r
	}
}

// Get returns the stored record, if any.
func (m *MockSubscriptionsRepository) Get(customerID, subscriptionID string) (subscription.CustomerSubscriptionEntity, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[subscriptionKey(customerID, subscriptionID)]
	return r, ok
}

func (m *MockSubscriptionsRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

func (m *MockSubscriptionsRepository) Add(ctx context.Context, e subscription.CustomerSubscriptionEntity) (subscription.CustomerSubscriptionEntity, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subscriptionKey(e.CustomerID, e.SubscriptionID)
	if _, ok := m.records[key]; ok {
		return subscription.CustomerSubscriptionEntity{}, domainErrors.ErrAlreadyExists
	}
	m.records[key] = e
	return e, nil
}

func (m *MockSubscriptionsRepository) Update(ctx context.Context, e subscription.CustomerSubscriptionEntity) (subscription.CustomerSubscriptionEntity, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	key := subscriptionKey(e.CustomerID, e.SubscriptionID)
	if _, ok := m.records[key]; !ok {
		return subscription.CustomerSubscriptionEntity{}, domainErrors.ErrRecordNotFound
	}
	m.records[key] = e
	return e, nil
}

func (m *MockSubscriptionsRepository) Delete(ctx context.Context, e subscription.CustomerSubscriptionEntity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, e)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, subscriptionKey(e.CustomerID, e.SubscriptionID))
	return nil
}

func (m *MockSubscriptionsRepository) RetrieveByCustomer(ctx context.Context, customerID string) ([]subscription.CustomerSubscriptionEntity, error) {
	if m.RetrieveByCustomerFunc != nil {
		return m.RetrieveByCustomerFunc(ctx, customerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscription.CustomerSubscriptionEntity
	for _, r := range m.records {
		if r.CustomerID == customerID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubscriptionID < out[j].SubscriptionID })
	return out, nil
}

// --- Purchases Repository Mock ---

// MockPurchasesRepository is a mock implementation of subscription.PurchasesRepository.
type MockPurchasesRepository struct {
	mu        sync.Mutex
	purchases []subscription.CustomerPurchaseEntity

	AddFunc                func(ctx context.Context, p subscription.CustomerPurchaseEntity) (subscription.CustomerPurchaseEntity, error)
	DeleteFunc             func(ctx context.Context, p subscription.CustomerPurchaseEntity) error
	RetrieveByCustomerFunc func(ctx context.Context, customerID string) ([]subscription.CustomerPurchaseEntity, error)
}

func NewMockPurchasesRepository() *MockPurchasesRepository {
	return &MockPurchasesRepository{}
}

func (m *MockPurchasesRepository) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.purchases)
}

func (m *MockPurchasesRepository) Add(ctx context.Context, p subscription.CustomerPurchaseEntity) (subscription.CustomerPurchaseEntity, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases = append(m.purchases, p)
	return p, nil
}

func (m *MockPurchasesRepository) Delete(ctx context.Context, p subscription.CustomerPurchaseEntity) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, p)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.purchases {
		if existing.ID == p.ID {
			m.purchases = append(m.purchases[:i], m.purchases[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *MockPurchasesRepository) RetrieveByCustomer(ctx context.Context, customerID string) ([]subscription.CustomerPurchaseEntity, error) {
	if m.RetrieveByCustomerFunc != nil {
		return m.RetrieveByCustomerFunc(ctx, customerID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []subscription.CustomerPurchaseEntity
	for i := len(m.purchases) - 1; i >= 0; i-- {
		if m.purchases[i].CustomerID == customerID {
			out = append(out, m.purchases[i])
		}
	}
	return out, nil
}

// --- Checkout Collaborator Mocks ---

// MockLocker is a mock implementation of checkout.CustomerLocker.
type MockLocker struct {
	mu       sync.Mutex
	Acquired []string
	Released []string

	AcquireFunc func(ctx context.Context, customerID string) error
}

func (m *MockLocker) Acquire(ctx context.Context, customerID string) (func(context.Context), error) {
	if m.AcquireFunc != nil {
		if err := m.AcquireFunc(ctx, customerID); err != nil {
			return nil, err
		}
	}
	m.mu.Lock()
	m.Acquired = append(m.Acquired, customerID)
	m.mu.Unlock()
	return func(context.Context) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.Released = append(m.Released, customerID)
	}, nil
}

// MockIntegrityReporter is a mock implementation of checkout.IntegrityReporter.
type MockIntegrityReporter struct {
	mu        sync.Mutex
	Incidents []checkout.IntegrityIncident

	ReportFunc func(ctx context.Context, incident checkout.IntegrityIncident) error
}

func (m *MockIntegrityReporter) ReportIntegrityIncident(ctx context.Context, incident checkout.IntegrityIncident) error {
	if m.ReportFunc != nil {
		return m.ReportFunc(ctx, incident)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Incidents = append(m.Incidents, incident)
	return nil
}

// MockMetrics is a mock implementation of checkout.Metrics.
type MockMetrics struct {
	mu            sync.Mutex
	Workflows     map[string]string
	Compensations []string
	Incidents     int
	Started       int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{Workflows: make(map[string]string)}
}

func (m *MockMetrics) ObserveWorkflow(workflow, status string, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Workflows[workflow] = status
}

func (m *MockMetrics) ObserveCompensation(workflow, step, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Compensations = append(m.Compensations, step+":"+outcome)
}

func (m *MockMetrics) IncIntegrityIncidents(string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Incidents++
}

func (m *MockMetrics) TrackActiveCheckout() func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Started++
	return func() {}
}
