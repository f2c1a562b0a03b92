package checkout

import (
	"context"
	"time"

	"github.com/cassiomorais/storefront/internal/domain/commerce"
	"github.com/cassiomorais/storefront/internal/domain/payment"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
)

// CustomerLocker serializes checkouts of one customer across API instances.
// This is an application-layer port, not a domain concern.
type CustomerLocker interface {
	Acquire(ctx context.Context, customerID string) (release func(ctx context.Context), err error)
}

// IntegrityReporter escalates compensations that failed and need an operator.
type IntegrityReporter interface {
	ReportIntegrityIncident(ctx context.Context, incident IntegrityIncident) error
}

// IntegrityIncident describes one compensation that could not be carried out.
type IntegrityIncident struct {
	Workflow    string
	CustomerID  string
	Step        string
	Reason      string
	TriggeredBy string
	OccurredAt  time.Time
}

// Metrics records workflow and compensation outcomes.
type Metrics interface {
	ObserveWorkflow(workflow, status string, duration time.Duration)
	ObserveCompensation(workflow, step, outcome string)
	IncIntegrityIncidents(workflow string)
	// TrackActiveCheckout counts a checkout in flight until the returned func is called.
	TrackActiveCheckout() (done func())
}

// Deps bundles the collaborators every checkout workflow uses.
// Locker, Integrity and Metrics are optional.
type Deps struct {
	Gateway       payment.Gateway
	Orders        commerce.OrderService
	Subscriptions subscription.SubscriptionsRepository
	Purchases     subscription.PurchasesRepository
	Locker        CustomerLocker
	Integrity     IntegrityReporter
	Metrics       Metrics
	Currency      string
}
