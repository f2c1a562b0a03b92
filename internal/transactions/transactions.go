// Package transactions holds the checkout steps run by saga pipelines. Every step is
// single-use and not safe for concurrent calls; a workflow builds fresh steps per run.
package transactions

import (
	"context"

	"github.com/rs/zerolog"
)

// Status is the execution state of a step.
type Status int

const (
	NotRun Status = iota
	Succeeded
	RolledBack
)

func (s Status) String() string {
	switch s {
	case Succeeded:
		return "succeeded"
	case RolledBack:
		return "rolled_back"
	default:
		return "not_run"
	}
}

// Step names, used in logs, spans and compensation reports.
const (
	AuthorizePaymentStep              = "authorize-payment"
	CapturePaymentStep                = "capture-payment"
	PlaceOrderStep                    = "place-order"
	PurchaseExtraSeatsStep            = "purchase-extra-seats"
	RenewSubscriptionStep             = "renew-subscription"
	RecordPurchaseStep                = "record-purchase"
	RecordNewCustomerSubscriptionStep = "record-new-customer-subscription"
	UpdatePersistedSubscriptionStep   = "update-persisted-subscription"
	PersistNewSubscriptionsStep       = "persist-new-subscriptions"
)

// compensationFailed starts an error log event for a compensation that could not be carried out.
func compensationFailed(ctx context.Context, step string, err error) *zerolog.Event {
	return zerolog.Ctx(ctx).Error().Err(err).Str("step", step).Bool("integrity_recovery", true)
}
