package controller

import (
	"time"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	"github.com/cassiomorais/storefront/internal/domain/commerce"
	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/domain/subscription"
	"github.com/shopspring/decimal"
)

// --- Request DTOs ---
// Money travels as decimal strings so no amount passes through float64.

// OfferLineItemRequest is one catalog offer in a purchase.
type OfferLineItemRequest struct {
	OfferID      string `json:"offer_id" validate:"required"`
	FriendlyName string `json:"friendly_name" validate:"omitempty,max=128"`
	Quantity     int    `json:"quantity" validate:"required,gt=0"`
	SeatPrice    string `json:"seat_price" validate:"required,numeric"`
	BillingCycle string `json:"billing_cycle" validate:"omitempty,oneof=monthly annual"`
}

// PurchaseRequest holds the input for buying new subscriptions.
type PurchaseRequest struct {
	Items []OfferLineItemRequest `json:"items" validate:"required,min=1,dive"`
}

// AddSeatsRequest holds the input for buying extra seats.
type AddSeatsRequest struct {
	Seats int `json:"seats" validate:"required,gt=0"`
}

func (r PurchaseRequest) toLineItems() ([]commerce.OfferLineItem, error) {
	items := make([]commerce.OfferLineItem, 0, len(r.Items))
	for _, it := range r.Items {
		price, err := decimal.NewFromString(it.SeatPrice)
		if err != nil {
			return nil, domainErrors.NewValidationError("seat_price", "must be a decimal amount")
		}
		cycle := commerce.BillingCycle(it.BillingCycle)
		if cycle == "" {
			cycle = commerce.BillingMonthly
		}
		items = append(items, commerce.OfferLineItem{
			OfferID:      it.OfferID,
			FriendlyName: it.FriendlyName,
			Quantity:     it.Quantity,
			SeatPrice:    price,
			BillingCycle: cycle,
		})
	}
	return items, nil
}

// --- Response DTOs ---

// LineItemResponse is one charged line of a receipt.
type LineItemResponse struct {
	SubscriptionID string `json:"subscription_id"`
	OfferID        string `json:"offer_id,omitempty"`
	Quantity       int    `json:"quantity"`
	SeatPrice      string `json:"seat_price"`
	AmountCharged  string `json:"amount_charged"`
}

// ReceiptResponse is returned by every committed checkout.
type ReceiptResponse struct {
	OrderID           string             `json:"order_id,omitempty"`
	AuthorizationCode string             `json:"authorization_code"`
	Total             string             `json:"total"`
	Currency          string             `json:"currency"`
	LineItems         []LineItemResponse `json:"line_items"`
}

// SubscriptionResponse is a persisted subscription record.
type SubscriptionResponse struct {
	SubscriptionID string    `json:"subscription_id"`
	OfferID        string    `json:"offer_id"`
	Quantity       int       `json:"quantity"`
	SeatPrice      string    `json:"seat_price"`
	ExpiryDate     time.Time `json:"expiry_date"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PurchaseResponse is a purchase history entry.
type PurchaseResponse struct {
	ID              string    `json:"id"`
	SubscriptionID  string    `json:"subscription_id"`
	PurchaseType    string    `json:"purchase_type"`
	SeatsBought     int       `json:"seats_bought"`
	SeatPrice       string    `json:"seat_price"`
	Amount          string    `json:"amount"`
	TransactionDate time.Time `json:"transaction_date"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// --- Conversion helpers ---

func FromReceipt(r *checkout.Receipt, currency string) *ReceiptResponse {
	resp := &ReceiptResponse{
		OrderID:           r.OrderID,
		AuthorizationCode: r.AuthorizationCode,
		Total:             r.Total.StringFixed(2),
		Currency:          currency,
		LineItems:         make([]LineItemResponse, 0, len(r.LineItems)),
	}
	for _, li := range r.LineItems {
		resp.LineItems = append(resp.LineItems, LineItemResponse{
			SubscriptionID: li.SubscriptionID,
			OfferID:        li.OfferID,
			Quantity:       li.Quantity,
			SeatPrice:      li.SeatPrice.StringFixed(2),
			AmountCharged:  li.AmountCharged.StringFixed(2),
		})
	}
	return resp
}

func FromSubscription(e subscription.CustomerSubscriptionEntity) SubscriptionResponse {
	return SubscriptionResponse{
		SubscriptionID: e.SubscriptionID,
		OfferID:        e.OfferID,
		Quantity:       e.Quantity,
		SeatPrice:      e.SeatPrice.StringFixed(2),
		ExpiryDate:     e.ExpiryDate,
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      e.UpdatedAt,
	}
}

func FromPurchase(p subscription.CustomerPurchaseEntity) PurchaseResponse {
	return PurchaseResponse{
		ID:              p.ID.String(),
		SubscriptionID:  p.SubscriptionID,
		PurchaseType:    string(p.PurchaseType),
		SeatsBought:     p.SeatsBought,
		SeatPrice:       p.SeatPrice.StringFixed(2),
		Amount:          p.Amount().StringFixed(2),
		TransactionDate: p.TransactionDate,
	}
}
