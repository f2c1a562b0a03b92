package controller

import (
	"net/http"

	"github.com/cassiomorais/storefront/internal/application/checkout"
	"github.com/go-chi/chi/v5"
)

// CheckoutController handles purchase and subscription management requests.
// Every handler acts on behalf of the authenticated customer.
type CheckoutController struct {
	purchase          *checkout.PurchaseUseCase
	addSeats          *checkout.AddSeatsUseCase
	renew             *checkout.RenewSubscriptionUseCase
	listSubscriptions *checkout.ListSubscriptionsUseCase
	listPurchases     *checkout.ListPurchasesUseCase
	currency          string
}

// NewCheckoutController wires the checkout use cases over deps.
func NewCheckoutController(deps checkout.Deps) *CheckoutController {
	currency := deps.Currency
	if currency == "" {
		currency = "USD"
	}
	return &CheckoutController{
		purchase:          checkout.NewPurchaseUseCase(deps),
		addSeats:          checkout.NewAddSeatsUseCase(deps),
		renew:             checkout.NewRenewSubscriptionUseCase(deps),
		listSubscriptions: checkout.NewListSubscriptionsUseCase(deps.Subscriptions),
		listPurchases:     checkout.NewListPurchasesUseCase(deps.Purchases),
		currency:          currency,
	}
}

// Purchase handles POST /api/v1/purchases
func (h *CheckoutController) Purchase(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	var req PurchaseRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	items, err := req.toLineItems()
	if err != nil {
		writeError(w, r, err)
		return
	}

	receipt, err := h.purchase.Execute(r.Context(), checkout.PurchaseRequest{CustomerID: customer, Items: items})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromReceipt(receipt, h.currency))
}

// AddSeats handles POST /api/v1/subscriptions/{id}/seats
func (h *CheckoutController) AddSeats(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	var req AddSeatsRequest
	if err := decodeAndValidate(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	receipt, err := h.addSeats.Execute(r.Context(), checkout.AddSeatsRequest{
		CustomerID:     customer,
		SubscriptionID: chi.URLParam(r, "id"),
		Seats:          req.Seats,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromReceipt(receipt, h.currency))
}

// Renew handles POST /api/v1/subscriptions/{id}/renew
func (h *CheckoutController) Renew(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	receipt, err := h.renew.Execute(r.Context(), checkout.RenewSubscriptionRequest{
		CustomerID:     customer,
		SubscriptionID: chi.URLParam(r, "id"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, FromReceipt(receipt, h.currency))
}

// ListSubscriptions handles GET /api/v1/subscriptions
func (h *CheckoutController) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	subs, err := h.listSubscriptions.Execute(r.Context(), customer)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]SubscriptionResponse, 0, len(subs))
	for _, s := range subs {
		resp = append(resp, FromSubscription(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListPurchases handles GET /api/v1/purchases
func (h *CheckoutController) ListPurchases(w http.ResponseWriter, r *http.Request) {
	customer, ok := customerID(w, r)
	if !ok {
		return
	}

	purchases, err := h.listPurchases.Execute(r.Context(), customer)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]PurchaseResponse, 0, len(purchases))
	for _, p := range purchases {
		resp = append(resp, FromPurchase(p))
	}
	writeJSON(w, http.StatusOK, resp)
}
