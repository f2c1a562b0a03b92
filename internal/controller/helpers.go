package controller

import (
	"encoding/json"
	"errors"
	"net/http"

	domainErrors "github.com/cassiomorais/storefront/internal/domain/errors"
	"github.com/cassiomorais/storefront/internal/middleware"
	"github.com/cassiomorais/storefront/pkg/saga"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type errorMapping struct {
	err    error
	status int
	code   string
}

// Order matters: the first match wins, and downstream errors may wrap provider causes.
var errorMappings = []errorMapping{
	{domainErrors.ErrSubscriptionNotFound, http.StatusNotFound, "subscription_not_found"},
	{domainErrors.ErrRecordNotFound, http.StatusNotFound, "not_found"},
	{domainErrors.ErrOfferNotFound, http.StatusNotFound, "offer_not_found"},
	{domainErrors.ErrPaymentDeclined, http.StatusPaymentRequired, "payment_declined"},
	{domainErrors.ErrCheckoutInProgress, http.StatusConflict, "checkout_in_progress"},
	{domainErrors.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{domainErrors.ErrOptimisticLockFailed, http.StatusConflict, "conflict"},
	{domainErrors.ErrPreconditionFailed, http.StatusBadRequest, "precondition_failed"},
	{domainErrors.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{domainErrors.ErrGatewayUnavailable, http.StatusServiceUnavailable, "gateway_unavailable"},
	{domainErrors.ErrGatewayTimeout, http.StatusGatewayTimeout, "gateway_timeout"},
	{domainErrors.ErrDownstreamService, http.StatusServiceUnavailable, "downstream_unavailable"},
	{domainErrors.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domainErrors.ErrForbidden, http.StatusForbidden, "forbidden"},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	resp := ErrorResponse{Error: publicMessage(err)}

	var validationErr *domainErrors.ValidationError
	if errors.As(err, &validationErr) {
		resp.Code = "validation_error"
		writeJSON(w, http.StatusBadRequest, resp)
		return
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			resp.Code = m.code
			if m.status >= http.StatusInternalServerError {
				zerolog.Ctx(r.Context()).Warn().Err(err).Str("code", m.code).Msg("Checkout failed on a downstream service")
			}
			writeJSON(w, m.status, resp)
			return
		}
	}

	var domainErr *domainErrors.DomainError
	if errors.As(err, &domainErr) {
		resp.Code = domainErr.Code
		writeJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}

	zerolog.Ctx(r.Context()).Error().Err(err).Msg("Unhandled error in handler")
	resp.Code = "internal_error"
	resp.Error = "internal server error"
	writeJSON(w, http.StatusInternalServerError, resp)
}

// publicMessage is the text of the failure the caller caused or can act on. Compensation
// results carried by a saga error are for operators and stay in the logs.
func publicMessage(err error) string {
	var ee *saga.ExecutionError
	for errors.As(err, &ee) {
		err = ee.Err
	}
	return err.Error()
}

func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domainErrors.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	if err := validate.Struct(dst); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) && len(ve) > 0 {
			return domainErrors.NewValidationError(ve[0].Namespace(), ve[0].Tag()+" validation failed")
		}
		return domainErrors.NewValidationError("body", err.Error())
	}
	return nil
}

// customerID returns the authenticated customer, writing a 401 if there is none.
func customerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.CustomerIDFromContext(r.Context())
	if !ok {
		writeError(w, r, domainErrors.ErrUnauthorized)
	}
	return id, ok
}
