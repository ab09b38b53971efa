package handlers

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/payments"
	"github.com/diewo77/go-freelance/internal/services"
)

type CheckoutHandler struct {
	Svc *services.CheckoutService
	log zerolog.Logger
}

func NewCheckoutHandler(svc *services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{Svc: svc, log: logger.WithComponent("checkout")}
}

// Create: POST /checkout
// Body: {"pay_token": "...", "amount": 5000}. A zero or missing amount pays
// the full remaining balance.
func (h *CheckoutHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PayToken string `json:"pay_token"`
		Amount   int64  `json:"amount"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	if req.PayToken == "" {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"pay_token": "required"})
		return
	}
	if req.Amount < 0 {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"amount": "must_be_positive"})
		return
	}

	session, err := h.Svc.CreateSession(r.Context(), req.PayToken, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvoiceNotFound):
			httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		case errors.Is(err, services.ErrInvoiceClosed):
			httpx.JSONError(w, http.StatusBadRequest, "invoice_not_payable", nil)
		case errors.Is(err, services.ErrInvalidAmount):
			httpx.JSONError(w, http.StatusBadRequest, "invalid_amount", nil)
		case errors.Is(err, services.ErrPartialNotAllowed):
			httpx.JSONError(w, http.StatusBadRequest, "partial_payments_not_allowed", nil)
		case errors.Is(err, services.ErrBelowMinimum):
			httpx.JSONError(w, http.StatusBadRequest, "amount_below_minimum", nil)
		case errors.Is(err, services.ErrPaymentsNotConfigured):
			httpx.JSONError(w, http.StatusBadRequest, "payments_not_available", nil)
		case errors.Is(err, payments.ErrSessionFailed):
			h.log.Error().Err(err).Msg("provider checkout session failed")
			httpx.JSONError(w, http.StatusInternalServerError, "checkout_failed", nil)
		default:
			h.log.Error().Err(err).Msg("checkout failed")
			httpx.JSONError(w, http.StatusInternalServerError, "checkout_failed", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}
