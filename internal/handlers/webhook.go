package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/logger"
	"github.com/diewo77/go-freelance/internal/services"
)

// Stripe recommends limiting webhook bodies; events comfortably fit in 64KiB.
const maxWebhookBody = 65536

type WebhookHandler struct {
	Svc *services.WebhookService
	log zerolog.Logger
}

func NewWebhookHandler(svc *services.WebhookService) *WebhookHandler {
	return &WebhookHandler{Svc: svc, log: logger.WithComponent("webhook")}
}

// Stripe: POST /webhooks/stripe
// The raw body is passed untouched to signature verification.
func (h *WebhookHandler) Stripe(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_body", nil)
		return
	}

	err = h.Svc.HandleEvent(r.Context(), body, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, services.ErrBadSignature) {
			h.log.Warn().Err(err).Msg("webhook signature rejected")
			httpx.JSONError(w, http.StatusBadRequest, "invalid_signature", nil)
			return
		}
		// A 500 makes the provider redeliver; the event ledger keeps the
		// retry idempotent.
		h.log.Error().Err(err).Msg("webhook processing failed")
		httpx.JSONError(w, http.StatusInternalServerError, "webhook_failed", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"received": true})
}
