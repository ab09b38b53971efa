package handlers

import (
	"net/http"

	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/auth"
	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/validation"
)

type SettingsHandler struct {
	DB *gorm.DB
}

func NewSettingsHandler(db *gorm.DB) *SettingsHandler {
	return &SettingsHandler{DB: db}
}

// Payments: GET /settings/payments
func (h *SettingsHandler) Payments(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"stripe_account_id": user.StripeAccountID,
		"charges_enabled":   user.ChargesEnabled,
		"payouts_enabled":   user.PayoutsEnabled,
		"payments_ready":    user.PaymentsReady(),
	})
}

// UpdatePayments: PUT /settings/payments
// Links a connected account. Capability flags stay false until the provider
// confirms them through account.updated webhooks.
func (h *SettingsHandler) UpdatePayments(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		StripeAccountID string `json:"stripe_account_id"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("stripe_account_id", req.StripeAccountID, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}

	if user.StripeAccountID != req.StripeAccountID {
		user.StripeAccountID = req.StripeAccountID
		user.ChargesEnabled = false
		user.PayoutsEnabled = false
	}
	if err := h.DB.Save(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_settings", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"stripe_account_id": user.StripeAccountID,
		"charges_enabled":   user.ChargesEnabled,
		"payouts_enabled":   user.PayoutsEnabled,
		"payments_ready":    user.PaymentsReady(),
	})
}

// Profile: GET /settings/profile
func (h *SettingsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

// UpdateProfile: PUT /settings/profile
func (h *SettingsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req struct {
		Name            string `json:"name"`
		BusinessName    string `json:"business_name"`
		BusinessAddress string `json:"business_address"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "user_not_found", nil)
		return
	}

	user.Name = req.Name
	user.BusinessName = req.BusinessName
	user.BusinessAddress = req.BusinessAddress
	if err := h.DB.Save(&user).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_settings", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}
