package handlers

import (
	"errors"
	"net"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/services"
	"github.com/diewo77/go-freelance/internal/validation"
)

// PublicHandler serves the token-authorized endpoints used by clients who
// have no account: the pay page data and the signing flow.
type PublicHandler struct {
	DB          *gorm.DB
	ContractSvc *services.ContractService
}

func NewPublicHandler(db *gorm.DB, contractSvc *services.ContractService) *PublicHandler {
	return &PublicHandler{DB: db, ContractSvc: contractSvc}
}

// PayPage: GET /pay/{token}
// Returns the invoice summary the checkout page renders. Amounts only; the
// developer's private data stays out of the payload.
func (h *PublicHandler) PayPage(w http.ResponseWriter, r *http.Request) {
	var invoice models.Invoice
	err := h.DB.Where("pay_token = ?", r.PathValue("token")).
		Preload("Client").
		Preload("User").
		First(&invoice).Error
	if err != nil || invoice.IsDraft() {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}

	clientName := ""
	if invoice.Client != nil {
		clientName = invoice.Client.DisplayName()
	}
	businessName := invoice.User.BusinessName
	if businessName == "" {
		businessName = invoice.User.Name
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"invoice_number":         invoice.Number,
		"business_name":          businessName,
		"client_name":            clientName,
		"status":                 invoice.Status,
		"currency":               invoice.Currency,
		"total":                  invoice.Total,
		"paid_amount":            invoice.PaidAmount,
		"remaining":              invoice.RemainingBalance(),
		"allow_partial_payments": invoice.AllowPartialPayments,
		"minimum_payment_amount": invoice.MinimumPaymentAmount,
		"due_date":               invoice.DueDate.Format("2006-01-02"),
		"payable":                invoice.IsPayable() && invoice.User.PaymentsReady(),
	})
}

// SignPage: GET /sign/{token}
func (h *PublicHandler) SignPage(w http.ResponseWriter, r *http.Request) {
	var contract models.Contract
	err := h.DB.Where("sign_token = ?", r.PathValue("token")).
		Preload("Client").
		Preload("User").
		First(&contract).Error
	if err != nil || contract.Status == models.ContractStatusDraft {
		httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		return
	}

	businessName := contract.User.BusinessName
	if businessName == "" {
		businessName = contract.User.Name
	}

	httpx.JSON(w, http.StatusOK, map[string]any{
		"contract_number": contract.Number,
		"title":           contract.Title,
		"body":            contract.Body,
		"status":          contract.Status,
		"business_name":   businessName,
		"signed_at":       contract.SignedAt,
		"signer_name":     contract.SignerName,
	})
}

// Sign: POST /sign/{token}
func (h *PublicHandler) Sign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SignerName     string `json:"signer_name"`
		SignatureImage string `json:"signature_image"`
	}
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("signer_name", req.SignerName, v)
	validation.Required("signature_image", req.SignatureImage, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	contract, err := h.ContractSvc.Sign(r.Context(), r.PathValue("token"), req.SignerName, req.SignatureImage, clientIP(r))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContractNotFound):
			httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		case errors.Is(err, services.ErrContractClosed):
			httpx.JSONError(w, http.StatusBadRequest, "contract_not_signable", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_sign_contract", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"status":    contract.Status,
		"signed_at": contract.SignedAt,
	})
}

// Decline: POST /sign/{token}/decline
func (h *PublicHandler) Decline(w http.ResponseWriter, r *http.Request) {
	contract, err := h.ContractSvc.Decline(r.Context(), r.PathValue("token"))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContractNotFound):
			httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		case errors.Is(err, services.ErrContractClosed):
			httpx.JSONError(w, http.StatusBadRequest, "contract_not_declinable", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_decline_contract", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": contract.Status})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		parts := strings.Split(fwd, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
