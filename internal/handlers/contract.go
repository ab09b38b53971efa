package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/auth"
	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/pdf"
	"github.com/diewo77/go-freelance/internal/services"
	"github.com/diewo77/go-freelance/internal/validation"
)

type ContractHandler struct {
	DB  *gorm.DB
	Svc *services.ContractService
}

func NewContractHandler(db *gorm.DB, svc *services.ContractService) *ContractHandler {
	return &ContractHandler{DB: db, Svc: svc}
}

type contractRequest struct {
	ClientID  uint   `json:"client_id"`
	ProjectID *uint  `json:"project_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	ExpiresAt string `json:"expires_at"`
}

// List: GET /contracts
func (h *ContractHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit := 50
	offset := (page - 1) * limit

	db := h.DB.Where("user_id = ?", userID).Preload("Client")
	if status := r.URL.Query().Get("status"); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	db.Model(&models.Contract{}).Count(&total)

	var contracts []models.Contract
	if err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&contracts).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_contracts", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": contracts, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /contracts
func (h *ContractHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req contractRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("title", req.Title, v)
	if req.ClientID == 0 {
		v["client_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var client models.Client
	if err := h.DB.Where("id = ? AND user_id = ?", req.ClientID, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "client_not_found", nil)
		return
	}

	contract := models.Contract{
		UserID:    userID,
		ClientID:  req.ClientID,
		ProjectID: req.ProjectID,
		Title:     req.Title,
		Body:      req.Body,
		Status:    models.ContractStatusDraft,
	}
	if req.ExpiresAt != "" {
		expires, err := time.Parse("2006-01-02", req.ExpiresAt)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"expires_at": "invalid_date"})
			return
		}
		contract.ExpiresAt = &expires
	}

	if err := h.DB.Create(&contract).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_contract", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, contract)
}

// View: GET /contracts/{id}
func (h *ContractHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var contract models.Contract
	err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).
		Preload("Client").
		Preload("Project").
		First(&contract).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

// Update: PUT /contracts/{id} — drafts only; signed artifacts are immutable.
func (h *ContractHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var contract models.Contract
	if err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).First(&contract).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		return
	}
	if !contract.CanEdit() {
		httpx.JSONError(w, http.StatusForbidden, "contract_not_editable", nil)
		return
	}

	var req contractRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("title", req.Title, v)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	contract.Title = req.Title
	contract.Body = req.Body
	contract.ProjectID = req.ProjectID
	if req.ExpiresAt != "" {
		expires, err := time.Parse("2006-01-02", req.ExpiresAt)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"expires_at": "invalid_date"})
			return
		}
		contract.ExpiresAt = &expires
	}

	if err := h.DB.Save(&contract).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_contract", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

// Delete: DELETE /contracts/{id} — drafts only.
func (h *ContractHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var contract models.Contract
	if err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).First(&contract).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		return
	}
	if !contract.CanEdit() {
		httpx.JSONError(w, http.StatusForbidden, "contract_not_editable", nil)
		return
	}
	if err := h.DB.Delete(&contract).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_contract", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Send: POST /contracts/{id}/send
func (h *ContractHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, _ := strconv.ParseUint(r.PathValue("id"), 10, 32)

	contract, err := h.Svc.Send(r.Context(), userID, uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrContractNotFound):
			httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		case errors.Is(err, services.ErrContractNotDraft):
			httpx.JSONError(w, http.StatusBadRequest, "contract_not_draft", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_send_contract", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, contract)
}

// PDF: GET /contracts/{id}/pdf
// Authorized either by owner session or by sign token once signed.
func (h *ContractHandler) PDF(w http.ResponseWriter, r *http.Request) {
	var contract models.Contract
	err := h.DB.Where("id = ?", r.PathValue("id")).
		Preload("Client").
		Preload("User").
		First(&contract).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "contract_not_found", nil)
		return
	}

	userID, authed := auth.UserIDFromContext(r.Context())
	token := r.URL.Query().Get("token")
	switch {
	case authed && contract.UserID == userID:
		// owner
	case token != "" && contract.SignToken == token && contract.Status == models.ContractStatusSigned:
		// public token, only once signed
	default:
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	data := pdf.ContractData{
		Number: contract.Number,
		Title:  contract.Title,
		Body:   contract.Body,
		Status: string(contract.Status),
		Developer: pdf.PartyData{
			Name:    contract.User.Name,
			Company: contract.User.BusinessName,
			Address: contract.User.BusinessAddress,
			Email:   contract.User.Email,
		},
	}
	clientName := ""
	if contract.Client != nil {
		clientName = contract.Client.DisplayName()
		data.Client = pdf.PartyData{
			Name:    contract.Client.Name,
			Company: contract.Client.Company,
			Address: contract.Client.Address,
			Email:   contract.Client.Email,
		}
	}
	if contract.SignedAt != nil {
		data.SignerName = contract.SignerName
		data.SignerIP = contract.SignerIP
		data.SignedAt = contract.SignedAt.Format("2006-01-02 15:04 MST")
	}

	out, err := pdf.Contract(data)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_generate_pdf", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename("contract", contract.Number, clientName)))
	_, _ = w.Write(out)
}
