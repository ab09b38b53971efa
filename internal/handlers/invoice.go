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

type InvoiceHandler struct {
	DB  *gorm.DB
	Svc *services.InvoiceService
}

func NewInvoiceHandler(db *gorm.DB, svc *services.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{DB: db, Svc: svc}
}

type invoiceItemRequest struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
}

type invoiceRequest struct {
	ClientID             uint                 `json:"client_id"`
	ProjectID            *uint                `json:"project_id"`
	Currency             string               `json:"currency"`
	TaxRate              float64              `json:"tax_rate"`
	DueDate              string               `json:"due_date"`
	Notes                string               `json:"notes"`
	AllowPartialPayments bool                 `json:"allow_partial_payments"`
	MinimumPaymentAmount int64                `json:"minimum_payment_amount"`
	Items                []invoiceItemRequest `json:"items"`
}

// List: GET /invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
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
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		db = db.Where("client_id = ?", clientID)
	}

	var total int64
	db.Model(&models.Invoice{}).Count(&total)

	var invoices []models.Invoice
	if err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&invoices).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_invoices", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": invoices, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req invoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := h.validate(&req)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var client models.Client
	if err := h.DB.Where("id = ? AND user_id = ?", req.ClientID, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "client_not_found", nil)
		return
	}
	if req.ProjectID != nil {
		var project models.Project
		if err := h.DB.Where("id = ? AND user_id = ?", *req.ProjectID, userID).First(&project).Error; err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "project_not_found", nil)
			return
		}
	}

	invoice := models.Invoice{
		UserID:               userID,
		ClientID:             req.ClientID,
		ProjectID:            req.ProjectID,
		Status:               models.InvoiceStatusDraft,
		TaxRate:              req.TaxRate,
		Notes:                req.Notes,
		AllowPartialPayments: req.AllowPartialPayments,
		MinimumPaymentAmount: req.MinimumPaymentAmount,
	}
	if req.Currency != "" {
		invoice.Currency = req.Currency
	}
	if req.DueDate != "" {
		due, err := time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{"due_date": "invalid_date"})
			return
		}
		invoice.DueDate = due
	}
	// Draft number placeholder, replaced with the final number on send.
	invoice.Number = "DRAFT-" + time.Now().Format("20060102-150405")

	for pos, item := range req.Items {
		line := models.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Position:    pos,
		}
		line.ComputeAmount()
		invoice.Items = append(invoice.Items, line)
	}
	invoice.RecomputeTotals()

	if err := h.DB.Create(&invoice).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, invoice)
}

// View: GET /invoices/{id}
func (h *InvoiceHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var invoice models.Invoice
	err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).
		Preload("Client").
		Preload("Project").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") }).
		First(&invoice).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Update: PUT /invoices/{id} — drafts only.
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var invoice models.Invoice
	if err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).First(&invoice).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	if !invoice.CanEdit() {
		httpx.JSONError(w, http.StatusForbidden, "invoice_not_editable", nil)
		return
	}

	var req invoiceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	v := h.validate(&req)
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	var client models.Client
	if err := h.DB.Where("id = ? AND user_id = ?", req.ClientID, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "client_not_found", nil)
		return
	}

	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("invoice_id = ?", invoice.ID).Delete(&models.InvoiceItem{}).Error; err != nil {
			return err
		}

		invoice.ClientID = req.ClientID
		invoice.ProjectID = req.ProjectID
		invoice.TaxRate = req.TaxRate
		invoice.Notes = req.Notes
		invoice.AllowPartialPayments = req.AllowPartialPayments
		invoice.MinimumPaymentAmount = req.MinimumPaymentAmount
		if req.Currency != "" {
			invoice.Currency = req.Currency
		}
		if req.DueDate != "" {
			due, err := time.Parse("2006-01-02", req.DueDate)
			if err != nil {
				return fmt.Errorf("invalid due date")
			}
			invoice.DueDate = due
		}

		invoice.Items = nil
		for pos, item := range req.Items {
			line := models.InvoiceItem{
				InvoiceID:   invoice.ID,
				Description: item.Description,
				Quantity:    item.Quantity,
				UnitPrice:   item.UnitPrice,
				Position:    pos,
			}
			line.ComputeAmount()
			invoice.Items = append(invoice.Items, line)
		}
		invoice.RecomputeTotals()

		return tx.Save(&invoice).Error
	})
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Delete: DELETE /invoices/{id} — drafts only.
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var invoice models.Invoice
	if err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).First(&invoice).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}
	if !invoice.CanEdit() {
		httpx.JSONError(w, http.StatusForbidden, "invoice_not_editable", nil)
		return
	}
	if err := h.DB.Delete(&invoice).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_invoice", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// Send: POST /invoices/{id}/send
func (h *InvoiceHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, _ := strconv.ParseUint(r.PathValue("id"), 10, 32)

	invoice, err := h.Svc.Send(r.Context(), userID, uint(id))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvoiceNotFound):
			httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		case errors.Is(err, services.ErrNotDraft):
			httpx.JSONError(w, http.StatusBadRequest, "invoice_not_draft", nil)
		case errors.Is(err, services.ErrEmptyInvoice):
			httpx.JSONError(w, http.StatusBadRequest, "invoice_empty", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_send_invoice", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, invoice)
}

// Remind: POST /invoices/{id}/remind
func (h *InvoiceHandler) Remind(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	id, _ := strconv.ParseUint(r.PathValue("id"), 10, 32)

	if err := h.Svc.Remind(r.Context(), userID, uint(id)); err != nil {
		switch {
		case errors.Is(err, services.ErrInvoiceNotFound):
			httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		case errors.Is(err, services.ErrNotRemindable):
			httpx.JSONError(w, http.StatusBadRequest, "invoice_not_remindable", nil)
		default:
			httpx.JSONError(w, http.StatusInternalServerError, "failed_to_send_reminder", nil)
		}
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

// PDF: GET /invoices/{id}/pdf
// Authorized either by owner session or by pay token for non-draft invoices.
func (h *InvoiceHandler) PDF(w http.ResponseWriter, r *http.Request) {
	var invoice models.Invoice
	query := h.DB.Where("id = ?", r.PathValue("id")).
		Preload("Client").
		Preload("User").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position") })
	if err := query.First(&invoice).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "invoice_not_found", nil)
		return
	}

	userID, authed := auth.UserIDFromContext(r.Context())
	token := r.URL.Query().Get("token")
	switch {
	case authed && invoice.UserID == userID:
		// owner
	case token != "" && invoice.PayToken == token && !invoice.IsDraft():
		// public token, never for drafts
	default:
		httpx.JSONError(w, http.StatusForbidden, "forbidden", nil)
		return
	}

	data := pdf.InvoiceData{
		Number:    invoice.Number,
		IssueDate: invoice.IssueDate.Format("2006-01-02"),
		DueDate:   invoice.DueDate.Format("2006-01-02"),
		Status:    string(invoice.Status),
		Developer: pdf.PartyData{
			Name:    invoice.User.Name,
			Company: invoice.User.BusinessName,
			Address: invoice.User.BusinessAddress,
			Email:   invoice.User.Email,
		},
		Currency:   invoice.Currency,
		Subtotal:   invoice.Subtotal,
		TaxAmount:  invoice.TaxAmount,
		Total:      invoice.Total,
		PaidAmount: invoice.PaidAmount,
		Notes:      invoice.Notes,
	}
	clientName := ""
	if invoice.Client != nil {
		clientName = invoice.Client.DisplayName()
		data.Client = pdf.PartyData{
			Name:    invoice.Client.Name,
			Company: invoice.Client.Company,
			Address: invoice.Client.Address,
			Email:   invoice.Client.Email,
		}
	}
	for _, item := range invoice.Items {
		data.Items = append(data.Items, pdf.InvoiceItemData{
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			Amount:      item.Amount,
		})
	}

	out, err := pdf.Invoice(data)
	if err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_generate_pdf", nil)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", pdf.Filename("invoice", invoice.Number, clientName)))
	_, _ = w.Write(out)
}

func (h *InvoiceHandler) validate(req *invoiceRequest) validation.Violations {
	v := make(validation.Violations)
	if req.ClientID == 0 {
		v["client_id"] = "required"
	}
	if len(req.Items) == 0 {
		v["items"] = "required"
	}
	for _, item := range req.Items {
		if item.Description == "" || item.Quantity <= 0 || item.UnitPrice < 0 {
			v["items"] = "invalid_item"
			break
		}
	}
	if req.TaxRate < 0 || req.TaxRate > 1 {
		v["tax_rate"] = "out_of_range"
	}
	if req.MinimumPaymentAmount < 0 {
		v["minimum_payment_amount"] = "must_be_positive"
	}
	return v
}
