package handlers

import (
	"net/http"
	"strconv"

	"gorm.io/gorm"

	"github.com/diewo77/go-freelance/internal/auth"
	"github.com/diewo77/go-freelance/internal/httpx"
	"github.com/diewo77/go-freelance/internal/models"
	"github.com/diewo77/go-freelance/internal/validation"
)

type ProjectHandler struct {
	DB *gorm.DB
}

func NewProjectHandler(db *gorm.DB) *ProjectHandler {
	return &ProjectHandler{DB: db}
}

type projectRequest struct {
	ClientID    uint   `json:"client_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Status      string `json:"status"`
	HourlyRate  int64  `json:"hourly_rate"`
	Currency    string `json:"currency"`
}

// List: GET /projects
func (h *ProjectHandler) List(w http.ResponseWriter, r *http.Request) {
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
	db.Model(&models.Project{}).Count(&total)

	var projects []models.Project
	if err := db.Order("created_at DESC").Limit(limit).Offset(offset).Find(&projects).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_list_projects", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": projects, "total": total, "limit": limit, "offset": offset})
}

// Create: POST /projects
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req projectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	if req.ClientID == 0 {
		v["client_id"] = "required"
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	// Client must belong to the same user.
	var client models.Client
	if err := h.DB.Where("id = ? AND user_id = ?", req.ClientID, userID).First(&client).Error; err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "client_not_found", nil)
		return
	}

	project := models.Project{
		UserID:      userID,
		ClientID:    req.ClientID,
		Name:        req.Name,
		Description: req.Description,
		Status:      models.ProjectStatusActive,
		HourlyRate:  req.HourlyRate,
	}
	if req.Currency != "" {
		project.Currency = req.Currency
	}
	if err := h.DB.Create(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_create_project", nil)
		return
	}
	httpx.JSON(w, http.StatusCreated, project)
}

// View: GET /projects/{id}
func (h *ProjectHandler) View(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var project models.Project
	err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).Preload("Client").First(&project).Error
	if err != nil {
		httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

// Update: PUT /projects/{id}
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var project models.Project
	if err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).First(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		return
	}

	var req projectRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}

	v := make(validation.Violations)
	validation.Required("name", req.Name, v)
	if req.Status != "" {
		validation.OneOf("status", req.Status, []string{
			string(models.ProjectStatusActive),
			string(models.ProjectStatusCompleted),
			string(models.ProjectStatusArchived),
		}, v)
	}
	if !v.Empty() {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", v)
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	project.HourlyRate = req.HourlyRate
	if req.Status != "" {
		project.Status = models.ProjectStatus(req.Status)
	}

	if err := h.DB.Save(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_update_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, project)
}

// Delete: DELETE /projects/{id}
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var project models.Project
	if err := h.DB.Where("id = ? AND user_id = ?", r.PathValue("id"), userID).First(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusNotFound, "project_not_found", nil)
		return
	}
	if err := h.DB.Delete(&project).Error; err != nil {
		httpx.JSONError(w, http.StatusInternalServerError, "failed_to_delete_project", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}
