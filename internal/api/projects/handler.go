// Package projects provides the tenant-scoped project API endpoints.
package projects

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/tempus/internal/api/middleware"
	"github.com/good-yellow-bee/tempus/internal/models"
	"github.com/good-yellow-bee/tempus/internal/storage"
)

// Response helpers (same pattern as auth)
type errorResponse struct {
	Error errorBody `json:"error"`
}
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeNotFound         = "NOT_FOUND"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// ProjectResponse is a project as returned by the API.
type ProjectResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedByID string `json:"created_by_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// Handler handles project endpoints. Every lookup is scoped by the caller's
// tenant; a project under another tenant is indistinguishable from a missing
// one.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new projects handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Request types
type upsertRequest struct {
	Name string `json:"name"`
}

// List returns the caller's tenant's projects.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	projects, err := h.storage.Projects().ListByTenant(ctx, user.TenantID)
	if err != nil {
		log.Printf("list projects error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*ProjectResponse, len(projects))
	for i, p := range projects {
		resp[i] = projectToResponse(p)
	}
	jsonOK(w, resp)
}

// Create creates a new project under the caller's tenant.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	now := time.Now()
	project := &models.Project{
		ID:          uuid.New().String(),
		TenantID:    user.TenantID,
		Name:        strings.TrimSpace(req.Name),
		CreatedByID: user.UserID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		log.Printf("create project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project created: %s (%s)", project.Name, project.ID)
	jsonCreated(w, projectToResponse(project))
}

// GetByID returns a project by ID within the caller's tenant.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	project, err := h.storage.Projects().GetByIDAndTenant(ctx, id, user.TenantID)
	if err != nil {
		log.Printf("get project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	jsonOK(w, projectToResponse(project))
}

// Update renames a project within the caller's tenant.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	project, err := h.storage.Projects().GetByIDAndTenant(ctx, id, user.TenantID)
	if err != nil {
		log.Printf("update project error: get: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	project.Name = strings.TrimSpace(req.Name)
	project.UpdatedAt = time.Now()

	if err := h.storage.Projects().Update(ctx, project); err != nil {
		log.Printf("update project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project updated: %s (%s)", project.Name, project.ID)
	jsonOK(w, projectToResponse(project))
}

// Delete deletes a project within the caller's tenant.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	deleted, err := h.storage.Projects().Delete(ctx, id, user.TenantID)
	if err != nil {
		log.Printf("delete project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	log.Printf("project deleted: %s", id)
	jsonNoContent(w)
}

func projectToResponse(p *models.Project) *ProjectResponse {
	return &ProjectResponse{
		ID:          p.ID,
		Name:        p.Name,
		CreatedByID: p.CreatedByID,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339),
	}
}
