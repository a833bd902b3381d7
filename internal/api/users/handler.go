// Package users exposes the authenticated user's profile.
package users

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/good-yellow-bee/tempus/internal/api/middleware"
	"github.com/good-yellow-bee/tempus/internal/storage"
)

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

// MeResponse describes the caller's profile and tenant membership.
type MeResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	TenantID   string `json:"tenant_id"`
	TenantName string `json:"tenant_name"`
	Role       string `json:"role"`
}

// Handler handles user profile endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new users handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Me returns the profile of the authenticated user, resolved fresh from
// storage rather than echoed from token claims.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	detail, err := h.storage.Memberships().GetDetailByUserID(ctx, user.UserID)
	if err != nil {
		log.Printf("get profile error: %v", err)
		jsonError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		return
	}
	if detail == nil {
		jsonError(w, http.StatusNotFound, "NOT_FOUND", "user not found")
		return
	}

	jsonOK(w, MeResponse{
		ID:         detail.UserID,
		Name:       detail.UserName,
		Email:      detail.UserEmail,
		TenantID:   detail.TenantID,
		TenantName: detail.TenantName,
		Role:       string(detail.Role),
	})
}
