package auth

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/good-yellow-bee/tempus/internal/metrics"
	"github.com/good-yellow-bee/tempus/internal/models"
	"github.com/good-yellow-bee/tempus/internal/storage"
)

// Handler handles the public authentication endpoints.
type Handler struct {
	storage    storage.Storage
	jwtService *JWTService
}

// NewHandler creates a new auth handler.
func NewHandler(store storage.Storage, jwt *JWTService) *Handler {
	return &Handler{
		storage:    store,
		jwtService: jwt,
	}
}

// Response helpers (local to avoid import cycle with api package)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

type dataResponse struct {
	Data any `json:"data"`
}

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonValidationError(w http.ResponseWriter, fields map[string]string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusBadRequest)
	body := errorBody{Code: errCodeValidationFailed, Message: "validation failed", Details: fields}
	if err := json.NewEncoder(w).Encode(errorResponse{Error: body}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(dataResponse{Data: data}); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

// Error codes and messages
const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_FAILED"
	errCodeUnauthorized     = "UNAUTHORIZED"
	errCodeConflict         = "CONFLICT"
	errCodeInternalError    = "INTERNAL_ERROR"
)

// TokenResponse is returned on successful registration or login.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
	TokenType string `json:"token_type"`
}

// RegisterRequest is the request body for register.
type RegisterRequest struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	CompanyName string `json:"company_name"`
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) validate() map[string]string {
	fields := make(map[string]string)
	if strings.TrimSpace(r.Name) == "" {
		fields["name"] = "name is required"
	}
	if err := ValidateEmail(r.Email); err != nil {
		fields["email"] = err.Error()
	}
	if len(r.Password) < MinPasswordLength {
		fields["password"] = "password must be at least 6 characters"
	}
	if strings.TrimSpace(r.CompanyName) == "" {
		fields["company_name"] = "company name is required"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Register creates the user, their tenant, and the OWNER membership as one
// atomic unit, then issues a token for the new tenant.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if fields := req.validate(); fields != nil {
		jsonValidationError(w, fields)
		return
	}

	ctx := r.Context()
	email := models.NormalizeEmail(req.Email)

	existing, err := h.storage.Users().GetByEmail(ctx, email)
	if err != nil {
		log.Printf("register error: check email: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "email already registered")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		log.Printf("register error: hash password: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	now := time.Now()
	user := &models.User{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tenant := &models.Tenant{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.CompanyName),
		CreatedAt: now,
	}

	err = h.storage.WithTx(ctx, func(tx storage.Repositories) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		if err := tx.Tenants().Create(ctx, tenant); err != nil {
			return err
		}
		return tx.Memberships().Create(ctx, &models.Membership{
			TenantID:  tenant.ID,
			UserID:    user.ID,
			Role:      models.RoleOwner,
			CreatedAt: now,
		})
	})
	if err != nil {
		// Concurrent registration with the same email loses the race on
		// the unique index rather than on the existence check above.
		if errors.Is(err, storage.ErrDuplicate) {
			jsonError(w, http.StatusConflict, errCodeConflict, "email already registered")
			return
		}
		log.Printf("register error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	token, err := h.jwtService.GenerateToken(user, tenant.ID, models.RoleOwner)
	if err != nil {
		log.Printf("register error: generate token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.RegistrationsTotal.Inc()
	log.Printf("registration success: user %s tenant %s", user.ID, tenant.ID)

	jsonOK(w, &TokenResponse{
		Token:     token,
		ExpiresIn: h.jwtService.TTLSeconds(),
		TokenType: "Bearer",
	})
}

// Login checks the credentials and issues a token carrying the caller's
// membership tenant and role. A missing email and a wrong password produce
// the same response so accounts cannot be enumerated.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "email and password required")
		return
	}

	ctx := r.Context()
	membership, user, err := h.storage.Memberships().GetByUserEmail(ctx, req.Email)
	if err != nil {
		log.Printf("login error: get membership: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if membership == nil {
		metrics.FailedLoginsTotal.Inc()
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	if !CheckPassword(req.Password, user.PasswordHash) {
		metrics.FailedLoginsTotal.Inc()
		jsonError(w, http.StatusUnauthorized, errCodeUnauthorized, "invalid credentials")
		return
	}

	token, err := h.jwtService.GenerateToken(user, membership.TenantID, membership.Role)
	if err != nil {
		log.Printf("login error: generate token: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.LoginsTotal.Inc()
	log.Printf("login success: user %s", user.ID)

	jsonOK(w, &TokenResponse{
		Token:     token,
		ExpiresIn: h.jwtService.TTLSeconds(),
		TokenType: "Bearer",
	})
}
