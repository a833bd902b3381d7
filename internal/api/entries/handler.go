// Package entries provides the time entry API endpoints and enforces the
// timer state machine: a user is either idle or has exactly one running
// entry, and every closed entry ends strictly after it starts.
package entries

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/good-yellow-bee/tempus/internal/api/middleware"
	"github.com/good-yellow-bee/tempus/internal/metrics"
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
	errCodeConflict         = "CONFLICT"
	errCodeInternalError    = "INTERNAL_ERROR"
)

const (
	msgEntryNotFound   = "time entry not found"
	msgProjectNotFound = "project not found"
	msgActiveTimer     = "an active timer already exists"
	msgTimerFinished   = "timer already finished"
	msgEndBeforeStart  = "end time must be after start time"
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

// EntryResponse is a time entry as returned by the API.
type EntryResponse struct {
	ID          string  `json:"id"`
	ProjectID   string  `json:"project_id"`
	Description string  `json:"description,omitempty"`
	StartTime   string  `json:"start_time"`
	EndTime     *string `json:"end_time"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
}

// Handler handles time entry endpoints. Entry reads that resolve a project
// are tenant-scoped; entry mutations are scoped by creator.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new entries handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Request types
type startRequest struct {
	ProjectID   string `json:"project_id"`
	Description string `json:"description"`
}

type createRequest struct {
	ProjectID   string     `json:"project_id"`
	Description string     `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

type patchRequest struct {
	Description *string    `json:"description"`
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	ProjectID   *string    `json:"project_id"`
}

// Start opens a running entry for the caller. At most one running entry may
// exist per user; the partial unique index backs the check, so two
// concurrent starts cannot both succeed.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "project_id is required")
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	project, err := h.storage.Projects().GetByIDAndTenant(ctx, req.ProjectID, user.TenantID)
	if err != nil {
		log.Printf("start timer error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, msgProjectNotFound)
		return
	}

	active, err := h.storage.Entries().GetActiveByCreator(ctx, user.UserID)
	if err != nil {
		log.Printf("start timer error: get active: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if active != nil {
		metrics.TimerConflictsTotal.Inc()
		jsonError(w, http.StatusConflict, errCodeConflict, msgActiveTimer)
		return
	}

	now := time.Now()
	entry := &models.TimeEntry{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		CreatedByID: user.UserID,
		Description: req.Description,
		StartTime:   now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.Entries().Create(ctx, entry); err != nil {
		// A concurrent start slipped past the read above and won the
		// race on the unique index.
		if errors.Is(err, storage.ErrDuplicate) {
			metrics.TimerConflictsTotal.Inc()
			jsonError(w, http.StatusConflict, errCodeConflict, msgActiveTimer)
			return
		}
		log.Printf("start timer error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.TimersStartedTotal.Inc()
	log.Printf("timer started: entry %s project %s", entry.ID, project.ID)
	jsonCreated(w, entryToResponse(entry))
}

// Stop closes a running entry addressed by id. The entry must belong to the
// caller and still be open.
func (h *Handler) Stop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "entry id required")
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	entry, err := h.storage.Entries().GetByIDAndCreator(ctx, id, user.UserID)
	if err != nil {
		log.Printf("stop timer error: get entry: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if entry == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, msgEntryNotFound)
		return
	}
	if !entry.Running() {
		jsonError(w, http.StatusConflict, errCodeConflict, msgTimerFinished)
		return
	}

	now := time.Now()
	entry.EndTime = &now
	entry.UpdatedAt = now

	if err := h.storage.Entries().Update(ctx, entry); err != nil {
		log.Printf("stop timer error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.TimersStoppedTotal.Inc()
	log.Printf("timer stopped: entry %s", entry.ID)
	jsonOK(w, entryToResponse(entry))
}

// Active returns the caller's running entry, or 204 when idle.
func (h *Handler) Active(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	entry, err := h.storage.Entries().GetActiveByCreator(ctx, user.UserID)
	if err != nil {
		log.Printf("get active timer error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if entry == nil {
		jsonNoContent(w)
		return
	}

	jsonOK(w, entryToResponse(entry))
}

// List returns the caller's entries, or a project's entries when project_id
// is given. The project is tenant-checked before its entries are read.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	var entries []*models.TimeEntry
	var err error

	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		project, perr := h.storage.Projects().GetByIDAndTenant(ctx, projectID, user.TenantID)
		if perr != nil {
			log.Printf("list entries error: get project: %v", perr)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if project == nil {
			jsonError(w, http.StatusNotFound, errCodeNotFound, msgProjectNotFound)
			return
		}
		entries, err = h.storage.Entries().ListByProject(ctx, project.ID)
	} else {
		entries, err = h.storage.Entries().ListByCreator(ctx, user.UserID)
	}

	if err != nil {
		log.Printf("list entries error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	resp := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		resp[i] = entryToResponse(e)
	}
	jsonOK(w, resp)
}

// Create records a manual, already-closed entry. It never participates in
// the single-active-timer invariant because it is born with an end time.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.ProjectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "project_id is required")
		return
	}
	if req.StartTime == nil || req.EndTime == nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "start_time and end_time are required")
		return
	}
	if !req.EndTime.After(*req.StartTime) {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, msgEndBeforeStart)
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	project, err := h.storage.Projects().GetByIDAndTenant(ctx, req.ProjectID, user.TenantID)
	if err != nil {
		log.Printf("create entry error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, msgProjectNotFound)
		return
	}

	now := time.Now()
	entry := &models.TimeEntry{
		ID:          uuid.New().String(),
		ProjectID:   project.ID,
		CreatedByID: user.UserID,
		Description: req.Description,
		StartTime:   *req.StartTime,
		EndTime:     req.EndTime,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.storage.Entries().Create(ctx, entry); err != nil {
		log.Printf("create entry error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.EntriesCreatedTotal.Inc()
	log.Printf("entry created: %s project %s", entry.ID, project.ID)
	jsonCreated(w, entryToResponse(entry))
}

// Patch merges the provided fields into an entry owned by the caller. The
// start/end invariant is re-checked against the final merged state, and the
// read-merge-write sequence runs inside one transaction.
func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "entry id required")
		return
	}

	var req patchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	var entry *models.TimeEntry
	err := h.storage.WithTx(ctx, func(tx storage.Repositories) error {
		var err error
		entry, err = tx.Entries().GetByIDAndCreator(ctx, id, user.UserID)
		if err != nil {
			return err
		}
		if entry == nil {
			return errPatchNotFound
		}

		if req.Description != nil {
			entry.Description = *req.Description
		}
		if req.StartTime != nil {
			entry.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			entry.EndTime = req.EndTime
		}
		if req.ProjectID != nil {
			project, err := tx.Projects().GetByIDAndTenant(ctx, *req.ProjectID, user.TenantID)
			if err != nil {
				return err
			}
			if project == nil {
				return errPatchProjectNotFound
			}
			entry.ProjectID = project.ID
		}

		// Invariant holds for the merged state, not per field.
		if !entry.TimesValid() {
			return errPatchTimes
		}

		entry.UpdatedAt = time.Now()
		return tx.Entries().Update(ctx, entry)
	})

	switch {
	case errors.Is(err, errPatchNotFound):
		jsonError(w, http.StatusNotFound, errCodeNotFound, msgEntryNotFound)
		return
	case errors.Is(err, errPatchProjectNotFound):
		jsonError(w, http.StatusNotFound, errCodeNotFound, msgProjectNotFound)
		return
	case errors.Is(err, errPatchTimes):
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, msgEndBeforeStart)
		return
	case err != nil:
		log.Printf("patch entry error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("entry patched: %s", entry.ID)
	jsonOK(w, entryToResponse(entry))
}

// Delete removes an entry owned by the caller.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "entry id required")
		return
	}

	ctx := r.Context()
	user := middleware.GetAuthUser(ctx)

	deleted, err := h.storage.Entries().Delete(ctx, id, user.UserID)
	if err != nil {
		log.Printf("delete entry error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !deleted {
		jsonError(w, http.StatusNotFound, errCodeNotFound, msgEntryNotFound)
		return
	}

	log.Printf("entry deleted: %s", id)
	jsonNoContent(w)
}

// Sentinel errors for the patch transaction.
var (
	errPatchNotFound        = errors.New("entry not found")
	errPatchProjectNotFound = errors.New("project not found")
	errPatchTimes           = errors.New("end not after start")
)

func entryToResponse(e *models.TimeEntry) *EntryResponse {
	resp := &EntryResponse{
		ID:          e.ID,
		ProjectID:   e.ProjectID,
		Description: e.Description,
		StartTime:   e.StartTime.Format(time.RFC3339),
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   e.UpdatedAt.Format(time.RFC3339),
	}
	if e.EndTime != nil {
		end := e.EndTime.Format(time.RFC3339)
		resp.EndTime = &end
	}
	return resp
}
