package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/good-yellow-bee/tempus/internal/storage"
)

// testServer creates a test server backed by a temp SQLite database.
func testServer(t *testing.T) (*Server, storage.Storage, func()) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "tempus-test-*.db")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	tmpFile.Close()

	store := storage.NewSQLiteStorage(tmpFile.Name())
	if err := store.Open(); err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("open storage: %v", err)
	}
	if err := store.Migrate(); err != nil {
		store.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("migrate storage: %v", err)
	}

	cfg := &Config{
		Address:   ":0",
		JWTSecret: []byte("test-jwt-secret-32-bytes-long!!"),
		TokenTTL:  15 * time.Minute,
	}

	srv, err := New(cfg, store)
	if err != nil {
		store.Close()
		os.Remove(tmpFile.Name())
		t.Fatalf("create server: %v", err)
	}

	cleanup := func() {
		store.Close()
		os.Remove(tmpFile.Name())
	}

	return srv, store, cleanup
}

// do sends a request through the full router and records the response.
func do(srv *Server, method, path, body, token string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

// register signs up a fresh tenant and returns the issued token.
func register(t *testing.T, srv *Server, email, company string) string {
	t.Helper()

	body := fmt.Sprintf(`{"name":"Test User","email":%q,"password":"secret123","company_name":%q}`, email, company)
	rec := do(srv, "POST", "/api/auth/register", body, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Fatal("expected non-empty token")
	}
	return resp.Data.Token
}

// createProject creates a project and returns its id.
func createProject(t *testing.T, srv *Server, token, name string) string {
	t.Helper()

	rec := do(srv, "POST", "/api/projects", fmt.Sprintf(`{"name":%q}`, name), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create project status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode project response: %v", err)
	}
	return resp.Data.ID
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	return resp.Error.Code, resp.Error.Message
}

func TestHealthEndpoints(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	for _, path := range []string{"/health", "/health/live", "/health/ready"} {
		rec := do(srv, "GET", path, "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, rec.Code)
		}
	}
}

func TestRegister_IssuesWorkingToken(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "owner@example.com", "Acme Inc")

	// Token works against a protected endpoint immediately.
	rec := do(srv, "GET", "/api/users/me", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("me status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Email      string `json:"email"`
			TenantName string `json:"tenant_name"`
			Role       string `json:"role"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode me response: %v", err)
	}
	if resp.Data.Email != "owner@example.com" {
		t.Errorf("email = %q", resp.Data.Email)
	}
	if resp.Data.TenantName != "Acme Inc" {
		t.Errorf("tenant name = %q", resp.Data.TenantName)
	}
	if resp.Data.Role != "OWNER" {
		t.Errorf("role = %q, want OWNER", resp.Data.Role)
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	register(t, srv, "dup@example.com", "First Co")

	body := `{"name":"Other","email":"DUP@example.com","password":"secret123","company_name":"Second Co"}`
	rec := do(srv, "POST", "/api/auth/register", body, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409; body: %s", rec.Code, rec.Body.String())
	}
	if code, _ := errorCode(t, rec); code != "CONFLICT" {
		t.Errorf("code = %q, want CONFLICT", code)
	}
}

func TestRegister_Validation(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	tests := []struct {
		name string
		body string
	}{
		{"short-password", `{"name":"A","email":"a@example.com","password":"short","company_name":"Co"}`},
		{"bad-email", `{"name":"A","email":"not-an-email","password":"secret123","company_name":"Co"}`},
		{"missing-name", `{"email":"a@example.com","password":"secret123","company_name":"Co"}`},
		{"missing-company", `{"name":"A","email":"a@example.com","password":"secret123"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := do(srv, "POST", "/api/auth/register", tc.body, "")
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestLogin(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	register(t, srv, "login@example.com", "Login Co")

	rec := do(srv, "POST", "/api/auth/login", `{"email":"login@example.com","password":"secret123"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d; body: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Data struct {
			Token     string `json:"token"`
			TokenType string `json:"token_type"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.Data.Token == "" {
		t.Error("expected non-empty token")
	}
	if resp.Data.TokenType != "Bearer" {
		t.Errorf("token_type = %q, want Bearer", resp.Data.TokenType)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	register(t, srv, "victim@example.com", "Victim Co")

	// Wrong password and unknown account must be indistinguishable.
	wrongPass := do(srv, "POST", "/api/auth/login", `{"email":"victim@example.com","password":"wrong-pass"}`, "")
	unknown := do(srv, "POST", "/api/auth/login", `{"email":"nobody@example.com","password":"secret123"}`, "")

	for name, rec := range map[string]*httptest.ResponseRecorder{"wrong-password": wrongPass, "unknown-email": unknown} {
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s: status = %d, want 401", name, rec.Code)
		}
	}
	if wrongPass.Body.String() != unknown.Body.String() {
		t.Error("failure responses must be identical for both cases")
	}
}

func TestProtectedRoutes_RequireToken(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	paths := []struct{ method, path string }{
		{"GET", "/api/projects"},
		{"GET", "/api/time-entries"},
		{"GET", "/api/users/me"},
	}
	for _, p := range paths {
		rec := do(srv, p.method, p.path, "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d, want 401", p.method, p.path, rec.Code)
		}
	}
}

func TestProjects_CRUD(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "proj@example.com", "Proj Co")
	id := createProject(t, srv, token, "Website Redesign")

	rec := do(srv, "GET", "/api/projects/"+id, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d; body: %s", rec.Code, rec.Body.String())
	}

	rec = do(srv, "PUT", "/api/projects/"+id, `{"name":"Website v2"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d; body: %s", rec.Code, rec.Body.String())
	}

	rec = do(srv, "GET", "/api/projects", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].Name != "Website v2" {
		t.Errorf("list = %+v", list.Data)
	}

	rec = do(srv, "DELETE", "/api/projects/"+id, "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}

	rec = do(srv, "GET", "/api/projects/"+id, "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", rec.Code)
	}
}

func TestProjects_TenantIsolation(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	tokenA := register(t, srv, "a@example.com", "Tenant A")
	tokenB := register(t, srv, "b@example.com", "Tenant B")

	id := createProject(t, srv, tokenA, "Secret Project")

	// Tenant B sees not-found, never forbidden.
	for _, tc := range []struct{ method, body string }{
		{"GET", ""},
		{"PUT", `{"name":"Hijacked"}`},
		{"DELETE", ""},
	} {
		rec := do(srv, tc.method, "/api/projects/"+id, tc.body, tokenB)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s cross-tenant status = %d, want 404; body: %s", tc.method, rec.Code, rec.Body.String())
		}
	}

	// The project is untouched for tenant A.
	rec := do(srv, "GET", "/api/projects/"+id, "", tokenA)
	if rec.Code != http.StatusOK {
		t.Errorf("owner get status = %d, want 200", rec.Code)
	}
}

func TestTimer_StartStopFlow(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "timer@example.com", "Timer Co")
	projectID := createProject(t, srv, token, "Tracked Work")

	// No active timer yet.
	rec := do(srv, "GET", "/api/time-entries/active", "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("active status = %d, want 204", rec.Code)
	}

	rec = do(srv, "POST", "/api/time-entries/start", fmt.Sprintf(`{"project_id":%q,"description":"working"}`, projectID), token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var started struct {
		Data struct {
			ID      string  `json:"id"`
			EndTime *string `json:"end_time"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode start: %v", err)
	}
	if started.Data.EndTime != nil {
		t.Error("started entry should be running")
	}

	// Second start conflicts.
	rec = do(srv, "POST", "/api/time-entries/start", fmt.Sprintf(`{"project_id":%q}`, projectID), token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("second start status = %d, want 409", rec.Code)
	}
	if _, msg := errorCode(t, rec); msg != "an active timer already exists" {
		t.Errorf("message = %q", msg)
	}

	// Active shows the running entry.
	rec = do(srv, "GET", "/api/time-entries/active", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("active status = %d, want 200", rec.Code)
	}

	rec = do(srv, "PUT", "/api/time-entries/"+started.Data.ID+"/stop", "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("stop status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var stopped struct {
		Data struct {
			EndTime *string `json:"end_time"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&stopped); err != nil {
		t.Fatalf("decode stop: %v", err)
	}
	if stopped.Data.EndTime == nil {
		t.Error("stopped entry should have an end time")
	}

	// Stopping again conflicts.
	rec = do(srv, "PUT", "/api/time-entries/"+started.Data.ID+"/stop", "", token)
	if rec.Code != http.StatusConflict {
		t.Fatalf("re-stop status = %d, want 409", rec.Code)
	}
	if _, msg := errorCode(t, rec); msg != "timer already finished" {
		t.Errorf("message = %q", msg)
	}

	// Slot is free again.
	rec = do(srv, "GET", "/api/time-entries/active", "", token)
	if rec.Code != http.StatusNoContent {
		t.Errorf("active after stop status = %d, want 204", rec.Code)
	}
	rec = do(srv, "POST", "/api/time-entries/start", fmt.Sprintf(`{"project_id":%q}`, projectID), token)
	if rec.Code != http.StatusCreated {
		t.Errorf("restart status = %d, want 201", rec.Code)
	}
}

func TestTimer_StopUnknownEntry(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "stopper@example.com", "Stop Co")

	rec := do(srv, "PUT", "/api/time-entries/does-not-exist/stop", "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestEntries_ManualCreate(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "manual@example.com", "Manual Co")
	projectID := createProject(t, srv, token, "Backfill")

	start := time.Now().Add(-2 * time.Hour).Format(time.RFC3339)
	end := time.Now().Add(-1 * time.Hour).Format(time.RFC3339)

	body := fmt.Sprintf(`{"project_id":%q,"description":"yesterday","start_time":%q,"end_time":%q}`, projectID, start, end)
	rec := do(srv, "POST", "/api/time-entries", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body: %s", rec.Code, rec.Body.String())
	}

	// End before start is rejected.
	body = fmt.Sprintf(`{"project_id":%q,"start_time":%q,"end_time":%q}`, projectID, end, start)
	rec = do(srv, "POST", "/api/time-entries", body, token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid range status = %d, want 400", rec.Code)
	}
	if _, msg := errorCode(t, rec); msg != "end time must be after start time" {
		t.Errorf("message = %q", msg)
	}

	// Equal start and end is rejected too.
	body = fmt.Sprintf(`{"project_id":%q,"start_time":%q,"end_time":%q}`, projectID, start, start)
	rec = do(srv, "POST", "/api/time-entries", body, token)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("zero duration status = %d, want 400", rec.Code)
	}

	// Unknown project is not found.
	body = fmt.Sprintf(`{"project_id":"ghost","start_time":%q,"end_time":%q}`, start, end)
	rec = do(srv, "POST", "/api/time-entries", body, token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ghost project status = %d, want 404", rec.Code)
	}
}

func TestEntries_PatchAndDelete(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "patch@example.com", "Patch Co")
	projectID := createProject(t, srv, token, "Patchable")

	start := time.Now().Add(-2 * time.Hour)
	end := start.Add(time.Hour)
	body := fmt.Sprintf(`{"project_id":%q,"start_time":%q,"end_time":%q}`,
		projectID, start.Format(time.RFC3339), end.Format(time.RFC3339))
	rec := do(srv, "POST", "/api/time-entries", body, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}
	var created struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	id := created.Data.ID

	rec = do(srv, "PATCH", "/api/time-entries/"+id, `{"description":"updated notes"}`, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch status = %d; body: %s", rec.Code, rec.Body.String())
	}
	var patched struct {
		Data struct {
			Description string `json:"description"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&patched); err != nil {
		t.Fatalf("decode patch: %v", err)
	}
	if patched.Data.Description != "updated notes" {
		t.Errorf("description = %q", patched.Data.Description)
	}

	// Moving start past the end violates the merged invariant.
	badStart := end.Add(time.Hour).Format(time.RFC3339)
	rec = do(srv, "PATCH", "/api/time-entries/"+id, fmt.Sprintf(`{"start_time":%q}`, badStart), token)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("invalid patch status = %d, want 400", rec.Code)
	}

	// Retargeting to a nonexistent project is not found.
	rec = do(srv, "PATCH", "/api/time-entries/"+id, `{"project_id":"ghost"}`, token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("ghost project patch status = %d, want 404", rec.Code)
	}

	rec = do(srv, "DELETE", "/api/time-entries/"+id, "", token)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d, want 204", rec.Code)
	}
	rec = do(srv, "DELETE", "/api/time-entries/"+id, "", token)
	if rec.Code != http.StatusNotFound {
		t.Errorf("re-delete status = %d, want 404", rec.Code)
	}
}

func TestEntries_CreatorIsolation(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	tokenA := register(t, srv, "creator-a@example.com", "Iso A")
	tokenB := register(t, srv, "creator-b@example.com", "Iso B")
	projectID := createProject(t, srv, tokenA, "A's Project")

	rec := do(srv, "POST", "/api/time-entries/start", fmt.Sprintf(`{"project_id":%q}`, projectID), tokenA)
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d", rec.Code)
	}
	var started struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&started); err != nil {
		t.Fatalf("decode start: %v", err)
	}

	// Another user cannot stop, patch, or delete the entry.
	for _, tc := range []struct{ method, path, body string }{
		{"PUT", "/api/time-entries/" + started.Data.ID + "/stop", ""},
		{"PATCH", "/api/time-entries/" + started.Data.ID, `{"description":"stolen"}`},
		{"DELETE", "/api/time-entries/" + started.Data.ID, ""},
	} {
		rec := do(srv, tc.method, tc.path, tc.body, tokenB)
		if rec.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, rec.Code)
		}
	}
}

func TestEntries_ListByProject(t *testing.T) {
	srv, _, cleanup := testServer(t)
	defer cleanup()

	token := register(t, srv, "lister@example.com", "List Co")
	other := register(t, srv, "other@example.com", "Other Co")
	projectID := createProject(t, srv, token, "Listed")

	start := time.Now().Add(-time.Hour).Format(time.RFC3339)
	end := time.Now().Format(time.RFC3339)
	body := fmt.Sprintf(`{"project_id":%q,"start_time":%q,"end_time":%q}`, projectID, start, end)
	if rec := do(srv, "POST", "/api/time-entries", body, token); rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d", rec.Code)
	}

	rec := do(srv, "GET", "/api/time-entries?project_id="+projectID, "", token)
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Data []struct {
			ProjectID string `json:"project_id"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data) != 1 {
		t.Errorf("len = %d, want 1", len(list.Data))
	}

	// A foreign tenant cannot list through the project filter.
	rec = do(srv, "GET", "/api/time-entries?project_id="+projectID, "", other)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-tenant list status = %d, want 404", rec.Code)
	}
}
