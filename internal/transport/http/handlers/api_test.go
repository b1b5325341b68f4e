package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/akorenev/credential-service/internal/core/domain"
	"github.com/akorenev/credential-service/internal/infra/security"
	"github.com/akorenev/credential-service/internal/repository"
	"github.com/akorenev/credential-service/internal/usecase"
)

type memoryAccountRepository struct {
	mu     sync.Mutex
	nextID int64
	byName map[string]*domain.Account
}

func newMemoryAccountRepository() *memoryAccountRepository {
	return &memoryAccountRepository{
		nextID: 1,
		byName: make(map[string]*domain.Account),
	}
}

func (r *memoryAccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	account, ok := r.byName[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *account
	return &copy, nil
}

func (r *memoryAccountRepository) IdentityExists(_ context.Context, username, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.byName {
		if account.Credential.Username == username || account.Credential.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *memoryAccountRepository) Create(_ context.Context, user domain.User, credential domain.Credential) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byName {
		if existing.Credential.Username == credential.Username || existing.Credential.Email == credential.Email {
			return 0, repository.ErrDuplicate
		}
	}

	user.ID = r.nextID
	credential.UserID = user.ID
	r.nextID++

	r.byName[credential.Username] = &domain.Account{User: user, Credential: credential}
	return user.ID, nil
}

func (r *memoryAccountRepository) StoreToken(_ context.Context, userID int64, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.byName {
		if account.User.ID == userID {
			account.Credential.Token = &token
			return nil
		}
	}
	return repository.ErrNotFound
}

func (r *memoryAccountRepository) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, account := range r.byName {
		if account.User.ID == userID {
			account.Credential.PasswordHash = passwordHash
			account.Credential.FirstLogin = false
			account.Credential.LoggedIn = true
			return nil
		}
	}
	return repository.ErrNotFound
}

func newTestRouter(t *testing.T) (*gin.Engine, *memoryAccountRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zaptest.NewLogger(t)
	repo := newMemoryAccountRepository()

	tokens, err := security.NewTokenIssuer("handler-test-secret", "credential-service", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}

	authService, err := usecase.NewAuthService(repo, tokens, nil, log)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}
	registrationService := usecase.NewRegistrationService(repo, nil, log)
	passwordService := usecase.NewPasswordService(repo, nil, log)

	r := gin.New()
	r.POST("/login", NewAuthHandler(authService).Login)
	r.POST("/register", NewRegistrationHandler(registrationService).Register)
	r.POST("/change-password", NewPasswordHandler(passwordService).ChangePassword)

	return r, repo
}

func doJSON(t *testing.T, r *gin.Engine, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func registerPayload() map[string]any {
	return map[string]any{
		"username":      "alice",
		"email":         "alice@example.com",
		"mobile":        "9876543210",
		"firstName":     "Alice",
		"lastName":      "Smith",
		"age":           30,
		"gender":        "female",
		"profileBase64": "aW1hZ2UtYnl0ZXM=",
	}
}

func TestAccountLifecycle(t *testing.T) {
	r, repo := newTestRouter(t)

	rec := doJSON(t, r, "/register", registerPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var registered RegistrationResponse
	decodeBody(t, rec, &registered)
	if registered.Message != "Registration successful" {
		t.Fatalf("unexpected register message: %q", registered.Message)
	}
	if len(registered.Password) != security.GeneratedPasswordLength {
		t.Fatalf("expected %d character generated password, got %q", security.GeneratedPasswordLength, registered.Password)
	}

	rec = doJSON(t, r, "/login", map[string]string{"username": "alice", "password": registered.Password})
	if rec.Code != http.StatusOK {
		t.Fatalf("first login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var login LoginResponse
	decodeBody(t, rec, &login)
	if login.Token == "" {
		t.Fatal("expected a token on login")
	}
	if !login.FirstLogin {
		t.Fatal("expected first_login true on first login")
	}
	if login.Username != "alice" || login.FirstName != "Alice" || login.LastName != "Smith" {
		t.Fatalf("unexpected profile fields: %+v", login)
	}

	account, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername returned error: %v", err)
	}
	if account.Credential.Token == nil || *account.Credential.Token != login.Token {
		t.Fatal("expected the issued token to be persisted")
	}

	rec = doJSON(t, r, "/change-password", map[string]string{
		"username":        "alice",
		"password":        "brand-new-pass",
		"confirmPassword": "brand-new-pass",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("change password: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var changed MessageResponse
	decodeBody(t, rec, &changed)
	if changed.Message != "Password changed successfully" {
		t.Fatalf("unexpected change message: %q", changed.Message)
	}

	rec = doJSON(t, r, "/login", map[string]string{"username": "alice", "password": registered.Password})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("old password login: expected 401, got %d", rec.Code)
	}

	rec = doJSON(t, r, "/login", map[string]string{"username": "alice", "password": "brand-new-pass"})
	if rec.Code != http.StatusOK {
		t.Fatalf("new password login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	decodeBody(t, rec, &login)
	if login.FirstLogin {
		t.Fatal("expected first_login false after a password change")
	}
}

func TestLoginValidationAndFailures(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		name    string
		payload map[string]string
		status  int
		message string
	}{
		{"missing username", map[string]string{"password": "x"}, http.StatusBadRequest, "Username and password are required"},
		{"missing password", map[string]string{"username": "alice"}, http.StatusBadRequest, "Username and password are required"},
		{"unknown user", map[string]string{"username": "ghost", "password": "x"}, http.StatusUnauthorized, "Invalid username or password"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doJSON(t, r, "/login", tc.payload)
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}

			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			if resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestLoginWrongPassword(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, "/register", registerPayload())
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	rec = doJSON(t, r, "/login", map[string]string{"username": "alice", "password": "not-the-password"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Message != "Invalid username or password" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}
}

func TestRegisterValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	cases := []struct {
		name    string
		mutate  func(map[string]any)
		message string
	}{
		{"missing field", func(p map[string]any) { p["firstName"] = "" }, "All fields are required"},
		{"zero age", func(p map[string]any) { p["age"] = 0 }, "All fields are required"},
		{"bad email", func(p map[string]any) { p["email"] = "a.com" }, "Invalid email format"},
		{"truncated email", func(p map[string]any) { p["email"] = "a@" }, "Invalid email format"},
		{"short mobile", func(p map[string]any) { p["mobile"] = "12345" }, "Invalid mobile format"},
		{"long mobile", func(p map[string]any) { p["mobile"] = "12345678901" }, "Invalid mobile format"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			payload := registerPayload()
			tc.mutate(payload)

			rec := doJSON(t, r, "/register", payload)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}

			var resp ErrorResponse
			decodeBody(t, rec, &resp)
			if resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestRegisterDuplicateIdentity(t *testing.T) {
	r, _ := newTestRouter(t)

	if rec := doJSON(t, r, "/register", registerPayload()); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}

	rec := doJSON(t, r, "/register", registerPayload())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate register: expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Message != "Username or email already exists" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}

	payload := registerPayload()
	payload["username"] = "alice2"
	rec = doJSON(t, r, "/register", payload)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("duplicate email: expected 400, got %d", rec.Code)
	}
}

func TestChangePasswordValidation(t *testing.T) {
	r, _ := newTestRouter(t)

	rec := doJSON(t, r, "/change-password", map[string]string{
		"username":        "alice",
		"password":        "one",
		"confirmPassword": "two",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatch: expected 400, got %d", rec.Code)
	}
	var resp ErrorResponse
	decodeBody(t, rec, &resp)
	if resp.Message != "Password and confirm password do not match" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}

	rec = doJSON(t, r, "/change-password", map[string]string{
		"username":        "ghost",
		"password":        "same",
		"confirmPassword": "same",
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown user: expected 404, got %d", rec.Code)
	}
	decodeBody(t, rec, &resp)
	if resp.Message != "User not found" {
		t.Fatalf("unexpected message: %q", resp.Message)
	}

	rec = doJSON(t, r, "/change-password", map[string]string{
		"username": "alice",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: expected 400, got %d", rec.Code)
	}
}

func TestMalformedJSONRejected(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, path := range []string{"/login", "/register", "/change-password"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400 for malformed JSON, got %d", path, rec.Code)
		}
	}
}

func TestGeneratedPasswordsDiffer(t *testing.T) {
	r, _ := newTestRouter(t)

	passwords := make(map[string]struct{})
	for i := 0; i < 3; i++ {
		payload := registerPayload()
		payload["username"] = fmt.Sprintf("user%d", i)
		payload["email"] = fmt.Sprintf("user%d@example.com", i)

		rec := doJSON(t, r, "/register", payload)
		if rec.Code != http.StatusCreated {
			t.Fatalf("register %d: expected 201, got %d", i, rec.Code)
		}

		var resp RegistrationResponse
		decodeBody(t, rec, &resp)
		if _, dup := passwords[resp.Password]; dup {
			t.Fatalf("generated password reused: %s", resp.Password)
		}
		passwords[resp.Password] = struct{}{}
	}
}
