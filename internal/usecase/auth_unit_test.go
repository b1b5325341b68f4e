package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/akorenev/credential-service/internal/core/domain"
	"github.com/akorenev/credential-service/internal/infra/security"
	"github.com/akorenev/credential-service/internal/repository"
)

type mockAccountRepository struct {
	getAccount      *domain.Account
	getErr          error
	getCalls        int
	getLastUsername string

	existsResult bool
	existsErr    error
	existsCalls  int

	createID         int64
	createErr        error
	createCalls      int
	createdUser      domain.User
	createdCred      domain.Credential

	storeTokenErr    error
	storeTokenCalls  int
	storeTokenUserID int64
	storedToken      string

	updateErr        error
	updateCalls      int
	updateUserID     int64
	updatedHash      string
}

func (m *mockAccountRepository) GetByUsername(_ context.Context, username string) (*domain.Account, error) {
	m.getCalls++
	m.getLastUsername = username
	if m.getAccount != nil {
		copy := *m.getAccount
		return &copy, m.getErr
	}
	return nil, m.getErr
}

func (m *mockAccountRepository) IdentityExists(_ context.Context, username, email string) (bool, error) {
	m.existsCalls++
	return m.existsResult, m.existsErr
}

func (m *mockAccountRepository) Create(_ context.Context, user domain.User, credential domain.Credential) (int64, error) {
	m.createCalls++
	m.createdUser = user
	m.createdCred = credential
	if m.createErr != nil {
		return 0, m.createErr
	}
	if m.createID == 0 {
		m.createID = 1
	}
	return m.createID, nil
}

func (m *mockAccountRepository) StoreToken(_ context.Context, userID int64, token string) error {
	m.storeTokenCalls++
	m.storeTokenUserID = userID
	m.storedToken = token
	return m.storeTokenErr
}

func (m *mockAccountRepository) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	m.updateCalls++
	m.updateUserID = userID
	m.updatedHash = passwordHash
	return m.updateErr
}

type mockEventPublisher struct {
	registeredCalls    int
	registeredEvent    domain.UserRegisteredEvent
	registeredErr      error
	authenticatedCalls int
	authenticatedEvent domain.UserAuthenticatedEvent
	authenticatedErr   error
	changedCalls       int
	changedEvent       domain.PasswordChangedEvent
	changedErr         error
}

func (m *mockEventPublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	m.registeredCalls++
	m.registeredEvent = event
	return m.registeredErr
}

func (m *mockEventPublisher) PublishUserAuthenticated(_ context.Context, event domain.UserAuthenticatedEvent) error {
	m.authenticatedCalls++
	m.authenticatedEvent = event
	return m.authenticatedErr
}

func (m *mockEventPublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	m.changedCalls++
	m.changedEvent = event
	return m.changedErr
}

func testTokenIssuer(t *testing.T) *security.TokenIssuer {
	t.Helper()
	tokens, err := security.NewTokenIssuer("unit-test-secret", "credential-service", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer returned error: %v", err)
	}
	return tokens
}

func storedAccount(t *testing.T, password string) *domain.Account {
	t.Helper()
	hash, err := security.HashPassword(password)
	if err != nil {
		t.Fatalf("HashPassword returned error: %v", err)
	}
	return &domain.Account{
		User: domain.User{
			ID:        42,
			FirstName: "Alice",
			LastName:  "Smith",
			Gender:    "female",
			Age:       30,
		},
		Credential: domain.Credential{
			UserID:       42,
			Username:     "alice",
			Email:        "alice@example.com",
			Mobile:       "9876543210",
			PasswordHash: hash,
			FirstLogin:   true,
		},
	}
}

func TestAuthService_Authenticate_Success(t *testing.T) {
	repo := &mockAccountRepository{getAccount: storedAccount(t, "s3cret-pass")}
	publisher := &mockEventPublisher{}

	service, err := NewAuthService(repo, testTokenIssuer(t), publisher, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	result, err := service.Authenticate(context.Background(), LoginInput{Username: "alice", Password: "s3cret-pass", IP: "203.0.113.9"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	if result.Token == "" {
		t.Fatalf("expected a signed token")
	}
	if !result.FirstLogin {
		t.Fatalf("expected first_login true for a fresh account")
	}
	if result.Username != "alice" || result.FirstName != "Alice" || result.LastName != "Smith" {
		t.Fatalf("unexpected profile fields: %+v", result)
	}
	if !result.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected expiry in the future, got %v", result.ExpiresAt)
	}

	if repo.storeTokenCalls != 1 {
		t.Fatalf("expected StoreToken to be called once, got %d", repo.storeTokenCalls)
	}
	if repo.storeTokenUserID != 42 {
		t.Fatalf("expected token stored for user 42, got %d", repo.storeTokenUserID)
	}
	if repo.storedToken != result.Token {
		t.Fatalf("expected the issued token to be persisted")
	}

	if publisher.authenticatedCalls != 1 {
		t.Fatalf("expected one authenticated event, got %d", publisher.authenticatedCalls)
	}
	if publisher.authenticatedEvent.UserID != 42 || publisher.authenticatedEvent.Username != "alice" {
		t.Fatalf("unexpected event payload: %+v", publisher.authenticatedEvent)
	}
	if publisher.authenticatedEvent.IPAddress != "203.0.113.9" {
		t.Fatalf("expected event IP 203.0.113.9, got %s", publisher.authenticatedEvent.IPAddress)
	}
}

func TestAuthService_Authenticate_TokenCarriesUserID(t *testing.T) {
	repo := &mockAccountRepository{getAccount: storedAccount(t, "s3cret-pass")}
	tokens := testTokenIssuer(t)

	service, err := NewAuthService(repo, tokens, nil, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	result, err := service.Authenticate(context.Background(), LoginInput{Username: "alice", Password: "s3cret-pass"})
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}

	claims, err := tokens.Parse(result.Token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}
	if claims.UserID != 42 {
		t.Fatalf("expected uid claim 42, got %d", claims.UserID)
	}
}

func TestAuthService_Authenticate_MissingFields(t *testing.T) {
	repo := &mockAccountRepository{}
	service, err := NewAuthService(repo, testTokenIssuer(t), nil, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), LoginInput{Username: "", Password: "x"}); !errors.Is(err, ErrUsernameRequired) {
		t.Fatalf("expected ErrUsernameRequired, got %v", err)
	}
	if _, err := service.Authenticate(context.Background(), LoginInput{Username: "alice", Password: ""}); !errors.Is(err, ErrPasswordRequired) {
		t.Fatalf("expected ErrPasswordRequired, got %v", err)
	}
	if repo.getCalls != 0 {
		t.Fatalf("expected no repository lookups on validation failure, got %d", repo.getCalls)
	}
}

func TestAuthService_Authenticate_UnknownUser(t *testing.T) {
	repo := &mockAccountRepository{getErr: repository.ErrNotFound}
	service, err := NewAuthService(repo, testTokenIssuer(t), nil, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), LoginInput{Username: "ghost", Password: "whatever"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestAuthService_Authenticate_WrongPassword(t *testing.T) {
	repo := &mockAccountRepository{getAccount: storedAccount(t, "s3cret-pass")}
	service, err := NewAuthService(repo, testTokenIssuer(t), nil, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), LoginInput{Username: "alice", Password: "wrong-pass"}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for wrong password, got %v", err)
	}
	if repo.storeTokenCalls != 0 {
		t.Fatalf("expected no token stored on failed login, got %d", repo.storeTokenCalls)
	}
}

func TestAuthService_Authenticate_StoreTokenFailure(t *testing.T) {
	repo := &mockAccountRepository{
		getAccount:    storedAccount(t, "s3cret-pass"),
		storeTokenErr: errors.New("db down"),
	}
	service, err := NewAuthService(repo, testTokenIssuer(t), nil, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), LoginInput{Username: "alice", Password: "s3cret-pass"}); err == nil {
		t.Fatalf("expected error when token persistence fails")
	}
}

func TestAuthService_Authenticate_EventFailureDoesNotBlock(t *testing.T) {
	repo := &mockAccountRepository{getAccount: storedAccount(t, "s3cret-pass")}
	publisher := &mockEventPublisher{authenticatedErr: errors.New("kafka down")}

	service, err := NewAuthService(repo, testTokenIssuer(t), publisher, nil)
	if err != nil {
		t.Fatalf("NewAuthService returned error: %v", err)
	}

	if _, err := service.Authenticate(context.Background(), LoginInput{Username: "alice", Password: "s3cret-pass"}); err != nil {
		t.Fatalf("expected login to succeed despite event failure, got %v", err)
	}
	if publisher.authenticatedCalls != 1 {
		t.Fatalf("expected publisher to be invoked even on failure")
	}
}
