package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/akorenev/credential-service/internal/core/domain"
	"github.com/akorenev/credential-service/internal/core/port"
	"github.com/akorenev/credential-service/internal/infra/security"
	"github.com/akorenev/credential-service/internal/repository"
)

var (
	// ErrInvalidCredentials indicates the provided username or password are incorrect.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUsernameRequired indicates the username field was empty.
	ErrUsernameRequired = errors.New("username is required")
	// ErrPasswordRequired indicates the password field was empty.
	ErrPasswordRequired = errors.New("password is required")
)

// AuthService coordinates the login flow.
type AuthService struct {
	accounts port.AccountRepository
	tokens   *security.TokenIssuer
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(accounts port.AccountRepository, tokens *security.TokenIssuer, events port.EventPublisher, logger *zap.Logger) (*AuthService, error) {
	if accounts == nil {
		return nil, fmt.Errorf("account repository is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token issuer is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		accounts: accounts,
		tokens:   tokens,
		events:   events,
		logger:   logger,
	}, nil
}

// LoginInput carries the login request fields plus request metadata.
type LoginInput struct {
	Username string
	Password string
	IP       string
}

// LoginResult is returned after successful authentication.
type LoginResult struct {
	Token      string
	ExpiresAt  time.Time
	FirstLogin bool
	Username   string
	FirstName  string
	LastName   string
}

// Authenticate validates credentials, issues an access token, and persists it
// into the credential row. The previous token, if any, is overwritten: each
// user holds at most one active session slot.
func (s *AuthService) Authenticate(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if input.Password == "" {
		return nil, ErrPasswordRequired
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	ok, err := security.VerifyPassword(input.Password, account.Credential.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Issue(account.User.ID)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	if err := s.accounts.StoreToken(ctx, account.User.ID, token); err != nil {
		return nil, fmt.Errorf("store token: %w", err)
	}

	s.publishAuthenticated(ctx, account, input.IP)

	return &LoginResult{
		Token:      token,
		ExpiresAt:  expiresAt,
		FirstLogin: account.Credential.FirstLogin,
		Username:   account.Credential.Username,
		FirstName:  account.User.FirstName,
		LastName:   account.User.LastName,
	}, nil
}

func (s *AuthService) publishAuthenticated(ctx context.Context, account *domain.Account, ip string) {
	if s.events == nil {
		return
	}

	event := domain.UserAuthenticatedEvent{
		EventID:         uuid.NewString(),
		UserID:          account.User.ID,
		Username:        account.Credential.Username,
		FirstLogin:      account.Credential.FirstLogin,
		AuthenticatedAt: time.Now().UTC(),
		IPAddress:       ip,
	}

	if err := s.events.PublishUserAuthenticated(ctx, event); err != nil {
		s.logger.Warn("publish user.authenticated failed",
			zap.Int64("user_id", account.User.ID),
			zap.Error(err),
		)
	}
}
