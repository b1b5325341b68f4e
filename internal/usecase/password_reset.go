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
	// ErrPasswordMismatch indicates the password and confirmation differ.
	ErrPasswordMismatch = errors.New("password and confirm password do not match")
	// ErrUserNotFound indicates the username does not exist.
	ErrUserNotFound = errors.New("user not found")
)

// PasswordService handles password changes.
type PasswordService struct {
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewPasswordService constructs a password service.
func NewPasswordService(accounts port.AccountRepository, events port.EventPublisher, logger *zap.Logger) *PasswordService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PasswordService{accounts: accounts, events: events, logger: logger}
}

// ResetPassword replaces the stored password hash for the username. The same
// update clears the first-login flag and marks the user as logged in: the
// user has completed the mandatory first password change and is now active.
func (s *PasswordService) ResetPassword(ctx context.Context, username, newPassword, confirmPassword string) error {
	username = strings.TrimSpace(username)
	if username == "" || newPassword == "" || confirmPassword == "" {
		return ErrMissingFields
	}
	if newPassword != confirmPassword {
		return ErrPasswordMismatch
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	passwordHash, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.accounts.UpdatePassword(ctx, account.User.ID, passwordHash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publishPasswordChanged(ctx, account.User.ID, username)

	return nil
}

func (s *PasswordService) publishPasswordChanged(ctx context.Context, userID int64, username string) {
	if s.events == nil {
		return
	}

	event := domain.PasswordChangedEvent{
		EventID:   uuid.NewString(),
		UserID:    userID,
		Username:  username,
		ChangedAt: time.Now().UTC(),
	}

	if err := s.events.PublishPasswordChanged(ctx, event); err != nil {
		s.logger.Warn("publish user.password.changed failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
