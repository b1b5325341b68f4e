package port

import (
	"context"

	"github.com/akorenev/credential-service/internal/core/domain"
)

// AccountRepository persists users and their credential rows.
type AccountRepository interface {
	// GetByUsername returns the joined user and credential row for the username.
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
	// IdentityExists reports whether a credential row already uses the username or email.
	IdentityExists(ctx context.Context, username, email string) (bool, error)
	// Create inserts the user row and its credential row atomically and
	// returns the generated user id.
	Create(ctx context.Context, user domain.User, credential domain.Credential) (int64, error)
	// StoreToken overwrites the persisted session token for the user.
	StoreToken(ctx context.Context, userID int64, token string) error
	// UpdatePassword overwrites the stored password hash, clears the
	// first-login flag, and marks the user as logged in.
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
}
