package security

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var errInvalidCost = errors.New("bcrypt: invalid cost")

const defaultBcryptCost = 10

var (
	activeBcryptCost = defaultBcryptCost
	bcryptCostMu     sync.RWMutex
)

// DefaultBcryptCost returns the library default work factor.
func DefaultBcryptCost() int {
	return defaultBcryptCost
}

// CurrentBcryptCost returns the currently active work factor.
func CurrentBcryptCost() int {
	bcryptCostMu.RLock()
	defer bcryptCostMu.RUnlock()
	return activeBcryptCost
}

// ConfigureBcrypt sets the active work factor after validation.
func ConfigureBcrypt(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("%w: must be between %d and %d", errInvalidCost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	bcryptCostMu.Lock()
	activeBcryptCost = cost
	bcryptCostMu.Unlock()
	return nil
}

// HashPassword generates a salted bcrypt hash for the provided password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), CurrentBcryptCost())
	if err != nil {
		return "", fmt.Errorf("bcrypt: hash password: %w", err)
	}

	return string(hash), nil
}

// VerifyPassword compares the provided password against a stored bcrypt hash.
// A mismatch is reported as false without error; malformed hashes error out.
func VerifyPassword(password, encoded string) (bool, error) {
	if password == "" || encoded == "" {
		return false, nil
	}

	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}

	return false, fmt.Errorf("bcrypt: compare password: %w", err)
}
