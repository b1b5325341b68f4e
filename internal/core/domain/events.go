package domain

import "time"

// UserRegisteredEvent is emitted after a successful registration.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Username     string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserAuthenticatedEvent is emitted after a successful login.
type UserAuthenticatedEvent struct {
	EventID         string
	UserID          int64
	Username        string
	FirstLogin      bool
	AuthenticatedAt time.Time
	IPAddress       string
	Metadata        map[string]any
}

// PasswordChangedEvent is emitted after a password change completes.
type PasswordChangedEvent struct {
	EventID   string
	UserID    int64
	Username  string
	ChangedAt time.Time
	Metadata  map[string]any
}
