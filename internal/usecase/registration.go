package usecase

import (
	"context"
	"errors"
	"fmt"
	"regexp"
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
	// ErrMissingFields indicates one or more registration fields were absent.
	ErrMissingFields = errors.New("all fields are required")
	// ErrInvalidEmail indicates the email failed the format check.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidMobile indicates the mobile number is not exactly 10 digits.
	ErrInvalidMobile = errors.New("invalid mobile format")
	// ErrIdentityTaken indicates the username or email is already registered.
	ErrIdentityTaken = errors.New("username or email already exists")
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^[0-9]{10}$`)
)

// RegistrationService handles new account onboarding.
type RegistrationService struct {
	accounts port.AccountRepository
	events   port.EventPublisher
	logger   *zap.Logger
}

// NewRegistrationService constructs a registration service.
func NewRegistrationService(accounts port.AccountRepository, events port.EventPublisher, logger *zap.Logger) *RegistrationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RegistrationService{accounts: accounts, events: events, logger: logger}
}

// RegisterInput carries the registration request fields.
type RegisterInput struct {
	Username     string
	Email        string
	Mobile       string
	FirstName    string
	LastName     string
	Age          int
	Gender       string
	ProfileImage string
}

// RegisterResult carries the generated user id and the one-time plaintext
// password. The password is never recoverable after this response.
type RegisterResult struct {
	UserID   int64
	Password string
}

// Register validates the input, provisions a random password, and creates the
// user and credential rows atomically.
func (s *RegistrationService) Register(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.TrimSpace(input.Email)
	input.Mobile = strings.TrimSpace(input.Mobile)
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Gender = strings.TrimSpace(input.Gender)

	if input.Username == "" || input.Email == "" || input.Mobile == "" ||
		input.FirstName == "" || input.LastName == "" || input.Gender == "" ||
		input.ProfileImage == "" || input.Age <= 0 {
		return nil, ErrMissingFields
	}

	if !emailPattern.MatchString(input.Email) {
		return nil, ErrInvalidEmail
	}
	if !mobilePattern.MatchString(input.Mobile) {
		return nil, ErrInvalidMobile
	}

	exists, err := s.accounts.IdentityExists(ctx, input.Username, input.Email)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if exists {
		return nil, ErrIdentityTaken
	}

	password, err := security.GeneratePassword(security.GeneratedPasswordLength)
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}

	passwordHash, err := security.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := domain.User{
		Profile:   input.ProfileImage,
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Gender:    input.Gender,
		Age:       input.Age,
	}
	credential := domain.Credential{
		Username:     input.Username,
		Email:        input.Email,
		Mobile:       input.Mobile,
		PasswordHash: passwordHash,
		FirstLogin:   true,
		LoggedIn:     false,
	}

	userID, err := s.accounts.Create(ctx, user, credential)
	if err != nil {
		// The uniqueness check above races with concurrent registrations;
		// the constraint violation is the authoritative answer.
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrIdentityTaken
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.publishRegistered(ctx, userID, input.Username, input.Email)

	return &RegisterResult{UserID: userID, Password: password}, nil
}

func (s *RegistrationService) publishRegistered(ctx context.Context, userID int64, username, email string) {
	if s.events == nil {
		return
	}

	event := domain.UserRegisteredEvent{
		EventID:      uuid.NewString(),
		UserID:       userID,
		Username:     username,
		Email:        email,
		RegisteredAt: time.Now().UTC(),
	}

	if err := s.events.PublishUserRegistered(ctx, event); err != nil {
		s.logger.Warn("publish user.registered failed",
			zap.Int64("user_id", userID),
			zap.Error(err),
		)
	}
}
