// Package service holds the application's business rules on top of the repositories.
package service

import (
	"context"
	"errors"

	"warbler/internal/models"
	"warbler/internal/observability"
	"warbler/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher hashes and verifies passwords with bcrypt.
type PasswordHasher struct {
	cost int
}

// NewPasswordHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is out of range.
func NewPasswordHasher(cost int) *PasswordHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordHasher{cost: cost}
}

func (h *PasswordHasher) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Matches reports whether password is the plain text of hash.
func (h *PasswordHasher) Matches(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthService registers and authenticates users.
type AuthService struct {
	userRepo repository.UserRepository
	hasher   *PasswordHasher
	// dummyHash is compared against when the username is unknown so both
	// failure paths cost one bcrypt comparison.
	dummyHash string
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	ImageURL string
}

func NewAuthService(userRepo repository.UserRepository, hasher *PasswordHasher) *AuthService {
	dummy, _ := hasher.Hash("warbler-dummy-password")
	return &AuthService{userRepo: userRepo, hasher: hasher, dummyHash: dummy}
}

// Register creates a user with a hashed password. A taken username or email
// returns an error wrapping models.ErrDuplicateIdentity.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Register",
		attribute.String("user.username", in.Username))
	defer func() {
		observability.EndSpan(span, err)
		observability.AuthEvents.WithLabelValues("signup", outcome(err)).Inc()
	}()

	byName, err := s.userRepo.GetByUsername(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if byName != nil {
		return nil, models.NewConflictError("Username already taken")
	}
	byEmail, err := s.userRepo.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if byEmail != nil {
		return nil, models.NewConflictError("Username already taken")
	}

	hashed, err := s.hasher.Hash(in.Password)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return nil, models.NewValidationError("Password cannot be longer than 72 bytes.")
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user = &models.User{
		Username: in.Username,
		Email:    in.Email,
		Password: hashed,
		ImageURL: in.ImageURL,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	user.Password = ""
	return user, nil
}

// Authenticate returns the user whose username and password match. Unknown
// users and wrong passwords both return an error wrapping models.ErrInvalidCredentials.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (user *models.User, err error) {
	ctx, span := observability.StartServiceSpan(ctx, "AuthService", "Authenticate",
		attribute.String("user.username", username))
	defer func() {
		observability.EndSpan(span, err)
		observability.AuthEvents.WithLabelValues("login", outcome(err)).Inc()
	}()

	user, err = s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		s.hasher.Matches(s.dummyHash, password)
		return nil, models.NewInvalidCredentialsError("Invalid credentials.")
	}
	if !s.hasher.Matches(user.Password, password) {
		return nil, models.NewInvalidCredentialsError("Invalid credentials.")
	}

	user.Password = ""
	return user, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, models.ErrDuplicateIdentity):
		return "conflict"
	case errors.Is(err, models.ErrInvalidCredentials):
		return "invalid"
	default:
		return "error"
	}
}
