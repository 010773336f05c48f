package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"timesup/internal/clock"
	apperrors "timesup/internal/errors"
	"timesup/internal/model"
	"timesup/internal/repository"
)

const (
	tokenIssuer       = "timesup"
	minPasswordLength = 6
)

// AuthService owns accounts and the bearer tokens that scope alarms and
// Pomodoro data to them.
type AuthService struct {
	users     *repository.UserRepository
	pomodoros *repository.PomodoroRepository
	secret    []byte
	ttl       time.Duration
	clock     clock.Clock
}

type AuthOption func(*AuthService)

// WithAuthClock sets the clock used for account timestamps and token expiry.
func WithAuthClock(c clock.Clock) AuthOption {
	return func(s *AuthService) {
		if c != nil {
			s.clock = c
		}
	}
}

func NewAuthService(
	users *repository.UserRepository,
	pomodoros *repository.PomodoroRepository,
	jwtSecret string,
	tokenTTL time.Duration,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		users:     users,
		pomodoros: pomodoros,
		secret:    []byte(jwtSecret),
		ttl:       tokenTTL,
		clock:     clock.Real{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type AuthResult struct {
	Token string     `json:"token"`
	User  model.User `json:"user"`
}

// Register creates the account together with its Pomodoro profile and signs
// it in.
func (s *AuthService) Register(ctx context.Context, email, password string) (*AuthResult, *apperrors.APIError) {
	address, ok := parseEmail(email)
	if !ok {
		return nil, apperrors.BadRequest("invalid_email", "a valid email is required")
	}
	if len(password) < minPasswordLength {
		return nil, apperrors.BadRequest("invalid_password", "password must be at least 6 characters")
	}

	switch _, err := s.users.GetByEmail(ctx, address); {
	case err == nil:
		return nil, emailTaken()
	case !errors.Is(err, repository.ErrNotFound):
		return nil, apperrors.Internal("failed to query user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("failed to secure password")
	}

	now := s.clock.Now().UTC()
	user := model.User{
		ID:           uuid.NewString(),
		Email:        address,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &user); err != nil {
		// Lost a race with a concurrent registration.
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, emailTaken()
		}
		return nil, apperrors.Internal("failed to create user")
	}
	if err := s.pomodoros.CreateInitialProfile(ctx, user.ID); err != nil {
		return nil, apperrors.Internal("failed to initialize pomodoro profile")
	}

	return s.signIn(user)
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, *apperrors.APIError) {
	address, ok := parseEmail(email)
	if !ok || password == "" {
		return nil, apperrors.BadRequest("invalid_credentials", "email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, address)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return nil, badCredentials()
	case err != nil:
		return nil, apperrors.Internal("failed to query user")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, badCredentials()
	}

	return s.signIn(*user)
}

// Me returns the account behind a verified token.
func (s *AuthService) Me(ctx context.Context, userID string) (*model.User, *apperrors.APIError) {
	user, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperrors.Unauthorized("account no longer exists")
	}
	if err != nil {
		return nil, apperrors.Internal("failed to query user")
	}
	user.PasswordHash = ""
	return user, nil
}

// ParseToken verifies a bearer token and returns the user id it was issued to.
func (s *AuthService) ParseToken(tokenString string) (string, *apperrors.APIError) {
	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !token.Valid {
		return "", apperrors.Unauthorized("invalid token")
	}
	if claims.Subject == "" {
		return "", apperrors.Unauthorized("invalid token subject")
	}
	return claims.Subject, nil
}

func (s *AuthService) signIn(user model.User) (*AuthResult, *apperrors.APIError) {
	now := s.clock.Now().UTC()
	claims := jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Subject:   user.ID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, apperrors.Internal("failed to sign token")
	}

	user.PasswordHash = ""
	return &AuthResult{Token: signed, User: user}, nil
}

// parseEmail lowercases a bare address. Display-name forms are rejected.
func parseEmail(email string) (string, bool) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func emailTaken() *apperrors.APIError {
	return apperrors.Conflict("email_exists", "email already registered", nil)
}

func badCredentials() *apperrors.APIError {
	return apperrors.Unauthorized("invalid email or password")
}
