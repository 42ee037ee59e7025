package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"sysfinance/internal/auth"
	"sysfinance/internal/core"
	"sysfinance/internal/ledger"
	applog "sysfinance/internal/log"
)

// ErrInvalidCredentials is returned for an unknown email or a wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

// LoginResult is what a successful login hands back to the client.
type LoginResult struct {
	Token      string           `json:"token"`
	ExpiresAt  time.Time        `json:"expires_at"`
	User       core.User        `json:"user"`
	Generation GenerationResult `json:"recurring"`
}

// AuthService registers users and logs them in. Every login runs the
// recurring generator before the token is issued.
type AuthService struct {
	users     ledger.UserRepository
	tokens    *auth.TokenService
	generator *RecurringGenerator
	now       func() time.Time
}

func NewAuthService(users ledger.UserRepository, tokens *auth.TokenService, generator *RecurringGenerator) *AuthService {
	return &AuthService{users: users, tokens: tokens, generator: generator, now: time.Now}
}

// RegisterInput creates an account.
type RegisterInput struct {
	Email         string
	Password      string
	FullName      string
	MonthlySalary core.Money
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (core.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return core.User{}, fmt.Errorf("%w: invalid email", core.ErrInvalidInput)
	}
	if in.MonthlySalary.Cents < 0 {
		return core.User{}, fmt.Errorf("%w: salary cannot be negative", core.ErrInvalidInput)
	}
	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return core.User{}, err
	}

	u := core.User{
		Email:         email,
		PasswordHash:  hash,
		FullName:      strings.TrimSpace(in.FullName),
		MonthlySalary: in.MonthlySalary,
	}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		return core.User{}, err
	}
	slog.InfoContext(ctx, "User registered", applog.FieldUserID, u.ID)
	return u, nil
}

// Login verifies the credentials, generates this month's recurring
// transactions and issues a token. Generation problems never fail a login.
func (s *AuthService) Login(ctx context.Context, email, password string) (LoginResult, error) {
	u, err := s.users.GetUserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return LoginResult{}, ErrInvalidCredentials
	}
	if err != nil {
		return LoginResult{}, err
	}
	if err := auth.VerifyPassword(u.PasswordHash, password); err != nil {
		slog.WarnContext(ctx, "Login rejected", applog.FieldUserID, u.ID)
		return LoginResult{}, ErrInvalidCredentials
	}

	var gen GenerationResult
	if s.generator != nil {
		gen = s.generator.GenerateSafely(ctx, u.ID, s.now())
	}

	token, exp, err := s.tokens.GenerateToken(u.ID)
	if err != nil {
		return LoginResult{}, err
	}
	slog.InfoContext(ctx, "User logged in",
		applog.FieldUserID, u.ID,
		"generated", len(gen.Created))
	return LoginResult{Token: token, ExpiresAt: exp, User: u, Generation: gen}, nil
}

func (s *AuthService) Me(ctx context.Context, userID int64) (core.User, error) {
	return s.users.GetUser(ctx, userID)
}
