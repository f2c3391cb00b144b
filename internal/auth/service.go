package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/security"
)

var (
	ErrMissingFields      = errors.New("all fields are required")
	ErrWeakPassword       = fmt.Errorf("password must be at least %d characters", security.MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("password must be at most %d bytes", security.MaxPasswordBytes)
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type UserStore interface {
	Create(ctx context.Context, u user.NewUser) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
}

// Session is what a successful register or login hands back to the caller.
type Session struct {
	User  user.User
	Token string
}

type Service struct {
	users  UserStore
	tokens *Manager
}

func NewService(users UserStore, tokens *Manager) *Service {
	return &Service{users: users, tokens: tokens}
}

func (s *Service) Tokens() *Manager {
	return s.tokens
}

// Register creates a user with RoleUser and opens a session for it.
func (s *Service) Register(ctx context.Context, req user.RegisterRequest) (Session, error) {
	email := user.NormalizeEmail(req.Email)
	fullName := strings.TrimSpace(req.FullName)

	if email == "" || fullName == "" || req.Password == "" {
		return Session{}, ErrMissingFields
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return Session{}, user.ErrEmailTaken
	case !errors.Is(err, user.ErrNotFound):
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := checkPassword(req.Password); err != nil {
		return Session{}, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	// the unique index still catches a concurrent duplicate as ErrEmailTaken
	u, err := s.users.Create(ctx, user.NewUser{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		LastName:     strings.TrimSpace(req.LastName),
		Role:         user.RoleUser,
	})
	if err != nil {
		return Session{}, err
	}

	return s.open(u)
}

// CreateStaff creates an account with the requested role. Callers must have
// checked that the actor is an admin.
func (s *Service) CreateStaff(ctx context.Context, req user.StaffRequest) (user.User, error) {
	role, err := user.ParseRole(req.Role)
	if err != nil {
		return user.User{}, err
	}

	email := user.NormalizeEmail(req.Email)
	fullName := strings.TrimSpace(req.FullName)

	if email == "" || fullName == "" || req.Password == "" {
		return user.User{}, ErrMissingFields
	}
	if err := checkPassword(req.Password); err != nil {
		return user.User{}, err
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return user.User{}, fmt.Errorf("hash password: %w", err)
	}

	return s.users.Create(ctx, user.NewUser{
		Email:        email,
		PasswordHash: hash,
		FullName:     fullName,
		LastName:     strings.TrimSpace(req.LastName),
		Role:         role,
		Department:   strings.TrimSpace(req.Department),
		Position:     strings.TrimSpace(req.Position),
	})
}

// Login never tells the caller which of email or password was wrong.
func (s *Service) Login(ctx context.Context, req user.LoginRequest) (Session, error) {
	email := user.NormalizeEmail(req.Email)

	if email == "" || req.Password == "" {
		return Session{}, ErrMissingFields
	}

	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn the same bcrypt time as a real comparison
			_, _ = security.VerifyPassword(req.Password, dummyHash())
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(req.Password, u.PasswordHash)
	if err != nil {
		return Session{}, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return Session{}, ErrInvalidCredentials
	}

	return s.open(u)
}

func checkPassword(pw string) error {
	switch err := security.CheckPasswordLength(pw); {
	case errors.Is(err, security.ErrPasswordTooShort):
		return ErrWeakPassword
	case errors.Is(err, security.ErrPasswordTooLong):
		return ErrPasswordTooLong
	default:
		return err
	}
}

func (s *Service) Profile(ctx context.Context, id string) (user.User, error) {
	return s.users.GetByID(ctx, id)
}

func (s *Service) open(u user.User) (Session, error) {
	token, _, err := s.tokens.Issue(Subject{ID: u.ID, Role: u.Role})
	if err != nil {
		return Session{}, fmt.Errorf("issue token: %w", err)
	}
	return Session{User: u, Token: token}, nil
}

var (
	dummyOnce sync.Once
	dummy     string
)

func dummyHash() string {
	dummyOnce.Do(func() {
		dummy, _ = security.HashPassword("timing-equaliser-not-a-password")
	})
	return dummy
}
