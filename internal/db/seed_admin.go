package db

import (
	"context"
	"errors"

	"github.com/geocoder89/agencysite/internal/config"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/security"
)

type AdminStore interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	Create(ctx context.Context, u user.NewUser) (user.User, error)
}

// EnsureAdminUser creates the configured admin account once. It is a no-op
// when ADMIN_EMAIL or ADMIN_PASSWORD is unset, or when the email already exists.
func EnsureAdminUser(ctx context.Context, users AdminStore, cfg config.Config) (bool, error) {
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return false, nil
	}

	// check if the user exists
	_, err := users.GetByEmail(ctx, cfg.AdminEmail)

	if err == nil {
		return false, nil
	}

	if !errors.Is(err, user.ErrNotFound) {
		return false, err
	}

	hash, err := security.HashPassword(cfg.AdminPassword)

	if err != nil {
		return false, err
	}

	_, err = users.Create(ctx, user.NewUser{
		Email:        user.NormalizeEmail(cfg.AdminEmail),
		PasswordHash: hash,
		FullName:     cfg.AdminName,
		Role:         user.RoleAdmin,
	})

	// lost a race with another instance
	if errors.Is(err, user.ErrEmailTaken) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}
