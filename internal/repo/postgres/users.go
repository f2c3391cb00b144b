package postgres

import (
	"context"
	"errors"

	"github.com/geocoder89/agencysite/internal/db"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/observability"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const userColumns = `id, email, password_hash, fullname, lastname, role, department, position, created_at`

type UsersRepo struct {
	base
}

func NewUsersRepo(conn db.DB, prom *observability.Prom) *UsersRepo {
	return &UsersRepo{base{conn: conn, prom: prom}}
}

func (r *UsersRepo) Create(ctx context.Context, in user.NewUser) (user.User, error) {
	u := user.User{
		ID:           uuid.NewString(),
		Email:        user.NormalizeEmail(in.Email),
		PasswordHash: in.PasswordHash,
		FullName:     in.FullName,
		LastName:     in.LastName,
		Role:         in.Role,
		Department:   in.Department,
		Position:     in.Position,
	}

	err := r.observe("users.create", func() error {
		return r.conn.QueryRow(ctx,
			`INSERT INTO users (id, email, password_hash, fullname, lastname, role, department, position)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 RETURNING created_at`,
			u.ID, u.Email, u.PasswordHash, u.FullName, u.LastName, u.Role, u.Department, u.Position,
		).Scan(&u.CreatedAt)
	})

	if err != nil {
		if IsUniqueViolation(err) {
			return user.User{}, user.ErrEmailTaken
		}
		return user.User{}, err
	}

	return u, nil
}

func (r *UsersRepo) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User

	err := r.observe("users.get_by_email", func() error {
		row := r.conn.QueryRow(ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE lower(email) = $1`,
			user.NormalizeEmail(email),
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func (r *UsersRepo) GetByID(ctx context.Context, id string) (user.User, error) {
	if !validID(id) {
		return user.User{}, user.ErrNotFound
	}

	var u user.User

	err := r.observe("users.get_by_id", func() error {
		row := r.conn.QueryRow(ctx,
			`SELECT `+userColumns+`
			 FROM users
			 WHERE id = $1`,
			id,
		)
		return scanUser(row, &u)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return user.User{}, user.ErrNotFound
		}

		return user.User{}, err
	}
	return u, nil
}

func scanUser(row pgx.Row, u *user.User) error {
	return row.Scan(
		&u.ID,
		&u.Email,
		&u.PasswordHash,
		&u.FullName,
		&u.LastName,
		&u.Role,
		&u.Department,
		&u.Position,
		&u.CreatedAt,
	)
}
