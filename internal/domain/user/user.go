package user

import (
	"errors"
	"strings"
	"time"
)

type Role string

const (
	RoleUser    Role = "user"
	RoleAdmin   Role = "admin"
	RoleWorker  Role = "worker"
	RoleManager Role = "manager"
)

var (
	ErrNotFound    = errors.New("user not found")
	ErrEmailTaken  = errors.New("email already in use")
	ErrUnknownRole = errors.New("unknown role")
)

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never expose hash in JSON
	FullName     string    `json:"fullname"`
	LastName     string    `json:"lastname,omitempty"`
	Role         Role      `json:"role"`
	Department   string    `json:"department,omitempty"`
	Position     string    `json:"position,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Roles lists every accepted role, in the order used by the "role" binding rule.
func Roles() []Role {
	return []Role{RoleUser, RoleAdmin, RoleWorker, RoleManager}
}

// ParseRole is the only way a role enters the system from the outside.
func ParseRole(raw string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range Roles() {
		if r == known {
			return r, nil
		}
	}
	return "", ErrUnknownRole
}

func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// NormalizeEmail is applied before every store write and lookup so that
// uniqueness is case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// RegisterRequest has no role field: self-registration always yields RoleUser.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"fullname" binding:"required,max=120"`
	LastName string `json:"lastname" binding:"omitempty,max=120"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// StaffRequest is the admin-only way to create an account with a chosen role.
type StaffRequest struct {
	Email      string `json:"email" binding:"required,email"`
	FullName   string `json:"fullname" binding:"required,max=120"`
	LastName   string `json:"lastname" binding:"omitempty,max=120"`
	Password   string `json:"password" binding:"required,min=6,max=72"`
	Role       string `json:"role" binding:"required,role"`
	Department string `json:"department" binding:"omitempty,max=120"`
	Position   string `json:"position" binding:"omitempty,max=120"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// NewUser is what the credential service hands to the store.
type NewUser struct {
	Email        string
	PasswordHash string
	FullName     string
	LastName     string
	Role         Role
	Department   string
	Position     string
}
