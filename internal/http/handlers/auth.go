package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/geocoder89/agencysite/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type AuthService interface {
	Register(ctx context.Context, req user.RegisterRequest) (auth.Session, error)
	Login(ctx context.Context, req user.LoginRequest) (auth.Session, error)
	CreateStaff(ctx context.Context, req user.StaffRequest) (user.User, error)
	Profile(ctx context.Context, id string) (user.User, error)
}

type AuthHandler struct {
	svc          AuthService
	tokenTTL     time.Duration
	secureCookie bool
}

func NewAuthHandler(svc AuthService, tokenTTL time.Duration, secureCookie bool) *AuthHandler {
	return &AuthHandler{
		svc:          svc,
		tokenTTL:     tokenTTL,
		secureCookie: secureCookie,
	}
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.RegisterRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	sess, err := h.svc.Register(cctx, req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondError(ctx, http.StatusBadRequest, "email_taken", "User already exists. Please login.", nil)
		case errors.Is(err, auth.ErrMissingFields):
			RespondBadRequest(ctx, "All fields are required", nil)
		case errors.Is(err, auth.ErrWeakPassword):
			RespondError(ctx, http.StatusBadRequest, "weak_password", "Password must be at least 6 characters.", nil)
		case errors.Is(err, auth.ErrPasswordTooLong):
			RespondError(ctx, http.StatusBadRequest, "password_too_long", "Password must be at most 72 bytes.", nil)
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	h.setTokenCookie(ctx, sess.Token)

	ctx.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully.",
		"token":   sess.Token,
	})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.LoginRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	sess, err := h.svc.Login(cctx, req)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			RespondError(ctx, http.StatusBadRequest, "invalid_credentials", "Invalid credentials", nil)
		case errors.Is(err, auth.ErrMissingFields):
			RespondBadRequest(ctx, "All fields are required", nil)
		default:
			RespondInternal(ctx, "Could not log in")
		}
		return
	}

	h.setTokenCookie(ctx, sess.Token)

	ctx.JSON(http.StatusOK, gin.H{
		"message": "User logged in successfully",
		"token":   sess.Token,
		"role":    sess.User.Role,
	})
}

// Logout only clears the cookie. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(auth.CookieName, "", -1, "/", "", h.secureCookie, true)

	ctx.JSON(http.StatusOK, gin.H{"message": "User logged out successfully"})
}

func (h *AuthHandler) Me(ctx *gin.Context) {
	id, ok := middlewares.UserIDFromContext(ctx)
	if !ok {
		RespondUnauthorized(ctx, "unauthorized", "Missing identity context")
		return
	}

	u, err := h.svc.Profile(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "User not found")
			return
		}
		RespondInternal(ctx, "Could not load profile")
		return
	}

	ctx.JSON(http.StatusOK, u)
}

func (h *AuthHandler) CreateStaff(ctx *gin.Context) {
	var req user.StaffRequest

	if !BindJSON(ctx, &req) {
		return
	}

	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 5*time.Second)
	defer cancel()

	u, err := h.svc.CreateStaff(cctx, req)
	if err != nil {
		switch {
		case errors.Is(err, user.ErrEmailTaken):
			RespondConflict(ctx, "email_taken", "Email is already in use.")
		case errors.Is(err, user.ErrUnknownRole), errors.Is(err, auth.ErrWeakPassword),
			errors.Is(err, auth.ErrPasswordTooLong), errors.Is(err, auth.ErrMissingFields):
			RespondBadRequest(ctx, err.Error(), nil)
		default:
			RespondInternal(ctx, "Could not create user")
		}
		return
	}

	ctx.JSON(http.StatusCreated, u)
}

func (h *AuthHandler) setTokenCookie(ctx *gin.Context, token string) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(auth.CookieName, token, int(h.tokenTTL.Seconds()), "/", "", h.secureCookie, true)
}
