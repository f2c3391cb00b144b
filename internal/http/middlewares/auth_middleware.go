package middlewares

import (
	"net/http"

	"github.com/geocoder89/agencysite/internal/actorctx"
	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// Keep this small interface so tests can fake it easily.
type TokenVerifier interface {
	Verify(token string) (auth.Subject, error)
}

type AuthMiddleware struct {
	jwt TokenVerifier
}

func NewAuthMiddleware(jwt TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{jwt: jwt}
}

// RequireAuth accepts the session token from the "token" cookie or a Bearer
// header and rejects the request with 401 otherwise.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := auth.TokenFromRequest(c.Request)
		if raw == "" {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Access denied. No token provided")
			return
		}

		sub, err := m.jwt.Verify(raw)
		if err != nil {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
			return
		}

		// Stash identity on both the gin context and the request context
		c.Set(CtxUserID, sub.ID)
		c.Set(CtxRole, sub.Role)

		ctx := actorctx.With(c.Request.Context(), actorctx.Actor{UserID: sub.ID, Role: sub.Role})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Optional helpers so handlers don't need to know the magic keys.

func UserIDFromContext(c *gin.Context) (string, bool) {
	v, ok := c.Get(CtxUserID)
	if !ok {
		return "", false
	}
	id, ok := v.(string)
	return id, ok && id != ""
}

func RoleFromContext(c *gin.Context) (user.Role, bool) {
	v, ok := c.Get(CtxRole)
	if !ok {
		return "", false
	}
	role, ok := v.(user.Role)
	return role, ok && role != ""
}
