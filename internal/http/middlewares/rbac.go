package middlewares

import (
	"net/http"

	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole lets the request through when the authenticated role is one of
// roles. It must run after RequireAuth.
func (m *AuthMiddleware) RequireRole(roles ...user.Role) gin.HandlerFunc {
	allowed := make(map[user.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, ok := RoleFromContext(c)

		if !ok {
			abortError(c, http.StatusUnauthorized, "unauthorized", "Missing identity context")
			return
		}
		if _, ok := allowed[role]; !ok {
			abortError(c, http.StatusForbidden, "forbidden", "Access denied. Insufficient role")
			return
		}
		c.Next()
	}
}
