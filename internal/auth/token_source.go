package auth

import (
	"net/http"
	"strings"
)

// CookieName is the HTTP-only cookie the session token travels in.
const CookieName = "token"

// TokenFromRequest returns the session token carried by r: the cookie first,
// then an "Authorization: Bearer" header. It returns "" when neither is set.
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return strings.TrimSpace(c.Value)
	}

	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
