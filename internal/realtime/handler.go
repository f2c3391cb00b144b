package realtime

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type TokenVerifier interface {
	Verify(token string) (auth.Subject, error)
}

// Handler upgrades GET /ws. A valid session token on the handshake binds the
// connection to that user; without one the connection is anonymous and cannot
// register for any room.
func Handler(hub *Hub, tokens TokenVerifier, allowedOrigins []string, log *slog.Logger) gin.HandlerFunc {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = struct{}{}
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			_, ok := allowed[origin]
			return ok
		},
	}

	return func(c *gin.Context) {
		var sub auth.Subject

		if raw := auth.TokenFromRequest(c.Request); raw != "" && tokens != nil {
			s, err := tokens.Verify(raw)
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
					"error": gin.H{
						"code":    "unauthorized",
						"message": "Invalid or expired token",
					},
				})
				return
			}
			sub = s
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// the upgrader has already written the error response
			log.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := newClient(hub, conn, sub.ID, sub.Role, log)
		hub.attach(client)

		go client.writePump()
		go client.readPump()
	}
}
