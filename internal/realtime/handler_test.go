package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/geocoder89/agencysite/internal/auth"
	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newWSServer(t *testing.T, hub *Hub, tokens TokenVerifier) string {
	t.Helper()
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.GET("/ws", Handler(hub, tokens, []string{"http://localhost:5173"}, testLogger()))

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string, header http.Header) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func bearerFor(t *testing.T, tokens *auth.Manager, sub auth.Subject) http.Header {
	t.Helper()

	token, _, err := tokens.Issue(sub)
	require.NoError(t, err)
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

func TestHandler_RegisterThenReceive(t *testing.T) {
	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	hub := NewHub(testLogger(), nil)
	conn := dial(t, newWSServer(t, hub, tokens), bearerFor(t, tokens, auth.Subject{ID: "user-42", Role: user.RoleUser}))

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "register", "data": "user-42"}))

	ack := readEnvelope(t, conn)
	assert.Equal(t, EventRegistered, ack.Event)
	assert.JSONEq(t, `"user-42"`, string(ack.Data))

	require.Equal(t, 1, hub.Publish("user-42", "newNotification", map[string]string{"message": "hi"}))

	got := readEnvelope(t, conn)
	assert.Equal(t, "newNotification", got.Event)
	assert.JSONEq(t, `{"message":"hi"}`, string(got.Data))
}

func TestHandler_AuthenticatedConnectionCannotJoinForeignRoom(t *testing.T) {
	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	hub := NewHub(testLogger(), nil)
	conn := dial(t, newWSServer(t, hub, tokens), bearerFor(t, tokens, auth.Subject{ID: "user-1", Role: user.RoleUser}))

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "register", "data": "user-2"}))

	reply := readEnvelope(t, conn)
	assert.Equal(t, EventError, reply.Event)
	assert.Equal(t, 0, hub.RoomSize("user-2"))
}

func TestHandler_AnonymousConnectionCannotRegister(t *testing.T) {
	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	hub := NewHub(testLogger(), nil)
	conn := dial(t, newWSServer(t, hub, tokens), nil)

	require.NoError(t, conn.WriteJSON(map[string]any{"event": "register", "data": "user-42"}))

	reply := readEnvelope(t, conn)
	assert.Equal(t, EventError, reply.Event)
	assert.JSONEq(t, `"`+ErrAuthRequired.Error()+`"`, string(reply.Data))
	assert.Equal(t, 0, hub.RoomSize("user-42"))
	assert.Equal(t, 0, hub.Publish("user-42", "newNotification", map[string]string{"message": "hi"}))
}

func TestHandler_RejectsInvalidToken(t *testing.T) {
	tokens, err := auth.NewManager("test-secret", time.Hour)
	require.NoError(t, err)

	url := newWSServer(t, NewHub(testLogger(), nil), tokens)

	header := http.Header{"Authorization": []string{"Bearer not-a-token"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestHandler_RejectsUnknownOrigin(t *testing.T) {
	url := newWSServer(t, NewHub(testLogger(), nil), nil)

	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
