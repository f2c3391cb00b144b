package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/geocoder89/agencysite/internal/domain/user"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 16
)

// Client events.
const (
	EventRegister   = "register"
	EventRegistered = "registered"
	EventError      = "error"
)

var (
	ErrAuthRequired = errors.New("register requires a session token")
	ErrForeignRoom  = errors.New("cannot register for another user's notifications")
)

// Client is one websocket connection. Frames for it are queued in send and
// written by writePump; readPump handles what the peer sends.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	// userID and role are set when the handshake carried a valid token.
	userID string
	role   user.Role

	log *slog.Logger
}

func newClient(hub *Hub, conn *websocket.Conn, userID string, role user.Role, log *slog.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		role:   role,
		log:    log,
	}
}

// joinErr reports why this connection may not listen on room, or nil. Only
// authenticated connections join, and only their own room unless admin.
func (c *Client) joinErr(room string) error {
	switch {
	case c.userID == "":
		return ErrAuthRequired
	case room != c.userID && c.role != user.RoleAdmin:
		return ErrForeignRoom
	default:
		return nil
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Leave(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Debug("websocket read failed", "err", err)
			}
			return
		}

		c.handle(env)
	}
}

func (c *Client) handle(env Envelope) {
	switch env.Event {
	case EventRegister:
		var room string
		if err := json.Unmarshal(env.Data, &room); err != nil || room == "" {
			c.reply(EventError, "register expects a user id")
			return
		}

		if err := c.joinErr(room); err != nil {
			c.reply(EventError, err.Error())
			return
		}

		c.hub.Join(c, room)
		c.log.Debug("websocket registered", "room", room)
		c.reply(EventRegistered, room)

	default:
		c.reply(EventError, "unknown event")
	}
}

// reply queues a frame for this connection only; it is dropped if the
// buffer is full.
func (c *Client) reply(event string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return
	}

	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()

	// send is closed once the client has left the hub
	if _, ok := c.hub.members[c]; !ok {
		return
	}

	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
