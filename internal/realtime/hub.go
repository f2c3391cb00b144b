package realtime

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Publisher is what request handlers emit realtime events through.
type Publisher interface {
	Publish(room, event string, payload any) int
}

// Observer receives hub activity, typically for metrics.
type Observer interface {
	ConnOpened()
	ConnClosed()
	Published(event string, delivered, dropped int)
}

type noopObserver struct{}

func (noopObserver) ConnOpened()                {}
func (noopObserver) ConnClosed()                {}
func (noopObserver) Published(string, int, int) {}

// Envelope is the frame exchanged in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Hub tracks which connections are in which room. Delivery is at most once:
// a message is handed to each member's buffer, and members whose buffer is
// full miss it.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}

	obs Observer
	log *slog.Logger
}

func NewHub(log *slog.Logger, obs Observer) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if obs == nil {
		obs = noopObserver{}
	}

	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		obs:     obs,
		log:     log,
	}
}

// attach registers a connection that has not joined any room yet.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.members[c] = make(map[string]struct{})
	h.mu.Unlock()

	h.obs.ConnOpened()
}

// Join adds c to room. Joining the same room twice is a no-op.
func (h *Hub) Join(c *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	joined, ok := h.members[c]
	if !ok {
		// already left
		return
	}

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	joined[room] = struct{}{}
}

// Leave removes c from every room and closes its outbound buffer. It is safe
// to call more than once.
func (h *Hub) Leave(c *Client) {
	h.mu.Lock()

	joined, ok := h.members[c]
	if !ok {
		h.mu.Unlock()
		return
	}

	for room := range joined {
		delete(h.rooms[room], c)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}
	delete(h.members, c)
	close(c.send)

	h.mu.Unlock()

	h.obs.ConnClosed()
}

// Publish sends event to every connection in room and returns how many
// buffers accepted it. An empty room yields 0.
func (h *Hub) Publish(room, event string, payload any) int {
	data, err := json.Marshal(payload)
	if err != nil {
		h.log.Error("realtime payload encode failed", "event", event, "err", err)
		return 0
	}

	frame, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		h.log.Error("realtime frame encode failed", "event", event, "err", err)
		return 0
	}

	delivered, dropped := 0, 0

	h.mu.RLock()
	for c := range h.rooms[room] {
		select {
		case c.send <- frame:
			delivered++
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	if dropped > 0 {
		h.log.Warn("realtime message dropped for slow connections",
			"event", event,
			"room", room,
			"dropped", dropped,
		)
	}

	h.obs.Published(event, delivered, dropped)

	return delivered
}

// RoomSize reports how many connections are in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
