package events

import (
	"context"
	"encoding/json"
	"sync"

	"pawsewa/metrics"

	"github.com/google/uuid"
)

// Client is one realtime connection. Its outbound queue is bounded.
type Client struct {
	ID     string
	UserID uint

	send   chan []byte
	rooms  map[string]struct{}
	closed bool
}

// Outbound is drained by the connection's writer goroutine. It closes on Unregister.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Hub fans events out to the clients joined to each topic.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	buffer  int
	metrics *metrics.Metrics
}

func NewHub(buffer int, m *metrics.Metrics) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		buffer:  buffer,
		metrics: m,
	}
}

// Register creates a client already joined to its own user topic.
func (h *Hub) Register(userID uint) *Client {
	c := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, h.buffer),
		rooms:  make(map[string]struct{}),
	}
	h.Join(c, UserTopic(userID))
	h.metrics.ConnectionOpened()
	return c
}

func (h *Hub) Join(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	room, ok := h.rooms[topic]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[topic] = room
	}
	room[c] = struct{}{}
	c.rooms[topic] = struct{}{}
}

func (h *Hub) Leave(c *Client, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(c, topic)
}

func (h *Hub) leaveLocked(c *Client, topic string) {
	if room, ok := h.rooms[topic]; ok {
		delete(room, c)
		if len(room) == 0 {
			delete(h.rooms, topic)
		}
	}
	delete(c.rooms, topic)
}

// Unregister removes c from every room and closes its queue.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for topic := range c.rooms {
		h.leaveLocked(c, topic)
	}
	c.closed = true
	close(c.send)
	h.metrics.ConnectionClosed()
}

// Members returns how many clients are joined to topic.
func (h *Hub) Members(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[topic])
}

// Publish enqueues e for every client in its topic. A full client queue drops the frame.
func (h *Hub) Publish(_ context.Context, e Event) error {
	frame, err := json.Marshal(e)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.rooms[e.Topic] {
		h.enqueue(c, frame)
	}
	return nil
}

// Direct sends e to one client only, regardless of rooms.
func (h *Hub) Direct(c *Client, e Event) error {
	frame, err := json.Marshal(e)
	if err != nil {
		return err
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if !c.closed {
		h.enqueue(c, frame)
	}
	return nil
}

func (h *Hub) enqueue(c *Client, frame []byte) {
	select {
	case c.send <- frame:
	default:
		h.metrics.BroadcastDropped()
	}
}
