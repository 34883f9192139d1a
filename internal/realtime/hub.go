// Package realtime delivers notification envelopes to open websockets.
package realtime

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Client is one open socket. A user may hold several.
type Client struct {
	ID     string
	UserID uuid.UUID
	Role   string
	Conn   *WebSocketConn
	Send   chan []byte
}

func (c *Client) isStaff() bool {
	return c.Role == "admin" || c.Role == "manager"
}

type Hub struct {
	byUser     map[uuid.UUID]map[string]*Client
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		byUser:     make(map[uuid.UUID]map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

func (h *Hub) RegisterClient(client *Client) {
	h.register <- client
}

func (h *Hub) UnregisterClient(client *Client) {
	h.unregister <- client
}

// deliver never blocks; a full buffer means the socket is too slow and the
// frame is dropped.
func deliver(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		log.Printf("[Hub] dropping frame for slow client %s", c.ID)
	}
}

// SendRaw pushes an already encoded frame to every socket of userID on this instance.
func (h *Hub) SendRaw(userID uuid.UUID, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.byUser[userID] {
		deliver(c, payload)
	}
}

func (h *Hub) SendToUser(userID uuid.UUID, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Hub] marshal payload for %s: %v", userID, err)
		return
	}
	h.SendRaw(userID, payload)
}

// SendToStaff reaches every connected admin or manager.
func (h *Hub) SendToStaff(data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		log.Printf("[Hub] marshal staff payload: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sockets := range h.byUser {
		for _, c := range sockets {
			if c.isStaff() {
				deliver(c, payload)
			}
		}
	}
}

// Connected returns the number of open sockets.
func (h *Hub) Connected() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sockets := range h.byUser {
		n += len(sockets)
	}
	return n
}

func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			if h.byUser[c.UserID] == nil {
				h.byUser[c.UserID] = make(map[string]*Client)
			}
			h.byUser[c.UserID][c.ID] = c
			h.mu.Unlock()
			log.Printf("[Hub] socket %s opened for user %s", c.ID, c.UserID)

		case c := <-h.unregister:
			h.mu.Lock()
			if sockets, ok := h.byUser[c.UserID]; ok {
				if old, ok := sockets[c.ID]; ok {
					delete(sockets, c.ID)
					close(old.Send)
					log.Printf("[Hub] socket %s closed", c.ID)
				}
				if len(sockets) == 0 {
					delete(h.byUser, c.UserID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Relay feeds notifications published by any instance into local sockets.
// It returns when ctx is cancelled or the subscription breaks.
func (h *Hub) Relay(ctx context.Context, rdb *redis.Client) error {
	sub := rdb.PSubscribe(ctx, NotificationChannel("*"))
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	log.Printf("[Hub] relaying %s", NotificationChannel("*"))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			userID, err := uuid.Parse(strings.TrimPrefix(msg.Channel, NotificationChannel("")))
			if err != nil {
				log.Printf("[Hub] ignoring message on %s", msg.Channel)
				continue
			}
			h.SendRaw(userID, []byte(msg.Payload))
		}
	}
}
