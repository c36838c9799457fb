package http

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Hub is the connection registry and room-scoped broadcast group. It
// implements app.Notifier. Each registered channel gets a buffered outbound
// queue drained by that connection's writer goroutine; when a queue is full
// the oldest message is dropped so one slow client never blocks the game.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*hubClient
	rooms   map[string]map[string]struct{}
}

type hubClient struct {
	send   chan outboundMessage
	closed bool
}

func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*hubClient),
		rooms:   make(map[string]map[string]struct{}),
	}
}

// Register adds a channel and returns its outbound queue.
func (h *Hub) Register(channelID string) <-chan outboundMessage {
	h.mu.Lock()
	defer h.mu.Unlock()
	c := &hubClient{send: make(chan outboundMessage, 32)}
	h.clients[channelID] = c
	return c.send
}

// Unregister closes the channel's queue and removes it from every room
// group. The room documents keep the channel ID; a reconnect re-attaches.
func (h *Hub) Unregister(channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[channelID]
	if !ok {
		return
	}
	c.closed = true
	close(c.send)
	delete(h.clients, channelID)
	for _, members := range h.rooms {
		delete(members, channelID)
	}
}

// JoinRoom adds the channel to a room's broadcast group.
func (h *Hub) JoinRoom(roomCode, channelID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[roomCode]
	if !ok {
		members = make(map[string]struct{})
		h.rooms[roomCode] = members
	}
	members[channelID] = struct{}{}
}

// ToChannel queues an event for a single connection.
func (h *Hub) ToChannel(channelID, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	h.deliverLocked(channelID, outboundMessage{Type: event, Payload: payload})
}

// ToRoom queues an event for every connection grouped under the room.
func (h *Hub) ToRoom(roomCode, event string, payload any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	msg := outboundMessage{Type: event, Payload: payload}
	for channelID := range h.rooms[roomCode] {
		h.deliverLocked(channelID, msg)
	}
}

func (h *Hub) deliverLocked(channelID string, msg outboundMessage) {
	c, ok := h.clients[channelID]
	if !ok || c.closed {
		return
	}
	select {
	case c.send <- msg:
	default:
		// Queue full: drop the oldest message to make room.
		select {
		case <-c.send:
		default:
		}
		select {
		case c.send <- msg:
		default:
			log.Warn().Str("channel", channelID).Str("event", msg.Type).Msg("outbound queue full, dropping event")
		}
	}
}
