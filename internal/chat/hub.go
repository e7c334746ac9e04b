package chat

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
)

// Client is a peer connected to the development server.
type Client struct {
	Conn     Conn
	Outgoing chan string
}

// NewClient wraps conn with a buffered outgoing queue.
func NewClient(conn Conn) *Client {
	return &Client{
		Conn:     conn,
		Outgoing: make(chan string, 16),
	}
}

// Hub tracks connected peers and relays text frames between them.
type Hub struct {
	clients map[*Client]bool
	mu      sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*Client]bool),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = true
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients, client)
}

// ClientCount returns number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues msg for every client except sender.
// A client whose queue is full misses the message.
func (h *Hub) Broadcast(msg string, sender *Client) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		if client == sender {
			continue
		}
		select {
		case client.Outgoing <- msg:
		default:
			log.Warn().Str("remote", client.Conn.RemoteAddr()).Msg("client queue full, skipping")
		}
	}
}

// HandleClient reads frames from client until the connection ends and
// broadcasts every text frame. The client is unregistered on return.
func (h *Hub) HandleClient(ctx context.Context, client *Client) {
	defer h.Unregister(client)

	for {
		frame, err := client.Conn.Read(ctx)
		if err != nil {
			if !errors.Is(err, io.EOF) && ctx.Err() == nil {
				log.Debug().Err(err).Str("remote", client.Conn.RemoteAddr()).Msg("read ended")
			}
			return
		}
		if !frame.Text() {
			continue
		}
		log.Debug().Str("remote", client.Conn.RemoteAddr()).Int("bytes", len(frame.Data)).Msg("relaying message")
		h.Broadcast(string(frame.Data), client)
	}
}
