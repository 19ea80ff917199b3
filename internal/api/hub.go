package api

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// ValueMessage is broadcast on every value written through the REST
// write endpoint; values the sync engine adopts from an external source
// are not broadcast. It is the live-feed analogue of the original's
// sine_receiver.py/time_client.py streaming demos.
type ValueMessage struct {
	QualifiedName string      `json:"qualified_name"`
	Value         interface{} `json:"value"`
	Timestamp     time.Time   `json:"timestamp"`
}

// Client is one connected live-feed subscriber.
type Client struct {
	ID   string
	Conn *websocket.Conn
	Send chan ValueMessage
}

// Hub maintains the set of active live-feed clients and fans out value
// updates to all of them, following the teacher's register/unregister/
// broadcast channel pattern.
type Hub struct {
	clients    map[string]*Client
	broadcast  chan ValueMessage
	register   chan *Client
	unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates an empty live-feed hub; callers must run Run in a
// goroutine before clients can connect.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		broadcast:  make(chan ValueMessage, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives the hub's main loop until stop is closed.
func (h *Hub) Run(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ID] = client
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client.ID]; ok {
				delete(h.clients, client.ID)
				close(client.Send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients {
				select {
				case client.Send <- msg:
				default:
				}
			}
			h.mu.RUnlock()
		}
	}
}

// Broadcast queues a value update for delivery to every connected client.
func (h *Hub) Broadcast(qualifiedName string, v interface{}) {
	h.broadcast <- ValueMessage{QualifiedName: qualifiedName, Value: v, Timestamp: time.Now()}
}

// ClientCount reports the number of connected live-feed subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleConn registers c with the hub and pumps messages until the
// connection closes.
func (h *Hub) HandleConn(c *websocket.Conn) {
	client := &Client{
		ID:   fmt.Sprintf("client-%d", time.Now().UnixNano()),
		Conn: c,
		Send: make(chan ValueMessage, 256),
	}
	h.register <- client

	go client.writePump()
	client.readPump(h)
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.unregister <- c
		c.Conn.Close()
	}()
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(30 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send:
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				continue
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
