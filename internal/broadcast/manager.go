package broadcast

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client is one websocket connection watching one auction.
type Client struct {
	ID        string
	AuctionID string
	Conn      *websocket.Conn
	Send      chan []byte
}

// Manager tracks which clients watch which auction and fans incoming feed
// messages out to them.
type Manager struct {
	mu          sync.RWMutex
	subscribers map[string]map[*Client]struct{} // auctionID -> clients

	register   chan *Client
	unregister chan *Client
	broadcast  chan *Message

	logger *slog.Logger
}

// NewManager creates a manager. Call Run in a goroutine before
// registering clients.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		subscribers: make(map[string]map[*Client]struct{}),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		broadcast:   make(chan *Message, 256),
		logger:      logger,
	}
}

// Run drives the connection lifecycle and fan-out loop.
func (m *Manager) Run() {
	for {
		select {
		case client := <-m.register:
			m.add(client)
		case client := <-m.unregister:
			m.remove(client)
		case msg := <-m.broadcast:
			m.fanOut(msg)
		}
	}
}

// RegisterClient attaches a client and starts its write pump.
func (m *Manager) RegisterClient(client *Client) {
	m.register <- client
}

// UnregisterClient detaches a client and closes its connection.
func (m *Manager) UnregisterClient(client *Client) {
	m.unregister <- client
}

// Broadcast queues a feed message for fan-out.
func (m *Manager) Broadcast(msg *Message) {
	m.broadcast <- msg
}

// SubscriberCount returns how many clients watch an auction.
func (m *Manager) SubscriberCount(auctionID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscribers[auctionID])
}

func (m *Manager) add(client *Client) {
	m.mu.Lock()
	clients, ok := m.subscribers[client.AuctionID]
	if !ok {
		clients = make(map[*Client]struct{})
		m.subscribers[client.AuctionID] = clients
	}
	clients[client] = struct{}{}
	m.mu.Unlock()

	m.logger.Debug("feed client connected", "client_id", client.ID, "auction_id", client.AuctionID)
	go client.writePump()
}

func (m *Manager) remove(client *Client) {
	m.mu.Lock()
	if clients, ok := m.subscribers[client.AuctionID]; ok {
		if _, present := clients[client]; present {
			delete(clients, client)
			close(client.Send)
		}
		if len(clients) == 0 {
			delete(m.subscribers, client.AuctionID)
		}
	}
	m.mu.Unlock()

	client.Conn.Close()
	m.logger.Debug("feed client disconnected", "client_id", client.ID, "auction_id", client.AuctionID)
}

func (m *Manager) fanOut(msg *Message) {
	m.mu.RLock()
	clients := make([]*Client, 0, len(m.subscribers[msg.AuctionID]))
	for client := range m.subscribers[msg.AuctionID] {
		clients = append(clients, client)
	}
	m.mu.RUnlock()

	for _, client := range clients {
		select {
		case client.Send <- msg.Payload:
		default:
			// Slow client; drop it rather than stall the feed.
			go m.UnregisterClient(client)
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(54 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump drains client frames so pings are answered and disconnects are
// noticed.
func (c *Client) readPump(unregister func(*Client)) {
	defer unregister(c)

	c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// StartReadPump starts the read pump for this client.
func (c *Client) StartReadPump(unregister func(*Client)) {
	go c.readPump(unregister)
}
