package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"fieldops-backend/internal/models"

	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 2048
)

// LocationUpdater is the slice of the dispatcher the socket needs for
// inbound location_update messages.
type LocationUpdater interface {
	UpdateLocation(ctx context.Context, agentID string, latitude, longitude float64, accuracy *float64) (*models.LocationHistory, error)
}

// Client represents one WebSocket connection. An agent may hold several at
// once (multiple devices); each joins the same group independently.
type Client struct {
	UserID   string
	UserRole string // "agent" or "manager"
	conn     *websocket.Conn
	hub      *Hub
	send     chan []byte
	done     chan struct{}
	doneOnce sync.Once
	ledger   LocationUpdater
}

// inboundMessage is one JSON frame from the peer.
type inboundMessage struct {
	Type      string   `json:"type"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty"`
}

// NewClient wraps an upgraded connection.
func NewClient(userID, userRole string, conn *websocket.Conn, hub *Hub, ledger LocationUpdater) *Client {
	return &Client{
		UserID:   userID,
		UserRole: userRole,
		conn:     conn,
		hub:      hub,
		send:     make(chan []byte, 256),
		done:     make(chan struct{}),
		ledger:   ledger,
	}
}

// closeDone signals the write pump that the hub dropped this connection.
// The send channel itself is never closed, so a late reply from the read
// pump cannot panic.
func (c *Client) closeDone() {
	c.doneOnce.Do(func() { close(c.done) })
}

// ReadPump pumps messages from the WebSocket connection. A malformed frame
// produces an error event on this connection only; it never closes the
// connection or touches other group members.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg inboundMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			c.reply(map[string]interface{}{"type": "error", "message": "invalid message format"})
			continue
		}

		switch msg.Type {
		case "ping":
			c.reply(map[string]interface{}{"type": "pong"})

		case "location_update":
			c.handleLocationUpdate(msg)
		}
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-c.done:
			// Hub dropped this connection
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleLocationUpdate(msg inboundMessage) {
	if c.UserRole != models.RoleAgent {
		c.reply(map[string]interface{}{"type": "error", "message": "only agents send location updates"})
		return
	}
	if msg.Latitude == nil || msg.Longitude == nil {
		c.reply(map[string]interface{}{"type": "error", "message": "latitude and longitude are required"})
		return
	}

	_, err := c.ledger.UpdateLocation(context.Background(), c.UserID, *msg.Latitude, *msg.Longitude, msg.Accuracy)
	if err != nil {
		c.reply(map[string]interface{}{"type": "error", "message": err.Error()})
		return
	}

	// Ack goes to the originating connection only, not the group.
	c.reply(map[string]interface{}{
		"type":    "location_updated",
		"message": "Location updated successfully",
	})
}

// reply sends a frame to this connection only. Dropped if the send buffer
// is full; the connection will be pruned by the next broadcast.
func (c *Client) reply(payload map[string]interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("❌ Failed to marshal reply: %v", err)
		return
	}
	select {
	case c.send <- data:
	case <-c.done:
	default:
	}
}
