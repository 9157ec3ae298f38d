package notifications

import (
	"log/slog"
	"time"

	"warbler/internal/middleware"
	"warbler/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer.
	pongWait = 60 * time.Second

	// Pings are sent with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// The socket is push-only; inbound frames are only control traffic.
	maxMessageSize = 512

	sendBuffer = 32
)

// Client is one websocket connection of a user.
type Client struct {
	hub *Hub

	// Conn is nil for clients registered without a socket.
	Conn *websocket.Conn

	// Send carries encoded events to the write pump. The hub closes it on unregister.
	Send chan []byte

	UserID uint
}

func newClient(hub *Hub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBuffer),
	}
}

// ReadPump consumes inbound frames until the peer goes away. It keeps the
// read deadline fresh on every pong.
func (c *Client) ReadPump() {
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				middleware.Logger.Debug("notification socket closed",
					slog.Uint64("user_id", uint64(c.UserID)),
					slog.String("error", err.Error()))
			}
			return
		}
	}
}

// WritePump writes queued events and keepalive pings until Send is closed
// or a write fails. Closing the connection on exit unblocks ReadPump.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues payload without blocking. A full buffer drops the event.
func (c *Client) TrySend(payload []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			observability.NotificationDrops.WithLabelValues("closed").Inc()
		}
	}()

	select {
	case c.Send <- payload:
		return true
	default:
		observability.NotificationDrops.WithLabelValues("full").Inc()
		middleware.Logger.Warn("notification buffer full, dropping event",
			slog.Uint64("user_id", uint64(c.UserID)))
		return false
	}
}
