package server

import (
	"log/slog"

	"warbler/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

func requireWebSocketUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// NotificationsSocket handles GET /ws/notifications
// @Summary Activity notifications
// @Description Upgrades to a websocket that pushes follow and like events addressed to the current user as JSON text frames
// @Tags notifications
// @Success 101 {object} notifications.Event
// @Failure 403 {object} models.ErrorResponse
// @Failure 426 {object} models.ErrorResponse
// @Router /ws/notifications [get]
func (s *Server) NotificationsSocket() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		uid, ok := conn.Locals(middleware.LocalsUserID).(uint)
		if !ok || uid == 0 {
			_ = conn.Close()
			return
		}

		client, err := s.hub.Register(uid, conn)
		if err != nil {
			middleware.Logger.Warn("notification socket rejected",
				slog.Uint64("user_id", uint64(uid)),
				slog.String("error", err.Error()))
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"`+err.Error()+`"}`))
			_ = conn.Close()
			return
		}

		// The connection is released when this function returns, so the
		// write pump has to finish first.
		done := make(chan struct{})
		go func() {
			defer close(done)
			client.WritePump()
		}()
		client.ReadPump()
		s.hub.UnregisterClient(client)
		<-done
	})
}
