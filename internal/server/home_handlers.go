package server

import (
	"warbler/internal/middleware"

	"github.com/gofiber/fiber/v2"
)

// Home handles GET /
// @Summary Home timeline
// @Description Anonymous visitors get the landing view; logged-in users get the newest messages from themselves and everyone they follow
// @Tags messages
// @Produce json
// @Success 200 {object} object{view=string,messages=[]models.Message}
// @Router / [get]
func (s *Server) Home(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)
	if me == nil {
		return render(c, "home-anon", nil)
	}

	msgs, err := s.messageService.HomeTimeline(c.UserContext(), me.ID)
	if err != nil {
		return err
	}
	return render(c, "home", fiber.Map{"messages": msgs})
}
