package server

import (
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// NewMessageForm handles GET /messages/new
// @Summary New message form
// @Tags messages
// @Produce json
// @Success 200 {object} object{view=string,max_length=int}
// @Router /messages/new [get]
func (s *Server) NewMessageForm(c *fiber.Ctx) error {
	return render(c, "messages/new", fiber.Map{
		"max_length": models.MaxMessageLength,
	})
}

// CreateMessage handles POST /messages/new
// @Summary Post a message
// @Tags messages
// @Accept x-www-form-urlencoded,json
// @Param request body validation.MessageForm true "Message"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Router /messages/new [post]
func (s *Server) CreateMessage(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)

	var form validation.MessageForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	if _, err := s.messageService.Create(c.UserContext(), me.ID, form.Text); err != nil {
		return err
	}
	return flashRedirect(c, models.FlashSuccess, "Message posted!", userPath(me.ID))
}

// ShowMessage handles GET /messages/:id
// @Summary Show a message
// @Tags messages
// @Produce json
// @Param id path int true "Message ID"
// @Success 200 {object} object{view=string,message=models.Message}
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id} [get]
func (s *Server) ShowMessage(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	msg, err := s.messageService.Get(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}
	return render(c, "messages/show", fiber.Map{"message": msg})
}

// DeleteMessage handles POST /messages/:id/delete
// @Summary Delete own message
// @Tags messages
// @Param id path int true "Message ID"
// @Success 302
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/delete [post]
func (s *Server) DeleteMessage(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.messageService.Delete(c.UserContext(), me.ID, id); err != nil {
		return err
	}
	return c.Redirect(userPath(me.ID), fiber.StatusFound)
}

// LikeMessage handles POST /messages/:id/like
// @Summary Like or unlike a message
// @Tags messages
// @Param id path int true "Message ID"
// @Success 302
// @Failure 404 {object} models.ErrorResponse
// @Router /messages/{id}/like [post]
func (s *Server) LikeMessage(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	liked, err := s.messageService.ToggleLike(c.UserContext(), me.ID, id)
	if err != nil {
		return err
	}
	if liked {
		if msg, err := s.messageService.Get(c.UserContext(), id, 0); err == nil {
			s.notifier.MessageLiked(c.UserContext(), msg.UserID, msg.ID, me.ID, me.Username)
		}
		return flashRedirect(c, models.FlashSuccess, "You liked this message!", "/")
	}
	return flashRedirect(c, models.FlashSuccess, "You unliked this message.", "/")
}
