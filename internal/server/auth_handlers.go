package server

import (
	"errors"
	"fmt"
	"time"

	"warbler/internal/cache"
	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// SignupForm handles GET /signup
// @Summary Signup form
// @Tags auth
// @Produce json
// @Success 200 {object} object{view=string,flashes=[]models.Flash}
// @Router /signup [get]
func (s *Server) SignupForm(c *fiber.Ctx) error {
	return render(c, "signup", fiber.Map{
		"fields": []string{"username", "email", "password", "image_url"},
	})
}

// Signup handles POST /signup
// @Summary User signup
// @Description Create an account and log it in
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body validation.SignupForm true "Signup form"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /signup [post]
func (s *Server) Signup(c *fiber.Ctx) error {
	var form validation.SignupForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := s.authService.Register(c.UserContext(), service.RegisterInput{
		Username: form.Username,
		Email:    form.Email,
		Password: form.Password,
		ImageURL: form.ImageURL,
	})
	if err != nil {
		return err
	}

	if err := middleware.Login(c, user); err != nil {
		return err
	}
	return flashRedirect(c, models.FlashSuccess, fmt.Sprintf("Hello, %s!", user.Username), "/")
}

// LoginForm handles GET /login
// @Summary Login form
// @Tags auth
// @Produce json
// @Success 200 {object} object{view=string,flashes=[]models.Flash}
// @Router /login [get]
func (s *Server) LoginForm(c *fiber.Ctx) error {
	return render(c, "login", fiber.Map{
		"fields": []string{"username", "password"},
	})
}

// Login handles POST /login
// @Summary User login
// @Description Authenticate and start a session
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param request body validation.LoginForm true "Login form"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /login [post]
func (s *Server) Login(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := s.authService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return err
	}

	if err := middleware.Login(c, user); err != nil {
		return err
	}
	return flashRedirect(c, models.FlashSuccess, fmt.Sprintf("Hello, %s!", user.Username), userPath(user.ID))
}

// Logout handles GET /logout
// @Summary Logout
// @Tags auth
// @Success 302
// @Router /logout [get]
func (s *Server) Logout(c *fiber.Ctx) error {
	if err := middleware.Logout(c); err != nil {
		return err
	}
	return flashRedirect(c, models.FlashSuccess, "You have been logged out successfully.", "/login")
}

// IssueToken handles POST /api/token
// @Summary Issue API token
// @Description Exchange credentials for a bearer token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body validation.LoginForm true "Credentials"
// @Success 200 {object} object{token=string,token_type=string,expires_at=string,user=models.User}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/token [post]
func (s *Server) IssueToken(c *fiber.Ctx) error {
	var form validation.LoginForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	user, err := s.authService.Authenticate(c.UserContext(), form.Username, form.Password)
	if err != nil {
		return err
	}

	token, exp, err := s.tokens.Issue(user)
	if err != nil {
		return models.NewInternalError(err)
	}

	return c.JSON(fiber.Map{
		"token":      token,
		"token_type": "Bearer",
		"expires_at": exp.UTC().Format(time.RFC3339),
		"user":       user,
	})
}

// RevokeToken handles POST /api/token/revoke
// @Summary Revoke API token
// @Description Revoke the bearer token used for this request
// @Tags auth
// @Security BearerAuth
// @Success 204
// @Failure 401 {object} models.ErrorResponse
// @Failure 503 {object} models.ErrorResponse
// @Router /api/token/revoke [post]
func (s *Server) RevokeToken(c *fiber.Ctx) error {
	claims := middleware.TokenClaimsFrom(c)
	if err := s.tokens.Revoke(c.UserContext(), claims); err != nil {
		if errors.Is(err, cache.ErrUnavailable) || errors.Is(err, middleware.ErrRevocationUnavailable) {
			return fiber.NewError(fiber.StatusServiceUnavailable, "token revocation unavailable")
		}
		return models.NewInternalError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
