package server

import (
	"fmt"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/service"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// ListUsers handles GET /users
// @Summary List or search users
// @Description Lists users ordered by username; q filters by a case-insensitive username substring
// @Tags users
// @Produce json
// @Param q query string false "Username substring"
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Offset" default(0)
// @Success 200 {object} object{view=string,users=[]models.User}
// @Router /users [get]
func (s *Server) ListUsers(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	q := c.Query("q")

	users, err := s.userService.SearchUsers(c.UserContext(), q, page.Limit, page.Offset)
	if err != nil {
		return err
	}

	return render(c, "users/index", fiber.Map{
		"q":     q,
		"users": users,
	})
}

// ShowUser handles GET /users/:id
// @Summary Show user profile
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,profile=models.UserProfile}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id} [get]
func (s *Server) ShowUser(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	profile, err := s.userService.Profile(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}

	return render(c, "users/show", fiber.Map{"profile": profile})
}

// ShowFollowing handles GET /users/:id/following
// @Summary Users someone follows
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,user=models.User,following=[]models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/following [get]
func (s *Server) ShowFollowing(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	following, err := s.socialService.Following(c.UserContext(), id)
	if err != nil {
		return err
	}

	return render(c, "users/following", fiber.Map{
		"user":      user,
		"following": following,
	})
}

// ShowFollowers handles GET /users/:id/followers
// @Summary Followers of a user
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,user=models.User,followers=[]models.User}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/followers [get]
func (s *Server) ShowFollowers(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	followers, err := s.socialService.Followers(c.UserContext(), id)
	if err != nil {
		return err
	}

	return render(c, "users/followers", fiber.Map{
		"user":      user,
		"followers": followers,
	})
}

// ShowLiked handles GET /users/:id/liked
// @Summary Messages a user liked
// @Tags users
// @Produce json
// @Param id path int true "User ID"
// @Success 200 {object} object{view=string,user=models.User,liked_messages=[]models.Message}
// @Failure 404 {object} models.ErrorResponse
// @Router /users/{id}/liked [get]
func (s *Server) ShowLiked(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	user, err := s.userService.GetUser(c.UserContext(), id)
	if err != nil {
		return err
	}
	liked, err := s.userService.LikedMessages(c.UserContext(), id, viewerID(c))
	if err != nil {
		return err
	}

	return render(c, "users/liked", fiber.Map{
		"user":           user,
		"liked_messages": liked,
	})
}

// Follow handles POST /users/follow/:id
// @Summary Follow a user
// @Tags social
// @Param id path int true "User ID to follow"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{id} [post]
func (s *Server) Follow(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.socialService.Follow(c.UserContext(), me.ID, id); err != nil {
		return err
	}
	s.notifier.Followed(c.UserContext(), id, me.ID, me.Username)
	return c.Redirect(fmt.Sprintf("/users/%d/following", me.ID), fiber.StatusFound)
}

// StopFollowing handles POST /users/stop-following/:id
// @Summary Unfollow a user
// @Tags social
// @Param id path int true "User ID to unfollow"
// @Success 302
// @Router /users/stop-following/{id} [post]
func (s *Server) StopFollowing(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	if err := s.socialService.Unfollow(c.UserContext(), me.ID, id); err != nil {
		return err
	}
	return c.Redirect(fmt.Sprintf("/users/%d/following", me.ID), fiber.StatusFound)
}

// EditProfileForm handles GET /users/profile
// @Summary Profile edit form
// @Tags users
// @Produce json
// @Success 200 {object} object{view=string,user=models.User}
// @Router /users/profile [get]
func (s *Server) EditProfileForm(c *fiber.Ctx) error {
	return render(c, "users/edit", fiber.Map{
		"user": middleware.CurrentUserFrom(c),
	})
}

// UpdateProfile handles POST /users/profile
// @Summary Update own profile
// @Description Requires the current password; nothing is saved when it does not match
// @Tags users
// @Accept x-www-form-urlencoded,json
// @Param request body validation.ProfileForm true "Profile form"
// @Success 302
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Router /users/profile [post]
func (s *Server) UpdateProfile(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)

	var form validation.ProfileForm
	if err := bindForm(c, &form); err != nil {
		return err
	}

	_, err := s.userService.UpdateProfile(c.UserContext(), me.ID, service.UpdateProfileInput{
		Username:       form.Username,
		Email:          form.Email,
		ImageURL:       form.ImageURL,
		HeaderImageURL: form.HeaderImageURL,
		Bio:            form.Bio,
		Location:       form.Location,
		Password:       form.Password,
	})
	if err != nil {
		return err
	}

	return flashRedirect(c, models.FlashSuccess, "Profile updated!", userPath(me.ID))
}

// DeleteAccount handles POST /users/delete
// @Summary Delete own account
// @Tags users
// @Success 302
// @Router /users/delete [post]
func (s *Server) DeleteAccount(c *fiber.Ctx) error {
	me := middleware.CurrentUserFrom(c)

	if err := middleware.Logout(c); err != nil {
		return err
	}
	if err := s.userService.DeleteAccount(c.UserContext(), me.ID); err != nil {
		return err
	}
	return c.Redirect("/signup", fiber.StatusFound)
}

func viewerID(c *fiber.Ctx) uint {
	if me := middleware.CurrentUserFrom(c); me != nil {
		return me.ID
	}
	return 0
}
