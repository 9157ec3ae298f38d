package server

import (
	"errors"
	"fmt"

	"warbler/internal/middleware"
	"warbler/internal/models"
	"warbler/internal/validation"

	"github.com/gofiber/fiber/v2"
)

// Pagination holds parsed limit/offset query parameters.
type Pagination struct {
	Limit  int
	Offset int
}

const (
	maxPaginationLimit = 100
)

// parsePagination extracts limit and offset query parameters with the given default limit.
func parsePagination(c *fiber.Ctx, defaultLimit int) Pagination {
	limit := c.QueryInt("limit", defaultLimit)
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxPaginationLimit {
		limit = maxPaginationLimit
	}

	offset := c.QueryInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	return Pagination{
		Limit:  limit,
		Offset: offset,
	}
}

// parseID extracts a route parameter as a positive uint. Routes constrain
// ids to integers, so a failure here means the id cannot exist.
func parseID(c *fiber.Ctx, param string) (uint, error) {
	id, err := c.ParamsInt(param)
	if err != nil || id <= 0 {
		return 0, models.NewNotFoundError("Resource", c.Params(param))
	}
	return uint(id), nil
}

// bindForm parses the request body into form and applies its validation rules.
func bindForm(c *fiber.Ctx, form any) error {
	if err := c.BodyParser(form); err != nil {
		return models.NewValidationError("Invalid request body")
	}
	if err := validation.Struct(form); err != nil {
		var verrs validation.Errors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return models.NewValidationError(fmt.Sprintf("%s: %s", verrs[0].Field, verrs[0].Message))
		}
		return models.NewValidationError(err.Error())
	}
	return nil
}

// render writes a JSON view model carrying the pending flashes and the viewer.
func render(c *fiber.Ctx, view string, data fiber.Map) error {
	if data == nil {
		data = fiber.Map{}
	}
	data["view"] = view
	data["flashes"] = middleware.PopFlashes(c)
	if user := middleware.CurrentUserFrom(c); user != nil {
		data["current_user"] = user
	}
	return c.JSON(data)
}

// flashRedirect queues a flash and redirects with 302.
func flashRedirect(c *fiber.Ctx, category, message, location string) error {
	middleware.Flash(c, category, message)
	return c.Redirect(location, fiber.StatusFound)
}

func userPath(id uint) string {
	return fmt.Sprintf("/users/%d", id)
}
