package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 50, 0},
		{"explicit", "?limit=10&offset=20", 10, 20},
		{"zero limit falls back", "?limit=0", 50, 0},
		{"limit capped", "?limit=1000", maxPaginationLimit, 0},
		{"negative offset", "?offset=-5", 50, 0},
		{"garbage", "?limit=abc&offset=xyz", 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			var got Pagination
			app.Get("/", func(c *fiber.Ctx) error {
				got = parsePagination(c, 50)
				return nil
			})

			_, err := app.Test(httptest.NewRequest(http.MethodGet, "/"+tt.query, nil))
			require.NoError(t, err)
			assert.Equal(t, tt.wantLimit, got.Limit)
			assert.Equal(t, tt.wantOffset, got.Offset)
		})
	}
}

func TestParseID(t *testing.T) {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(http.StatusNotFound)
		},
	})
	app.Get("/items/:id", func(c *fiber.Ctx) error {
		if _, err := parseID(c, "id"); err != nil {
			return err
		}
		return c.SendStatus(http.StatusOK)
	})

	for path, want := range map[string]int{
		"/items/7":   http.StatusOK,
		"/items/0":   http.StatusNotFound,
		"/items/-3":  http.StatusNotFound,
		"/items/abc": http.StatusNotFound,
	} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, path)
	}
}
