package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-12345678901234567890123456789012"

type resolverStub map[uint]*models.User

func (r resolverStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := r[id]; ok {
		return u, nil
	}
	return nil, models.NewNotFoundError("User", id)
}

type memoryRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Duration
}

func (m *memoryRevoker) RevokeToken(_ context.Context, jti string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.revoked == nil {
		m.revoked = map[string]time.Duration{}
	}
	m.revoked[jti] = ttl
	return nil
}

func (m *memoryRevoker) IsTokenRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func TestTokenManager(t *testing.T) {
	revoker := &memoryRevoker{}
	tm := NewTokenManager(testSecret, time.Hour, revoker)
	user := &models.User{ID: 123, Username: "alice"}
	ctx := context.Background()

	token, exp, err := tm.Issue(user)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	t.Run("round trip", func(t *testing.T) {
		claims, err := tm.Parse(ctx, token)
		require.NoError(t, err)
		id, err := claims.UserID()
		require.NoError(t, err)
		assert.Equal(t, uint(123), id)
		assert.Equal(t, "alice", claims.Username)
		assert.NotEmpty(t, claims.ID)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("another-secret-another-secret-12345", time.Hour, nil)
		_, err := other.Parse(ctx, token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(testSecret, time.Hour, nil)
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, _, err := past.Issue(user)
		require.NoError(t, err)
		_, err = tm.Parse(ctx, old)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.Parse(ctx, "not.a.token")
		assert.Error(t, err)
	})

	t.Run("revoked", func(t *testing.T) {
		claims, err := tm.Parse(ctx, token)
		require.NoError(t, err)
		require.NoError(t, tm.Revoke(ctx, claims))
		assert.Greater(t, revoker.revoked[claims.ID], 50*time.Minute)

		_, err = tm.Parse(ctx, token)
		assert.Error(t, err)
	})

	t.Run("no secret", func(t *testing.T) {
		_, _, err := NewTokenManager("", time.Hour, nil).Issue(user)
		assert.Error(t, err)
	})
}

func newAuthTestApp(users resolverStub, tm *TokenManager) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return models.RespondWithError(c, models.HTTPStatus(err), err)
		},
	})
	app.Use(Sessions(NewSessionStore(nil, false)))
	app.Use(CurrentUser(users, tm))

	app.Get("/whoami", func(c *fiber.Ctx) error {
		user := CurrentUserFrom(c)
		if user == nil {
			return c.JSON(fiber.Map{"user": nil, "flashes": PopFlashes(c)})
		}
		return c.JSON(fiber.Map{"user": user.Username, "flashes": PopFlashes(c)})
	})
	app.Get("/login/:name", func(c *fiber.Ctx) error {
		for _, u := range users {
			if u.Username == c.Params("name") {
				return Login(c, u)
			}
		}
		return fiber.ErrNotFound
	})
	app.Get("/logout", func(c *fiber.Ctx) error {
		if err := Logout(c); err != nil {
			return err
		}
		Flash(c, models.FlashSuccess, "bye")
		return c.Redirect("/whoami")
	})
	app.Get("/private", AuthRequired, func(c *fiber.Ctx) error {
		return c.SendString("secret")
	})
	app.Post("/owned", ForbiddenUnlessAuthenticated, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	app.Post("/api", BearerRequired, func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, path, cookie, bearer string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, string(body)
}

func sessionCookie(resp *http.Response, current string) string {
	for _, c := range resp.Cookies() {
		if c.Name == SessionCookieName {
			return c.Name + "=" + c.Value
		}
	}
	return current
}

func TestSessionLoginLogout(t *testing.T) {
	users := resolverStub{1: {ID: 1, Username: "alice"}}
	app := newAuthTestApp(users, nil)

	resp, body := doRequest(t, app, http.MethodGet, "/whoami", "", "")
	assert.JSONEq(t, `{"user":null,"flashes":[]}`, body)
	assert.Empty(t, sessionCookie(resp, ""), "anonymous requests get no session cookie")

	resp, _ = doRequest(t, app, http.MethodGet, "/login/alice", "", "")
	cookie := sessionCookie(resp, "")
	require.NotEmpty(t, cookie)

	_, body = doRequest(t, app, http.MethodGet, "/whoami", cookie, "")
	assert.Contains(t, body, `"user":"alice"`)

	resp, _ = doRequest(t, app, http.MethodGet, "/logout", cookie, "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	newCookie := sessionCookie(resp, cookie)
	assert.NotEqual(t, cookie, newCookie, "logout rotates the session id")

	_, body = doRequest(t, app, http.MethodGet, "/whoami", newCookie, "")
	var out struct {
		User    *string        `json:"user"`
		Flashes []models.Flash `json:"flashes"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	assert.Nil(t, out.User)
	require.Len(t, out.Flashes, 1)
	assert.Equal(t, "bye", out.Flashes[0].Message)

	_, body = doRequest(t, app, http.MethodGet, "/whoami", cookie, "")
	assert.Contains(t, body, `"user":null`, "the old session id is no longer valid")
}

func TestSessionForDeletedUserIsAnonymous(t *testing.T) {
	users := resolverStub{1: {ID: 1, Username: "alice"}}
	app := newAuthTestApp(users, nil)

	resp, _ := doRequest(t, app, http.MethodGet, "/login/alice", "", "")
	cookie := sessionCookie(resp, "")

	delete(users, 1)
	_, body := doRequest(t, app, http.MethodGet, "/whoami", cookie, "")
	assert.Contains(t, body, `"user":null`)
}

func TestAuthRequired(t *testing.T) {
	users := resolverStub{1: {ID: 1, Username: "alice"}}
	app := newAuthTestApp(users, nil)

	resp, _ := doRequest(t, app, http.MethodGet, "/private", "", "")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	cookie := sessionCookie(resp, "")
	require.NotEmpty(t, cookie, "the flash needs a session")

	_, body := doRequest(t, app, http.MethodGet, "/whoami", cookie, "")
	assert.Contains(t, body, "Access unauthorized.")

	resp, _ = doRequest(t, app, http.MethodGet, "/login/alice", "", "")
	cookie = sessionCookie(resp, "")
	resp, body = doRequest(t, app, http.MethodGet, "/private", cookie, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "secret", body)
}

func TestForbiddenUnlessAuthenticated(t *testing.T) {
	app := newAuthTestApp(resolverStub{}, nil)
	resp, _ := doRequest(t, app, http.MethodPost, "/owned", "", "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCurrentUserBearer(t *testing.T) {
	users := resolverStub{123: {ID: 123, Username: "bob"}}
	tm := NewTokenManager(testSecret, time.Hour, &memoryRevoker{})
	app := newAuthTestApp(users, tm)

	token, _, err := tm.Issue(users[123])
	require.NoError(t, err)
	ghost, _, err := tm.Issue(&models.User{ID: 999, Username: "ghost"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		bearer     string
		wantUser   bool
		wantStatus int
	}{
		{"Happy Path", token, true, http.StatusOK},
		{"Unknown User", ghost, false, http.StatusUnauthorized},
		{"Malformed", "abc", false, http.StatusUnauthorized},
		{"Missing", "", false, http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, body := doRequest(t, app, http.MethodGet, "/whoami", "", tt.bearer)
			assert.Equal(t, tt.wantUser, strings.Contains(body, `"user":"bob"`))

			resp, _ := doRequest(t, app, http.MethodPost, "/api", "", tt.bearer)
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
		})
	}
}
