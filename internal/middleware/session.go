package middleware

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"time"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/google/uuid"
)

const (
	// SessionCookieName is the cookie carrying the session id.
	SessionCookieName = "warbler_session"
	// CurrUserKey is the session key holding the logged-in user id.
	CurrUserKey = "curr_user"

	flashesKey    = "_flashes"
	localsSession = "session"
)

// NewSessionStore builds the cookie session store. A nil storage keeps
// sessions in process memory.
func NewSessionStore(storage fiber.Storage, secure bool) *session.Store {
	cfg := session.Config{
		Expiration:     7 * 24 * time.Hour,
		KeyLookup:      "cookie:" + SessionCookieName,
		CookieHTTPOnly: true,
		CookieSecure:   secure,
		CookieSameSite: fiber.CookieSameSiteLaxMode,
		KeyGenerator:   uuid.NewString,
	}
	if storage != nil {
		cfg.Storage = storage
	}
	return session.New(cfg)
}

// SessionCookieKey derives the encryptcookie key from the configured session secret.
func SessionCookieKey(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Sessions loads the request's session into locals and saves it once the
// chain has finished. Chain errors are rendered here, before the save, so
// flashes set by the error handler survive.
func Sessions(store *session.Store) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := store.Get(c)
		if err != nil {
			return err
		}
		c.Locals(localsSession, sess)

		if chainErr := c.Next(); chainErr != nil {
			if herr := c.App().Config().ErrorHandler(c, chainErr); herr != nil {
				return herr
			}
		}

		if sess.Fresh() && len(sess.Keys()) == 0 {
			return nil
		}
		if err := sess.Save(); err != nil {
			Logger.ErrorContext(c.UserContext(), "session save failed", slog.String("error", err.Error()))
			return err
		}
		return nil
	}
}

// SessionFrom returns the session loaded by Sessions, or nil.
func SessionFrom(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(localsSession).(*session.Session)
	return sess
}

// Login binds user to a fresh session id. Regenerate keeps existing data.
func Login(c *fiber.Ctx, user *models.User) error {
	sess := SessionFrom(c)
	if sess == nil {
		return fiber.NewError(fiber.StatusInternalServerError, "session unavailable")
	}
	if err := sess.Regenerate(); err != nil {
		return err
	}
	sess.Set(CurrUserKey, user.ID)
	setCurrentUser(c, user)
	return nil
}

// Logout forgets the user but keeps pending flashes.
func Logout(c *fiber.Ctx) error {
	sess := SessionFrom(c)
	if sess == nil {
		return nil
	}
	sess.Delete(CurrUserKey)
	if err := sess.Regenerate(); err != nil {
		return err
	}
	clearCurrentUser(c)
	return nil
}

// Flash queues a message for the next page view.
func Flash(c *fiber.Ctx, category, message string) {
	sess := SessionFrom(c)
	if sess == nil {
		return
	}
	flashes := readFlashes(sess)
	flashes = append(flashes, models.Flash{Category: category, Message: message})
	raw, err := json.Marshal(flashes)
	if err != nil {
		return
	}
	sess.Set(flashesKey, string(raw))
}

// PopFlashes returns and clears the queued messages.
func PopFlashes(c *fiber.Ctx) []models.Flash {
	sess := SessionFrom(c)
	if sess == nil {
		return []models.Flash{}
	}
	flashes := readFlashes(sess)
	sess.Delete(flashesKey)
	return flashes
}

func readFlashes(sess *session.Session) []models.Flash {
	flashes := []models.Flash{}
	raw, ok := sess.Get(flashesKey).(string)
	if !ok || raw == "" {
		return flashes
	}
	if err := json.Unmarshal([]byte(raw), &flashes); err != nil {
		return []models.Flash{}
	}
	return flashes
}
