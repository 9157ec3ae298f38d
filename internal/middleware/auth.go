// Package middleware provides the HTTP middleware chain: sessions, the auth gate,
// logging, tracing, metrics and rate limiting.
package middleware

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"warbler/internal/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LocalsUserID holds the current user's id. Websocket connections copy it.
const LocalsUserID = "userID"

const (
	localsCurrentUser = "currentUser"
	localsClaims      = "tokenClaims"

	tokenIssuer   = "warbler-api"
	tokenAudience = "warbler-client"
)

// ErrRevocationUnavailable is returned by Revoke when no revocation store is configured.
var ErrRevocationUnavailable = errors.New("token revocation unavailable")

// UserResolver loads the user a session or token points at.
type UserResolver interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// TokenRevoker records and checks revoked token ids.
type TokenRevoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
	IsTokenRevoked(ctx context.Context, jti string) (bool, error)
}

// TokenClaims are the claims carried by API bearer tokens.
type TokenClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid token subject %q", c.Subject)
	}
	return uint(id), nil
}

// TokenManager issues, parses and revokes HS256 bearer tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoker TokenRevoker
	now     func() time.Time
}

// NewTokenManager returns a manager signing with secret. revoker may be nil,
// in which case nothing is ever revoked.
func NewTokenManager(secret string, ttl time.Duration, revoker TokenRevoker) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, revoker: revoker, now: time.Now}
}

// Issue signs a token for user and returns it with its expiry.
func (m *TokenManager) Issue(user *models.User) (string, time.Time, error) {
	if len(m.secret) == 0 {
		return "", time.Time{}, errors.New("JWT secret not configured")
	}

	now := m.now()
	exp := now.Add(m.ttl)
	claims := TokenClaims{
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse validates raw and rejects revoked tokens.
func (m *TokenManager) Parse(ctx context.Context, raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	if m.revoker != nil {
		revoked, err := m.revoker.IsTokenRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, errors.New("token revoked")
		}
	}
	return claims, nil
}

// Revoke blacklists claims until they would have expired anyway.
func (m *TokenManager) Revoke(ctx context.Context, claims *TokenClaims) error {
	if m.revoker == nil {
		return ErrRevocationUnavailable
	}
	if claims.ExpiresAt == nil {
		return nil
	}
	return m.revoker.RevokeToken(ctx, claims.ID, claims.ExpiresAt.Sub(m.now()))
}

// CurrentUser resolves the logged-in user from the session, or from a bearer
// token when tokens is non-nil, and exposes it through locals and the request
// context. Stale or invalid identities resolve as anonymous.
func CurrentUser(users UserResolver, tokens *TokenManager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		sess := SessionFrom(c)
		var userID uint
		fromSession := false
		if sess != nil {
			userID, fromSession = sess.Get(CurrUserKey).(uint)
		}

		if !fromSession && tokens != nil {
			if raw, ok := bearerToken(c); ok {
				claims, err := tokens.Parse(ctx, raw)
				if err != nil {
					Logger.DebugContext(ctx, "bearer token rejected", slog.String("error", err.Error()))
				} else if id, err := claims.UserID(); err == nil {
					userID = id
					c.Locals(localsClaims, claims)
				}
			}
		}

		if userID == 0 {
			return c.Next()
		}

		user, err := users.GetByID(ctx, userID)
		if err != nil {
			var appErr *models.AppError
			if !errors.As(err, &appErr) || appErr.Code != models.CodeNotFound {
				return err
			}
			if fromSession {
				sess.Delete(CurrUserKey)
			}
			c.Locals(localsClaims, nil)
			return c.Next()
		}

		setCurrentUser(c, user)
		return c.Next()
	}
}

func setCurrentUser(c *fiber.Ctx, user *models.User) {
	c.Locals(localsCurrentUser, user)
	c.Locals(LocalsUserID, user.ID)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, user.ID))
}

func clearCurrentUser(c *fiber.Ctx) {
	c.Locals(localsCurrentUser, nil)
	c.Locals(LocalsUserID, nil)
	c.Locals(localsClaims, nil)
	c.SetUserContext(context.WithValue(c.UserContext(), UserIDKey, nil))
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	parts := strings.Fields(c.Get(fiber.HeaderAuthorization))
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

// CurrentUserFrom returns the resolved user, or nil for anonymous requests.
func CurrentUserFrom(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localsCurrentUser).(*models.User)
	return user
}

// TokenClaimsFrom returns the claims of the bearer token that authenticated the request.
func TokenClaimsFrom(c *fiber.Ctx) *TokenClaims {
	claims, _ := c.Locals(localsClaims).(*TokenClaims)
	return claims
}

// AuthRequired sends anonymous visitors back to the home page with a flash.
func AuthRequired(c *fiber.Ctx) error {
	if CurrentUserFrom(c) != nil {
		return c.Next()
	}
	Flash(c, models.FlashDanger, "Access unauthorized.")
	return c.Redirect("/", fiber.StatusFound)
}

// ForbiddenUnlessAuthenticated rejects anonymous requests with 403.
func ForbiddenUnlessAuthenticated(c *fiber.Ctx) error {
	if CurrentUserFrom(c) != nil {
		return c.Next()
	}
	return models.NewForbiddenError("Access unauthorized.")
}

// BearerRequired rejects requests that were not authenticated by a bearer token.
func BearerRequired(c *fiber.Ctx) error {
	if CurrentUserFrom(c) != nil && TokenClaimsFrom(c) != nil {
		return c.Next()
	}
	return models.NewUnauthorizedError("Valid bearer token required")
}
