package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix      = "user:%d"
	BlacklistKeyPrefix = "blacklist:%s"
	SessionKeyPrefix   = "session:"
)

const (
	UserTTL = 5 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// RevokeToken blacklists a token id until ttl elapses.
func RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	if client == nil {
		return ErrUnavailable
	}
	if ttl <= 0 {
		return nil
	}
	return client.Set(ctx, BlacklistKey(jti), "1", ttl).Err()
}

// IsTokenRevoked reports whether jti has been blacklisted. Without Redis nothing is revoked.
func IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if client == nil || jti == "" {
		return false, nil
	}
	n, err := client.Exists(ctx, BlacklistKey(jti)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// TokenBlacklist exposes RevokeToken and IsTokenRevoked on the shared client as a value.
type TokenBlacklist struct{}

func (TokenBlacklist) RevokeToken(ctx context.Context, jti string, ttl time.Duration) error {
	return RevokeToken(ctx, jti, ttl)
}

func (TokenBlacklist) IsTokenRevoked(ctx context.Context, jti string) (bool, error) {
	return IsTokenRevoked(ctx, jti)
}
