package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { SetClient(nil) })
	return mr
}

type cachedUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

func TestAside_MissThenHit(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	calls := 0
	fetch := func(dest *cachedUser) func() error {
		return func() error {
			calls++
			*dest = cachedUser{ID: 7, Username: "alice"}
			return nil
		}
	}

	var first cachedUser
	require.NoError(t, Aside(ctx, UserKey(7), &first, UserTTL, fetch(&first)))
	assert.Equal(t, "alice", first.Username)
	assert.True(t, mr.Exists("user:7"))

	var second cachedUser
	require.NoError(t, Aside(ctx, UserKey(7), &second, UserTTL, fetch(&second)))
	assert.Equal(t, "alice", second.Username)
	assert.Equal(t, 1, calls)

	InvalidateUser(ctx, 7)
	assert.False(t, mr.Exists("user:7"))
}

func TestAside_FetchErrorNotCached(t *testing.T) {
	mr := setupMiniredis(t)
	wantErr := errors.New("not found")

	var dest cachedUser
	err := Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error { return wantErr })
	assert.ErrorIs(t, err, wantErr)
	assert.False(t, mr.Exists("user:1"))
}

func TestAside_WithoutRedis(t *testing.T) {
	SetClient(nil)

	var dest cachedUser
	err := Aside(context.Background(), UserKey(1), &dest, UserTTL, func() error {
		dest.Username = "bob"
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "bob", dest.Username)
}

func TestTokenRevocation(t *testing.T) {
	mr := setupMiniredis(t)
	ctx := context.Background()

	revoked, err := IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, RevokeToken(ctx, "abc", time.Minute))
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = IsTokenRevoked(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRevokeToken_WithoutRedis(t *testing.T) {
	SetClient(nil)
	assert.ErrorIs(t, RevokeToken(context.Background(), "abc", time.Minute), ErrUnavailable)
}

func TestSessionStorage(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewSessionStorage(rdb)

	val, err := store.Get("missing")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, store.Set("sid-1", []byte("payload"), time.Hour))
	require.NoError(t, store.Set("sid-2", []byte("other"), time.Hour))
	assert.True(t, mr.Exists("session:sid-1"))

	val, err = store.Get("sid-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), val)

	require.NoError(t, store.Delete("sid-1"))
	val, err = store.Get("sid-1")
	require.NoError(t, err)
	assert.Nil(t, val)

	require.NoError(t, store.Reset())
	assert.False(t, mr.Exists("session:sid-2"))
	assert.NoError(t, store.Close())
}
