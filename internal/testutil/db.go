// Package testutil provides shared test doubles and fixtures for backend tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"warbler/internal/cache"
	"warbler/internal/database"
	"warbler/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewTestDB opens a private in-memory SQLite database with the full schema applied.
// The pool is pinned to one connection so every query sees the same database.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?_foreign_keys=on"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(database.PersistentModels()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// NewTestRedis starts miniredis, installs it as the shared cache client and
// restores the previous client when the test ends.
func NewTestRedis(t testing.TB) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	prev := cache.GetClient()
	cache.SetClient(client)
	t.Cleanup(func() {
		cache.SetClient(prev)
		_ = client.Close()
	})
	return mr, client
}

// TestPassword is the plain-text password of every user made by CreateUser.
const TestPassword = "password123"

// CreateUser inserts a user with a low-cost hash of TestPassword.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		Username: username,
		Email:    fmt.Sprintf("%s@example.com", username),
		Password: string(hash),
	}
	user.ApplyImageDefaults()
	if err := db.WithContext(context.Background()).Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

// CreateMessage inserts a message by author at ts.
func CreateMessage(t testing.TB, db *gorm.DB, author *models.User, text string, ts time.Time) *models.Message {
	t.Helper()

	msg := &models.Message{Text: text, UserID: author.ID, Timestamp: ts.UTC()}
	if err := db.Omit("User").Create(msg).Error; err != nil {
		t.Fatalf("create message: %v", err)
	}
	return msg
}

// Follow records that follower follows followed.
func Follow(t testing.TB, db *gorm.DB, follower, followed *models.User) {
	t.Helper()

	edge := &models.Follow{UserFollowingID: follower.ID, UserBeingFollowedID: followed.ID}
	if err := db.Omit("UserBeingFollowed", "UserFollowing").Create(edge).Error; err != nil {
		t.Fatalf("create follow: %v", err)
	}
}
