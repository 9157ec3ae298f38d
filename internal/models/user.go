// Package models contains data structures for the application's domain models.
package models

import "time"

const (
	// DefaultImageURL is the profile picture used when a user has not set one.
	DefaultImageURL = "/static/images/default-pic.png"
	// DefaultHeaderImageURL is the profile header used when a user has not set one.
	DefaultHeaderImageURL = "/static/images/warbler-hero.jpg"
)

// User represents a user in the Warbler application.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email          string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	ImageURL       string    `gorm:"default:/static/images/default-pic.png" json:"image_url"`
	HeaderImageURL string    `gorm:"default:/static/images/warbler-hero.jpg" json:"header_image_url"`
	Bio            string    `gorm:"type:text" json:"bio"`
	Location       string    `gorm:"type:text" json:"location"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (User) TableName() string {
	return "users"
}

// ApplyImageDefaults fills empty image fields with the placeholders.
func (u *User) ApplyImageDefaults() {
	if u.ImageURL == "" {
		u.ImageURL = DefaultImageURL
	}
	if u.HeaderImageURL == "" {
		u.HeaderImageURL = DefaultHeaderImageURL
	}
}

// UserProfile is the public profile view of a user, as seen by a viewer.
type UserProfile struct {
	User           *User     `json:"user"`
	Messages       []Message `json:"messages"`
	MessagesCount  int64     `json:"messages_count"`
	FollowingCount int64     `json:"following_count"`
	FollowersCount int64     `json:"followers_count"`
	LikesCount     int64     `json:"likes_count"`
	IsFollowing    bool      `json:"is_following"`
	IsFollowedBy   bool      `json:"is_followed_by"`
}
