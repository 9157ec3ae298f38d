package models

import "time"

// MaxMessageLength is the maximum number of characters in a message.
const MaxMessageLength = 140

// Message is a short text post ("warble") owned by a single user.
type Message struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Text      string    `gorm:"size:140;not null" json:"text"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      *User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	// Liked indicates whether the viewing user liked this message (computed)
	Liked bool `gorm:"-" json:"liked"`
}

// TableName specifies the table name for GORM
func (Message) TableName() string {
	return "messages"
}

// IsOwnedBy reports whether userID authored the message.
func (m *Message) IsOwnedBy(userID uint) bool {
	return m != nil && userID != 0 && m.UserID == userID
}
