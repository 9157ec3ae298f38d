package models

// Like marks a message as liked by a user. At most one row exists per (user, message).
type Like struct {
	ID        uint `gorm:"primaryKey" json:"id"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_likes_user_message" json:"user_id"`
	MessageID uint `gorm:"not null;uniqueIndex:idx_likes_user_message;index" json:"message_id"`

	User    *User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Message *Message `gorm:"foreignKey:MessageID;constraint:OnDelete:CASCADE" json:"-"`
}

// TableName specifies the table name for GORM
func (Like) TableName() string {
	return "likes"
}
