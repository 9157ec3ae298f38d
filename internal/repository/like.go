package repository

import (
	"context"

	"warbler/internal/models"

	"gorm.io/gorm"
)

// LikeRepository manages the user/message like relation.
type LikeRepository interface {
	Toggle(ctx context.Context, userID, messageID uint) (bool, error)
	LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository returns a new LikeRepository implementation.
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

// Toggle removes the like if it exists and adds it otherwise, reporting whether
// the message is liked afterwards. Both steps run in one transaction and the
// insert relies on idx_likes_user_message, so concurrent toggles cannot leave
// duplicate rows.
func (r *likeRepository) Toggle(ctx context.Context, userID, messageID uint) (bool, error) {
	liked := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		removed := tx.Where("user_id = ? AND message_id = ?", userID, messageID).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected > 0 {
			return nil
		}

		if err := tx.Exec(
			`INSERT INTO likes (user_id, message_id) VALUES (?, ?)
			 ON CONFLICT (user_id, message_id) DO NOTHING`,
			userID, messageID,
		).Error; err != nil {
			return err
		}
		liked = true
		return nil
	})
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return liked, nil
}

// LikedMessageIDs returns the subset of messageIDs that userID has liked.
func (r *likeRepository) LikedMessageIDs(ctx context.Context, userID uint, messageIDs []uint) ([]uint, error) {
	if userID == 0 || len(messageIDs) == 0 {
		return nil, nil
	}
	var ids []uint
	if err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("user_id = ? AND message_id IN ?", userID, messageIDs).
		Pluck("message_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *likeRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Like{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
