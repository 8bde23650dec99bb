package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/everkeep/backend/internal/model"
)

type LikeRepository interface {
	Create(ctx context.Context, userID, contentItemID string) (created bool, err error)
	Delete(ctx context.Context, userID, contentItemID string) (deleted bool, err error)
	ListRecentItemIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

type likeRepository struct{ db *gorm.DB }

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

// Create returns false when the like already existed, so callers only bump
// the like counter once per (user, item) pair.
func (r *likeRepository) Create(ctx context.Context, userID, contentItemID string) (bool, error) {
	l := &model.Like{ID: uuid.New().String(), UserID: userID, ContentItemID: contentItemID}
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(l)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, contentItemID string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND content_item_id = ?", userID, contentItemID).
		Delete(&model.Like{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *likeRepository) ListRecentItemIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Like{}).
		Select("content_item_id").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(&ids).Error
	return ids, err
}
