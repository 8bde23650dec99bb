package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/everkeep/backend/internal/model"
)

type FollowRepository interface {
	Create(ctx context.Context, userID, memorialID string) error
	Delete(ctx context.Context, userID, memorialID string) error
	ListMemorialIDs(ctx context.Context, userID string, limit int) ([]string, error)
}

type followRepository struct{ db *gorm.DB }

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

func (r *followRepository) Create(ctx context.Context, userID, memorialID string) error {
	f := &model.Follow{ID: uuid.New().String(), UserID: userID, MemorialID: memorialID}
	// idempotent: re-following is not an error
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(f).Error
}

func (r *followRepository) Delete(ctx context.Context, userID, memorialID string) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND memorial_id = ?", userID, memorialID).
		Delete(&model.Follow{}).Error
}

func (r *followRepository) ListMemorialIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Select("memorial_id").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Scan(&ids).Error
	return ids, err
}
