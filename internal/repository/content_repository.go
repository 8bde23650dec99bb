package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/everkeep/backend/internal/model"
)

var ErrNotFound = errors.New("record not found")

type ContentRepository interface {
	Create(ctx context.Context, item *model.ContentItem) error
	GetByID(ctx context.Context, id string) (*model.ContentItem, error)
	MarkPublished(ctx context.Context, id string, at time.Time) error
	AddMetrics(ctx context.Context, id string, delta model.Metrics) error
	ListPublishedByMemorial(ctx context.Context, memorialID string, limit int) ([]*model.ContentItem, error)
	ListPublished(ctx context.Context, limit int) ([]*model.ContentItem, error)
	ListPublicPublished(ctx context.Context, limit int) ([]*model.ContentItem, error)
	ListByIDs(ctx context.Context, ids []string) ([]*model.ContentItem, error)
}

type contentRepository struct{ db *gorm.DB }

func NewContentRepository(db *gorm.DB) ContentRepository { return &contentRepository{db: db} }

func (r *contentRepository) Create(ctx context.Context, item *model.ContentItem) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *contentRepository) GetByID(ctx context.Context, id string) (*model.ContentItem, error) {
	var item model.ContentItem
	err := r.db.WithContext(ctx).First(&item, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *contentRepository) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&model.ContentItem{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.StatusPublished, "published_at": at})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddMetrics applies the non-zero counters of delta additively.
func (r *contentRepository) AddMetrics(ctx context.Context, id string, delta model.Metrics) error {
	updates := map[string]any{}
	if delta.Impressions != 0 {
		updates["metric_impressions"] = gorm.Expr("metric_impressions + ?", delta.Impressions)
	}
	if delta.Clicks != 0 {
		updates["metric_clicks"] = gorm.Expr("metric_clicks + ?", delta.Clicks)
	}
	if delta.WatchTimeMs != 0 {
		updates["metric_watch_time_ms"] = gorm.Expr("metric_watch_time_ms + ?", delta.WatchTimeMs)
	}
	if delta.Likes != 0 {
		updates["metric_likes"] = gorm.Expr("metric_likes + ?", delta.Likes)
	}
	if delta.Flags != 0 {
		updates["metric_flags"] = gorm.Expr("metric_flags + ?", delta.Flags)
	}
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&model.ContentItem{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *contentRepository) ListPublishedByMemorial(ctx context.Context, memorialID string, limit int) ([]*model.ContentItem, error) {
	var res []*model.ContentItem
	err := r.db.WithContext(ctx).
		Where("memorial_id = ? AND status = ?", memorialID, model.StatusPublished).
		Order("COALESCE(published_at, created_at) DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *contentRepository) ListPublished(ctx context.Context, limit int) ([]*model.ContentItem, error) {
	var res []*model.ContentItem
	err := r.db.WithContext(ctx).
		Where("status = ?", model.StatusPublished).
		Order("COALESCE(published_at, created_at) DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *contentRepository) ListPublicPublished(ctx context.Context, limit int) ([]*model.ContentItem, error) {
	var res []*model.ContentItem
	err := r.db.WithContext(ctx).
		Where("status = ? AND visibility = ?", model.StatusPublished, model.VisibilityPublic).
		Order("COALESCE(published_at, created_at) DESC").
		Limit(limit).
		Find(&res).Error
	return res, err
}

func (r *contentRepository) ListByIDs(ctx context.Context, ids []string) ([]*model.ContentItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.ContentItem
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}
