package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/everkeep/backend/internal/model"
	"github.com/everkeep/backend/internal/repository"
	"github.com/everkeep/backend/pkg/logger"
)

// ContentService covers the write path that feeds the engine: draft creation,
// publishing (which triggers the memorial-lane fast-path append) and additive
// interaction events.
type ContentService struct {
	content repository.ContentRepository
	likes   repository.LikeRepository
	feed    *FeedService
}

func NewContentService(content repository.ContentRepository, likes repository.LikeRepository, feed *FeedService) *ContentService {
	return &ContentService{content: content, likes: likes, feed: feed}
}

// CreateDraft stores a new draft content item.
func (s *ContentService) CreateDraft(ctx context.Context, item *model.ContentItem) error {
	if item.ID == "" {
		item.ID = uuid.New().String()
	}
	item.Status = model.StatusDraft
	if item.Visibility == "" {
		item.Visibility = model.VisibilityPublic
	}
	return s.content.Create(ctx, item)
}

// Publish marks the item published and appends it to its memorial lane via
// the incremental fast-path. Append failures never fail the publish.
func (s *ContentService) Publish(ctx context.Context, itemID string) (*model.ContentItem, error) {
	item, err := s.content.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	if err := s.content.MarkPublished(ctx, itemID, now); err != nil {
		return nil, err
	}
	item.Status = model.StatusPublished
	item.PublishedAt = &now

	if item.MemorialID != nil {
		if err := s.feed.AppendMemorialEntry(ctx, *item.MemorialID, item.ID, nil); err != nil {
			logger.Warn("publish: feed append failed",
				zap.String("item", item.ID), zap.String("memorial", *item.MemorialID), zap.Error(err))
		}
	}
	return item, nil
}

// Like records a like once per (user, item) and bumps the like counter.
func (s *ContentService) Like(ctx context.Context, userID, itemID string) error {
	if _, err := s.content.GetByID(ctx, itemID); err != nil {
		return err
	}
	created, err := s.likes.Create(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}
	return s.content.AddMetrics(ctx, itemID, model.Metrics{Likes: 1})
}

// Unlike removes a like and decrements the counter when one existed.
func (s *ContentService) Unlike(ctx context.Context, userID, itemID string) error {
	deleted, err := s.likes.Delete(ctx, userID, itemID)
	if err != nil {
		return err
	}
	if !deleted {
		return nil
	}
	return s.content.AddMetrics(ctx, itemID, model.Metrics{Likes: -1})
}

// RecordImpression bumps the impression counter, optionally with watch time.
func (s *ContentService) RecordImpression(ctx context.Context, itemID string, watchTimeMs int64) error {
	delta := model.Metrics{Impressions: 1}
	if watchTimeMs > 0 {
		delta.WatchTimeMs = watchTimeMs
	}
	return s.content.AddMetrics(ctx, itemID, delta)
}
