package service

import (
	"context"
	"sort"
	"time"

	"github.com/everkeep/backend/config"
	"github.com/everkeep/backend/internal/feedcache"
	"github.com/everkeep/backend/internal/model"
	"github.com/everkeep/backend/internal/repository"
)

// recentWindow bounds the RECENT_POST inclusion reason.
const recentWindow = 7 * 24 * time.Hour

// FeedBuilder materializes the cache-backed content lanes from persistence.
// Builders are read-only and idempotent; concurrent runs for the same lane
// are a benign race (last writer wins).
type FeedBuilder struct {
	content repository.ContentRepository
	cfg     config.FeedConfig
}

func NewFeedBuilder(content repository.ContentRepository, cfg config.FeedConfig) *FeedBuilder {
	return &FeedBuilder{content: content, cfg: cfg}
}

// BuildMemorialLane lists one memorial's published items, newest first.
func (b *FeedBuilder) BuildMemorialLane(ctx context.Context, memorialID string) ([]feedcache.Entry, error) {
	items, err := b.content.ListPublishedByMemorial(ctx, memorialID, b.cfg.MaxFeedSize)
	if err != nil {
		return nil, err
	}
	scope := "memorial:" + memorialID
	entries := make([]feedcache.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, buildEntry(scope, item, derivedReasons(item, time.Now()), nil))
	}
	return entries, nil
}

// BuildFallbackLane lists published items across all memorials, newest first.
func (b *FeedBuilder) BuildFallbackLane(ctx context.Context) ([]feedcache.Entry, error) {
	items, err := b.content.ListPublished(ctx, b.cfg.MaxFeedSize)
	if err != nil {
		return nil, err
	}
	entries := make([]feedcache.Entry, 0, len(items))
	for _, item := range items {
		reasons := append([]string{feedcache.ReasonFallback}, derivedReasons(item, time.Now())...)
		entries = append(entries, buildEntry("fallback", item, reasons, nil))
	}
	return entries, nil
}

// BuildGlobalLane selects the high-engagement video items from a widened
// public candidate window, ordered by engagement score then recency.
func (b *FeedBuilder) BuildGlobalLane(ctx context.Context) ([]feedcache.Entry, error) {
	candidates, err := b.content.ListPublicPublished(ctx, 3*b.cfg.MaxFeedSize)
	if err != nil {
		return nil, err
	}
	qualified := make([]*model.ContentItem, 0, len(candidates))
	for _, item := range candidates {
		if QualifiesForGlobal(item, b.cfg.EngagementThreshold) {
			qualified = append(qualified, item)
		}
	}
	sort.SliceStable(qualified, func(i, j int) bool {
		si, sj := EngagementScore(qualified[i].Metrics), EngagementScore(qualified[j].Metrics)
		if si != sj {
			return si > sj
		}
		return qualified[i].EffectivePublishedAt().After(qualified[j].EffectivePublishedAt())
	})
	if len(qualified) > b.cfg.MaxFeedSize {
		qualified = qualified[:b.cfg.MaxFeedSize]
	}
	entries := make([]feedcache.Entry, 0, len(qualified))
	for _, item := range qualified {
		score := EngagementScore(item.Metrics)
		entries = append(entries, buildEntry("global", item, []string{feedcache.ReasonHighEngagement}, &score))
	}
	return entries, nil
}

// buildEntry denormalizes a content item into a cache entry for the scope.
func buildEntry(scope string, item *model.ContentItem, reasons []string, score *float64) feedcache.Entry {
	memorialID := ""
	if item.MemorialID != nil {
		memorialID = *item.MemorialID
	}
	return feedcache.Entry{
		ID:          feedcache.EntryID(scope, item.ID),
		PublishedAt: item.EffectivePublishedAt(),
		Score:       score,
		Reasons:     reasons,
		Item: feedcache.ItemSnapshot{
			ID:          item.ID,
			AuthorID:    item.AuthorID,
			MemorialID:  memorialID,
			Tags:        item.Tags,
			MediaType:   item.Media.Type,
			MediaURL:    item.Media.URL,
			Likes:       item.Metrics.Likes,
			Impressions: item.Metrics.Impressions,
			PublishedAt: item.PublishedAt,
		},
	}
}

// derivedReasons tags an entry with why it is in the lane: freshness and its
// content tags.
func derivedReasons(item *model.ContentItem, now time.Time) []string {
	var reasons []string
	if now.Sub(item.EffectivePublishedAt()) <= recentWindow {
		reasons = append(reasons, feedcache.ReasonRecentPost)
	}
	for _, tag := range item.Tags {
		reasons = append(reasons, feedcache.TagReason(tag))
	}
	return reasons
}
