package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/everkeep/backend/internal/model"
)

func TestPublishAppendsToMemorialLane(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	svc := NewContentService(f.content, f.likes, f.svc)

	// an existing published post primes the cached lane
	f.seedItem(t, "p-old", "m1", 24*time.Hour, nil)
	_, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)

	mid := "m1"
	draft := &model.ContentItem{AuthorID: "u1", MemorialID: &mid, Media: model.Media{Type: model.MediaImage}}
	require.NoError(t, svc.CreateDraft(ctx, draft))

	published, err := svc.Publish(ctx, draft.ID)
	require.NoError(t, err)
	require.Equal(t, model.StatusPublished, published.Status)
	require.NotNil(t, published.PublishedAt)

	entries, hit, err := f.cache.Get(ctx, "feed:memorial:m1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, draft.ID, entries[0].Item.ID)
}

func TestLikeIdempotentPerUser(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	svc := NewContentService(f.content, f.likes, f.svc)
	f.seedItem(t, "p-1", "m1", time.Hour, nil)

	require.NoError(t, svc.Like(ctx, "u1", "p-1"))
	require.NoError(t, svc.Like(ctx, "u1", "p-1"))
	require.NoError(t, svc.Like(ctx, "u2", "p-1"))

	item, err := f.content.GetByID(ctx, "p-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, item.Metrics.Likes)

	require.NoError(t, svc.Unlike(ctx, "u1", "p-1"))
	require.NoError(t, svc.Unlike(ctx, "u1", "p-1"))
	item, err = f.content.GetByID(ctx, "p-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, item.Metrics.Likes)
}

func TestRecordImpression(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	svc := NewContentService(f.content, f.likes, f.svc)
	f.seedItem(t, "p-1", "m1", time.Hour, nil)

	require.NoError(t, svc.RecordImpression(ctx, "p-1", 0))
	require.NoError(t, svc.RecordImpression(ctx, "p-1", 4000))

	item, err := f.content.GetByID(ctx, "p-1")
	require.NoError(t, err)
	require.EqualValues(t, 2, item.Metrics.Impressions)
	require.EqualValues(t, 4000, item.Metrics.WatchTimeMs)
}
