package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/everkeep/backend/config"
	"github.com/everkeep/backend/internal/feedcache"
	"github.com/everkeep/backend/internal/model"
	"github.com/everkeep/backend/internal/repository"
	"github.com/everkeep/backend/pkg/database"
)

type feedFixture struct {
	db        *gorm.DB
	mr        *miniredis.Miniredis
	cache     *feedcache.Store
	content   repository.ContentRepository
	follows   repository.FollowRepository
	likes     repository.LikeRepository
	memorials repository.MemorialRepository
	svc       *FeedService
}

func setupFeed(t *testing.T) *feedFixture {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := config.DefaultFeed()
	contentRepo := repository.NewContentRepository(db)
	statementRepo := repository.NewStatementRepository(db)
	followRepo := repository.NewFollowRepository(db)
	likeRepo := repository.NewLikeRepository(db)
	memorialRepo := repository.NewMemorialRepository(db)

	cache := feedcache.NewStore(client, time.Second)
	builder := NewFeedBuilder(contentRepo, cfg)
	prefs := NewPreferenceSource(likeRepo, followRepo, contentRepo, memorialRepo, cfg)
	svc := NewFeedService(cfg, cache, builder, contentRepo, statementRepo, memorialRepo, prefs, NewRenderer())

	return &feedFixture{
		db: db, mr: mr, cache: cache,
		content: contentRepo, follows: followRepo, likes: likeRepo, memorials: memorialRepo,
		svc: svc,
	}
}

func (f *feedFixture) seedItem(t *testing.T, id, memorialID string, publishedAgo time.Duration, mut func(*model.ContentItem)) *model.ContentItem {
	at := time.Now().Add(-publishedAgo)
	item := &model.ContentItem{
		ID:          id,
		AuthorID:    "author-1",
		Visibility:  model.VisibilityPublic,
		Status:      model.StatusPublished,
		Media:       model.Media{Type: model.MediaText},
		PublishedAt: &at,
	}
	if memorialID != "" {
		item.MemorialID = &memorialID
	}
	if mut != nil {
		mut(item)
	}
	require.NoError(t, f.db.Create(item).Error)
	return item
}

func memorialLane(id string) Lane { return Lane{Kind: LaneMemorial, MemorialID: id} }

func TestGetLaneMissBuildsAndCaches(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "p-new", "m1", time.Hour, nil)
	f.seedItem(t, "p-old", "m1", 48*time.Hour, nil)

	page, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.Equal(t, "p-new", page.Entries[0].Item.ID)
	require.Equal(t, "p-old", page.Entries[1].Item.ID)
	require.True(t, f.mr.Exists("feed:memorial:m1"))

	// cached: removing the backing row does not change the served lane
	require.NoError(t, f.db.Delete(&model.ContentItem{}, "id = ?", "p-old").Error)
	page2, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)
	require.Len(t, page2.Entries, 2)
}

func TestGetLaneGlobalEngagementGate(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	// 3*10 + 0.05*500 = 55 >= 25 and likes >= 5: in
	f.seedItem(t, "hot", "m1", time.Hour, func(i *model.ContentItem) {
		i.Media.Type = model.MediaVideo
		i.Metrics = model.Metrics{Likes: 10, Impressions: 500}
	})
	// 0.5 < 25: out
	f.seedItem(t, "cold", "m1", time.Hour, func(i *model.ContentItem) {
		i.Media.Type = model.MediaVideo
		i.Metrics = model.Metrics{Likes: 0, Impressions: 10}
	})

	page, err := f.svc.GetLane(ctx, Lane{Kind: LaneGlobal}, LaneQuery{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Equal(t, "hot", page.Entries[0].Item.ID)
	require.Contains(t, page.Entries[0].Reasons, feedcache.ReasonHighEngagement)
	require.NotNil(t, page.Entries[0].Score)
	require.Equal(t, 55.0, *page.Entries[0].Score)
}

func TestGetLaneFallback(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "a", "m1", time.Hour, nil)
	f.seedItem(t, "b", "m2", 2*time.Hour, nil)

	page, err := f.svc.GetLane(ctx, Lane{Kind: LaneFallback}, LaneQuery{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 2)
	require.Contains(t, page.Entries[0].Reasons, feedcache.ReasonFallback)
}

func TestPaginationMonotonic(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		f.seedItem(t, fmt.Sprintf("p-%d", i), "m1", time.Duration(i)*time.Hour, nil)
	}

	seen := map[string]bool{}
	cursor := ""
	pages := 0
	for {
		page, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{Limit: 2, Cursor: cursor})
		require.NoError(t, err)
		if len(page.Entries) == 0 {
			break
		}
		for _, e := range page.Entries {
			require.False(t, seen[e.Item.ID], "item %s repeated across pages", e.Item.ID)
			seen[e.Item.ID] = true
		}
		pages++
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	require.Equal(t, 3, pages)
	require.Len(t, seen, 5)
}

func TestPaginationUnknownCursorStartsOver(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "p-0", "m1", time.Hour, nil)

	page, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{Cursor: "no-such-entry"})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
}

func TestAppendMemorialEntryIdempotent(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "p-1", "m1", time.Hour, nil)

	// prime the lane so the append has a list to merge into
	_, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)

	require.NoError(t, f.svc.AppendMemorialEntry(ctx, "m1", "p-1", nil))
	require.NoError(t, f.svc.AppendMemorialEntry(ctx, "m1", "p-1", nil))

	entries, hit, err := f.cache.Get(ctx, "feed:memorial:m1")
	require.NoError(t, err)
	require.True(t, hit)
	count := 0
	for _, e := range entries {
		if e.Item.ID == "p-1" {
			count++
		}
	}
	require.Equal(t, 1, count)
}

func TestAppendMemorialEntryConcurrent(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	const items = 8
	ids := make([]string, 0, items)
	for i := 0; i < items; i++ {
		id := fmt.Sprintf("p-%d", i)
		f.seedItem(t, id, "m1", time.Duration(i)*time.Minute, nil)
		ids = append(ids, id)
	}
	_, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)

	errs := make(chan error, 4*items)
	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				errs <- f.svc.AppendMemorialEntry(ctx, "m1", id, nil)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	entries, hit, err := f.cache.Get(ctx, "feed:memorial:m1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Len(t, entries, items)
	seen := map[string]int{}
	for _, e := range entries {
		seen[e.Item.ID]++
	}
	for _, id := range ids {
		require.Equal(t, 1, seen[id], "item %s duplicated or lost", id)
	}
}

func TestAppendPrependsNewEntry(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "p-old", "m1", 48*time.Hour, nil)
	_, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)

	f.seedItem(t, "p-new", "m1", 0, nil)
	require.NoError(t, f.svc.AppendMemorialEntry(ctx, "m1", "p-new", []string{feedcache.ReasonRecentPost}))

	entries, hit, err := f.cache.Get(ctx, "feed:memorial:m1")
	require.NoError(t, err)
	require.True(t, hit)
	require.Equal(t, "p-new", entries[0].Item.ID)
	require.Equal(t, "p-old", entries[1].Item.ID)
}

func TestAppendMissingItem(t *testing.T) {
	f := setupFeed(t)
	err := f.svc.AppendMemorialEntry(context.Background(), "m1", "ghost", nil)
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRebuildEmptyLaneLeavesKeyMissing(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "p-1", "m1", time.Hour, nil)
	require.NoError(t, f.svc.RebuildMemorialLane(ctx, "m1"))
	require.True(t, f.mr.Exists("feed:memorial:m1"))

	// all posts gone: rebuild must delete, never cache an empty list
	require.NoError(t, f.db.Delete(&model.ContentItem{}, "id = ?", "p-1").Error)
	require.NoError(t, f.svc.RebuildMemorialLane(ctx, "m1"))
	require.False(t, f.mr.Exists("feed:memorial:m1"))
}

func TestGetLaneDegradesWhenCacheDown(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	f.seedItem(t, "p-1", "m1", time.Hour, nil)

	f.mr.Close()

	page, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)
	require.Len(t, page.Entries, 1)
	require.Equal(t, "p-1", page.Entries[0].Item.ID)
}

func TestPreferenceOverlayReranks(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	// viewer's taste comes from a liked item's tags
	liked := f.seedItem(t, "liked", "", 10*24*time.Hour, func(i *model.ContentItem) {
		i.Tags = []string{"roses", "veterans"}
	})
	_, err := f.likes.Create(ctx, "u1", liked.ID)
	require.NoError(t, err)

	f.seedItem(t, "plain-new", "m1", 0, nil)
	f.seedItem(t, "tagged-old", "m1", 24*time.Hour, func(i *model.ContentItem) {
		i.Tags = []string{"roses", "veterans"}
	})

	anon, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{})
	require.NoError(t, err)
	require.Equal(t, "plain-new", anon.Entries[0].Item.ID)

	personalized, err := f.svc.GetLane(ctx, memorialLane("m1"), LaneQuery{UserID: "u1"})
	require.NoError(t, err)
	// 1 + ~0.967 + 0.4 beats 1 + 1.0 + 0
	require.Equal(t, "tagged-old", personalized.Entries[0].Item.ID)
	require.Contains(t, personalized.Entries[0].Reasons, feedcache.ReasonPreferenceMatch)
	require.NotContains(t, personalized.Entries[1].Reasons, feedcache.ReasonPreferenceMatch)
}

func TestRecordStatementRendersAndPersists(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	lat, lng := 51.5009, -0.1338

	st, err := f.svc.RecordActivityStatement(ctx, RecordStatementInput{
		Type: model.StatementDonation,
		Payload: map[string]any{
			"donor_name":   "Ann",
			"amount_cents": 500,
			"currency":     "USD",
			"memorial":     map[string]any{"id": "m1", "name": "Walter Reed"},
		},
		MemorialID: ptr("m1"),
		Lat:        &lat,
		Lng:        &lng,
		Country:    "GB",
	})
	require.NoError(t, err)
	require.NotEmpty(t, st.ID)
	require.NotEmpty(t, st.Parts)
	require.Equal(t, "51.50,-0.13", st.GeoBucket)

	got, err := repository.NewStatementRepository(f.db).GetByID(ctx, st.ID)
	require.NoError(t, err)
	require.Equal(t, st.Parts, got.Parts)
}

func TestRecordStatementPreRenderedParts(t *testing.T) {
	f := setupFeed(t)
	st, err := f.svc.RecordActivityStatement(context.Background(), RecordStatementInput{
		Type:  model.StatementMemorialUpdate,
		Parts: []model.Segment{{Text: "hand-written"}},
	})
	require.NoError(t, err)
	require.Len(t, st.Parts, 1)
}

func TestRecordStatementDefaultsAudienceFromThemes(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	require.NoError(t, f.memorials.Create(ctx, &model.Memorial{
		ID:      "m-themes",
		OwnerID: "owner-1",
		Name:    "Walter Reed",
		Themes:  []string{"veteran", "gardening"},
	}))

	st, err := f.svc.RecordActivityStatement(ctx, RecordStatementInput{
		Type:       model.StatementMemorialUpdate,
		Parts:      []model.Segment{{Text: "update"}},
		MemorialID: ptr("m-themes"),
	})
	require.NoError(t, err)
	require.Equal(t, []string{"veteran", "gardening"}, st.AudienceClasses)

	// Explicit classes win over the memorial's themes.
	st, err = f.svc.RecordActivityStatement(ctx, RecordStatementInput{
		Type:            model.StatementMemorialUpdate,
		Parts:           []model.Segment{{Text: "update"}},
		MemorialID:      ptr("m-themes"),
		AudienceClasses: []string{"custom"},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"custom"}, st.AudienceClasses)
}

func TestRecordStatementValidation(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()

	_, err := f.svc.RecordActivityStatement(ctx, RecordStatementInput{
		Type:    model.StatementDonation,
		Payload: map[string]any{},
	})
	require.True(t, IsValidation(err))

	_, err = f.svc.RecordActivityStatement(ctx, RecordStatementInput{
		Type:    model.StatementType("BOGUS"),
		Payload: map[string]any{},
	})
	require.ErrorIs(t, err, ErrTemplateNotFound)
}

func TestActivityLanes(t *testing.T) {
	f := setupFeed(t)
	ctx := context.Background()
	lat, lng := 40.7128, -74.0060

	record := func(in RecordStatementInput) *model.ActivityStatement {
		st, err := f.svc.RecordActivityStatement(ctx, in)
		require.NoError(t, err)
		return st
	}

	parts := []model.Segment{{Text: "x"}}
	nearby := record(RecordStatementInput{Type: model.StatementEventNotice, Parts: parts, Lat: &lat, Lng: &lng})
	record(RecordStatementInput{Type: model.StatementEventNotice, Parts: parts, Country: "FR"})
	direct := record(RecordStatementInput{Type: model.StatementDonation, Parts: parts, AudienceUserIDs: []string{"u1"}})

	// community: geo bucket prefix match picks up the nearby statement
	page, err := f.svc.GetLane(ctx, Lane{Kind: LaneCommunity}, LaneQuery{Lat: &lat, Lng: &lng})
	require.NoError(t, err)
	require.Len(t, page.Statements, 1)
	require.Equal(t, nearby.ID, page.Statements[0].ID)

	// community: country match
	page, err = f.svc.GetLane(ctx, Lane{Kind: LaneCommunity}, LaneQuery{Country: "FR"})
	require.NoError(t, err)
	require.Len(t, page.Statements, 1)

	// personal: explicit audience membership
	page, err = f.svc.GetLane(ctx, Lane{Kind: LanePersonal}, LaneQuery{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, page.Statements, 1)
	require.Equal(t, direct.ID, page.Statements[0].ID)

	// personal lane needs an identity
	_, err = f.svc.GetLane(ctx, Lane{Kind: LanePersonal}, LaneQuery{})
	require.True(t, IsValidation(err))
}

func TestParseLane(t *testing.T) {
	lane, err := ParseLane("MEMORIAL:m1")
	require.NoError(t, err)
	require.Equal(t, Lane{Kind: LaneMemorial, MemorialID: "m1"}, lane)

	for _, s := range []string{"GLOBAL", "FALLBACK", "COMMUNITY", "PERSONAL"} {
		lane, err := ParseLane(s)
		require.NoError(t, err)
		require.Equal(t, s, lane.Kind)
	}

	_, err = ParseLane("MEMORIAL:")
	require.Error(t, err)
	_, err = ParseLane("nope")
	require.Error(t, err)
}

func ptr(s string) *string { return &s }
