package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/language"

	"github.com/everkeep/backend/config"
	"github.com/everkeep/backend/internal/feedcache"
	"github.com/everkeep/backend/internal/model"
	"github.com/everkeep/backend/internal/repository"
	"github.com/everkeep/backend/pkg/logger"
)

// Lane identifies one of the feed views.
type Lane struct {
	Kind       string // GLOBAL | FALLBACK | MEMORIAL | COMMUNITY | PERSONAL
	MemorialID string // MEMORIAL only
}

const (
	LaneGlobal    = "GLOBAL"
	LaneFallback  = "FALLBACK"
	LaneMemorial  = "MEMORIAL"
	LaneCommunity = "COMMUNITY"
	LanePersonal  = "PERSONAL"
)

// ParseLane parses a lane identifier: GLOBAL, FALLBACK, MEMORIAL:<id>,
// COMMUNITY or PERSONAL.
func ParseLane(s string) (Lane, error) {
	switch s {
	case LaneGlobal, LaneFallback, LaneCommunity, LanePersonal:
		return Lane{Kind: s}, nil
	}
	if id, ok := strings.CutPrefix(s, LaneMemorial+":"); ok && id != "" {
		return Lane{Kind: LaneMemorial, MemorialID: id}, nil
	}
	return Lane{}, &ValidationError{Reason: fmt.Sprintf("unknown lane %q", s)}
}

// LaneQuery carries per-request read options. Cursor is an opaque entry (or
// statement) id; callers pass it back unmodified.
type LaneQuery struct {
	Limit   int
	Cursor  string
	UserID  string
	Lat     *float64
	Lng     *float64
	Country string
}

// LanePage is one page of a lane. Content lanes fill Entries, activity lanes
// fill Statements.
type LanePage struct {
	Entries    []feedcache.Entry          `json:"entries,omitempty"`
	Statements []*model.ActivityStatement `json:"statements,omitempty"`
	NextCursor string                     `json:"next_cursor,omitempty"`
}

// RecordStatementInput is the write-path input for a structured activity
// statement. Parts, when non-empty, skips template rendering (backward
// compatible manual creation).
type RecordStatementInput struct {
	Type            model.StatementType
	Payload         map[string]any
	Parts           []model.Segment
	Locale          string
	MemorialID      *string
	FundraiserID    *string
	ObituaryID      *string
	ActorUserID     *string
	AudienceClasses []string
	AudienceUserIDs []string
	Lat             *float64
	Lng             *float64
	Country         string
	Visibility      string
	Metadata        map[string]any
}

// FeedService is the public entry point of the feed engine: it serves cached
// lanes, rebuilds them on miss, merges incremental updates, applies the
// preference overlay and paginates.
type FeedService struct {
	cfg        config.FeedConfig
	cache      *feedcache.Store
	builder    *FeedBuilder
	content    repository.ContentRepository
	statements repository.StatementRepository
	memorials  repository.MemorialRepository
	prefs      *PreferenceSource
	renderer   *Renderer

	// appendMu serializes cache read-modify-writes per memorial. Builders may
	// race freely; appends may not.
	mu       sync.Mutex
	appendMu map[string]*sync.Mutex
}

func NewFeedService(
	cfg config.FeedConfig,
	cache *feedcache.Store,
	builder *FeedBuilder,
	content repository.ContentRepository,
	statements repository.StatementRepository,
	memorials repository.MemorialRepository,
	prefs *PreferenceSource,
	renderer *Renderer,
) *FeedService {
	return &FeedService{
		cfg:        cfg,
		cache:      cache,
		builder:    builder,
		content:    content,
		statements: statements,
		memorials:  memorials,
		prefs:      prefs,
		renderer:   renderer,
		appendMu:   map[string]*sync.Mutex{},
	}
}

func (s *FeedService) cacheKey(lane Lane) string {
	switch lane.Kind {
	case LaneMemorial:
		return "feed:memorial:" + lane.MemorialID
	case LaneFallback:
		return "feed:fallback"
	default:
		return "feed:global"
	}
}

func (s *FeedService) clampLimit(limit int) int {
	if limit <= 0 {
		return 20
	}
	if limit > s.cfg.MaxFeedSize {
		return s.cfg.MaxFeedSize
	}
	return limit
}

// GetLane serves one page of the requested lane.
func (s *FeedService) GetLane(ctx context.Context, lane Lane, q LaneQuery) (*LanePage, error) {
	q.Limit = s.clampLimit(q.Limit)
	switch lane.Kind {
	case LaneCommunity, LanePersonal:
		return s.getActivityLane(ctx, lane, q)
	default:
		return s.getContentLane(ctx, lane, q)
	}
}

func (s *FeedService) getContentLane(ctx context.Context, lane Lane, q LaneQuery) (*LanePage, error) {
	key := s.cacheKey(lane)

	degraded := false
	entries, hit, err := s.cache.Get(ctx, key)
	if err != nil {
		// Cache down: build straight from persistence and serve uncached.
		logger.Warn("feed cache unavailable, serving uncached", zap.String("key", key), zap.Error(err))
		degraded = true
	}
	if !hit {
		entries, err = s.build(ctx, lane)
		if err != nil {
			return nil, fmt.Errorf("%w: build %s: %w", ErrDependencyUnavailable, key, err)
		}
		if !degraded {
			if err := s.cache.Set(ctx, key, entries, s.cfg.CacheTTL); err != nil {
				logger.Warn("feed cache write failed", zap.String("key", key), zap.Error(err))
			}
		}
	}

	if q.UserID != "" {
		entries = s.applyPreferenceOverlay(ctx, entries, q.UserID)
	}

	page, next := paginateEntries(entries, q.Cursor, q.Limit)
	return &LanePage{Entries: page, NextCursor: next}, nil
}

func (s *FeedService) build(ctx context.Context, lane Lane) ([]feedcache.Entry, error) {
	switch lane.Kind {
	case LaneMemorial:
		return s.builder.BuildMemorialLane(ctx, lane.MemorialID)
	case LaneFallback:
		return s.builder.BuildFallbackLane(ctx)
	default:
		return s.builder.BuildGlobalLane(ctx)
	}
}

// applyPreferenceOverlay re-ranks entries with the viewer's preference tags
// and marks matches. Stable sort keeps the lane's base ordering for ties.
func (s *FeedService) applyPreferenceOverlay(ctx context.Context, entries []feedcache.Entry, userID string) []feedcache.Entry {
	prefTags := s.prefs.Tags(ctx, userID)
	now := time.Now()
	out := make([]feedcache.Entry, len(entries))
	copy(out, entries)
	for i := range out {
		e := &out[i]
		score := RankScore(e.PublishedAt, e.Item.Tags, e.Item.Likes, e.Item.Impressions, now, prefTags)
		e.Score = &score
		if PreferenceMatches(e.Item.Tags, prefTags) > 0 {
			e.Reasons = append(e.Reasons, feedcache.ReasonPreferenceMatch)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return *out[i].Score > *out[j].Score })
	return out
}

// paginateEntries slices entries after the cursor entry. An unknown cursor
// starts from the beginning; cursors are position hints, not snapshot handles.
func paginateEntries(entries []feedcache.Entry, cursor string, limit int) ([]feedcache.Entry, string) {
	start := 0
	if cursor != "" {
		for i, e := range entries {
			if e.ID == cursor {
				start = i + 1
				break
			}
		}
	}
	if start >= len(entries) {
		return nil, ""
	}
	end := start + limit
	if end > len(entries) {
		end = len(entries)
	}
	page := entries[start:end]
	next := ""
	if end < len(entries) && len(page) > 0 {
		next = page[len(page)-1].ID
	}
	return page, next
}

func (s *FeedService) getActivityLane(ctx context.Context, lane Lane, q LaneQuery) (*LanePage, error) {
	var (
		sts []*model.ActivityStatement
		err error
	)
	switch lane.Kind {
	case LaneCommunity:
		filter := repository.CommunityFilter{Country: q.Country}
		if q.Lat != nil && q.Lng != nil {
			filter.GeoBucketPrefix = GeoBucket(*q.Lat, *q.Lng, s.cfg.GeoPrecision)
		}
		filter.MemorialIDs = s.prefs.FollowedMemorialIDs(ctx, q.UserID)
		sts, err = s.statements.ListCommunity(ctx, filter, q.Cursor, q.Limit)
	case LanePersonal:
		if q.UserID == "" {
			return nil, &ValidationError{Reason: "personal lane requires a user"}
		}
		filter := repository.PersonalFilter{
			UserID:      q.UserID,
			MemorialIDs: s.prefs.FollowedMemorialIDs(ctx, q.UserID),
		}
		sts, err = s.statements.ListPersonal(ctx, filter, q.Cursor, q.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: activity lane: %w", ErrDependencyUnavailable, err)
	}
	next := ""
	if len(sts) == q.Limit && len(sts) > 0 {
		next = sts[len(sts)-1].ID
	}
	return &LanePage{Statements: sts, NextCursor: next}, nil
}

func (s *FeedService) memorialLock(memorialID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	mu, ok := s.appendMu[memorialID]
	if !ok {
		mu = &sync.Mutex{}
		s.appendMu[memorialID] = mu
	}
	return mu
}

// AppendMemorialEntry is the incremental fast-path run when content is
// published: prepend a single entry to the memorial lane without a full
// rebuild. De-duplicates by content-item id, newest entry wins. Serialized
// per memorial; a concurrent full rebuild may still overwrite the append,
// which the next read repairs.
func (s *FeedService) AppendMemorialEntry(ctx context.Context, memorialID, contentItemID string, reasons []string) error {
	item, err := s.content.GetByID(ctx, contentItemID)
	if err != nil {
		return err
	}
	scope := "memorial:" + memorialID
	if len(reasons) == 0 {
		reasons = derivedReasons(item, time.Now())
	}
	entry := buildEntry(scope, item, reasons, nil)

	mu := s.memorialLock(memorialID)
	mu.Lock()
	defer mu.Unlock()

	key := "feed:memorial:" + memorialID
	current, _, err := s.cache.Get(ctx, key)
	if err != nil {
		// Nothing to merge into; the next read rebuilds from persistence.
		logger.Warn("append skipped, feed cache unavailable", zap.String("key", key), zap.Error(err))
		return nil
	}

	merged := make([]feedcache.Entry, 0, len(current)+1)
	merged = append(merged, entry)
	seen := map[string]struct{}{entry.Item.ID: {}}
	for _, e := range current {
		if _, dup := seen[e.Item.ID]; dup {
			logger.Debug("append replaced stale entry", zap.String("key", key), zap.String("item", e.Item.ID))
			continue
		}
		seen[e.Item.ID] = struct{}{}
		merged = append(merged, e)
	}
	if len(merged) > s.cfg.MaxFeedSize {
		merged = merged[:s.cfg.MaxFeedSize]
	}

	if err := s.cache.Set(ctx, key, merged, s.cfg.CacheTTL); err != nil {
		logger.Warn("append write failed", zap.String("key", key), zap.Error(err))
	}
	return nil
}

// RebuildMemorialLane forces a full builder run and cache overwrite. An empty
// build deletes the key so emptiness always reads as a miss.
func (s *FeedService) RebuildMemorialLane(ctx context.Context, memorialID string) error {
	entries, err := s.builder.BuildMemorialLane(ctx, memorialID)
	if err != nil {
		return fmt.Errorf("rebuild memorial %s: %w", memorialID, err)
	}

	mu := s.memorialLock(memorialID)
	mu.Lock()
	defer mu.Unlock()

	key := "feed:memorial:" + memorialID
	if err := s.cache.Set(ctx, key, entries, s.cfg.CacheTTL); err != nil {
		return fmt.Errorf("rebuild memorial %s: %w", memorialID, err)
	}
	return nil
}

// RecordActivityStatement validates, renders and persists a structured event
// statement. Statements are immutable once created.
func (s *FeedService) RecordActivityStatement(ctx context.Context, in RecordStatementInput) (*model.ActivityStatement, error) {
	parts := in.Parts
	if len(parts) == 0 {
		locale := language.English
		if in.Locale != "" {
			if tag, err := language.Parse(in.Locale); err == nil {
				locale = tag
			}
		}
		rendered, err := s.renderer.Render(in.Type, in.Payload, locale)
		if err != nil {
			return nil, err
		}
		parts = rendered
	}

	st := &model.ActivityStatement{
		ID:              uuid.New().String(),
		Type:            in.Type,
		MemorialID:      in.MemorialID,
		FundraiserID:    in.FundraiserID,
		ObituaryID:      in.ObituaryID,
		ActorUserID:     in.ActorUserID,
		Parts:           parts,
		AudienceClasses: in.AudienceClasses,
		AudienceUserIDs: in.AudienceUserIDs,
		Lat:             in.Lat,
		Lng:             in.Lng,
		Country:         in.Country,
		Visibility:      in.Visibility,
		Metadata:        in.Metadata,
		CreatedAt:       time.Now(),
	}
	if in.Lat != nil && in.Lng != nil {
		bucket := GeoBucket(*in.Lat, *in.Lng, s.cfg.GeoPrecision)
		if bucket == "" {
			return nil, &ValidationError{StatementType: in.Type, Reason: "malformed geo coordinates"}
		}
		st.GeoBucket = bucket
	}

	// Default the audience classes from the memorial's themes so theme-based
	// targeting works without callers repeating the lookup.
	if len(st.AudienceClasses) == 0 && in.MemorialID != nil {
		if m, err := s.memorials.GetByID(ctx, *in.MemorialID); err == nil {
			st.AudienceClasses = m.Themes
		}
	}

	if err := s.statements.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("%w: persist statement: %w", ErrDependencyUnavailable, err)
	}
	return st, nil
}
