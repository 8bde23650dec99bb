package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/everkeep/backend/config"
	"github.com/everkeep/backend/internal/repository"
	"github.com/everkeep/backend/pkg/logger"
)

// PreferenceSource computes the ephemeral per-request preference tag set from
// a user's recent likes and followed memorials. Never persisted; bounded to
// the most recent N of each source. Lookup failures degrade to an empty set,
// the overlay is best-effort.
type PreferenceSource struct {
	likes     repository.LikeRepository
	follows   repository.FollowRepository
	content   repository.ContentRepository
	memorials repository.MemorialRepository
	cfg       config.FeedConfig
}

func NewPreferenceSource(
	likes repository.LikeRepository,
	follows repository.FollowRepository,
	content repository.ContentRepository,
	memorials repository.MemorialRepository,
	cfg config.FeedConfig,
) *PreferenceSource {
	return &PreferenceSource{likes: likes, follows: follows, content: content, memorials: memorials, cfg: cfg}
}

// Tags returns the preference tag set for userID.
func (p *PreferenceSource) Tags(ctx context.Context, userID string) map[string]struct{} {
	tags := map[string]struct{}{}
	if userID == "" {
		return tags
	}

	likedIDs, err := p.likes.ListRecentItemIDs(ctx, userID, p.cfg.RecentLikeWindow)
	if err != nil {
		logger.Warn("preference: recent likes lookup failed", zap.String("user", userID), zap.Error(err))
	} else if len(likedIDs) > 0 {
		items, err := p.content.ListByIDs(ctx, likedIDs)
		if err != nil {
			logger.Warn("preference: liked items lookup failed", zap.String("user", userID), zap.Error(err))
		} else {
			for _, item := range items {
				for _, t := range item.Tags {
					tags[t] = struct{}{}
				}
			}
		}
	}

	memorialIDs, err := p.follows.ListMemorialIDs(ctx, userID, p.cfg.RecentFollowWindow)
	if err != nil {
		logger.Warn("preference: follow lookup failed", zap.String("user", userID), zap.Error(err))
		return tags
	}
	memorials, err := p.memorials.ListByIDs(ctx, memorialIDs)
	if err != nil {
		logger.Warn("preference: memorial themes lookup failed", zap.String("user", userID), zap.Error(err))
		return tags
	}
	for _, m := range memorials {
		for _, t := range m.Themes {
			tags[t] = struct{}{}
		}
	}
	return tags
}

// FollowedMemorialIDs exposes the follow list for lane filters.
func (p *PreferenceSource) FollowedMemorialIDs(ctx context.Context, userID string) []string {
	if userID == "" {
		return nil
	}
	ids, err := p.follows.ListMemorialIDs(ctx, userID, p.cfg.RecentFollowWindow)
	if err != nil {
		logger.Warn("preference: follow lookup failed", zap.String("user", userID), zap.Error(err))
		return nil
	}
	return ids
}
