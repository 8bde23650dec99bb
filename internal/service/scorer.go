package service

import (
	"math"
	"time"

	"github.com/everkeep/backend/internal/model"
)

// Engagement gating constants for the global high-engagement lane. The score
// alone never qualifies an item; it must also show real interaction so
// impression-inflated content stays out.
const (
	gateMinLikes       = 5
	gateMinImpressions = 200
)

// round4 keeps scores stable across cache round trips and comparisons.
func round4(v float64) float64 { return math.Round(v*10000) / 10000 }

// EngagementScore is the weighted interaction score of a content item:
// 3·likes + 2·clicks + 0.05·impressions + watchTime/1s.
func EngagementScore(m model.Metrics) float64 {
	s := 3*float64(m.Likes) + 2*float64(m.Clicks) + 0.05*float64(m.Impressions) + float64(m.WatchTimeMs)/1000
	return round4(s)
}

// QualifiesForGlobal gates inclusion into the global high-engagement lane.
func QualifiesForGlobal(item *model.ContentItem, threshold float64) bool {
	if item.Media.Type != model.MediaVideo {
		return false
	}
	if EngagementScore(item.Metrics) < threshold {
		return false
	}
	return item.Metrics.Likes >= gateMinLikes || item.Metrics.Impressions >= gateMinImpressions
}

// RankScore composes recency, preference match and (capped) engagement into
// the personalized ordering score: 1 + recency + preference + min(engagement, 1).
// Recency decays linearly to zero over 30 days; each preference tag hit adds
// 0.2; engagement can only nudge, never dominate.
func RankScore(publishedAt time.Time, tags []string, likes, impressions int64, now time.Time, prefTags map[string]struct{}) float64 {
	ageDays := now.Sub(publishedAt).Hours() / 24
	recency := math.Max(0, 1-ageDays/30)

	matches := 0
	for _, t := range tags {
		if _, ok := prefTags[t]; ok {
			matches++
		}
	}
	preference := 0.2 * float64(matches)

	engagement := float64(likes)*0.01 + float64(impressions)*0.001
	if engagement > 1 {
		engagement = 1
	}

	return round4(1 + recency + preference + engagement)
}

// PreferenceMatches counts the item tags present in the viewer's preference set.
func PreferenceMatches(tags []string, prefTags map[string]struct{}) int {
	n := 0
	for _, t := range tags {
		if _, ok := prefTags[t]; ok {
			n++
		}
	}
	return n
}
