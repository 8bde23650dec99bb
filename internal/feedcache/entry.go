package feedcache

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// Inclusion reasons attached to cached entries.
const (
	ReasonRecentPost      = "RECENT_POST"
	ReasonFallback        = "FALLBACK"
	ReasonHighEngagement  = "HIGH_ENGAGEMENT"
	ReasonPreferenceMatch = "PREFERENCE_MATCH"
	reasonTagPrefix       = "TAG:"
)

// TagReason builds the reason string recording a tag-based inclusion.
func TagReason(tag string) string { return reasonTagPrefix + tag }

// ItemSnapshot is the denormalized slice of a content item a client needs to
// render a feed row without a second fetch.
type ItemSnapshot struct {
	ID          string     `json:"id"`
	AuthorID    string     `json:"author_id"`
	MemorialID  string     `json:"memorial_id,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	MediaType   string     `json:"media_type,omitempty"`
	MediaURL    string     `json:"media_url,omitempty"`
	Likes       int64      `json:"likes"`
	Impressions int64      `json:"impressions"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Entry is one materialized feed row. Derived, never authoritative; it lives
// only in the cache and is rebuilt at will.
type Entry struct {
	ID          string       `json:"id"`
	PublishedAt time.Time    `json:"published_at"`
	Score       *float64     `json:"score,omitempty"`
	Reasons     []string     `json:"reasons,omitempty"`
	Item        ItemSnapshot `json:"item"`
}

// EntryID derives the deterministic entry id for a content item within a
// scope. Stable across rebuilds so de-duplication and cursors keep working.
func EntryID(scope, itemID string) string {
	sum := sha256.Sum256([]byte(scope + ":" + itemID))
	return fmt.Sprintf("%x", sum[:8])
}
