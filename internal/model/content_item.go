package model

import "time"

// Visibility of a content item.
const (
	VisibilityPublic   = "PUBLIC"
	VisibilityUnlisted = "UNLISTED"
	VisibilityPrivate  = "PRIVATE"
)

// Lifecycle status of a content item.
const (
	StatusDraft     = "DRAFT"
	StatusPublished = "PUBLISHED"
	StatusRemoved   = "REMOVED"
)

// Media types.
const (
	MediaVideo = "video"
	MediaImage = "image"
	MediaText  = "text"
)

// Metrics is the additive counter bag backing the engagement formulas.
// All counters are non-negative and default to zero.
type Metrics struct {
	Impressions int64 `gorm:"not null;default:0" json:"impressions"`
	Clicks      int64 `gorm:"not null;default:0" json:"clicks"`
	WatchTimeMs int64 `gorm:"not null;default:0" json:"watch_time_ms"`
	Likes       int64 `gorm:"not null;default:0" json:"likes"`
	Flags       int64 `gorm:"not null;default:0" json:"flags"`
}

// Media describes the single attachment of a content item.
type Media struct {
	Type       string `gorm:"type:varchar(16)" json:"type"`
	URL        string `gorm:"type:varchar(1024)" json:"url"`
	DurationMs int64  `json:"duration_ms"`
}

// ContentItem is a published unit of user content. Owned by its author;
// metrics mutate additively via interaction events.
type ContentItem struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	AuthorID    string     `gorm:"type:varchar(36);index:idx_content_author;not null" json:"author_id"`
	MemorialID  *string    `gorm:"type:varchar(36);index:idx_content_memorial" json:"memorial_id,omitempty"`
	Visibility  string     `gorm:"type:varchar(16);not null;default:'PUBLIC'" json:"visibility"`
	Status      string     `gorm:"type:varchar(16);index;not null;default:'DRAFT'" json:"status"`
	Tags        []string   `gorm:"serializer:json;type:text" json:"tags"`
	Metrics     Metrics    `gorm:"embedded;embeddedPrefix:metric_" json:"metrics"`
	Media       Media      `gorm:"embedded;embeddedPrefix:media_" json:"media"`
	PublishedAt *time.Time `gorm:"index:idx_content_published" json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (ContentItem) TableName() string { return "content_items" }

// EffectivePublishedAt orders feeds: publish time when set, creation time otherwise.
func (c *ContentItem) EffectivePublishedAt() time.Time {
	if c.PublishedAt != nil {
		return *c.PublishedAt
	}
	return c.CreatedAt
}
