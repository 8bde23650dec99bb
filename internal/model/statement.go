package model

import "time"

// StatementType enumerates the structured event kinds the platform records.
type StatementType string

const (
	StatementDonation         StatementType = "DONATION"
	StatementMemorialUpdate   StatementType = "MEMORIAL_UPDATE"
	StatementFundraiserUpdate StatementType = "FUNDRAISER_UPDATE"
	StatementObituaryUpdate   StatementType = "OBITUARY_UPDATE"
	StatementEventNotice      StatementType = "EVENT_NOTICE"
	StatementAISummary        StatementType = "AI_SUMMARY"
)

// Segment is one renderable fragment of a statement. SourceRef is an opaque
// "{kind}:{id}" string clients use to deep-link; Derived marks text that was
// resolved from a record rather than written as a literal.
type Segment struct {
	Text      string `json:"text"`
	SourceRef string `json:"source_ref,omitempty"`
	Derived   bool   `json:"derived"`
}

// ActivityStatement is an authoritative, immutable record of a system event
// with its display segments pre-rendered at creation time.
type ActivityStatement struct {
	ID              string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Type            StatementType  `gorm:"type:varchar(32);index;not null" json:"type"`
	MemorialID      *string        `gorm:"type:varchar(36);index:idx_statement_memorial" json:"memorial_id,omitempty"`
	FundraiserID    *string        `gorm:"type:varchar(36)" json:"fundraiser_id,omitempty"`
	ObituaryID      *string        `gorm:"type:varchar(36)" json:"obituary_id,omitempty"`
	ActorUserID     *string        `gorm:"type:varchar(36);index" json:"actor_user_id,omitempty"`
	Parts           []Segment      `gorm:"serializer:json;type:text;not null" json:"parts"`
	AudienceClasses []string       `gorm:"serializer:json;type:text" json:"audience_classes"`
	AudienceUserIDs []string       `gorm:"serializer:json;type:text" json:"audience_user_ids"`
	Lat             *float64       `json:"lat,omitempty"`
	Lng             *float64       `json:"lng,omitempty"`
	GeoBucket       string         `gorm:"type:varchar(32);index" json:"geo_bucket,omitempty"`
	Country         string         `gorm:"type:varchar(8);index" json:"country,omitempty"`
	Visibility      string         `gorm:"type:varchar(16)" json:"visibility,omitempty"`
	Metadata        map[string]any `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
	CreatedAt       time.Time      `gorm:"index:idx_statement_created" json:"created_at"`
}

func (ActivityStatement) TableName() string { return "activity_statements" }
