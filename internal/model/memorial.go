package model

import "time"

// Memorial carries the fields the feed engine reads: themes decorate rendered
// statements and feed reasons, country feeds the community-lane filter.
type Memorial struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerID   string    `gorm:"type:varchar(36);index;not null" json:"owner_id"`
	Name      string    `gorm:"type:varchar(255);not null" json:"name"`
	Themes    []string  `gorm:"serializer:json;type:text" json:"themes"`
	Country   string    `gorm:"type:varchar(8)" json:"country,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Memorial) TableName() string { return "memorials" }
