package model

import "time"

// Like is a user-likes-content edge. Recent likes feed the per-request
// preference signal set.
type Like struct {
	ID            string `gorm:"primaryKey;type:varchar(36)"`
	UserID        string `gorm:"type:varchar(36);index:idx_like_user;index:idx_like_pair,unique;not null"`
	ContentItemID string `gorm:"type:varchar(36);not null;index:idx_like_pair,unique"`
	// idx_like_pair = (user_id, content_item_id)
	CreatedAt time.Time
}

func (Like) TableName() string { return "likes" }
