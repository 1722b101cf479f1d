package domain

import "time"

// Tag is a cross-cutting label for tasks. Names are unique per user. The
// task_tags join table holds (task_id, tag_id) with a uniqueness constraint
// on the pair.
type Tag struct {
	ID     string `gorm:"type:uuid;primaryKey" json:"id"`
	Name   string `gorm:"not null;uniqueIndex:idx_tag_owner_name" json:"name"`
	Color  string `json:"color,omitempty"`
	UserID string `gorm:"not null;uniqueIndex:idx_tag_owner_name" json:"userId"`

	CreatedAt time.Time `json:"createdAt"`
}
