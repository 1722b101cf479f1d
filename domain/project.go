package domain

import "time"

// ProjectStatus tracks a project's lifecycle stage.
type ProjectStatus string

const (
	ProjectActive    ProjectStatus = "ACTIVE"
	ProjectCompleted ProjectStatus = "COMPLETED"
	ProjectArchived  ProjectStatus = "ARCHIVED"
	ProjectOnHold    ProjectStatus = "ON_HOLD"
)

// Valid reports whether s is one of the known project statuses.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectActive, ProjectCompleted, ProjectArchived, ProjectOnHold:
		return true
	}
	return false
}

// Project groups tasks under a single owner. Deleting a project cascades to
// its tasks.
type Project struct {
	ID          string        `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description,omitempty"`
	Color       string        `json:"color,omitempty"`
	Status      ProjectStatus `gorm:"default:ACTIVE" json:"status"`
	UserID      string        `gorm:"not null;index" json:"userId"`

	Tasks []Task `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
