package domain

import "time"

// Status is a task's position in the board workflow. Every status may
// transition to every other; DONE is terminal in the UI sense only.
type Status string

const (
	StatusTodo       Status = "TODO"
	StatusInProgress Status = "IN_PROGRESS"
	StatusReview     Status = "REVIEW"
	StatusDone       Status = "DONE"
)

// Statuses lists the board lanes in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusReview, StatusDone}

// Valid reports whether s is one of the known workflow statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// Priority ranks a task's urgency.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
	PriorityUrgent Priority = "URGENT"
)

// Valid reports whether p is one of the known priorities.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// MaxTitleLen is the upper bound for task titles.
const MaxTitleLen = 200

// Task represents a single board item.
//
// Order ranks the task within its status lane. Values are unique enough for
// display within a (user, status) partition but are not required to be
// contiguous; display sort is by (status, order, createdAt).
//
// UserID duplicates the owning project's user so ownership checks need no
// join.
type Task struct {
	ID             string     `gorm:"type:uuid;primaryKey" json:"id"`
	Title          string     `gorm:"not null" json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         Status     `gorm:"index;default:TODO" json:"status"`
	Priority       Priority   `gorm:"default:MEDIUM" json:"priority"`
	Deadline       *time.Time `json:"deadline,omitempty"`
	Order          int        `gorm:"column:sort_order" json:"order"`
	EstimatedHours float64    `json:"estimatedHours,omitempty"`
	ActualHours    float64    `json:"actualHours,omitempty"`

	ProjectID string   `gorm:"type:uuid;not null;index" json:"projectId"`
	Project   *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	UserID    string   `gorm:"not null;index" json:"userId"`

	Tags []Tag `gorm:"many2many:task_tags;constraint:OnDelete:CASCADE" json:"tags"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// Clone returns a deep copy of the task, including its tag list.
func (t Task) Clone() Task {
	out := t
	if t.Tags != nil {
		out.Tags = make([]Tag, len(t.Tags))
		copy(out.Tags, t.Tags)
	}
	return out
}

// CloneTasks deep-copies a task list. Snapshots taken for optimistic rollback
// must not alias the live slice.
func CloneTasks(tasks []Task) []Task {
	if tasks == nil {
		return nil
	}
	out := make([]Task, len(tasks))
	for i := range tasks {
		out[i] = tasks[i].Clone()
	}
	return out
}
