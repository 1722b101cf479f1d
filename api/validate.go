package api

import (
	"fmt"
	"strings"
	"time"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

// fieldError names the first request field that failed validation.
type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string {
	return e.field + ": " + e.msg
}

type createTaskRequest struct {
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Priority       string   `json:"priority"`
	Deadline       string   `json:"deadline"`
	ProjectID      string   `json:"projectId"`
	TagIDs         []string `json:"tagIds"`
	EstimatedHours float64  `json:"estimatedHours"`
}

// validate checks fields in declaration order and reports the first offender.
func (r *createTaskRequest) validate() (*domain.Task, []string, *fieldError) {
	if r.Title == "" {
		return nil, nil, &fieldError{"title", "is required"}
	}
	if len(r.Title) > domain.MaxTitleLen {
		return nil, nil, &fieldError{"title", fmt.Sprintf("must be at most %d characters", domain.MaxTitleLen)}
	}
	priority := domain.Priority(strings.ToUpper(r.Priority))
	if !priority.Valid() {
		return nil, nil, &fieldError{"priority", "must be one of LOW, MEDIUM, HIGH, URGENT"}
	}
	var deadline *time.Time
	if r.Deadline != "" {
		parsed, err := time.Parse(time.RFC3339, r.Deadline)
		if err != nil {
			return nil, nil, &fieldError{"deadline", "must be an ISO-8601 timestamp"}
		}
		deadline = &parsed
	}
	if r.ProjectID == "" {
		return nil, nil, &fieldError{"projectId", "is required"}
	}
	if r.EstimatedHours < 0 {
		return nil, nil, &fieldError{"estimatedHours", "must not be negative"}
	}

	return &domain.Task{
		Title:          r.Title,
		Description:    r.Description,
		Priority:       priority,
		Deadline:       deadline,
		ProjectID:      r.ProjectID,
		EstimatedHours: r.EstimatedHours,
	}, r.TagIDs, nil
}

type updateTaskRequest struct {
	Title          *string   `json:"title"`
	Description    *string   `json:"description"`
	Status         *string   `json:"status"`
	Priority       *string   `json:"priority"`
	Deadline       *string   `json:"deadline"`
	Order          *int      `json:"order"`
	ProjectID      *string   `json:"projectId"`
	EstimatedHours *float64  `json:"estimatedHours"`
	ActualHours    *float64  `json:"actualHours"`
	TagIDs         *[]string `json:"tagIds"`
}

func (r *updateTaskRequest) validate() (storage.TaskPatch, *fieldError) {
	var patch storage.TaskPatch

	if r.Title != nil {
		if *r.Title == "" {
			return patch, &fieldError{"title", "must not be empty"}
		}
		if len(*r.Title) > domain.MaxTitleLen {
			return patch, &fieldError{"title", fmt.Sprintf("must be at most %d characters", domain.MaxTitleLen)}
		}
		patch.Title = r.Title
	}
	patch.Description = r.Description
	if r.Status != nil {
		status := domain.Status(strings.ToUpper(*r.Status))
		if !status.Valid() {
			return patch, &fieldError{"status", "must be one of TODO, IN_PROGRESS, REVIEW, DONE"}
		}
		patch.Status = &status
	}
	if r.Priority != nil {
		priority := domain.Priority(strings.ToUpper(*r.Priority))
		if !priority.Valid() {
			return patch, &fieldError{"priority", "must be one of LOW, MEDIUM, HIGH, URGENT"}
		}
		patch.Priority = &priority
	}
	if r.Deadline != nil {
		parsed, err := time.Parse(time.RFC3339, *r.Deadline)
		if err != nil {
			return patch, &fieldError{"deadline", "must be an ISO-8601 timestamp"}
		}
		patch.Deadline = &parsed
	}
	if r.Order != nil {
		if *r.Order < 0 {
			return patch, &fieldError{"order", "must not be negative"}
		}
		patch.Order = r.Order
	}
	if r.ProjectID != nil {
		if *r.ProjectID == "" {
			return patch, &fieldError{"projectId", "must not be empty"}
		}
		patch.ProjectID = r.ProjectID
	}
	if r.EstimatedHours != nil {
		if *r.EstimatedHours < 0 {
			return patch, &fieldError{"estimatedHours", "must not be negative"}
		}
		patch.EstimatedHours = r.EstimatedHours
	}
	if r.ActualHours != nil {
		if *r.ActualHours < 0 {
			return patch, &fieldError{"actualHours", "must not be negative"}
		}
		patch.ActualHours = r.ActualHours
	}
	patch.TagIDs = r.TagIDs
	return patch, nil
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Color       string `json:"color"`
	Status      string `json:"status"`
}

func (r *projectRequest) validate() (*domain.Project, *fieldError) {
	if r.Name == "" {
		return nil, &fieldError{"name", "is required"}
	}
	status := domain.ProjectActive
	if r.Status != "" {
		status = domain.ProjectStatus(strings.ToUpper(r.Status))
		if !status.Valid() {
			return nil, &fieldError{"status", "must be one of ACTIVE, COMPLETED, ARCHIVED, ON_HOLD"}
		}
	}
	return &domain.Project{
		Name:        r.Name,
		Description: r.Description,
		Color:       r.Color,
		Status:      status,
	}, nil
}

type updateProjectRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Color       *string `json:"color"`
	Status      *string `json:"status"`
}

func (r *updateProjectRequest) validate() (storage.ProjectPatch, *fieldError) {
	var patch storage.ProjectPatch
	if r.Name != nil {
		if *r.Name == "" {
			return patch, &fieldError{"name", "must not be empty"}
		}
		patch.Name = r.Name
	}
	patch.Description = r.Description
	patch.Color = r.Color
	if r.Status != nil {
		status := domain.ProjectStatus(strings.ToUpper(*r.Status))
		if !status.Valid() {
			return patch, &fieldError{"status", "must be one of ACTIVE, COMPLETED, ARCHIVED, ON_HOLD"}
		}
		patch.Status = &status
	}
	return patch, nil
}

type tagRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

func (r *tagRequest) validate() (*domain.Tag, *fieldError) {
	if r.Name == "" {
		return nil, &fieldError{"name", "is required"}
	}
	return &domain.Tag{Name: r.Name, Color: r.Color}, nil
}
