package api

import (
	"context"

	"taskboard-api/domain"
	"taskboard-api/storage"
)

// Storage abstracts persistence for handlers. *storage.Store and
// *storage.Cache both satisfy it.
type Storage interface {
	ListTasks(ctx context.Context, userID string, f storage.TaskFilter) ([]domain.Task, int64, error)
	GetTask(ctx context.Context, userID, id string) (*domain.Task, error)
	CreateTask(ctx context.Context, userID string, task *domain.Task, tagIDs []string) (*domain.Task, error)
	UpdateTask(ctx context.Context, userID, id string, patch storage.TaskPatch) (*domain.Task, error)
	DeleteTask(ctx context.Context, userID, id string) error
	ReorderTasks(ctx context.Context, userID string, items []domain.TaskPosition) []storage.ItemResult

	ListProjects(ctx context.Context, userID string) ([]domain.Project, error)
	GetProject(ctx context.Context, userID, id string) (*domain.Project, error)
	CreateProject(ctx context.Context, userID string, project *domain.Project) (*domain.Project, error)
	UpdateProject(ctx context.Context, userID, id string, patch storage.ProjectPatch) (*domain.Project, error)
	DeleteProject(ctx context.Context, userID, id string) error

	ListTags(ctx context.Context, userID string) ([]domain.Tag, error)
	CreateTag(ctx context.Context, userID string, tag *domain.Tag) (*domain.Tag, error)
	DeleteTag(ctx context.Context, userID, id string) error

	UpsertUser(ctx context.Context, user *domain.User) error
	GetUser(ctx context.Context, id string) (*domain.User, error)
}

// Authenticator is implemented by types able to extract user IDs from
// Authorization headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}
