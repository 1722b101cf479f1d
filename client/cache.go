package client

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"taskboard-api/domain"
)

// Freshness windows. Tasks churn constantly on an active board; projects
// rarely change.
const (
	TasksTTL    = 30 * time.Second
	ProjectsTTL = 5 * time.Minute
)

// Cache is the client-side source of truth for the task and project
// collections. Reads inside the freshness window are served locally;
// concurrent refreshes of the same collection coalesce into one request.
// Mutations go through the API and mark the affected collection stale, so
// the next read refetches.
type Cache struct {
	api         *Client
	now         func() time.Time
	tasksTTL    time.Duration
	projectsTTL time.Duration
	group       singleflight.Group

	mu              sync.Mutex
	tasks           []domain.Task
	tasksFetched    time.Time
	projects        []domain.Project
	projectsFetched time.Time
	moveGen         map[string]uint64
}

// CacheOption customizes a Cache.
type CacheOption func(*Cache)

// WithClock swaps the time source. Tests use this to step through freshness
// windows without sleeping.
func WithClock(now func() time.Time) CacheOption {
	return func(s *Cache) { s.now = now }
}

// WithTasksTTL overrides the task collection freshness window.
func WithTasksTTL(d time.Duration) CacheOption {
	return func(s *Cache) { s.tasksTTL = d }
}

// WithProjectsTTL overrides the project collection freshness window.
func WithProjectsTTL(d time.Duration) CacheOption {
	return func(s *Cache) { s.projectsTTL = d }
}

// NewCache wraps api with collection caching.
func NewCache(api *Client, opts ...CacheOption) *Cache {
	s := &Cache{
		api:         api,
		now:         time.Now,
		tasksTTL:    TasksTTL,
		projectsTTL: ProjectsTTL,
		moveGen:     map[string]uint64{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Tasks returns the task collection, refetching when the cached copy is
// stale. The returned slice is the caller's to mutate.
func (s *Cache) Tasks(ctx context.Context) ([]domain.Task, error) {
	s.mu.Lock()
	if !s.tasksFetched.IsZero() && s.now().Sub(s.tasksFetched) < s.tasksTTL {
		tasks := domain.CloneTasks(s.tasks)
		s.mu.Unlock()
		return tasks, nil
	}
	s.mu.Unlock()

	_, err, _ := s.group.Do("tasks", func() (any, error) {
		tasks, err := s.api.FetchTasks(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.tasks = tasks
		s.tasksFetched = s.now()
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneTasks(s.tasks), nil
}

// Projects returns the project collection, refetching when stale.
func (s *Cache) Projects(ctx context.Context) ([]domain.Project, error) {
	s.mu.Lock()
	if !s.projectsFetched.IsZero() && s.now().Sub(s.projectsFetched) < s.projectsTTL {
		projects := make([]domain.Project, len(s.projects))
		copy(projects, s.projects)
		s.mu.Unlock()
		return projects, nil
	}
	s.mu.Unlock()

	_, err, _ := s.group.Do("projects", func() (any, error) {
		projects, err := s.api.FetchProjects(ctx)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.projects = projects
		s.projectsFetched = s.now()
		s.mu.Unlock()
		return nil, nil
	})
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	projects := make([]domain.Project, len(s.projects))
	copy(projects, s.projects)
	return projects, nil
}

// InvalidateTasks marks the task collection stale without dropping it. The
// cached copy stays available to optimistic mutations until the next read
// replaces it.
func (s *Cache) InvalidateTasks() {
	s.mu.Lock()
	s.tasksFetched = time.Time{}
	s.mu.Unlock()
}

// InvalidateProjects marks the project collection stale.
func (s *Cache) InvalidateProjects() {
	s.mu.Lock()
	s.projectsFetched = time.Time{}
	s.mu.Unlock()
}

// CreateTask persists a task and marks the collection stale.
func (s *Cache) CreateTask(ctx context.Context, req TaskCreate) (*domain.Task, error) {
	task, err := s.api.CreateTask(ctx, req)
	if err != nil {
		return nil, err
	}
	s.InvalidateTasks()
	return task, nil
}

// UpdateTask applies a partial update and marks the collection stale.
func (s *Cache) UpdateTask(ctx context.Context, id string, req TaskUpdate) (*domain.Task, error) {
	task, err := s.api.UpdateTask(ctx, id, req)
	if err != nil {
		return nil, err
	}
	s.InvalidateTasks()
	return task, nil
}

// DeleteTask removes a task optimistically: the local copy is dropped first
// and restored from a snapshot if the server rejects the delete. The
// collection is marked stale either way.
func (s *Cache) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	snapshot := domain.CloneTasks(s.tasks)
	kept := s.tasks[:0:0]
	for _, t := range s.tasks {
		if t.ID != id {
			kept = append(kept, t)
		}
	}
	s.tasks = kept
	s.mu.Unlock()

	err := s.api.DeleteTask(ctx, id)

	s.mu.Lock()
	if err != nil {
		s.tasks = snapshot
	}
	s.tasksFetched = time.Time{}
	s.mu.Unlock()
	return err
}

// CreateProject persists a project and marks the collection stale.
func (s *Cache) CreateProject(ctx context.Context, name, description, color string) (*domain.Project, error) {
	body := map[string]string{"name": name, "description": description, "color": color}
	var project domain.Project
	if err := s.api.doMutate(ctx, "POST", "/api/projects", body, &project); err != nil {
		return nil, err
	}
	s.InvalidateProjects()
	return &project, nil
}

// DeleteProject removes a project. Tasks under it go with it server-side, so
// both collections are marked stale.
func (s *Cache) DeleteProject(ctx context.Context, id string) error {
	if err := s.api.doMutate(ctx, "DELETE", "/api/projects/"+id, nil, nil); err != nil {
		return err
	}
	s.InvalidateProjects()
	s.InvalidateTasks()
	return nil
}
