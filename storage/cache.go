package storage

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

// Freshness windows for the cached collections. Projects mutate far less
// often than tasks.
const (
	DefaultTasksTTL    = 30 * time.Second
	DefaultProjectsTTL = 5 * time.Minute
)

// Cache wraps a Store with Redis-backed caching for the hot read paths: the
// unfiltered task list and the project list, both per user. Every write for a
// user evicts that user's cached collections.
type Cache struct {
	*Store
	redis       *redis.Client
	tasksTTL    time.Duration
	projectsTTL time.Duration
}

// NewCache creates a caching wrapper around base. A nil client disables
// caching while keeping the wrapper usable.
func NewCache(base *Store, client *redis.Client, tasksTTL, projectsTTL time.Duration) *Cache {
	if base == nil {
		panic("storage.NewCache: base store is nil")
	}
	if tasksTTL <= 0 {
		tasksTTL = DefaultTasksTTL
	}
	if projectsTTL <= 0 {
		projectsTTL = DefaultProjectsTTL
	}
	return &Cache{Store: base, redis: client, tasksTTL: tasksTTL, projectsTTL: projectsTTL}
}

type cachedTaskPage struct {
	Tasks []domain.Task `json:"tasks"`
	Total int64         `json:"total"`
}

// ListTasks serves the unfiltered, unpaged listing from Redis when fresh.
// Filtered or paged listings always hit the store; caching every filter
// permutation would defeat eviction.
func (c *Cache) ListTasks(ctx context.Context, userID string, f TaskFilter) ([]domain.Task, int64, error) {
	cacheable := f == TaskFilter{}
	if cacheable {
		if page, ok := c.loadTasks(ctx, userID); ok {
			return page.Tasks, page.Total, nil
		}
	}

	tasks, total, err := c.Store.ListTasks(ctx, userID, f)
	if err != nil {
		return nil, 0, err
	}
	if cacheable {
		c.store(ctx, tasksCacheKey(userID), cachedTaskPage{Tasks: tasks, Total: total}, c.tasksTTL)
	}
	return tasks, total, nil
}

// ListProjects serves the project list from Redis when fresh.
func (c *Cache) ListProjects(ctx context.Context, userID string) ([]domain.Project, error) {
	if c.redis != nil {
		data, err := c.redis.Get(ctx, projectsCacheKey(userID)).Bytes()
		if err == nil {
			var projects []domain.Project
			if jsonErr := sonic.Unmarshal(data, &projects); jsonErr == nil {
				return projects, nil
			}
			_ = c.redis.Del(ctx, projectsCacheKey(userID)).Err()
		} else if err != redis.Nil {
			// On redis errors fall back to the store without failing.
			_ = c.redis.Del(ctx, projectsCacheKey(userID)).Err()
		}
	}

	projects, err := c.Store.ListProjects(ctx, userID)
	if err != nil {
		return nil, err
	}
	c.store(ctx, projectsCacheKey(userID), projects, c.projectsTTL)
	return projects, nil
}

func (c *Cache) CreateTask(ctx context.Context, userID string, task *domain.Task, tagIDs []string) (*domain.Task, error) {
	created, err := c.Store.CreateTask(ctx, userID, task, tagIDs)
	if err != nil {
		return nil, err
	}
	c.evictTasks(ctx, userID)
	return created, nil
}

func (c *Cache) UpdateTask(ctx context.Context, userID, id string, patch TaskPatch) (*domain.Task, error) {
	updated, err := c.Store.UpdateTask(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	c.evictTasks(ctx, userID)
	return updated, nil
}

func (c *Cache) DeleteTask(ctx context.Context, userID, id string) error {
	if err := c.Store.DeleteTask(ctx, userID, id); err != nil {
		return err
	}
	c.evictTasks(ctx, userID)
	return nil
}

func (c *Cache) ReorderTasks(ctx context.Context, userID string, items []domain.TaskPosition) []ItemResult {
	results := c.Store.ReorderTasks(ctx, userID, items)
	c.evictTasks(ctx, userID)
	return results
}

func (c *Cache) CreateProject(ctx context.Context, userID string, project *domain.Project) (*domain.Project, error) {
	created, err := c.Store.CreateProject(ctx, userID, project)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, userID)
	return created, nil
}

func (c *Cache) UpdateProject(ctx context.Context, userID, id string, patch ProjectPatch) (*domain.Project, error) {
	updated, err := c.Store.UpdateProject(ctx, userID, id, patch)
	if err != nil {
		return nil, err
	}
	c.evict(ctx, userID)
	return updated, nil
}

func (c *Cache) DeleteProject(ctx context.Context, userID, id string) error {
	if err := c.Store.DeleteProject(ctx, userID, id); err != nil {
		return err
	}
	// Cascaded task deletions invalidate the task list as well.
	c.evict(ctx, userID)
	return nil
}

func (c *Cache) CreateTag(ctx context.Context, userID string, tag *domain.Tag) (*domain.Tag, error) {
	created, err := c.Store.CreateTag(ctx, userID, tag)
	if err != nil {
		return nil, err
	}
	c.evictTasks(ctx, userID)
	return created, nil
}

func (c *Cache) DeleteTag(ctx context.Context, userID, id string) error {
	if err := c.Store.DeleteTag(ctx, userID, id); err != nil {
		return err
	}
	// Tag lists ride inside cached task payloads.
	c.evictTasks(ctx, userID)
	return nil
}

func (c *Cache) loadTasks(ctx context.Context, userID string) (cachedTaskPage, bool) {
	if c.redis == nil {
		return cachedTaskPage{}, false
	}
	data, err := c.redis.Get(ctx, tasksCacheKey(userID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
		}
		return cachedTaskPage{}, false
	}
	var page cachedTaskPage
	if err := sonic.Unmarshal(data, &page); err != nil {
		_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
		return cachedTaskPage{}, false
	}
	return page, true
}

func (c *Cache) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if c.redis == nil || ttl == 0 {
		return
	}
	data, err := sonic.Marshal(value)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, ttl).Err()
}

func (c *Cache) evictTasks(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, tasksCacheKey(userID)).Err()
}

func (c *Cache) evict(ctx context.Context, userID string) {
	if c.redis == nil {
		return
	}
	_, _ = c.redis.Del(ctx, tasksCacheKey(userID), projectsCacheKey(userID)).Result()
}

func tasksCacheKey(userID string) string {
	return "tasks:" + userID
}

func projectsCacheKey(userID string) string {
	return "projects:" + userID
}
