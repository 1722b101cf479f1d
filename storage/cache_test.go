package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"taskboard-api/domain"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewCache(newTestStore(t), client, DefaultTasksTTL, DefaultProjectsTTL), mr
}

func TestCacheListTasksMissThenHit(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	seedTask(t, cache.Store, "user", project.ID, "a")

	tasks, total, err := cache.ListTasks(ctx, "user", TaskFilter{})
	if err != nil {
		t.Fatalf("first list: %v", err)
	}
	if total != 1 || len(tasks) != 1 {
		t.Fatalf("unexpected first listing: total=%d len=%d", total, len(tasks))
	}
	if !mr.Exists("tasks:user") {
		t.Fatal("expected listing cached after miss")
	}

	// Write past the cache; the stale copy must still be served within TTL.
	seedTask(t, cache.Store, "user", project.ID, "b")
	tasks, total, err = cache.ListTasks(ctx, "user", TaskFilter{})
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	if total != 1 || len(tasks) != 1 {
		t.Fatalf("expected cached page served, got total=%d len=%d", total, len(tasks))
	}
}

func TestCacheListTasksFilteredBypassesCache(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	seedTask(t, cache.Store, "user", project.ID, "a")

	if _, _, err := cache.ListTasks(ctx, "user", TaskFilter{Status: domain.StatusTodo}); err != nil {
		t.Fatalf("filtered list: %v", err)
	}
	if mr.Exists("tasks:user") {
		t.Fatal("filtered listings must not populate the cache")
	}
}

func TestCacheMutationsEvictTasks(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	task := seedTask(t, cache.Store, "user", project.ID, "a")

	if _, _, err := cache.ListTasks(ctx, "user", TaskFilter{}); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	if !mr.Exists("tasks:user") {
		t.Fatal("expected cache primed")
	}

	title := "renamed"
	if _, err := cache.UpdateTask(ctx, "user", task.ID, TaskPatch{Title: &title}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if mr.Exists("tasks:user") {
		t.Fatal("expected task mutation to evict cached listing")
	}

	tasks, _, err := cache.ListTasks(ctx, "user", TaskFilter{})
	if err != nil {
		t.Fatalf("list after evict: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "renamed" {
		t.Fatalf("expected refreshed listing, got %+v", tasks)
	}
}

func TestCacheReorderEvictsTasks(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	task := seedTask(t, cache.Store, "user", project.ID, "a")

	if _, _, err := cache.ListTasks(ctx, "user", TaskFilter{}); err != nil {
		t.Fatalf("prime cache: %v", err)
	}
	cache.ReorderTasks(ctx, "user", []domain.TaskPosition{
		{ID: task.ID, Status: domain.StatusDone, Order: 0},
	})
	if mr.Exists("tasks:user") {
		t.Fatal("expected reorder to evict cached listing")
	}
}

func TestCacheProjectDeleteEvictsBothCollections(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	seedTask(t, cache.Store, "user", project.ID, "a")

	if _, _, err := cache.ListTasks(ctx, "user", TaskFilter{}); err != nil {
		t.Fatalf("prime tasks: %v", err)
	}
	if _, err := cache.ListProjects(ctx, "user"); err != nil {
		t.Fatalf("prime projects: %v", err)
	}
	if !mr.Exists("tasks:user") || !mr.Exists("projects:user") {
		t.Fatal("expected both collections cached")
	}

	if err := cache.DeleteProject(ctx, "user", project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	if mr.Exists("tasks:user") || mr.Exists("projects:user") {
		t.Fatal("expected both cached collections evicted")
	}
}

func TestCacheScopedPerUser(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	mine := seedProject(t, cache.Store, "me", "mine")
	seedProject(t, cache.Store, "them", "theirs")
	seedTask(t, cache.Store, "me", mine.ID, "a")

	if _, _, err := cache.ListTasks(ctx, "me", TaskFilter{}); err != nil {
		t.Fatalf("prime my cache: %v", err)
	}
	if _, err := cache.ListProjects(ctx, "them"); err != nil {
		t.Fatalf("prime their cache: %v", err)
	}

	if _, err := cache.CreateTag(ctx, "me", &domain.Tag{Name: "x"}); err != nil {
		t.Fatalf("create tag: %v", err)
	}
	if mr.Exists("tasks:me") {
		t.Fatal("expected my tasks evicted")
	}
	if !mr.Exists("projects:them") {
		t.Fatal("another user's cache must be untouched")
	}
}

func TestCacheNilRedisFallsThrough(t *testing.T) {
	cache := NewCache(newTestStore(t), nil, time.Second, time.Second)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	seedTask(t, cache.Store, "user", project.ID, "a")

	tasks, total, err := cache.ListTasks(ctx, "user", TaskFilter{})
	if err != nil {
		t.Fatalf("list without redis: %v", err)
	}
	if total != 1 || len(tasks) != 1 {
		t.Fatalf("unexpected listing: total=%d len=%d", total, len(tasks))
	}
}

func TestCacheDownRedisFallsBackToStore(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()
	project := seedProject(t, cache.Store, "user", "inbox")
	seedTask(t, cache.Store, "user", project.ID, "a")
	mr.Close()

	tasks, _, err := cache.ListTasks(ctx, "user", TaskFilter{})
	if err != nil {
		t.Fatalf("expected fallback to store when redis is down, got %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("unexpected listing: %+v", tasks)
	}
}
