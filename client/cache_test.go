package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"taskboard-api/domain"
)

type fakeAPI struct {
	mu       sync.Mutex
	tasks    []domain.Task
	projects []domain.Project

	taskHits    int32
	projectHits int32
	bulkStatus  int
	bulkResults []ReorderResult
	bulkDelay   time.Duration
	fetchDelay  time.Duration
}

func (f *fakeAPI) setTasks(tasks []domain.Task) {
	f.mu.Lock()
	f.tasks = tasks
	f.mu.Unlock()
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tasks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(&f.taskHits, 1)
		if f.fetchDelay > 0 {
			time.Sleep(f.fetchDelay)
		}
		f.mu.Lock()
		tasks := domain.CloneTasks(f.tasks)
		f.mu.Unlock()
		writeTasks(w, tasks)
	})
	mux.HandleFunc("/api/projects", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		atomic.AddInt32(&f.projectHits, 1)
		f.mu.Lock()
		data, _ := sonic.Marshal(f.projects)
		f.mu.Unlock()
		writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: data})
	})
	mux.HandleFunc("/api/tasks/bulk", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if f.bulkDelay > 0 {
			time.Sleep(f.bulkDelay)
		}
		if f.bulkStatus >= 400 {
			writeError(w, f.bulkStatus, "SERVER_ERROR", "bulk failed")
			return
		}
		var items []domain.TaskPosition
		_ = sonic.ConfigStd.NewDecoder(r.Body).Decode(&items)
		results := f.bulkResults
		if results == nil {
			for _, item := range items {
				results = append(results, ReorderResult{ID: item.ID, Applied: true})
			}
		}
		data, _ := sonic.Marshal(reorderResponse{Results: results})
		writeEnvelope(w, http.StatusOK, envelope{Success: true, Data: data})
	})
	return mux
}

func newTestCacheClient(t *testing.T, f *fakeAPI, opts ...CacheOption) *Cache {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	return NewCache(New(srv.URL, "tok"), opts...)
}

func TestTasksServedFromCacheWithinWindow(t *testing.T) {
	f := &fakeAPI{tasks: []domain.Task{{ID: "1", Title: "t", Status: domain.StatusTodo}}}
	now := time.Now()
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tasks, err := cache.Tasks(ctx)
		if err != nil {
			t.Fatalf("tasks: %v", err)
		}
		if len(tasks) != 1 {
			t.Fatalf("unexpected tasks: %+v", tasks)
		}
	}
	if hits := atomic.LoadInt32(&f.taskHits); hits != 1 {
		t.Fatalf("expected one fetch within the freshness window, got %d", hits)
	}
}

func TestTasksRefetchedAfterWindow(t *testing.T) {
	f := &fakeAPI{tasks: []domain.Task{{ID: "1", Status: domain.StatusTodo}}}
	now := time.Now()
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := cache.Tasks(ctx); err != nil {
		t.Fatalf("tasks: %v", err)
	}
	f.setTasks([]domain.Task{{ID: "1", Status: domain.StatusTodo}, {ID: "2", Status: domain.StatusTodo}})

	now = now.Add(31 * time.Second)
	tasks, err := cache.Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks after window: %v", err)
	}
	if len(tasks) != 2 {
		t.Fatalf("expected refetch after freshness window, got %+v", tasks)
	}
	if hits := atomic.LoadInt32(&f.taskHits); hits != 2 {
		t.Fatalf("expected 2 fetches, got %d", hits)
	}
}

func TestProjectsLongerWindow(t *testing.T) {
	f := &fakeAPI{projects: []domain.Project{{ID: "p", Name: "inbox"}}}
	now := time.Now()
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := cache.Projects(ctx); err != nil {
		t.Fatalf("projects: %v", err)
	}
	// A minute in, tasks would be stale but projects are not.
	now = now.Add(time.Minute)
	if _, err := cache.Projects(ctx); err != nil {
		t.Fatalf("projects: %v", err)
	}
	if hits := atomic.LoadInt32(&f.projectHits); hits != 1 {
		t.Fatalf("expected projects still fresh after a minute, got %d fetches", hits)
	}

	now = now.Add(5 * time.Minute)
	if _, err := cache.Projects(ctx); err != nil {
		t.Fatalf("projects: %v", err)
	}
	if hits := atomic.LoadInt32(&f.projectHits); hits != 2 {
		t.Fatalf("expected refetch after five minutes, got %d fetches", hits)
	}
}

func TestConcurrentRefreshesCoalesce(t *testing.T) {
	f := &fakeAPI{tasks: []domain.Task{{ID: "1", Status: domain.StatusTodo}}, fetchDelay: 50 * time.Millisecond}
	cache := newTestCacheClient(t, f)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Tasks(ctx); err != nil {
				t.Errorf("tasks: %v", err)
			}
		}()
	}
	wg.Wait()

	if hits := atomic.LoadInt32(&f.taskHits); hits != 1 {
		t.Fatalf("expected concurrent refreshes to coalesce into one fetch, got %d", hits)
	}
}

func TestInvalidateTasksForcesRefetch(t *testing.T) {
	f := &fakeAPI{tasks: []domain.Task{{ID: "1", Status: domain.StatusTodo}}}
	cache := newTestCacheClient(t, f)
	ctx := context.Background()

	if _, err := cache.Tasks(ctx); err != nil {
		t.Fatalf("tasks: %v", err)
	}
	cache.InvalidateTasks()
	if _, err := cache.Tasks(ctx); err != nil {
		t.Fatalf("tasks after invalidate: %v", err)
	}
	if hits := atomic.LoadInt32(&f.taskHits); hits != 2 {
		t.Fatalf("expected invalidation to force a refetch, got %d fetches", hits)
	}
}

func TestCallerMutationsDoNotLeakIntoCache(t *testing.T) {
	f := &fakeAPI{tasks: []domain.Task{{ID: "1", Title: "original", Status: domain.StatusTodo}}}
	cache := newTestCacheClient(t, f)
	ctx := context.Background()

	tasks, err := cache.Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	tasks[0].Title = "scribbled"

	again, err := cache.Tasks(ctx)
	if err != nil {
		t.Fatalf("tasks: %v", err)
	}
	if again[0].Title != "original" {
		t.Fatal("caller writes must not reach the cached collection")
	}
}
