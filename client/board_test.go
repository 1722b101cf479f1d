package client

import (
	"context"
	"reflect"
	"testing"
	"time"

	"taskboard-api/domain"
)

func boardFixture(now time.Time) []domain.Task {
	return []domain.Task{
		{ID: "1", Title: "first", Status: domain.StatusTodo, Order: 0, CreatedAt: now.Add(-2 * time.Hour)},
		{ID: "2", Title: "second", Status: domain.StatusTodo, Order: 1, CreatedAt: now.Add(-time.Hour)},
	}
}

func TestMoveTaskOptimisticSuccess(t *testing.T) {
	now := time.Now()
	f := &fakeAPI{tasks: boardFixture(now)}
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	err := cache.MoveTask(ctx, domain.Move{
		TaskID: "2", From: domain.StatusTodo, FromIndex: 1,
		To: domain.StatusDone, ToIndex: 0,
	})
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	// The server copy was not touched, but the local collection already shows
	// the move until the next refetch.
	cache.mu.Lock()
	defer cache.mu.Unlock()
	board := domain.NewBoard(cache.tasks)
	done := board.Lane(domain.StatusDone)
	if len(done) != 1 || done[0].ID != "2" || done[0].CompletedAt == nil {
		t.Fatalf("expected task 2 in DONE with completion stamped, got %+v", done)
	}
	if !cache.tasksFetched.IsZero() {
		t.Fatal("expected collection marked stale after settle")
	}
}

func TestMoveTaskFailureRollsBackVerbatim(t *testing.T) {
	now := time.Now()
	f := &fakeAPI{tasks: boardFixture(now), bulkStatus: 500}
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	before, err := cache.Tasks(ctx)
	if err != nil {
		t.Fatalf("prime: %v", err)
	}

	err = cache.MoveTask(ctx, domain.Move{
		TaskID: "2", From: domain.StatusTodo, FromIndex: 1,
		To: domain.StatusDone, ToIndex: 0,
	})
	if err == nil {
		t.Fatal("expected move to fail")
	}

	cache.mu.Lock()
	after := domain.CloneTasks(cache.tasks)
	stale := cache.tasksFetched.IsZero()
	cache.mu.Unlock()

	if !reflect.DeepEqual(before, after) {
		t.Fatalf("expected literal snapshot restored\nbefore: %+v\nafter:  %+v", before, after)
	}
	if !stale {
		t.Fatal("failed move must still mark the collection stale")
	}
}

func TestMoveTaskSamePositionNoRequest(t *testing.T) {
	now := time.Now()
	f := &fakeAPI{tasks: boardFixture(now), bulkStatus: 500}
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))

	// A no-op move must not reach the failing bulk endpoint at all.
	err := cache.MoveTask(context.Background(), domain.Move{
		TaskID: "1", From: domain.StatusTodo, FromIndex: 0,
		To: domain.StatusTodo, ToIndex: 0,
	})
	if err != nil {
		t.Fatalf("expected same-position move to be a local no-op, got %v", err)
	}
}

func TestSettleSkipsStaleGeneration(t *testing.T) {
	now := time.Now()
	f := &fakeAPI{tasks: boardFixture(now)}
	cache := newTestCacheClient(t, f, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	if _, err := cache.Tasks(ctx); err != nil {
		t.Fatalf("prime: %v", err)
	}

	cache.mu.Lock()
	snapshot := domain.CloneTasks(cache.tasks)
	current := domain.CloneTasks(cache.tasks)
	current[1].Status = domain.StatusDone
	cache.tasks = current
	cache.moveGen["2"] = 2
	cache.mu.Unlock()

	// Generation 1's failed settle arrives after generation 2 took over: the
	// rollback must not clobber the later move's state.
	cache.settleMove("2", 1, snapshot, context.DeadlineExceeded)

	cache.mu.Lock()
	defer cache.mu.Unlock()
	if cache.tasks[1].Status != domain.StatusDone {
		t.Fatal("stale settle must not roll back the current move")
	}

	// The current generation's settle still does.
	cache.mu.Unlock()
	cache.settleMove("2", 2, snapshot, context.DeadlineExceeded)
	cache.mu.Lock()
	if cache.tasks[1].Status != domain.StatusTodo {
		t.Fatal("current settle should restore the snapshot")
	}
}
