package client

import (
	"context"
	"time"

	"taskboard-api/domain"
)

// MoveTask performs a board drag-and-drop in two phases. Phase one snapshots
// the cached collection, applies the move locally and returns control to the
// caller's UI immediately through the updated cache. Phase two persists the
// destination lane's (status, order) assignments; on failure the snapshot is
// restored verbatim. The collection is marked stale on settle regardless of
// outcome, so the next read reconverges with the server.
//
// When two moves of the same task overlap, only the settle logic of the
// last-initiated move runs. The earlier request's rollback is skipped rather
// than clobbering state the later move already owns.
func (s *Cache) MoveTask(ctx context.Context, mv domain.Move) error {
	// The move needs a populated collection to reconcile against.
	if _, err := s.Tasks(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	board := domain.NewBoard(s.tasks)
	positions, changed := board.Apply(mv, s.now())
	if !changed {
		s.mu.Unlock()
		return nil
	}
	snapshot := domain.CloneTasks(s.tasks)
	s.tasks = board.Tasks()
	gen := s.moveGen[mv.TaskID] + 1
	s.moveGen[mv.TaskID] = gen
	s.mu.Unlock()

	_, err := s.api.ReorderTasks(ctx, positions)
	s.settleMove(mv.TaskID, gen, snapshot, err)
	return err
}

// settleMove finishes a move once its request resolves. Stale generations
// bow out entirely; the current one rolls back on failure and always marks
// the collection for refetch.
func (s *Cache) settleMove(taskID string, gen uint64, snapshot []domain.Task, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.moveGen[taskID] != gen {
		return
	}
	if err != nil {
		s.tasks = snapshot
	}
	s.tasksFetched = time.Time{}
}

// Board builds the lane view from the cached collection.
func (s *Cache) Board(ctx context.Context) (*domain.Board, error) {
	tasks, err := s.Tasks(ctx)
	if err != nil {
		return nil, err
	}
	return domain.NewBoard(tasks), nil
}
