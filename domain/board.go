package domain

import (
	"sort"
	"time"
)

// Move describes a drag of one task from a position in one lane to a
// position in another, or the same, lane. Indices are positions within the
// lane's task list as last rendered.
type Move struct {
	TaskID    string `json:"taskId"`
	From      Status `json:"from"`
	FromIndex int    `json:"fromIndex"`
	To        Status `json:"to"` // empty when the drop landed outside any lane
	ToIndex   int    `json:"toIndex"`
}

// TaskPosition is the persisted outcome of a move for one task.
type TaskPosition struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
	Order  int    `json:"order"`
}

// Board partitions tasks into status lanes held in display order.
type Board struct {
	lanes map[Status][]Task
}

// NewBoard builds lanes from a flat task list. Each lane is sorted stably by
// (order, createdAt) so equal ranks keep insertion order.
func NewBoard(tasks []Task) *Board {
	lanes := make(map[Status][]Task, len(Statuses))
	for _, t := range tasks {
		lanes[t.Status] = append(lanes[t.Status], t)
	}
	for s := range lanes {
		lane := lanes[s]
		sort.SliceStable(lane, func(i, j int) bool {
			if lane[i].Order != lane[j].Order {
				return lane[i].Order < lane[j].Order
			}
			return lane[i].CreatedAt.Before(lane[j].CreatedAt)
		})
	}
	return &Board{lanes: lanes}
}

// Lane returns the tasks currently in the given status lane, in display order.
func (b *Board) Lane(s Status) []Task {
	return b.lanes[s]
}

// Tasks flattens the board back to a single list, lanes in workflow order.
func (b *Board) Tasks() []Task {
	var out []Task
	for _, s := range Statuses {
		out = append(out, b.lanes[s]...)
	}
	return out
}

// Apply executes a move against the board.
//
// A move with no destination lane, or with destination identical to source,
// is a no-op and returns (nil, false). Otherwise the task is removed from the
// source lane, given the destination status and index, inserted, and the
// destination lane is renumbered sequentially from zero. The source lane's
// remaining tasks keep their existing order values; display sort only needs
// unique-enough ranks within a lane, so the hole left behind is accepted.
//
// Entering DONE stamps CompletedAt with now; leaving DONE clears it.
//
// The returned positions cover every task in the destination lane and are
// what must be persisted for the move to survive a refetch.
func (b *Board) Apply(mv Move, now time.Time) ([]TaskPosition, bool) {
	if !mv.To.Valid() {
		return nil, false
	}
	if mv.From == mv.To && mv.FromIndex == mv.ToIndex {
		return nil, false
	}

	src := b.lanes[mv.From]
	if mv.FromIndex < 0 || mv.FromIndex >= len(src) {
		return nil, false
	}
	task := src[mv.FromIndex]
	if task.ID != mv.TaskID {
		return nil, false
	}

	b.lanes[mv.From] = append(src[:mv.FromIndex:mv.FromIndex], src[mv.FromIndex+1:]...)

	dst := b.lanes[mv.To]
	if mv.ToIndex < 0 || mv.ToIndex > len(dst) {
		// Restore the source lane before bailing out.
		b.lanes[mv.From] = insertTask(b.lanes[mv.From], mv.FromIndex, task)
		return nil, false
	}

	if task.Status != StatusDone && mv.To == StatusDone {
		completed := now
		task.CompletedAt = &completed
	} else if task.Status == StatusDone && mv.To != StatusDone {
		task.CompletedAt = nil
	}
	task.Status = mv.To
	task.Order = mv.ToIndex

	dst = insertTask(dst, mv.ToIndex, task)
	for i := range dst {
		dst[i].Order = i
	}
	b.lanes[mv.To] = dst

	positions := make([]TaskPosition, len(dst))
	for i, t := range dst {
		positions[i] = TaskPosition{ID: t.ID, Status: mv.To, Order: i}
	}
	return positions, true
}

func insertTask(lane []Task, idx int, t Task) []Task {
	lane = append(lane, Task{})
	copy(lane[idx+1:], lane[idx:])
	lane[idx] = t
	return lane
}
