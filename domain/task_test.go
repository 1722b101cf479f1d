package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
)

func TestTaskMarshalIncludesZeroOrder(t *testing.T) {
	task := Task{ID: "t1", Title: "Title", Status: StatusTodo, Order: 0}

	payload, err := sonic.Marshal(task)
	if err != nil {
		t.Fatalf("marshal task: %v", err)
	}

	if !strings.Contains(string(payload), "\"order\":0") {
		t.Fatalf("expected order field to be present, got %s", payload)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range Statuses {
		if !s.Valid() {
			t.Fatalf("expected %s to be valid", s)
		}
	}
	if Status("ARCHIVED").Valid() {
		t.Fatal("expected unknown status to be invalid")
	}
	if Status("").Valid() {
		t.Fatal("expected empty status to be invalid")
	}
}

func TestPriorityValid(t *testing.T) {
	for _, p := range []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent} {
		if !p.Valid() {
			t.Fatalf("expected %s to be valid", p)
		}
	}
	if Priority("CRITICAL").Valid() {
		t.Fatal("expected unknown priority to be invalid")
	}
}

func TestCloneTasksDoesNotAlias(t *testing.T) {
	now := time.Now()
	orig := []Task{
		{ID: "1", Title: "a", Tags: []Tag{{ID: "tag1", Name: "x"}}, CreatedAt: now},
		{ID: "2", Title: "b", CreatedAt: now},
	}

	snap := CloneTasks(orig)
	orig[0].Title = "changed"
	orig[0].Tags[0].Name = "changed"

	if snap[0].Title != "a" {
		t.Fatalf("snapshot title mutated: %q", snap[0].Title)
	}
	if snap[0].Tags[0].Name != "x" {
		t.Fatalf("snapshot tags mutated: %q", snap[0].Tags[0].Name)
	}
	if CloneTasks(nil) != nil {
		t.Fatal("expected nil input to clone to nil")
	}
}
