package queue

import (
	"testing"
	"time"

	"reviewbot/internal/domain"
)

func TestPopDrainsAllTasks(t *testing.T) {
	tasks := []domain.ReviewTask{
		{Seq: 0, ID: "a"},
		{Seq: 1, ID: "b"},
		{Seq: 2, ID: "c"},
	}
	q := New(tasks)
	if q.Len() != 3 {
		t.Fatalf("expected 3 buffered tasks, got %d", q.Len())
	}

	seen := make(map[string]bool)
	for i := 0; i < 3; i++ {
		task, status := q.Pop(time.Second)
		if status != PopTask {
			t.Fatalf("pop %d: expected a task, got status %v", i, status)
		}
		if seen[task.ID] {
			t.Fatalf("task %s claimed twice", task.ID)
		}
		seen[task.ID] = true
	}

	if _, status := q.Pop(10 * time.Millisecond); status != PopExhausted {
		t.Fatalf("expected exhaustion after all tasks claimed, got %v", status)
	}
}

func TestPopExhaustedOnEmptyQueue(t *testing.T) {
	q := New(nil)
	if _, status := q.Pop(10 * time.Millisecond); status != PopExhausted {
		t.Fatalf("empty queue should report exhaustion, got %v", status)
	}
}

func TestConcurrentPopsClaimEachTaskOnce(t *testing.T) {
	n := 100
	tasks := make([]domain.ReviewTask, n)
	for i := range tasks {
		tasks[i] = domain.ReviewTask{Seq: i, ID: string(rune('a' + i%26))}
		tasks[i].ID = tasks[i].ID + string(rune('0'+i/26))
	}
	q := New(tasks)

	claimed := make(chan domain.ReviewTask, n)
	done := make(chan struct{})
	for w := 0; w < 5; w++ {
		go func() {
			for {
				task, status := q.Pop(50 * time.Millisecond)
				if status == PopExhausted {
					done <- struct{}{}
					return
				}
				if status == PopTask {
					claimed <- task
				}
			}
		}()
	}
	for w := 0; w < 5; w++ {
		<-done
	}
	close(claimed)

	seen := make(map[string]bool)
	for task := range claimed {
		if seen[task.ID] {
			t.Fatalf("task %s claimed by more than one worker", task.ID)
		}
		seen[task.ID] = true
	}
	if len(seen) != n {
		t.Fatalf("expected %d claimed tasks, got %d", n, len(seen))
	}
}
