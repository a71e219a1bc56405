// Package queue holds the pending-work buffer for one classification batch.
package queue

import (
	"time"

	"reviewbot/internal/domain"
)

// PopStatus reports why a Pop returned.
type PopStatus int

const (
	// PopTask means a task was claimed.
	PopTask PopStatus = iota
	// PopTimeout means nothing was available within the wait window; the
	// caller should recheck cancellation and try again.
	PopTimeout
	// PopExhausted means the queue is empty with no more producers: the
	// natural termination signal.
	PopExhausted
)

// Queue is a thread-safe pending-task buffer, populated once at batch start.
// Any worker may claim any task; there is no pop ordering guarantee.
type Queue struct {
	ch chan domain.ReviewTask
}

// New builds a queue preloaded with all remaining tasks. No producer exists
// afterwards, so the channel is closed immediately and drains naturally.
func New(tasks []domain.ReviewTask) *Queue {
	ch := make(chan domain.ReviewTask, len(tasks))
	for _, t := range tasks {
		ch <- t
	}
	close(ch)
	return &Queue{ch: ch}
}

// Pop claims a task, waiting at most timeout so idle workers can reevaluate
// the cancellation flag instead of blocking indefinitely.
func (q *Queue) Pop(timeout time.Duration) (domain.ReviewTask, PopStatus) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case task, ok := <-q.ch:
		if !ok {
			return domain.ReviewTask{}, PopExhausted
		}
		return task, PopTask
	case <-timer.C:
		return domain.ReviewTask{}, PopTimeout
	}
}

// Len reports how many tasks are still buffered.
func (q *Queue) Len() int {
	return len(q.ch)
}
