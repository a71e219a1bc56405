package classify

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrFatal marks the batch as compromised: callers must stop issuing new
// calls, persist progress, and shut down.
var ErrFatal = errors.New("classification service failing repeatedly")

// CauseClass names the likely cause class of a service error so the fatal
// message points the operator somewhere useful.
func CauseClass(err error) string {
	if err == nil {
		return "unknown"
	}
	s := strings.ToLower(err.Error())
	switch {
	case strings.Contains(s, "401") || strings.Contains(s, "403") ||
		strings.Contains(s, "unauthorized") || strings.Contains(s, "forbidden") ||
		strings.Contains(s, "api key") || strings.Contains(s, "authentication"):
		return "authentication"
	case strings.Contains(s, "429") || strings.Contains(s, "rate limit") ||
		strings.Contains(s, "quota") || strings.Contains(s, "overloaded") ||
		strings.Contains(s, "503") || strings.Contains(s, "unavailable"):
		return "service availability"
	case strings.Contains(s, "timeout") || strings.Contains(s, "connection") ||
		strings.Contains(s, "dial") || strings.Contains(s, "no such host") ||
		strings.Contains(s, "eof"):
		return "connectivity"
	default:
		return "unknown"
	}
}

// FailureTracker counts consecutive adapter failures across all workers.
// Any success resets it; reaching the budget escalates to ErrFatal.
type FailureTracker struct {
	mu     sync.Mutex
	count  int
	budget int
}

func NewFailureTracker(budget int) *FailureTracker {
	return &FailureTracker{budget: budget}
}

// Record notes one failed call attempt. It returns a non-nil ErrFatal-wrapped
// error once the consecutive-failure budget is exhausted.
func (f *FailureTracker) Record(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.count++
	if f.count >= f.budget {
		return fmt.Errorf("%w: %d consecutive failures, likely cause: %s (last error: %v)",
			ErrFatal, f.count, CauseClass(err), err)
	}
	return nil
}

// Reset clears the counter after any successful call.
func (f *FailureTracker) Reset() {
	f.mu.Lock()
	f.count = 0
	f.mu.Unlock()
}

// Count returns the current consecutive-failure count.
func (f *FailureTracker) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.count
}
