package domain

import "time"

// Review is one corpus record as fetched from Steam. The corpus is read-only
// during a classification batch; Categories is the only field written back,
// and only by the post-batch merge.
type Review struct {
	ID            string // Steam recommendationid, stable across runs
	Text          string
	Positive      bool // voted_up
	VotesUp       int
	VotesFunny    int
	CommentCount  int
	PlaytimeHours float64
	Language      string
	CreatedAt     time.Time
	Categories    []string
}

// ReviewTask is one unit of classification work. Created once per unresolved
// corpus item at batch start, consumed by exactly one worker.
type ReviewTask struct {
	Seq      int
	ID       string
	Text     string
	Positive bool
}

// ClassificationResult is produced exactly once per task, including failure
// fallbacks. ErrorNote is set when the categories came from a degraded path
// rather than a clean model response.
type ClassificationResult struct {
	ID         string
	Categories []string
	Positive   bool
	ErrorNote  string
}
