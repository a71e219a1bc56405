// Package notify posts batch summaries to Slack. Optional: it activates only
// when a bot token and channel are configured.
package notify

import (
	"fmt"
	"time"

	"github.com/slack-go/slack"
)

// BatchSummary is what operators want to see after a run.
type BatchSummary struct {
	Processed   int
	Total       int
	Duration    time.Duration
	TotalTokens int64
	Fatal       string // empty when the batch finished or was interrupted cleanly
}

type Notifier struct {
	api     *slack.Client
	channel string
}

// New returns nil when Slack is not configured; callers treat a nil notifier
// as a no-op.
func New(botToken, channel string) *Notifier {
	if botToken == "" || channel == "" {
		return nil
	}
	return &Notifier{api: slack.New(botToken), channel: channel}
}

// PostBatchSummary sends one summary message.
func (n *Notifier) PostBatchSummary(s BatchSummary) error {
	if n == nil {
		return nil
	}
	status := ":white_check_mark: Review classification batch finished"
	if s.Fatal != "" {
		status = ":x: Review classification batch aborted"
	} else if s.Processed < s.Total {
		status = ":warning: Review classification batch interrupted"
	}

	text := fmt.Sprintf("%s\nProcessed: %d/%d\nDuration: %s\nTokens: %d",
		status, s.Processed, s.Total, s.Duration.Round(time.Second), s.TotalTokens)
	if s.Fatal != "" {
		text += "\nFatal: " + s.Fatal
	}

	_, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting batch summary: %w", err)
	}
	return nil
}
