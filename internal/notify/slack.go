// internal/notify/slack.go
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/colebrumley/interruptd/internal/decision"
)

// SlackExecutor delivers decisions as Slack messages to a fixed channel.
type SlackExecutor struct {
	api     *slack.Client
	channel string
	logger  *slog.Logger
}

// NewSlackExecutor creates a Slack executor posting to the given channel.
func NewSlackExecutor(token, channel string, logger *slog.Logger) *SlackExecutor {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackExecutor{
		api:     slack.New(token),
		channel: channel,
		logger:  logger,
	}
}

func (e *SlackExecutor) Dispatch(ctx context.Context, dec decision.Decision) error {
	msg := renderMessage(dec)
	_, _, err := e.api.PostMessageContext(ctx, e.channel, slack.MsgOptionText(msg, false))
	if err != nil {
		return fmt.Errorf("posting to slack: %w", err)
	}
	e.logger.Debug("posted to slack", "channel", e.channel, "trigger", dec.TriggerID)
	return nil
}
