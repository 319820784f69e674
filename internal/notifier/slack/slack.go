package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/match-ledger/internal/metrics"
	"github.com/mauv0809/match-ledger/internal/notifier"
	"github.com/mauv0809/match-ledger/internal/pubsub"
	"github.com/mauv0809/match-ledger/internal/rating"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier posts match events to a Slack channel.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
	dryRun    bool
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// WithDryRun makes the notifier log messages instead of posting them.
func (s *Notifier) WithDryRun(dryRun bool) *Notifier {
	s.dryRun = dryRun
	return s
}

func (s *Notifier) Name() string { return "slack" }

// Notify posts a message for ev. Events without a message are ignored.
func (s *Notifier) Notify(ctx context.Context, ev pubsub.MatchEvent) error {
	msg, ok := s.formatEvent(ev)
	if !ok {
		return nil
	}
	_, _, err := s.sendMessage(ctx, msg)
	return err
}

func (s *Notifier) sendMessage(ctx context.Context, message slack.Message) (string, string, error) {
	if s.dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-channel", "dry-run-ts", nil
	}

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", s.channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

func (s *Notifier) formatEvent(ev pubsub.MatchEvent) (slack.Message, bool) {
	switch ev.Type {
	case pubsub.EventMatchSubmitted:
		return s.formatSubmitted(ev), true
	case pubsub.EventMatchFinalized:
		return s.formatFinalized(ev), true
	case pubsub.EventMatchRejected:
		return s.formatClosed(ev, ":x: Match rejected"), true
	case pubsub.EventMatchVetoed:
		return s.formatClosed(ev, ":no_entry: Match vetoed"), true
	}
	return slack.Message{}, false
}

// formatSubmitted asks the other participants to confirm.
func (s *Notifier) formatSubmitted(ev pubsub.MatchEvent) slack.Message {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", ":tennis: New match submitted", true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", matchSummary(ev), false, false), nil, nil),
	}

	var waiting []string
	for _, p := range ev.Participants {
		if p.UserID != ev.ActorID {
			waiting = append(waiting, "• "+p.UserID)
		}
	}
	if len(waiting) > 0 {
		text := "Waiting for confirmation from:\n" + strings.Join(waiting, "\n")
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil))
	}
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("mrkdwn", "Submitted by "+ev.ActorID, false, false)))
	return slack.NewBlockMessage(blocks...)
}

// formatFinalized shows the result and every participant's rating change.
func (s *Notifier) formatFinalized(ev pubsub.MatchEvent) slack.Message {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", ":trophy: Match finalized", true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", matchSummary(ev), false, false), nil, nil),
	}

	var fields []*slack.TextBlockObject
	for _, p := range ev.Participants {
		if p.Delta == nil || p.RatingAfter == nil {
			continue
		}
		text := fmt.Sprintf("*%s*\n%.3f (%s)", p.UserID, *p.RatingAfter, rating.FormatDelta(*p.Delta))
		fields = append(fields, slack.NewTextBlockObject("mrkdwn", text, false, false))
	}
	if len(fields) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", "*Rating changes*", false, false), fields, nil))
	}
	return slack.NewBlockMessage(blocks...)
}

func (s *Notifier) formatClosed(ev pubsub.MatchEvent, title string) slack.Message {
	blocks := []slack.Block{
		slack.NewHeaderBlock(slack.NewTextBlockObject("plain_text", title, true, false)),
		slack.NewSectionBlock(slack.NewTextBlockObject("mrkdwn", matchSummary(ev), false, false), nil, nil),
	}
	footer := "By " + ev.ActorID
	if ev.Reason != "" {
		footer += ": " + ev.Reason
	}
	blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", footer, false, false)))
	return slack.NewBlockMessage(blocks...)
}

// matchSummary renders "alice & carol 6-2 bob & dave" with the mode and format.
func matchSummary(ev pubsub.MatchEvent) string {
	var home, away []string
	for _, p := range ev.Participants {
		if p.Slot == "initiator" || p.Slot == "partner" {
			home = append(home, p.UserID)
		} else {
			away = append(away, p.UserID)
		}
	}
	return fmt.Sprintf("*%s* %d-%d *%s*\n%s, %s",
		strings.Join(home, " & "), ev.ScoreInitiator, ev.ScoreOpponent, strings.Join(away, " & "),
		ev.Mode, strings.ReplaceAll(ev.Format, "_", " "))
}
