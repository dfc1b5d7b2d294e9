package slack

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

// ReactionEvent is the structure received from slack-forwarder via NATS.
type ReactionEvent struct {
	Reaction  string `json:"reaction"`
	UserID    string `json:"user_id"`
	Channel   string `json:"channel"`
	MessageTS string `json:"message_ts"`
}

// ReviewVerdict maps a Slack reaction to a judgment of an alert.
type ReviewVerdict string

const (
	VerdictHelpful    ReviewVerdict = "helpful"
	VerdictFalseAlarm ReviewVerdict = "false_alarm"
	VerdictSkipped    ReviewVerdict = "skipped"
	VerdictUnknown    ReviewVerdict = "unknown"
)

// ParseReaction converts a Slack reaction emoji name to a verdict.
func ParseReaction(reaction string) ReviewVerdict {
	switch reaction {
	case "+1", "thumbsup", "pray":
		return VerdictHelpful
	case "-1", "thumbsdown", "x":
		return VerdictFalseAlarm
	case "shrug":
		return VerdictSkipped
	default:
		return VerdictUnknown
	}
}

// Outcome maps the verdict onto a feedback outcome. Skipped and unknown
// verdicts carry no feedback.
func (v ReviewVerdict) Outcome() (risk.Outcome, bool) {
	switch v {
	case VerdictHelpful:
		return risk.OutcomeHelpful, true
	case VerdictFalseAlarm:
		return risk.OutcomeFalseAlarm, true
	default:
		return "", false
	}
}

// ParseReactionEvent parses a NATS message payload from slack-forwarder into a ReactionEvent.
func ParseReactionEvent(data []byte, logger *slog.Logger) (*ReactionEvent, error) {
	// The slack-forwarder publishes events with metadata in a wrapper.
	var wrapper struct {
		Metadata map[string]string `json:"metadata"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse reaction wrapper: %w", err)
	}

	evt := &ReactionEvent{
		Reaction:  wrapper.Metadata["text"],
		UserID:    wrapper.Metadata["user_id"],
		Channel:   wrapper.Metadata["channel_id"],
		MessageTS: wrapper.Metadata["message_ts"],
	}

	// Clean reaction text (remove colons if present)
	if len(evt.Reaction) > 2 && evt.Reaction[0] == ':' && evt.Reaction[len(evt.Reaction)-1] == ':' {
		evt.Reaction = evt.Reaction[1 : len(evt.Reaction)-1]
	}

	if evt.MessageTS == "" {
		logger.Debug("reaction without message_ts", "reaction", evt.Reaction)
	}

	return evt, nil
}
