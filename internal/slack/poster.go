package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostAlert posts a risk alert with the supportive message and reaction
// hints. Returns the message timestamp (ts), which reactions refer back to.
func (p *Poster) PostAlert(ctx context.Context, pred *risk.Prediction, message string) (string, error) {
	text := formatAlertMessage(pred, message)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "React: :+1: helpful | :-1: false alarm | :shrug: skip",
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted risk alert to slack", "ts", slackResp.TS, "prediction_id", pred.ID)
	return slackResp.TS, nil
}

func formatAlertMessage(pred *risk.Prediction, message string) string {
	var sb strings.Builder

	res := pred.Result
	fmt.Fprintf(&sb, "*Risk alert* for `%s`: %d/100 (confidence %d%%)\n", pred.UserID, res.RiskScore, res.Confidence)
	if message != "" {
		fmt.Fprintf(&sb, "%s\n", message)
	}

	if len(res.Factors) > 0 {
		factors := make([]string, 0, len(res.Factors))
		for f := range res.Factors {
			factors = append(factors, string(f))
		}
		sort.Strings(factors)
		sb.WriteString("\n*Signals:*\n")
		for _, f := range factors {
			fmt.Fprintf(&sb, "• %s (+%.1f)\n", f, res.Factors[risk.Factor(f)])
		}
	}
	if res.MatchedPastEvent != nil {
		fmt.Fprintf(&sb, "_Last setback near this point was at day %d._\n", res.MatchedPastEvent.DaysSinceStart)
	}

	return sb.String()
}
