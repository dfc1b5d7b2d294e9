package hermes

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

const (
	// SubjectRiskAlert carries a RiskAlert whenever a score crosses the alert
	// threshold. Push and chat dispatchers subscribe to it.
	SubjectRiskAlert = "vigil.risk.alert"
	// SubjectWeightsAdapted is emitted after feedback moves a user's weights.
	SubjectWeightsAdapted = "vigil.weights.adapted"
	// SubjectFeedbackSubmitted carries a FeedbackEvent from client apps.
	SubjectFeedbackSubmitted = "vigil.feedback.submitted"
	// SubjectSlackReaction is forwarded by slack-forwarder.
	SubjectSlackReaction = "swarm.slack.reaction"
)

// RiskAlert is published when a user's risk score crosses the threshold.
type RiskAlert struct {
	UserID       string    `json:"user_id"`
	PredictionID string    `json:"prediction_id"`
	RiskScore    int       `json:"risk_score"`
	Confidence   int       `json:"confidence"`
	Reason       string    `json:"reason"`
	Message      string    `json:"message"`
	Timestamp    time.Time `json:"timestamp"`
}

// FeedbackEvent reports whether an earlier prediction was accurate.
type FeedbackEvent struct {
	UserID       string `json:"user_id"`
	PredictionID string `json:"prediction_id"`
	Outcome      string `json:"outcome"`
}

type Client struct {
	conn   *nats.Conn
	subs   []*nats.Subscription
	logger *slog.Logger
}

func NewClient(ctx context.Context, url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("vigil"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &Client{conn: nc, logger: logger}, nil
}

func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return c.conn.Publish(subject, payload)
}

func (c *Client) Subscribe(subject string, handler func(subject string, data []byte)) error {
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Subject, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	c.subs = append(c.subs, sub)
	c.logger.Info("subscribed", "subject", subject)
	return nil
}

// Drain flushes pending publishes before closing, for graceful shutdown.
func (c *Client) Drain() error {
	return c.conn.Drain()
}

func (c *Client) Close() {
	for _, sub := range c.subs {
		_ = sub.Unsubscribe()
	}
	c.conn.Close()
}
