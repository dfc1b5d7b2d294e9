// Package coach turns a risk result into a short supportive message.
package coach

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/vigil/internal/anthropic"
	"github.com/MikeSquared-Agency/vigil/internal/risk"
)

const maxTokens = 200

// Completer is the LLM call the coach depends on.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int) (string, error)
}

type Coach struct {
	llm     Completer
	timeout time.Duration
	logger  *slog.Logger
}

// New returns a coach. A nil llm makes every message come from the
// built-in templates.
func New(llm Completer, logger *slog.Logger) *Coach {
	return &Coach{llm: llm, timeout: 15 * time.Second, logger: logger}
}

// Compose returns a message for the result, falling back to a template when
// the LLM is unavailable or returns nothing usable.
func (c *Coach) Compose(ctx context.Context, res risk.Result) string {
	if c.llm == nil {
		return Fallback(res)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	prompt := fmt.Sprintf(userPromptTemplate, res.Reason, confidenceWords(res.Confidence))
	text, err := c.llm.Complete(ctx, systemPrompt, []anthropic.Message{{Role: "user", Content: prompt}}, maxTokens)
	if err != nil {
		c.logger.Warn("coach completion failed, using fallback", "error", err)
		return Fallback(res)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback(res)
	}
	return text
}

// Fallback builds a message from the strongest triggered factor.
func Fallback(res risk.Result) string {
	var top risk.Factor
	var best float64
	for _, f := range risk.AllFactors {
		if v, ok := res.Factors[f]; ok && v > best {
			top, best = f, v
		}
	}

	switch top {
	case risk.FactorEnergyDrop:
		return "Your energy has been sliding the last few days. Get outside for ten minutes and eat something real before deciding anything."
	case risk.FactorEveningHours:
		return "Evenings are when this gets hard. Set your phone in another room and pick one thing to do with your hands for the next hour."
	case risk.FactorWeekend:
		return "Unstructured days leave gaps. Put two plans on the calendar for today, even small ones."
	case risk.FactorEmotionalVulnerability:
		return "It sounds like a rough stretch emotionally. Reach out to someone you trust or write down what's going on before it builds."
	case risk.FactorHistoricalPattern:
		return "You've hit a wall around this point before, and you know more now than you did then. Decide now what you'll do when the urge shows up."
	case risk.FactorPurgePhase:
		return "This phase churns up a lot and it passes. Move your body today and go easy on yourself."
	default:
		return "Check in with yourself for a minute. You've got this."
	}
}

func confidenceWords(confidence int) string {
	switch {
	case confidence >= 70:
		return "fairly sure, based on a lot of history"
	case confidence >= 30:
		return "moderately sure"
	default:
		return "not very sure yet, history is thin"
	}
}
