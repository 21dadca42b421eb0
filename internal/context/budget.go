package ctxengine

import (
	"strings"

	"github.com/flemzord/confidant/internal/provider"
)

// TokenEstimator estimates the token count of a string.
type TokenEstimator interface {
	Estimate(text string) int
}

// CharEstimator estimates tokens using a simple characters-per-token ratio.
// A ratio of ~4 works well for English; ~3 for French or other Latin languages.
type CharEstimator struct {
	CharsPerToken float64
}

// NewCharEstimator creates a CharEstimator with the given ratio.
// If charsPerToken is <= 0, defaults to 4.0 (English approximation).
func NewCharEstimator(charsPerToken float64) *CharEstimator {
	if charsPerToken <= 0 {
		charsPerToken = 4.0
	}
	return &CharEstimator{CharsPerToken: charsPerToken}
}

// Estimate returns the estimated token count for the given text.
func (e *CharEstimator) Estimate(text string) int {
	if len(text) == 0 {
		return 0
	}
	tokens := float64(len(text)) / e.CharsPerToken
	// Always round up to avoid underestimation.
	return int(tokens) + 1
}

// ContextBudget tracks token allocation across prompt sections.
type ContextBudget struct {
	WindowSize int `json:"window_size"` // total context window in tokens
	System     int `json:"system"`      // assembled context block
	History    int `json:"history"`     // resolved history turns
	Reserved   int `json:"reserved"`    // reserved for model reply
}

// Used returns the total number of tokens consumed across all sections.
func (b ContextBudget) Used() int {
	return b.System + b.History + b.Reserved
}

// Available returns the number of tokens remaining for additional content.
// Returns 0 if the budget is already exceeded or no window is set.
func (b ContextBudget) Available() int {
	return max(0, b.WindowSize-b.Used())
}

// Exceeded reports whether total usage exceeds a known context window.
func (b ContextBudget) Exceeded() bool {
	return b.WindowSize > 0 && b.Used() > b.WindowSize
}

// FitHistory fills the budget of one generation call whose system prompt is
// res and whose reply may use reserved tokens. When the window is known and
// exceeded, the oldest history messages are dropped until the call fits;
// the most recent message is always kept.
func (a *Assembler) FitHistory(res AssemblyResult, history []provider.LLMMessage, reserved int) ([]provider.LLMMessage, ContextBudget) {
	b := ContextBudget{
		WindowSize: a.config.ContextWindow,
		System:     res.Tokens,
		History:    EstimateMessages(a.estimator, history),
		Reserved:   reserved,
	}
	if !b.Exceeded() {
		return history, b
	}
	kept := TrimHistory(a.estimator, history, max(0, b.WindowSize-b.System-b.Reserved))
	b.History = EstimateMessages(a.estimator, kept)
	a.logger.Debug("history trimmed to fit context window",
		"window", b.WindowSize,
		"dropped", len(history)-len(kept),
		"exceeded", b.Exceeded(),
	)
	return kept, b
}

// EstimateMessages returns the total estimated tokens for a slice of LLM messages.
func EstimateMessages(estimator TokenEstimator, messages []provider.LLMMessage) int {
	total := 0
	for i := range messages {
		// Per-message overhead: role tokens + formatting (~4 tokens).
		total += 4 + estimator.Estimate(messages[i].Content)
	}
	return total
}

// EstimateSystemPrompt returns the estimated tokens for a system prompt
// assembled from multiple parts joined by blank lines.
func EstimateSystemPrompt(estimator TokenEstimator, parts []string) int {
	return estimator.Estimate(strings.Join(parts, "\n\n"))
}

// TrimHistory drops the oldest messages until the rest fits in budget.
// The most recent message is always kept.
func TrimHistory(estimator TokenEstimator, history []provider.LLMMessage, budget int) []provider.LLMMessage {
	if len(history) == 0 {
		return history
	}

	tokens := EstimateMessages(estimator, history)
	start := 0
	for tokens > budget && start < len(history)-1 {
		tokens -= 4 + estimator.Estimate(history[start].Content)
		start++
	}
	return history[start:]
}
