package shared

import "time"

// TokenUsage is what one model call consumed.
type TokenUsage struct {
	Model            string
	PromptTokens     int
	CompletionTokens int
}

// Empty reports whether the call consumed no tokens, as with a cached or failed call.
func (u TokenUsage) Empty() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0
}

// AgentMeta describes one assistant call for the usage ledger.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
