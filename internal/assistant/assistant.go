// Package assistant is the AI cooking assistant: chat replies and spoken narration.
//
// Neither operation returns an error. Chat failures become a fixed apology and
// narration failures become silence; both are logged and counted.
package assistant

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"balanced-bowl/internal/llm"
	"balanced-bowl/internal/metrics"
	"balanced-bowl/internal/shared"
)

//go:embed assistant_prompt.md
var assistantPrompt string

var promptTemplate = template.Must(template.New("assistant").Parse(assistantPrompt))

// FallbackReply is returned whenever a chat reply cannot be produced.
const FallbackReply = "I'm sorry, I'm having a little trouble in the kitchen right now. Please try again in a moment."

// Agent names used in usage metrics.
const (
	ChatAgent     = "assistant"
	NarratorAgent = "narrator"
)

// Turn is one earlier message of a conversation.
type Turn = llm.ChatMessage

// UsageRecorder persists token usage of assistant calls.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Assistant bridges the chat and speech models.
type Assistant struct {
	chat     llm.ChatGenerator
	speech   llm.SpeechSynthesizer
	recorder UsageRecorder
	metrics  *metrics.Collectors
	extra    string
	now      func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithUsageRecorder records the token usage of every call.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(a *Assistant) { a.recorder = r }
}

// WithCollectors counts calls and tokens in Prometheus.
func WithCollectors(c *metrics.Collectors) Option {
	return func(a *Assistant) { a.metrics = c }
}

// WithInstructions appends text to the system instruction.
func WithInstructions(extra string) Option {
	return func(a *Assistant) { a.extra = strings.TrimSpace(extra) }
}

// New creates an Assistant. speech may be nil, in which case Speak always returns nil.
func New(chat llm.ChatGenerator, speech llm.SpeechSynthesizer, opts ...Option) *Assistant {
	a := &Assistant{chat: chat, speech: speech, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// SystemInstruction renders the system prompt for the current day.
func (a *Assistant) SystemInstruction() (string, error) {
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, struct {
		Weekday string
		Extra   string
	}{
		Weekday: a.now().Weekday().String(),
		Extra:   a.extra,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render system instruction: %w", err)
	}
	return buf.String(), nil
}

// Reply answers message in the context of history.
// Any failure yields FallbackReply.
func (a *Assistant) Reply(ctx context.Context, history []Turn, message string) string {
	start := time.Now()

	system, err := a.SystemInstruction()
	if err != nil {
		slog.Error("Assistant prompt failed", "error", err)
		a.observe(ChatAgent, "error", shared.TokenUsage{})
		return FallbackReply
	}

	resp, err := a.chat.Chat(ctx, system, history, message)
	if err != nil || strings.TrimSpace(resp.Content) == "" {
		slog.Error("Assistant reply failed", "error", err, "history_len", len(history))
		a.record(ctx, ChatAgent, resp.Usage, time.Since(start))
		a.observe(ChatAgent, "error", resp.Usage)
		return FallbackReply
	}

	a.record(ctx, ChatAgent, resp.Usage, time.Since(start))
	a.observe(ChatAgent, "ok", resp.Usage)
	return resp.Content
}

// Speak synthesizes text as 16-bit mono PCM at llm.SpeechSampleRate.
// It returns nil for empty text or on any failure.
func (a *Assistant) Speak(ctx context.Context, text string) []byte {
	if strings.TrimSpace(text) == "" || a.speech == nil {
		return nil
	}
	start := time.Now()

	resp, err := a.speech.Synthesize(ctx, text)
	if err != nil {
		slog.Error("Speech synthesis failed", "error", err, "chars", len(text))
		a.observe(NarratorAgent, "error", resp.Usage)
		return nil
	}

	a.record(ctx, NarratorAgent, resp.Usage, time.Since(start))
	a.observe(NarratorAgent, "ok", resp.Usage)
	if len(resp.PCM) == 0 {
		return nil
	}
	return resp.PCM
}

func (a *Assistant) record(ctx context.Context, agent string, usage shared.TokenUsage, latency time.Duration) {
	if a.recorder == nil {
		return
	}
	meta := shared.AgentMeta{AgentName: agent, Usage: usage, Latency: latency}
	if err := a.recorder.RecordMeta(ctx, meta); err != nil {
		slog.Warn("Failed to record assistant usage", "agent", agent, "error", err)
	}
}

func (a *Assistant) observe(agent, outcome string, usage shared.TokenUsage) {
	if a.metrics == nil {
		return
	}
	a.metrics.AssistantCalls.WithLabelValues(agent, outcome).Inc()
	a.metrics.AssistantToken.WithLabelValues(agent, "prompt").Add(float64(usage.PromptTokens))
	a.metrics.AssistantToken.WithLabelValues(agent, "completion").Add(float64(usage.CompletionTokens))
}
