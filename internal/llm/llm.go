package llm

import (
	"context"

	"balanced-bowl/internal/shared"
)

// Chat roles as the Gemini API names them.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// ChatMessage is one earlier turn of a conversation.
type ChatMessage struct {
	Role string
	Text string
}

// ContentResponse contains the generated text and metadata like token usage.
type ContentResponse struct {
	Content string
	Usage   shared.TokenUsage
}

// SpeechResponse contains synthesized audio and token usage.
type SpeechResponse struct {
	// PCM is 16-bit little-endian mono audio at SpeechSampleRate.
	PCM   []byte
	Usage shared.TokenUsage
}

// SpeechSampleRate is the sample rate of synthesized speech.
const SpeechSampleRate = 24000

// ChatGenerator continues a conversation under a system instruction.
type ChatGenerator interface {
	Chat(ctx context.Context, system string, history []ChatMessage, message string) (ContentResponse, error)
}

// SpeechSynthesizer converts text to speech.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string) (SpeechResponse, error)
}
