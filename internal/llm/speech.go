package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"balanced-bowl/internal/config"
	"balanced-bowl/internal/shared"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com"

// speechClient calls the Gemini REST API directly; the Go SDK has no audio response modality.
type speechClient struct {
	apiKey     string
	baseURL    string
	model      string
	voice      string
	httpClient *http.Client
}

// NewSpeechClient creates a new Gemini text-to-speech client.
func NewSpeechClient(cfg *config.Config) SpeechSynthesizer {
	return &speechClient{
		apiKey:  cfg.GeminiAPIKey,
		baseURL: geminiAPIURL,
		model:   cfg.GeminiTTSModel,
		voice:   cfg.GeminiVoice,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Synthesize reads text aloud with the configured prebuilt voice.
func (c *speechClient) Synthesize(ctx context.Context, text string) (SpeechResponse, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{{"text": text}},
			},
		},
		"generationConfig": map[string]interface{}{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]interface{}{
				"voiceConfig": map[string]interface{}{
					"prebuiltVoiceConfig": map[string]string{"voiceName": c.voice},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return SpeechResponse{}, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return SpeechResponse{}, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SpeechResponse{}, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return SpeechResponse{}, fmt.Errorf("gemini tts api error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
	}

	var ttsResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					InlineData *struct {
						MimeType string `json:"mimeType"`
						Data     string `json:"data"`
					} `json:"inlineData"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
		UsageMetadata struct {
			PromptTokenCount     int `json:"promptTokenCount"`
			CandidatesTokenCount int `json:"candidatesTokenCount"`
		} `json:"usageMetadata"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&ttsResp); err != nil {
		return SpeechResponse{}, fmt.Errorf("failed to decode response: %w", err)
	}

	if len(ttsResp.Candidates) == 0 || len(ttsResp.Candidates[0].Content.Parts) == 0 ||
		ttsResp.Candidates[0].Content.Parts[0].InlineData == nil {
		return SpeechResponse{}, fmt.Errorf("no audio generated")
	}

	pcm, err := base64.StdEncoding.DecodeString(ttsResp.Candidates[0].Content.Parts[0].InlineData.Data)
	if err != nil {
		return SpeechResponse{}, fmt.Errorf("failed to decode audio: %w", err)
	}

	return SpeechResponse{
		PCM: pcm,
		Usage: shared.TokenUsage{
			PromptTokens:     ttsResp.UsageMetadata.PromptTokenCount,
			CompletionTokens: ttsResp.UsageMetadata.CandidatesTokenCount,
			Model:            c.model,
		},
	}, nil
}
