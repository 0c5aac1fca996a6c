package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/prompts"
)

const (
	completionModel      = openai.GPT4oMini
	completionMaxTokens  = 500
	completionTemp       = 0.7
	descriptionMaxTokens = 300
)

// Service is the generative backend consumed by the content processors.
type Service interface {
	CompleteText(ctx context.Context, prompt string) (string, error)
	Transcribe(ctx context.Context, audioPath string) (string, error)
	DescribeImage(ctx context.Context, image []byte, mimeType string) (string, error)
	SynthesizeSpeech(ctx context.Context, text string) ([]byte, error)
}

// TranscriptionError wraps a failed transcription with the upstream HTTP
// status so callers can tell malformed or oversized input apart from
// transient backend failures.
type TranscriptionError struct {
	StatusCode int
	cause      error
}

func NewTranscriptionError(statusCode int, cause error) *TranscriptionError {
	return &TranscriptionError{StatusCode: statusCode, cause: cause}
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (status %d): %v", e.StatusCode, e.cause)
}

func (e *TranscriptionError) Unwrap() error {
	return e.cause
}

// IsInvalidInput reports whether the backend rejected the audio itself,
// typically because it was malformed or too long.
func (e *TranscriptionError) IsInvalidInput() bool {
	return e.StatusCode == http.StatusBadRequest
}

type Client struct {
	api   *openai.Client
	voice string
}

func NewClient(apiKey, voice string) *Client {
	return &Client{
		api:   openai.NewClient(apiKey),
		voice: voice,
	}
}

func (c *Client) CompleteText(ctx context.Context, prompt string) (string, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: completionModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   completionMaxTokens,
		Temperature: completionTemp,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	resp, err := c.api.CreateTranscription(ctx, openai.AudioRequest{
		Model:    openai.Whisper1,
		FilePath: audioPath,
		Language: "pt",
	})
	if err != nil {
		status := 0
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			status = apiErr.HTTPStatusCode
		}
		return "", NewTranscriptionError(status, err)
	}
	return strings.TrimSpace(resp.Text), nil
}

func (c *Client) DescribeImage(ctx context.Context, image []byte, mimeType string) (string, error) {
	dataURL := fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(image))

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: completionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompts.ImageAnalysisPrompt},
					{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{URL: dataURL}},
				},
			},
		},
		MaxTokens: descriptionMaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("image description: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("image description returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) SynthesizeSpeech(ctx context.Context, text string) ([]byte, error) {
	resp, err := c.api.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model: openai.TTSModel1,
		Voice: openai.SpeechVoice(c.voice),
		Input: text,
	})
	if err != nil {
		return nil, fmt.Errorf("speech synthesis: %w", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read synthesized audio: %w", err)
	}
	return audio, nil
}

var _ Service = (*Client)(nil)
