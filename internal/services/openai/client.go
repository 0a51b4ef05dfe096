package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const defaultTimeout = 60 * time.Second

// Config captures the provider-level settings.
type Config struct {
	APIKey         string
	BaseURL        string
	TimeoutSeconds int
}

// ChatRequest is one chat completion call.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	JSON         bool
}

// Client wraps the OpenAI chat and audio transcription endpoints.
type Client struct {
	api     *goopenai.Client
	timeout time.Duration
}

// NewClient constructs a client. An empty BaseURL uses the public API.
func NewClient(cfg Config) (*Client, error) {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		return nil, errors.New("openai: api key required")
	}
	clientCfg := goopenai.DefaultConfig(key)
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		clientCfg.BaseURL = strings.TrimRight(base, "/")
	}
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	clientCfg.HTTPClient = &http.Client{Timeout: timeout}
	return &Client{api: goopenai.NewClientWithConfig(clientCfg), timeout: timeout}, nil
}

// Complete returns the first choice's content.
func (c *Client) Complete(ctx context.Context, req ChatRequest) (string, error) {
	if strings.TrimSpace(req.Model) == "" {
		return "", errors.New("openai complete: model required")
	}
	var messages []goopenai.ChatCompletionMessage
	if system := strings.TrimSpace(req.SystemPrompt); system != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: system})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.UserPrompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
	}
	if req.JSON {
		chatReq.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	resp, err := c.api.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai complete: %w", err)
	}
	for _, choice := range resp.Choices {
		if content := strings.TrimSpace(choice.Message.Content); content != "" {
			return content, nil
		}
	}
	return "", errors.New("openai complete: empty content")
}

// Transcribe uploads an audio file and returns the transcript text.
func (c *Client) Transcribe(ctx context.Context, model, audioPath string) (string, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return "", fmt.Errorf("openai transcribe: %w", err)
	}
	if strings.TrimSpace(model) == "" {
		model = goopenai.Whisper1
	}
	resp, err := c.api.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Format:   goopenai.AudioResponseFormatJSON,
	})
	if err != nil {
		return "", fmt.Errorf("openai transcribe: %w", err)
	}
	return strings.TrimSpace(resp.Text), nil
}

// HealthCheck lists models to verify the key.
func (c *Client) HealthCheck(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("openai health: %w", err)
	}
	return nil
}

// Transient reports whether err came from a rate limit, a server error, or a
// network timeout.
func Transient(err error) bool {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests || reqErr.HTTPStatusCode >= http.StatusInternalServerError
	}
	return errors.Is(err, context.DeadlineExceeded)
}
