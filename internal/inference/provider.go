package inference

import (
	"context"

	"sideline/internal/modelrouter"
	"sideline/internal/services/llm"
	"sideline/internal/services/openai"
)

// Request is a provider-neutral chat call. The route supplies the model.
type Request struct {
	SystemPrompt string
	UserPrompt   string
	JSON         bool
}

// Provider completes chat requests for routes naming it.
type Provider interface {
	Name() string
	Complete(ctx context.Context, route modelrouter.Route, req Request) (string, error)
}

// Transcriber is implemented by providers that accept audio.
type Transcriber interface {
	Transcribe(ctx context.Context, route modelrouter.Route, audioPath string) (string, error)
}

// transientChecker lets a provider classify its own errors.
type transientChecker interface {
	Transient(err error) bool
}

// OpenRouter adapts the OpenRouter chat client.
type OpenRouter struct {
	Client *llm.Client
}

func (OpenRouter) Name() string { return "openrouter" }

func (p OpenRouter) Complete(ctx context.Context, route modelrouter.Route, req Request) (string, error) {
	resp, err := p.Client.Complete(ctx, llm.Request{
		Model:        route.ModelID,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		MaxTokens:    route.MaxTokens,
		Temperature:  route.Temperature,
		JSON:         req.JSON,
	})
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

func (OpenRouter) Transient(err error) bool { return llm.Transient(err) }

// OpenAI adapts the OpenAI client, which also transcribes audio.
type OpenAI struct {
	Client *openai.Client
}

func (OpenAI) Name() string { return "openai" }

func (p OpenAI) Complete(ctx context.Context, route modelrouter.Route, req Request) (string, error) {
	return p.Client.Complete(ctx, openai.ChatRequest{
		Model:        route.ModelID,
		SystemPrompt: req.SystemPrompt,
		UserPrompt:   req.UserPrompt,
		MaxTokens:    route.MaxTokens,
		Temperature:  route.Temperature,
		JSON:         req.JSON,
	})
}

func (p OpenAI) Transcribe(ctx context.Context, route modelrouter.Route, audioPath string) (string, error) {
	return p.Client.Transcribe(ctx, route.ModelID, audioPath)
}

func (OpenAI) Transient(err error) bool { return openai.Transient(err) }
