package inference

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/services"
	"sideline/internal/services/llm"
	"sideline/internal/services/openai"
)

// RouteResolver resolves the model for a stage and org.
type RouteResolver interface {
	Resolve(ctx context.Context, stage, orgID string) (modelrouter.Route, error)
}

// Completion is a successful chat result with the route that produced it.
type Completion struct {
	Content string
	Route   modelrouter.Route
	Elapsed time.Duration
}

type registered struct {
	provider Provider
	limiter  *rate.Limiter
}

// Dispatcher resolves a stage's route and sends the call to the named
// provider, pacing each provider with its own rate limiter.
type Dispatcher struct {
	routes    RouteResolver
	logger    *slog.Logger
	mu        sync.RWMutex
	providers map[string]registered
}

// NewDispatcher constructs an empty dispatcher.
func NewDispatcher(routes RouteResolver, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Dispatcher{
		routes:    routes,
		logger:    logger.With(logging.String(logging.FieldComponent, "inference")),
		providers: make(map[string]registered),
	}
}

// NewFromConfig registers every provider that has an API key.
func NewFromConfig(cfg *config.Config, routes RouteResolver, logger *slog.Logger) (*Dispatcher, error) {
	d := NewDispatcher(routes, logger)
	for _, name := range config.ProviderNames() {
		pc, ok := cfg.GetProvider(name)
		if !ok || strings.TrimSpace(pc.APIKey) == "" {
			continue
		}
		var provider Provider
		switch name {
		case config.ProviderOpenRouter:
			provider = OpenRouter{Client: llm.NewClient(llm.Config{
				APIKey:         pc.APIKey,
				BaseURL:        pc.BaseURL,
				Referer:        pc.Referer,
				Title:          pc.Title,
				TimeoutSeconds: pc.TimeoutSeconds,
			})}
		case config.ProviderOpenAI:
			client, err := openai.NewClient(openai.Config{
				APIKey:         pc.APIKey,
				BaseURL:        pc.BaseURL,
				TimeoutSeconds: pc.TimeoutSeconds,
			})
			if err != nil {
				return nil, err
			}
			provider = OpenAI{Client: client}
		default:
			continue
		}
		d.Register(provider, pc.RequestsPerSecond, pc.Burst)
	}
	return d, nil
}

// Register adds or replaces a provider. A non-positive rps disables pacing.
func (d *Dispatcher) Register(p Provider, rps float64, burst int) {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	if burst <= 0 {
		burst = 1
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.providers[p.Name()] = registered{provider: p, limiter: rate.NewLimiter(limit, burst)}
}

// Providers lists registered provider names.
func (d *Dispatcher) Providers() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	names := make([]string, 0, len(d.providers))
	for name := range d.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (d *Dispatcher) provider(stage string, route modelrouter.Route) (registered, error) {
	d.mu.RLock()
	entry, ok := d.providers[route.Provider]
	d.mu.RUnlock()
	if !ok {
		return registered{}, services.Wrap(services.ErrNotConfigured, stage, "dispatch",
			fmt.Sprintf("provider %q has no credentials", route.Provider), nil)
	}
	return entry, nil
}

// Complete resolves stage for orgID and runs one chat call.
func (d *Dispatcher) Complete(ctx context.Context, stage, orgID string, req Request) (Completion, error) {
	route, err := d.routes.Resolve(ctx, stage, orgID)
	if err != nil {
		return Completion{}, err
	}
	entry, err := d.provider(stage, route)
	if err != nil {
		return Completion{}, err
	}
	if err := entry.limiter.Wait(ctx); err != nil {
		return Completion{}, services.Wrap(services.ErrTimeout, stage, "rate limit", route.Provider, err)
	}
	started := time.Now()
	content, err := entry.provider.Complete(ctx, route, req)
	elapsed := time.Since(started)
	if err != nil {
		return Completion{}, d.classify(ctx, stage, "complete", route, entry.provider, err)
	}
	logging.WithContext(ctx, d.logger).Debug("model call completed",
		logging.String(logging.FieldStage, stage),
		logging.String("route", route.String()),
		logging.Duration("elapsed", elapsed),
		logging.Int("response_chars", len(content)),
	)
	return Completion{Content: content, Route: route, Elapsed: elapsed}, nil
}

// Transcribe resolves the transcription route and converts audio to text.
func (d *Dispatcher) Transcribe(ctx context.Context, orgID, audioPath string) (Completion, error) {
	stage := modelrouter.StageTranscription
	route, err := d.routes.Resolve(ctx, stage, orgID)
	if err != nil {
		return Completion{}, err
	}
	entry, err := d.provider(stage, route)
	if err != nil {
		return Completion{}, err
	}
	transcriber, ok := entry.provider.(Transcriber)
	if !ok {
		return Completion{}, services.Wrap(services.ErrNotConfigured, stage, "dispatch",
			fmt.Sprintf("provider %q cannot transcribe audio", route.Provider), nil)
	}
	if err := entry.limiter.Wait(ctx); err != nil {
		return Completion{}, services.Wrap(services.ErrTimeout, stage, "rate limit", route.Provider, err)
	}
	started := time.Now()
	text, err := transcriber.Transcribe(ctx, route, audioPath)
	if err != nil {
		return Completion{}, d.classify(ctx, stage, "transcribe", route, entry.provider, err)
	}
	return Completion{Content: text, Route: route, Elapsed: time.Since(started)}, nil
}

func (d *Dispatcher) classify(ctx context.Context, stage, op string, route modelrouter.Route, p Provider, err error) error {
	marker := services.ErrExternalTool
	if checker, ok := p.(transientChecker); ok && checker.Transient(err) {
		marker = services.ErrTransient
	}
	if ctx.Err() != nil {
		marker = services.ErrTimeout
	}
	logging.WarnWithContext(logging.WithContext(ctx, d.logger), "model call failed", "provider_error",
		logging.String(logging.FieldStage, stage),
		logging.String("route", route.String()),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check provider credentials and model id"),
	)
	return services.Wrap(marker, stage, op, route.String(), err)
}
