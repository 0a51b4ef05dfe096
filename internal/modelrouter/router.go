package modelrouter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/services"
	"sideline/internal/store"
)

// Pipeline stages that call a model.
const (
	StageTranscription    = "transcription"
	StageClaimExtraction  = "claim_extraction"
	StageEntityResolution = "entity_resolution"
)

// Stages lists every routable stage.
func Stages() []string {
	return []string{StageTranscription, StageClaimExtraction, StageEntityResolution}
}

// ValidStage reports whether stage is routable.
func ValidStage(stage string) bool {
	return slices.Contains(Stages(), stage)
}

// haltedAt is the artifact status a stage parks at when it has no model.
var haltedAt = map[string]store.Status{
	StageTranscription:    store.StatusReceived,
	StageClaimExtraction:  store.StatusTranscribed,
	StageEntityResolution: store.StatusExtracted,
}

// Route is a resolved model choice for one stage call.
type Route struct {
	Stage       string
	OrgID       string
	Provider    string
	ModelID     string
	MaxTokens   int
	Temperature float64
	// Override is true when an org-specific row won over the platform default.
	Override bool
}

func (r Route) String() string {
	return r.Provider + "/" + r.ModelID
}

// Router resolves per-org model configuration with a platform fallback.
type Router struct {
	store  *store.Store
	cache  *gocache.Cache
	logger *slog.Logger
}

// New constructs a router over the store's model configuration tables.
func New(st *store.Store, ttl time.Duration, logger *slog.Logger) *Router {
	if ttl <= 0 {
		ttl = time.Minute
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Router{
		store:  st,
		cache:  gocache.New(ttl, 2*ttl),
		logger: logger.With(logging.String(logging.FieldComponent, "modelrouter")),
	}
}

type cached struct {
	route Route
	found bool
}

func cacheKey(stage, orgID string) string {
	return stage + "\x00" + orgID
}

// Resolve returns the active org override for stage, else the active platform
// default, else an ErrNotConfigured error. It never writes.
func (r *Router) Resolve(ctx context.Context, stage, orgID string) (Route, error) {
	if !ValidStage(stage) {
		return Route{}, services.Wrap(services.ErrValidation, stage, "resolve route", "unknown stage", nil)
	}
	key := cacheKey(stage, orgID)
	if hit, ok := r.cache.Get(key); ok {
		entry := hit.(cached)
		if !entry.found {
			return Route{}, notConfigured(stage, orgID)
		}
		return entry.route, nil
	}

	route, found, err := r.lookup(ctx, stage, orgID)
	if err != nil {
		return Route{}, err
	}
	r.cache.SetDefault(key, cached{route: route, found: found})
	if !found {
		return Route{}, notConfigured(stage, orgID)
	}
	return route, nil
}

func (r *Router) lookup(ctx context.Context, stage, orgID string) (Route, bool, error) {
	candidates := []string{""}
	if orgID != "" {
		candidates = []string{orgID, ""}
	}
	for _, org := range candidates {
		mc, err := r.store.GetModelConfig(ctx, stage, org)
		if err != nil {
			return Route{}, false, fmt.Errorf("resolve %s route: %w", stage, err)
		}
		if mc == nil || !mc.Active {
			continue
		}
		return Route{
			Stage:       stage,
			OrgID:       mc.OrgID,
			Provider:    mc.Provider,
			ModelID:     mc.ModelID,
			MaxTokens:   mc.MaxTokens,
			Temperature: mc.Temperature,
			Override:    mc.OrgID != "",
		}, true, nil
	}
	return Route{}, false, nil
}

func notConfigured(stage, orgID string) error {
	scope := "platform default"
	if orgID != "" {
		scope = "org " + orgID + " or platform default"
	}
	return services.Wrap(services.ErrNotConfigured, stage, "resolve route", "no active model for "+scope, nil)
}

func validateConfig(mc store.ModelConfig) error {
	switch {
	case !ValidStage(mc.Stage):
		return services.Wrap(services.ErrValidation, mc.Stage, "upsert model", "unknown stage", nil)
	case !slices.Contains(config.ProviderNames(), mc.Provider):
		return services.Wrap(services.ErrValidation, mc.Stage, "upsert model", fmt.Sprintf("unknown provider %q", mc.Provider), nil)
	case strings.TrimSpace(mc.ModelID) == "":
		return services.Wrap(services.ErrValidation, mc.Stage, "upsert model", "model id required", nil)
	case mc.MaxTokens < 0:
		return services.Wrap(services.ErrValidation, mc.Stage, "upsert model", "max tokens must be non-negative", nil)
	case mc.Temperature < 0 || mc.Temperature > 2:
		return services.Wrap(services.ErrValidation, mc.Stage, "upsert model", "temperature must be within [0, 2]", nil)
	}
	return nil
}

// Upsert stores a stage configuration and logs the change in the same
// transaction. When the stage ends up active, artifacts parked for lack of a
// model are released.
func (r *Router) Upsert(ctx context.Context, mc store.ModelConfig, actor, reason string) (*store.ModelConfigChange, error) {
	mc.ModelID = strings.TrimSpace(mc.ModelID)
	mc.Provider = strings.ToLower(strings.TrimSpace(mc.Provider))
	if err := validateConfig(mc); err != nil {
		return nil, err
	}
	change, err := r.store.UpsertModelConfig(ctx, mc, actor, reason)
	if err != nil {
		return nil, err
	}
	r.cache.Flush()
	r.logger.Info("model config updated",
		logging.String(logging.FieldEventType, "model_config_upsert"),
		logging.String(logging.FieldStage, mc.Stage),
		logging.String(logging.FieldOrgID, mc.OrgID),
		logging.String("provider", mc.Provider),
		logging.String("model", mc.ModelID),
		logging.Bool("active", mc.Active),
		logging.String("actor", actor),
	)
	if mc.Active {
		released, err := r.store.ReleaseHalted(ctx, haltedAt[mc.Stage])
		if err != nil {
			return change, fmt.Errorf("release halted artifacts: %w", err)
		}
		if released > 0 {
			r.logger.Info("released halted artifacts",
				logging.String(logging.FieldStage, mc.Stage),
				logging.Int64("released", released),
			)
		}
	}
	return change, nil
}

// Delete removes a stage configuration. Deleting a missing row returns
// nil, nil and leaves the change log untouched.
func (r *Router) Delete(ctx context.Context, stage, orgID, actor, reason string) (*store.ModelConfigChange, error) {
	if !ValidStage(stage) {
		return nil, services.Wrap(services.ErrValidation, stage, "delete model", "unknown stage", nil)
	}
	change, err := r.store.DeleteModelConfig(ctx, stage, orgID, actor, reason)
	if err != nil {
		return nil, err
	}
	r.cache.Flush()
	if change != nil {
		r.logger.Info("model config deleted",
			logging.String(logging.FieldEventType, "model_config_delete"),
			logging.String(logging.FieldStage, stage),
			logging.String(logging.FieldOrgID, orgID),
			logging.String("actor", actor),
		)
	}
	return change, nil
}

// History returns the change log for a stage (all stages when empty).
func (r *Router) History(ctx context.Context, stage, orgID string, limit int) ([]*store.ModelConfigChange, error) {
	return r.store.ModelConfigHistory(ctx, stage, orgID, limit)
}

// List returns every stored configuration row.
func (r *Router) List(ctx context.Context) ([]*store.ModelConfig, error) {
	return r.store.ListModelConfigs(ctx)
}
