package pipeline

import (
	"fmt"
	"log/slog"
	"time"

	"sideline/internal/config"
	"sideline/internal/drafts"
	"sideline/internal/extraction"
	"sideline/internal/gate"
	"sideline/internal/inference"
	"sideline/internal/modelrouter"
	"sideline/internal/resolver"
	"sideline/internal/roster"
	"sideline/internal/store"
	"sideline/internal/transcription"
	"sideline/internal/workflow"
)

// Components holds the wired services behind the voice-note pipeline.
type Components struct {
	Router     *modelrouter.Router
	Dispatcher *inference.Dispatcher
	Roster     *roster.Directory
	Drafts     *drafts.Manager
	Builder    *gate.Builder
	Resolver   *resolver.Resolver
	Stages     workflow.StageSet
}

// Build constructs the components from configuration, registering every
// provider that has credentials.
func Build(cfg *config.Config, st *store.Store, logger *slog.Logger) (*Components, error) {
	if cfg == nil || st == nil {
		return nil, fmt.Errorf("config and store are required")
	}
	router := modelrouter.New(st, seconds(cfg.Router.CacheTTLSeconds), logger)
	dispatcher, err := inference.NewFromConfig(cfg, router, logger)
	if err != nil {
		return nil, fmt.Errorf("init providers: %w", err)
	}
	return New(cfg, st, router, dispatcher, logger), nil
}

// New wires the components around an existing router and dispatcher.
func New(cfg *config.Config, st *store.Store, router *modelrouter.Router, dispatcher *inference.Dispatcher, logger *slog.Logger) *Components {
	rosters := roster.NewDirectory(st, seconds(cfg.Roster.CacheTTLSeconds), logger)
	manager := drafts.NewManager(st, drafts.PolicyFromConfig(cfg), logger)
	builder := gate.NewBuilder(st, manager, cfg.Drafts.AutoApply, logger)
	res := resolver.NewResolver(st, rosters, dispatcher, builder, resolver.OptionsFromConfig(cfg), logger)
	extractor := extraction.NewExtractor(dispatcher, extraction.PolicyFromConfig(cfg), logger)

	return &Components{
		Router:     router,
		Dispatcher: dispatcher,
		Roster:     rosters,
		Drafts:     manager,
		Builder:    builder,
		Resolver:   res,
		Stages: workflow.StageSet{
			Transcription: transcription.NewStage(dispatcher, router, logger),
			Extraction:    extraction.NewStage(extractor, st, rosters, router, logger),
			Resolution:    resolver.NewStage(res, router, logger),
			Drafting:      gate.NewStage(builder, logger),
		},
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}
