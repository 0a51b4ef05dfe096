package workflow

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sideline/internal/config"
	"sideline/internal/logging"
	"sideline/internal/store"
)

// Manager coordinates artifact processing using registered stage handlers.
type Manager struct {
	cfg           *config.Config
	store         *store.Store
	logger        *slog.Logger
	pollInterval  time.Duration
	retryInterval time.Duration
	maxAttempts   int

	heartbeat *HeartbeatMonitor

	lanes     map[laneKind]*laneState
	laneOrder []laneKind

	mu           sync.RWMutex
	running      bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
	lastErr      error
	lastArtifact *store.Artifact
}

// NewManager constructs a new workflow manager.
func NewManager(cfg *config.Config, st *store.Store, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}
	maxAttempts := cfg.Workflow.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	return &Manager{
		cfg:           cfg,
		store:         st,
		logger:        logger,
		pollInterval:  time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		retryInterval: time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		maxAttempts:   maxAttempts,
		heartbeat: NewHeartbeatMonitor(
			st,
			logger,
			time.Duration(cfg.Workflow.HeartbeatInterval)*time.Second,
			time.Duration(cfg.Workflow.HeartbeatTimeout)*time.Second,
		),
		lanes: make(map[laneKind]*laneState),
	}
}
