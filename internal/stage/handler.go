package stage

import (
	"context"

	"sideline/internal/store"
)

// Handler describes the contract the workflow manager needs from each stage.
//
// Prepare runs after the artifact moves to the stage's in-flight status and
// before the heartbeat starts; Execute does the work. Either may mutate the
// artifact; the manager persists it afterwards.
type Handler interface {
	Prepare(context.Context, *store.Artifact) error
	Execute(context.Context, *store.Artifact) error
	HealthCheck(context.Context) Health
}
