package transcription

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"sideline/internal/inference"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/services"
	"sideline/internal/stage"
	"sideline/internal/store"
)

const stageName = "transcription"

// Transcriber converts an audio file for an org into text.
type Transcriber interface {
	Transcribe(ctx context.Context, orgID, audioPath string) (inference.Completion, error)
}

// Stage integrates transcription with the workflow manager.
type Stage struct {
	transcriber Transcriber
	routes      inference.RouteResolver
	logger      *slog.Logger
}

// NewStage constructs the transcription workflow stage.
func NewStage(transcriber Transcriber, routes inference.RouteResolver, logger *slog.Logger) *Stage {
	return &Stage{
		transcriber: transcriber,
		routes:      routes,
		logger:      logging.NewComponentLogger(logger, "transcription"),
	}
}

// Prepare checks that the recorded audio is still on disk.
func (s *Stage) Prepare(_ context.Context, artifact *store.Artifact) error {
	if s == nil || s.transcriber == nil {
		return services.Wrap(services.ErrConfiguration, stageName, "prepare", "Transcription stage is not configured", nil)
	}
	if err := stage.RequireArtifact(stageName, artifact); err != nil {
		return err
	}
	if artifact.MediaKind != store.MediaAudio {
		return nil
	}
	info, err := os.Stat(artifact.AudioPath)
	if errors.Is(err, fs.ErrNotExist) {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "audio file missing; resubmit the recording", err)
	}
	if err != nil {
		return services.Wrap(services.ErrTransient, stageName, "prepare", "stat audio file", err)
	}
	if info.IsDir() || info.Size() == 0 {
		return services.Wrap(services.ErrValidation, stageName, "prepare", "audio file is empty", nil)
	}
	return nil
}

// Execute transcribes the artifact's audio.
func (s *Stage) Execute(ctx context.Context, artifact *store.Artifact) error {
	if artifact.MediaKind != store.MediaAudio {
		return nil
	}
	logger := logging.WithContext(ctx, s.logger)
	started := time.Now()

	completion, err := s.transcriber.Transcribe(ctx, artifact.OrgID, artifact.AudioPath)
	if err != nil {
		return err
	}
	artifact.Transcript = strings.TrimSpace(completion.Content)
	logger.Info("audio transcribed",
		logging.String("route", completion.Route.String()),
		logging.Int("transcript_chars", len(artifact.Transcript)),
		logging.Duration("elapsed", time.Since(started)),
	)
	if artifact.Transcript == "" {
		logging.WarnWithContext(logger, "transcript is empty", "transcript_empty",
			logging.String(logging.FieldImpact, "no claims will be extracted"),
			logging.String(logging.FieldErrorHint, "check the recording has audible speech"),
		)
	}
	return nil
}

// HealthCheck reports whether a platform transcription route exists.
func (s *Stage) HealthCheck(ctx context.Context) stage.Health {
	if s == nil || s.transcriber == nil {
		return stage.Unhealthy(stageName, "transcriber unavailable")
	}
	if s.routes == nil {
		return stage.Healthy(stageName)
	}
	_, err := s.routes.Resolve(ctx, modelrouter.StageTranscription, "")
	return stage.FromError(stageName, err)
}
