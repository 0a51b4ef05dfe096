package extraction

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"

	"sideline/internal/config"
	"sideline/internal/inference"
	"sideline/internal/logging"
	"sideline/internal/modelrouter"
	"sideline/internal/services"
	"sideline/internal/store"
	"sideline/internal/textutil"
)

const stageName = "extraction"

// Completer runs a chat call against a stage's route.
type Completer interface {
	Complete(ctx context.Context, stage, orgID string, req inference.Request) (inference.Completion, error)
}

// Policy holds extraction limits.
type Policy struct {
	MinConfidence      float64
	MaxClaims          int
	MaxTranscriptChars int
}

// PolicyFromConfig reads extraction limits from configuration.
func PolicyFromConfig(cfg *config.Config) Policy {
	return Policy{
		MinConfidence:      cfg.Extraction.MinConfidence,
		MaxClaims:          cfg.Extraction.MaxClaims,
		MaxTranscriptChars: cfg.Extraction.MaxTranscriptChars,
	}
}

// Extractor produces claims from transcripts.
type Extractor struct {
	completer Completer
	policy    Policy
	logger    *slog.Logger
}

// NewExtractor constructs an extractor.
func NewExtractor(completer Completer, policy Policy, logger *slog.Logger) *Extractor {
	return &Extractor{
		completer: completer,
		policy:    policy,
		logger:    logging.NewComponentLogger(logger, "claim-extractor"),
	}
}

// Extract returns the claims stated in transcript. An empty transcript yields
// no claims and no model call. Malformed model output is ErrExtractionFailed.
// Claims below the minimum confidence come back with status discarded.
func (e *Extractor) Extract(ctx context.Context, transcript string, org OrgContext) ([]*store.Claim, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, nil
	}
	logger := logging.WithContext(ctx, e.logger)

	if limit := e.policy.MaxTranscriptChars; limit > 0 && len([]rune(transcript)) > limit {
		logging.WarnWithContext(logger, "transcript truncated for extraction", "transcript_truncated",
			logging.Int("limit", limit),
			logging.String(logging.FieldImpact, "claims after the limit are not extracted"),
			logging.String(logging.FieldErrorHint, "raise extraction.max_transcript_chars or split the note"),
		)
		transcript = string([]rune(transcript)[:limit])
	}

	completion, err := e.completer.Complete(ctx, modelrouter.StageClaimExtraction, org.OrgID, inference.Request{
		SystemPrompt: systemPrompt(),
		UserPrompt:   userPrompt(transcript, org),
		JSON:         true,
	})
	if err != nil {
		return nil, err
	}

	raws, err := decodeClaims(completion.Content)
	if err != nil {
		return nil, services.Wrap(services.ErrExtractionFailed, stageName, "decode claims", "model returned malformed claims", err)
	}

	claims := make([]*store.Claim, 0, len(raws))
	rejected := 0
	for i, raw := range raws {
		claim, err := toClaim(raw)
		if err != nil {
			var variant *variantError
			reason := "invalid claim"
			if errors.As(err, &variant) {
				reason = "unknown variant"
			}
			logging.WarnWithContext(logger, "claim rejected", "claim_rejected",
				logging.Int("index", i),
				logging.String("reason", reason),
				logging.Error(err),
				logging.String(logging.FieldImpact, "claim dropped from this note"),
				logging.String(logging.FieldErrorHint, "check the extraction model follows the topic taxonomy"),
			)
			rejected++
			continue
		}
		claim.ExtractionConfidence = e.confidence(raw.Confidence, claim, transcript)
		if claim.ExtractionConfidence < e.policy.MinConfidence {
			claim.Status = store.ClaimDiscarded
			claim.StatusReason = "extraction confidence below minimum"
		}
		claims = append(claims, claim)
	}

	if limit := e.policy.MaxClaims; limit > 0 && len(claims) > limit {
		logging.WarnWithContext(logger, "claim count capped", "claims_capped",
			logging.Int("returned", len(claims)),
			logging.Int("limit", limit),
			logging.String(logging.FieldImpact, "later claims dropped"),
		)
		claims = claims[:limit]
	}

	logger.Info("claims extracted",
		logging.String("route", completion.Route.String()),
		logging.Int("claims", len(claims)),
		logging.Int("rejected", rejected),
		logging.Duration("elapsed", completion.Elapsed),
	)
	return claims, nil
}

// confidence clamps a reported value to [0,1] or derives one when absent.
func (e *Extractor) confidence(reported *float64, claim *store.Claim, transcript string) float64 {
	if reported != nil && !math.IsNaN(*reported) {
		return clamp01(*reported)
	}
	return HeuristicConfidence(claim, transcript)
}

// HeuristicConfidence scores a claim without a model-reported confidence:
// evidence found verbatim in the transcript and mentions that were actually
// spoken raise it.
func HeuristicConfidence(claim *store.Claim, transcript string) float64 {
	score := 0.5
	folded := textutil.Fold(transcript)
	if snippet := textutil.Fold(claim.Snippet); snippet != "" && strings.Contains(folded, snippet) {
		score += 0.25
	}
	if len(claim.Mentions) > 0 {
		spoken := 0
		for _, mention := range claim.Mentions {
			if m := textutil.Fold(mention); m != "" && strings.Contains(folded, m) {
				spoken++
			}
		}
		if spoken == len(claim.Mentions) {
			score += 0.15
		} else if spoken == 0 {
			score -= 0.2
		}
	}
	return clamp01(score)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
