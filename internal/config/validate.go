package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateThresholds(); err != nil {
		return err
	}
	if err := c.validateDrafts(); err != nil {
		return err
	}
	if err := c.validateInbox(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":         c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval":        c.Workflow.ErrorRetryInterval,
		"workflow.max_attempts":                c.Workflow.MaxAttempts,
		"router.cache_ttl_seconds":             c.Router.CacheTTLSeconds,
		"roster.cache_ttl_seconds":             c.Roster.CacheTTLSeconds,
		"extraction.max_claims":                c.Extraction.MaxClaims,
		"extraction.max_transcript_chars":      c.Extraction.MaxTranscriptChars,
		"providers.openrouter.timeout_seconds": c.Providers.OpenRouter.TimeoutSeconds,
		"providers.openai.timeout_seconds":     c.Providers.OpenAI.TimeoutSeconds,
		"drafts.sweep_interval_minutes":        c.Drafts.SweepIntervalMinutes,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	return nil
}

func (c *Config) validateThresholds() error {
	for key, value := range map[string]float64{
		"extraction.min_confidence": c.Extraction.MinConfidence,
		"resolver.min_confidence":   c.Resolver.MinConfidence,
		"drafts.default_threshold":  c.Drafts.DefaultThreshold,
		"drafts.rejection_penalty":  c.Drafts.RejectionPenalty,
		"drafts.max_trust_boost":    c.Drafts.MaxTrustBoost,
	} {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	if c.Resolver.TieEpsilon < 0 || c.Resolver.TieEpsilon >= 0.5 {
		return errors.New("resolver.tie_epsilon must be in [0, 0.5)")
	}
	return nil
}

func (c *Config) validateDrafts() error {
	if c.Drafts.RetentionDays <= 0 {
		return errors.New("drafts.retention_days must be positive")
	}
	return nil
}

func (c *Config) validateInbox() error {
	if !c.Inbox.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Inbox.OrgID) == "" {
		return errors.New("inbox.org_id must be set when inbox.enabled is true")
	}
	if strings.TrimSpace(c.Inbox.CoachID) == "" {
		return errors.New("inbox.coach_id must be set when inbox.enabled is true")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
