package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotConfigured    = errors.New("not configured")
	ErrExtractionFailed = errors.New("extraction failed")
	ErrAccessDenied     = errors.New("access denied")
	ErrAlreadyTerminal  = errors.New("already terminal")
	ErrExternalTool     = errors.New("external tool error")
	ErrValidation       = errors.New("validation error")
	ErrConfiguration    = errors.New("configuration error")
	ErrNotFound         = errors.New("not found")
	ErrTimeout          = errors.New("timeout")
	ErrTransient        = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// Disposition describes what the workflow manager does with an artifact after
// a stage returns an error.
type Disposition int

const (
	// DispositionFail moves the artifact straight to failed.
	DispositionFail Disposition = iota
	// DispositionRetry rolls the artifact back and spends one attempt.
	DispositionRetry
	// DispositionHalt parks the artifact at its current status until an
	// operator fixes the configuration.
	DispositionHalt
)

func (d Disposition) String() string {
	switch d {
	case DispositionRetry:
		return "retry"
	case DispositionHalt:
		return "halt"
	default:
		return "fail"
	}
}

// Classify maps a stage error to the disposition the workflow manager applies.
func Classify(err error) Disposition {
	switch {
	case err == nil:
		return DispositionFail
	case errors.Is(err, ErrNotConfigured):
		return DispositionHalt
	case errors.Is(err, ErrExtractionFailed),
		errors.Is(err, ErrTransient),
		errors.Is(err, ErrTimeout),
		errors.Is(err, ErrExternalTool):
		return DispositionRetry
	default:
		return DispositionFail
	}
}

// Retryable reports whether err should consume a retry attempt instead of
// failing the artifact outright.
func Retryable(err error) bool {
	return Classify(err) == DispositionRetry
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}

// Halts reports whether err parks the artifact without spending an attempt.
func Halts(err error) bool {
	return Classify(err) == DispositionHalt
}
