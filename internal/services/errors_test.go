package services_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"sideline/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExtractionFailed, "extraction", "decode", "malformed payload", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExtractionFailed) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"extraction", "decode", "malformed payload"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want services.Disposition
	}{
		{"not configured halts", services.Wrap(services.ErrNotConfigured, "router", "resolve", "no model", nil), services.DispositionHalt},
		{"extraction retries", services.Wrap(services.ErrExtractionFailed, "extraction", "decode", "", nil), services.DispositionRetry},
		{"transient retries", fmt.Errorf("outer: %w", services.ErrTransient), services.DispositionRetry},
		{"validation fails", services.Wrap(services.ErrValidation, "ingest", "submit", "", nil), services.DispositionFail},
		{"plain error fails", errors.New("boom"), services.DispositionFail},
		{"nil fails", nil, services.DispositionFail},
	}
	for _, tc := range cases {
		if got := services.Classify(tc.err); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
	if !services.Retryable(services.ErrTimeout) {
		t.Fatal("expected timeout to be retryable")
	}
	if !services.Halts(fmt.Errorf("stage: %w", services.ErrNotConfigured)) {
		t.Fatal("expected wrapped not-configured to halt")
	}
}
