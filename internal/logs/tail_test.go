package logs_test

import (
	"context"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"sideline/internal/logs"
)

func writeLog(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sideline.log")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	return path
}

func TestTailLastLines(t *testing.T) {
	path := writeLog(t, "a\nb\nc\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: -1, Limit: 2})
	if err != nil {
		t.Fatalf("tail returned error: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"b", "c"}) {
		t.Fatalf("unexpected lines: %#v", result.Lines)
	}
	if result.Offset != 6 {
		t.Fatalf("offset = %d, want 6", result.Offset)
	}
}

func TestTailMatchFiltersArtifact(t *testing.T) {
	path := writeLog(t, "artifact_id=aaa start\nartifact_id=bbb start\nartifact_id=aaa done\n")

	tests := []struct {
		name string
		opts logs.TailOptions
		want []string
	}{
		{"last", logs.TailOptions{Offset: -1, Limit: 5, Match: "aaa"}, []string{"artifact_id=aaa start", "artifact_id=aaa done"}},
		{"last limited", logs.TailOptions{Offset: -1, Limit: 1, Match: "aaa"}, []string{"artifact_id=aaa done"}},
		{"from offset", logs.TailOptions{Offset: 0, Match: "bbb"}, []string{"artifact_id=bbb start"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := logs.Tail(context.Background(), path, tt.opts)
			if err != nil {
				t.Fatalf("tail: %v", err)
			}
			if !reflect.DeepEqual(result.Lines, tt.want) {
				t.Fatalf("lines = %#v, want %#v", result.Lines, tt.want)
			}
		})
	}
}

func TestTailMissingFile(t *testing.T) {
	result, err := logs.Tail(context.Background(), filepath.Join(t.TempDir(), "missing.log"), logs.TailOptions{Offset: -1, Limit: 10})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if len(result.Lines) != 0 || result.Offset != 0 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestTailKeepsPartialLine(t *testing.T) {
	path := writeLog(t, "whole\npart")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 0})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"whole"}) || result.Offset != 6 {
		t.Fatalf("unexpected result %#v", result)
	}
}

func TestTailResetsOffsetAfterTruncate(t *testing.T) {
	path := writeLog(t, "fresh\n")

	result, err := logs.Tail(context.Background(), path, logs.TailOptions{Offset: 4096})
	if err != nil {
		t.Fatalf("tail: %v", err)
	}
	if !reflect.DeepEqual(result.Lines, []string{"fresh"}) {
		t.Fatalf("lines = %#v", result.Lines)
	}
}

func TestTailWaitsForNewLines(t *testing.T) {
	path := writeLog(t, "start\n")

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan logs.TailResult, 1)
	go func() {
		res, err := logs.Tail(ctx, path, logs.TailOptions{Offset: 6, Wait: 5 * time.Second})
		if err != nil {
			t.Errorf("follow tail error: %v", err)
		}
		done <- res
	}()

	time.Sleep(100 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open append: %v", err)
	}
	if _, err := f.WriteString("later\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
	_ = f.Close()

	select {
	case res := <-done:
		if !reflect.DeepEqual(res.Lines, []string{"later"}) {
			t.Fatalf("unexpected follow lines: %#v", res.Lines)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("tail follow did not return")
	}
}
