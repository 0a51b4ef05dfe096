package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completionServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request, call int)) *httptest.Server {
	t.Helper()
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		handler(w, r, calls)
	}))
	t.Cleanup(server.Close)
	return server
}

func writeChoice(t *testing.T, w http.ResponseWriter, choice map[string]any) {
	t.Helper()
	if err := json.NewEncoder(w).Encode(map[string]any{"choices": []any{choice}}); err != nil {
		t.Fatalf("encode response: %v", err)
	}
}

func TestCompleteSendsModelParameters(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, r *http.Request, _ int) {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if body["model"] != "vendor/chat-test" {
			t.Fatalf("unexpected model %v", body["model"])
		}
		if body["max_tokens"] != float64(512) || body["temperature"] != 0.3 {
			t.Fatalf("unexpected sampling params %v", body)
		}
		if _, ok := body["response_format"]; ok {
			t.Fatalf("response_format should be omitted for text requests")
		}
		if r.Header.Get("Authorization") != "Bearer key" || r.Header.Get("X-Title") != "Sideline" {
			t.Fatalf("unexpected headers %v", r.Header)
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "hello"}})
	})

	client := NewClient(Config{APIKey: "key", BaseURL: server.URL, Title: "Sideline"})
	resp, err := client.Complete(context.Background(), Request{
		Model:       "vendor/chat-test",
		UserPrompt:  "hi",
		MaxTokens:   512,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "hello" || resp.Model != "vendor/chat-test" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCompleteRequiresModelAndKey(t *testing.T) {
	client := NewClient(Config{APIKey: "key"})
	if _, err := client.Complete(context.Background(), Request{UserPrompt: "x"}); err == nil {
		t.Fatal("expected error without model")
	}
	client = NewClient(Config{})
	if _, err := client.Complete(context.Background(), Request{Model: "m", UserPrompt: "x"}); err == nil {
		t.Fatal("expected error without api key")
	}
}

func TestHealthCheckAcceptsCodeFence(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "```json\n{\"ok\":true}\n```"}})
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
	if err := client.HealthCheck(context.Background(), "demo-model"); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestHealthCheckFailsOnUnauthorized(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	})
	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL})
	err := client.HealthCheck(context.Background(), "demo")
	if err == nil {
		t.Fatal("expected health check to fail")
	}
	if Transient(err) {
		t.Fatalf("401 should not be transient: %v", err)
	}
}

func TestCompleteReadsAlternateShapes(t *testing.T) {
	tests := []struct {
		name   string
		choice map[string]any
	}{
		{"delta", map[string]any{"delta": map[string]any{"content": `{"claims":[]}`}}},
		{"legacy text", map[string]any{"text": `{"claims":[]}`}},
		{"tool call", map[string]any{
			"finish_reason": "tool_calls",
			"message": map[string]any{
				"content":    "",
				"tool_calls": []any{map[string]any{"function": map[string]any{"arguments": `{"claims":[]}`}}},
			},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := completionServer(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
				writeChoice(t, w, tt.choice)
			})
			client := NewClient(Config{APIKey: "test", BaseURL: server.URL})
			content, err := client.CompleteJSON(context.Background(), "m", "sys", "user")
			if err != nil {
				t.Fatalf("CompleteJSON returned error: %v", err)
			}
			if content != `{"claims":[]}` {
				t.Fatalf("unexpected content %q", content)
			}
		})
	}
}

func TestEmptyContentErrorIncludesSnippet(t *testing.T) {
	server := completionServer(t, func(w http.ResponseWriter, _ *http.Request, _ int) {
		writeChoice(t, w, map[string]any{"finish_reason": "length", "message": map[string]any{"content": ""}})
	})
	client := NewClient(Config{APIKey: "test", BaseURL: server.URL}, WithRetryMaxAttempts(1))
	_, err := client.CompleteJSON(context.Background(), "m", "sys", "user")
	var empty *EmptyContentError
	if !errors.As(err, &empty) {
		t.Fatalf("expected EmptyContentError, got %v", err)
	}
	if empty.FinishReason != "length" || !strings.Contains(empty.Snippet, "choices") {
		t.Fatalf("unexpected error detail %+v", empty)
	}
	if !Transient(err) {
		t.Fatal("empty content should be transient")
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := completionServer(t, func(w http.ResponseWriter, _ *http.Request, call int) {
		calls = call
		if call == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeChoice(t, w, map[string]any{"message": map[string]any{"content": "ok"}})
	})

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	resp, err := client.Complete(context.Background(), Request{Model: "m", UserPrompt: "u"})
	if err != nil {
		t.Fatalf("Complete returned error: %v", err)
	}
	if resp.Content != "ok" || calls != 2 {
		t.Fatalf("expected success on second call, got %q after %d calls", resp.Content, calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := completionServer(t, func(w http.ResponseWriter, _ *http.Request, call int) {
		calls = call
		content := ""
		if call >= 3 {
			content = `{"ok":true}`
		}
		writeChoice(t, w, map[string]any{"finish_reason": "stop", "message": map[string]any{"content": content}})
	})
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL},
		WithRetryBackoff(0, 0),
		WithRetryMaxAttempts(5),
	)
	if err := client.HealthCheck(context.Background(), "m"); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestDecodeJSONExtractsEmbeddedObject(t *testing.T) {
	var out struct {
		Value int `json:"value"`
	}
	if err := DecodeJSON("Here you go: {\"value\": 7} hope that helps", &out); err != nil {
		t.Fatalf("DecodeJSON returned error: %v", err)
	}
	if out.Value != 7 {
		t.Fatalf("expected 7, got %d", out.Value)
	}
	if err := DecodeJSON("no json here", &out); err == nil {
		t.Fatal("expected error for prose payload")
	}
}
