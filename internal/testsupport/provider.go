package testsupport

import (
	"context"
	"errors"
	"sync"

	"sideline/internal/inference"
	"sideline/internal/modelrouter"
)

// ProviderCall records one request seen by FakeProvider.
type ProviderCall struct {
	Stage     string
	Model     string
	Request   inference.Request
	AudioPath string
}

// FakeProvider is a scriptable inference provider. Responses are keyed by
// stage; a missing key returns an error.
type FakeProvider struct {
	ProviderName string

	mu          sync.Mutex
	responses   map[string][]string
	errs        map[string][]error
	transcripts map[string]string
	calls       []ProviderCall
}

// NewFakeProvider returns a provider registered under "openrouter".
func NewFakeProvider() *FakeProvider {
	return &FakeProvider{
		ProviderName: "openrouter",
		responses:    make(map[string][]string),
		errs:         make(map[string][]error),
		transcripts:  make(map[string]string),
	}
}

// Respond queues content for the next calls on stage. The last queued value
// repeats once the queue drains.
func (f *FakeProvider) Respond(stage string, content ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[stage] = append(f.responses[stage], content...)
}

// Fail queues errors returned before any queued response for stage.
func (f *FakeProvider) Fail(stage string, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[stage] = append(f.errs[stage], errs...)
}

// Transcript sets the text returned for an audio path.
func (f *FakeProvider) Transcript(audioPath, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.transcripts[audioPath] = text
}

// Calls returns a copy of recorded calls.
func (f *FakeProvider) Calls(stage string) []ProviderCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ProviderCall
	for _, call := range f.calls {
		if stage == "" || call.Stage == stage {
			out = append(out, call)
		}
	}
	return out
}

func (f *FakeProvider) Name() string { return f.ProviderName }

func (f *FakeProvider) Complete(_ context.Context, route modelrouter.Route, req inference.Request) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ProviderCall{Stage: route.Stage, Model: route.ModelID, Request: req})
	if queued := f.errs[route.Stage]; len(queued) > 0 {
		f.errs[route.Stage] = queued[1:]
		return "", queued[0]
	}
	queued := f.responses[route.Stage]
	if len(queued) == 0 {
		return "", errors.New("fake provider: no response scripted for " + route.Stage)
	}
	if len(queued) > 1 {
		f.responses[route.Stage] = queued[1:]
	}
	return queued[0], nil
}

func (f *FakeProvider) Transcribe(_ context.Context, route modelrouter.Route, audioPath string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, ProviderCall{Stage: route.Stage, Model: route.ModelID, AudioPath: audioPath})
	if queued := f.errs[route.Stage]; len(queued) > 0 {
		f.errs[route.Stage] = queued[1:]
		return "", queued[0]
	}
	text, ok := f.transcripts[audioPath]
	if !ok {
		return "", errors.New("fake provider: no transcript for " + audioPath)
	}
	return text, nil
}

// Transient treats every scripted error as transient.
func (f *FakeProvider) Transient(error) bool { return true }

// NewDispatcher wires a fake provider behind a real router over st.
func NewDispatcher(router *modelrouter.Router, provider *FakeProvider) *inference.Dispatcher {
	d := inference.NewDispatcher(router, nil)
	d.Register(provider, 0, 1)
	return d
}
