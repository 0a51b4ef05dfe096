package workflow

import (
	"log/slog"

	"sideline/internal/stage"
	"sideline/internal/store"
)

// StageSet bundles the concrete workflow handlers the manager orchestrates.
// Nil handlers leave their lane unconfigured.
type StageSet struct {
	Transcription stage.Handler
	Extraction    stage.Handler
	Resolution    stage.Handler
	Drafting      stage.Handler
}

type pipelineStage struct {
	name             string
	handler          stage.Handler
	startStatus      store.Status
	processingStatus store.Status
	doneStatus       store.Status
}

type laneKind string

const (
	laneTranscription laneKind = "transcription"
	laneExtraction    laneKind = "extraction"
	laneResolution    laneKind = "resolution"
	laneDrafting      laneKind = "drafting"
)

type laneState struct {
	kind         laneKind
	name         string
	stages       []pipelineStage
	statusOrder  []store.Status
	stageByStart map[store.Status]pipelineStage
	logger       *slog.Logger
	runReclaimer bool
	wake         chan struct{}
}

func (l *laneState) finalize() {
	if l == nil {
		return
	}
	l.stageByStart = make(map[store.Status]pipelineStage, len(l.stages))
	l.statusOrder = make([]store.Status, 0, len(l.stages))
	for _, stg := range l.stages {
		l.stageByStart[stg.startStatus] = stg
		l.statusOrder = append(l.statusOrder, stg.startStatus)
	}
	l.wake = make(chan struct{}, 1)
}

func (l *laneState) stageForStatus(status store.Status) (pipelineStage, bool) {
	if l == nil {
		return pipelineStage{}, false
	}
	stg, ok := l.stageByStart[status]
	return stg, ok
}

func (l *laneState) poke() {
	if l == nil || l.wake == nil {
		return
	}
	select {
	case l.wake <- struct{}{}:
	default:
	}
}
