package workflow

import (
	"sideline/internal/stage"
	"sideline/internal/store"
)

// ConfigureStages registers the concrete stage handlers the workflow will run.
func (m *Manager) ConfigureStages(set StageSet) {
	defs := []struct {
		kind    laneKind
		handler stage.Handler
		start   store.Status
		running store.Status
		done    store.Status
	}{
		{laneTranscription, set.Transcription, store.StatusReceived, store.StatusTranscribing, store.StatusTranscribed},
		{laneExtraction, set.Extraction, store.StatusTranscribed, store.StatusProcessing, store.StatusExtracted},
		{laneResolution, set.Resolution, store.StatusExtracted, store.StatusResolving, store.StatusClaimsResolved},
		{laneDrafting, set.Drafting, store.StatusClaimsResolved, store.StatusDrafting, store.StatusCompleted},
	}

	lanes := make(map[laneKind]*laneState)
	order := make([]laneKind, 0, len(defs))
	for _, def := range defs {
		if def.handler == nil {
			continue
		}
		lane := &laneState{kind: def.kind, name: string(def.kind)}
		lane.stages = append(lane.stages, pipelineStage{
			name:             string(def.kind),
			handler:          def.handler,
			startStatus:      def.start,
			processingStatus: def.running,
			doneStatus:       def.done,
		})
		lane.finalize()
		lanes[lane.kind] = lane
		order = append(order, lane.kind)
	}

	// Reclaiming covers every in-flight status at once, so one lane is enough.
	if len(order) > 0 {
		lanes[order[0]].runReclaimer = true
	}

	m.mu.Lock()
	m.lanes = lanes
	m.laneOrder = order
	m.mu.Unlock()
}
