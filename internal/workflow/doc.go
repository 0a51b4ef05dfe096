// Package workflow advances artifacts through the configured pipeline stages.
//
// The Manager polls the artifact store, reclaims stale work via heartbeats,
// and feeds artifacts into registered stage handlers (transcription,
// extraction, resolution, drafting). Every stage runs in its own lane and
// reacts only to its start status, so a slow transcription never holds up
// drafting for a different note.
//
// Stage errors are classified with services.Classify: configuration gaps halt
// the artifact in place, transient and extraction failures roll it back and
// spend an attempt, anything else fails it with a resume point recorded for
// a later retry.
package workflow
