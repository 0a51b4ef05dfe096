// Package api defines wire-format types, converters and the coach-facing
// service shared by the HTTP API and the CLI.
//
// # Key Types
//
// Artifact, Claim, Draft and Insight are transport representations of the
// store records. ArtifactDetail bundles an artifact with its claims and
// drafts for review screens.
//
// Service wraps submission, draft lifecycle, disambiguation, coach
// statistics, model routing and roster import behind one ownership-checked
// surface so the daemon handlers and CLI commands behave identically.
//
// # Design Notes
//
// DTOs use camelCase JSON tags. Internal enums are exposed as lowercase
// strings. Timestamps use RFC3339 with milliseconds. Errors keep their
// services markers so transports can map them to status codes.
package api
