// Package services defines shared utilities consumed by the pipeline stage
// handlers and provider integrations.
//
// Key responsibilities:
//   - Context helpers that stamp artifact IDs, organisations, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper. Classify turns a marker
//     into the workflow disposition (retry, halt, fail).
//
// Use these helpers when wiring new stage logic so error handling and
// observability stay uniform across the pipeline.
package services
