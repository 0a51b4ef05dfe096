// Package store persists the insight pipeline in SQLite.
//
// Artifacts carry a status that every workflow lane polls; in-flight statuses
// roll back to their stage start status after a crash or a retryable error.
// Claims, drafts, and insights hang off an artifact with foreign keys, and a
// draft's content is frozen by a trigger once inserted: only its status and
// the confirmed/applied timestamps change, always through a conditional
// UPDATE so concurrent coach actions have exactly one winner.
//
// The model configuration log and the coach event log are append-only
// (triggers reject UPDATE and DELETE). The roster tables are a local read
// model imported from YAML and used only as resolver candidates.
//
// Timestamps are stored as fixed-width UTC strings so SQL comparisons order
// correctly. Schema changes bump schemaVersion; older databases must be
// recreated.
package store
