// Package ingest accepts coach voice notes and typed notes and turns them
// into artifacts.
//
// Service.Submit validates a submission, stores audio under the configured
// audio directory and creates the artifact at its first pipeline status. It
// returns as soon as the artifact exists; transcription and extraction run
// later in the workflow lanes. Watcher feeds the same service from a
// drop-in inbox directory.
package ingest
