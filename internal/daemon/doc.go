// Package daemon coordinates the long-running Sideline process.
//
// It wires configuration, the artifact store, the workflow manager, the
// inbox watcher and the HTTP API into a single lifecycle with flock-based
// locking to prevent multiple instances. On start it returns stranded
// in-flight artifacts to their stage start status and releases halts so a
// configuration fix takes effect. A ticker sweeps stale pending drafts to
// expired.
//
// Keep orchestration logic here: individual pipeline steps live in their
// respective packages while the daemon focuses on startup, shutdown, and
// high level coordination.
package daemon
