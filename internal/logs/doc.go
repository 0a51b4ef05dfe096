// Package logs reads the daemon log for `sideline logs`.
//
// Tail returns the last N lines or everything after a saved byte offset,
// optionally filtered to lines mentioning one artifact, and can block briefly
// for new output so the CLI can follow a running daemon.
package logs
