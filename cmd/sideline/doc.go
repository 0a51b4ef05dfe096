// Package main hosts the Sideline CLI entrypoint and command graph.
//
// The Cobra-based command tree submits notes, reviews drafts, inspects
// artifacts, manages model routes and rosters, and scaffolds configuration.
// Commands open the artifact store directly and go through the same
// api.Service the daemon serves over HTTP, so a running daemon is only
// needed to process submissions, not to review them.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
