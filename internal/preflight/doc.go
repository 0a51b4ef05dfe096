// Package preflight provides readiness checks for the filesystem paths,
// database, model routes and providers that Sideline depends on.
//
// The CLI "sideline status" command runs RunAll and renders each Result;
// ProbeDaemon reports whether a daemon process owns the PID file. Network
// probes against providers only run when explicitly requested because they
// spend tokens.
package preflight
