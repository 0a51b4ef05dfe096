// Package pipeline wires the model router, inference providers, roster
// directory and the four workflow stages into one set of components shared
// by the daemon, the CLI and end-to-end tests.
package pipeline
