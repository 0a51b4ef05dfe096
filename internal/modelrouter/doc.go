// Package modelrouter picks the provider and model each pipeline stage calls.
//
// An org may override a stage; otherwise the platform default (org "") applies.
// A stage with neither is not configured, which the workflow treats as a halt
// rather than a failure. Resolutions are cached and the cache is flushed on
// every write made through the Router.
package modelrouter
