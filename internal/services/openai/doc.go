// Package openai adapts the go-openai SDK for chat completions and audio
// transcription. It is one of the providers the inference dispatcher can
// route a stage to.
package openai
