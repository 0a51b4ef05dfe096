// Package transcription turns audio voice notes into transcripts.
//
// The Stage resolves the org's transcription route through the inference
// dispatcher and stores the returned text on the artifact. Typed notes never
// reach this stage because they are created already transcribed.
package transcription
