// Package extraction turns a transcript into typed claims.
//
// Extract sends the transcript to the org's claim_extraction route and
// decodes the answer as untrusted input: each claim is validated against the
// closed topic taxonomy and the severity and sentiment tags, and anything
// unknown is dropped rather than coerced. Mentions are stored exactly as
// spoken; matching them to roster records is the resolver's job.
package extraction
