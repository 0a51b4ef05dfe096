// Package gate scores resolved claims and turns them into insight drafts.
//
// The overall confidence of a draft is the product of extraction and
// resolution confidence, lifted toward 1 by a coach's trust boost. A draft
// skips coach confirmation only when the coach opted into auto-approval and
// the score clears the coach's effective threshold.
package gate
