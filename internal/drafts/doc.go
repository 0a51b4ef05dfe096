// Package drafts owns the insight draft lifecycle: coach confirmation and
// rejection, application to the insight record, retention expiry, and the
// per-coach statistics derived from the append-only coach event log.
//
// Every transition is a conditional update on the draft's current status, so
// two coaches racing on the same draft produce exactly one winner and the
// loser gets ErrDraftNotPending. Pending drafts older than the retention
// window are hidden from reads even before Sweep marks them expired.
package drafts
