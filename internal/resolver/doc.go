// Package resolver maps the raw people and team mentions inside claims to
// roster records.
//
// Matching is deterministic and tiered: exact names, then case and diacritic
// insensitive names, then fuzzy similarity. Near ties are reported as
// ambiguous instead of picking a winner, and a resolved team narrows the
// player candidates for the rest of the claim. An optional model pass can
// suggest roster names for unmatched mentions; every suggestion is re-scored
// by the same matcher before it counts.
package resolver
