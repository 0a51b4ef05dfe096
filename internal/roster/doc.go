// Package roster serves the per-org candidate set the resolver matches
// mentions against.
//
// Directory caches one Snapshot per org in memory with go-cache and is
// invalidated whenever a roster import lands. Import reads the YAML roster
// files accepted by `sideline roster import`.
package roster
