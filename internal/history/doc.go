// Package history defines the scan history aggregate: immutable Scans, the
// Entry that groups all Scans of one logical item on one calendar day, the
// RemoteRecord rows shared through the authoritative impact log, and the
// recycle status lattice that every merge respects.
//
// Everything in this package is pure. RecordScan, MergeWithRemote and Absorb
// return new values and never fail; the only mutable structure is Log, an
// arena keyed by Entry ID that the engine owns exclusively.
//
// # Invariants
//
//   - Status never decreases through a merge (lattice maximum).
//   - CarbonSavedKg is a running maximum and is never negative.
//   - ScanCount >= len(Scans) >= 1 for every Entry that has recorded a scan.
//   - Scans are ordered most recent first and trimmed to MaxRetainedScans.
package history
