// Package engine owns the scan log and serializes every change to it.
//
// ARCHITECTURE:
//
// Single-Writer Command Loop:
// Ingest, Reconcile, MarkRecycled and PatchRemoteImage enqueue a command on a
// FIFO queue and wait for its reply. Run dequeues commands one at a time, so
// commands are applied in submission order and never batched. Snapshot goes
// through the same queue and returns copies.
//
// Command Processing Flow:
//  1. Caller submits a command (stamped with a seq from Clock)
//  2. Run dequeues it and applies the pure ingest/reconcile step
//  3. The whole log is saved through store.Boundary unless its digest is unchanged
//  4. The reply is sent back to the waiting caller
//
// Remote fetches and image uploads never run inside the loop; the syncer
// does that I/O and submits the outcome as a command.
//
// PERSISTENCE FAILURES:
// The in-memory log stays authoritative. A failed save is reported as
// *PersistError, the log is marked dirty, and the next command saves it.
package engine
