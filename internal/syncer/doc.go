// Package syncer moves data between the local engine and the remote
// authoritative store.
//
// Pushes and image uploads are queued on a bounded channel and drained by a
// limited pool of workers. Each task is retried with a linear backoff; a task
// that still fails is reported as a Warning and dropped, leaving the local
// log authoritative until the next sync. Pull fetches without touching the
// engine and then applies the whole batch as one Reconcile.
package syncer
