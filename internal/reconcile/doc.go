// Package reconcile merges a batch of authoritative remote records into the
// local scan log.
//
// Reconcile is pure and total: malformed timestamps and empty fields fall
// back to documented defaults, every record ends up in some Entry, and
// applying the same batch twice yields the same log.
//
// Matching order for each record:
//
//  1. an Entry on the record's day that already holds the record's scan
//  2. the Entry displayed under the record's (dayKey, itemKey), trying the
//     server's item key and then the one derived from the record's fields
//  3. an Entry on that day previously linked to the record's item key
//  4. the best fuzzy candidate on that day
//  5. otherwise a new Entry is synthesized
//
// A merge that moves an Entry onto the key of another one collapses the two
// immediately, so every later record in the batch sees a single Entry.
package reconcile
