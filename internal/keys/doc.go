// Package keys derives the deterministic bucketing keys and the fuzzy
// similarity predicate used to decide whether two classification results
// describe the same logical item.
//
// Two kinds of identity live here and must not be confused:
//
//   - Exact identity: DayKey and ItemKey. Both are byte-for-byte boundary
//     contracts with the remote impact log, which buckets rows by
//     (user, day_key, item_key).
//   - Fuzzy identity: SimilarityTokens, AreSimilar and Compatible. These are
//     only ever used to pick a merge target when no exact key matches.
package keys
