// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package store defines the rating graph boundary for Recbench.
//
// The evaluation core never owns persistence. It consumes a narrow
// GraphStore interface over a bipartite user/item graph holding ratings
// (with a reversible active/disabled flag), undirected similarity edges and
// per-algorithm recommendation edges.
//
// Two implementations are provided:
//
//   - MemoryStore: thread-safe in-memory backend, the default for tests and
//     small offline runs.
//   - Neo4jStore: a Neo4j-backed implementation whose graph shape (RATES /
//     DISABLED_RATES / COS_SIM / PEARS_SIM / PROBABLY_LIKES_*) matches the
//     relationship model the evaluation protocol was designed around.
//
// # Invariants
//
// At most one rating exists per (user, item) pair regardless of its active
// state; masking toggles the flag rather than duplicating the row, and the
// toggle is reversible. Similarity edges are undirected and stored once
// under a canonical (lo, hi) ordering. Recommendation sets are capped per
// (user, algorithm) with lowest scores evicted first.
package store
