// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package similarity computes confidence-weighted pairwise similarity
// between rating vectors.
//
// Two measures are supported: cosine similarity over deviations from the
// counterpart's average rating (removing counterpart rating-scale bias) and
// Pearson correlation over the co-rated subvectors. Both are shrunk toward
// zero when computed from little shared evidence: the raw score is
// multiplied by min(1, support/baseSupport).
//
// Engine memoizes scores symmetrically, so looking a pair up under either
// ordering computes at most once. Builder regenerates a full edge set for
// one entity side after the active rating population changes.
package similarity
