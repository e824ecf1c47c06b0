// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package predict implements weighted k-nearest-neighbor rating prediction.
//
// User-based mode predicts from the ratings of similar users, offsetting
// each neighbor's rating by that neighbor's average so that rating-scale
// differences between users cancel out. Item-based mode averages the
// user's own ratings of similar items, weighted by similarity.
//
// A prediction can be genuinely unavailable (no neighbors, or zero total
// similarity weight); callers receive ok=false and must treat it as a
// missing prediction, never as a score of 0.
package predict
