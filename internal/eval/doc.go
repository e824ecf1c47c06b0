// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

// Package eval orchestrates offline k-fold evaluation of the
// recommendation strategies.
//
// Each fold masks a percentage of its test users' ratings, recomputes
// averages and similarity edges over the surviving train population,
// generates recommendations with every configured strategy, and scores
// them per cutoff: MAE over the hit set (held-out items that were actually
// recommended) and precision/recall/F1 against a relevance threshold.
// Teardown always restores the masked ratings, even when a fold fails
// mid-evaluation. Results are summed across folds and divided by the fold
// count.
package eval
