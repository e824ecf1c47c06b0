// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package eval

import (
	"context"
	"fmt"
	"math"

	"github.com/tomtom215/recbench/internal/store"
)

// clip bounds a predicted score to the rating scale before comparing it
// against an actual rating.
func clip(score float64) float64 {
	return math.Min(math.Max(score, 0), 5)
}

// meanAbsoluteError scores an algorithm over the union of the users' hit
// sets: held-out items the algorithm actually recommended. The denominator
// is the summed hit-set size, not a per-user average. ok is false for
// random-walk algorithms (their scores are visit counts, not ratings) and
// when no user had a hit.
func (h *Harness) meanAbsoluteError(ctx context.Context, users []int, alg store.Algorithm) (float64, bool, error) {
	if alg.IsRandomWalk() {
		return 0, false, nil
	}

	var numerator float64
	var denominator int
	for _, userID := range users {
		disabled, err := h.store.DisabledRatings(ctx, userID)
		if err != nil {
			return 0, false, fmt.Errorf("eval: disabled ratings of user %d: %w", userID, err)
		}
		recs, err := h.store.Recommendations(ctx, userID, alg)
		if err != nil {
			return 0, false, fmt.Errorf("eval: recommendations of user %d: %w", userID, err)
		}

		for itemID, rating := range disabled {
			score, hit := recs[itemID]
			if !hit {
				continue
			}
			numerator += math.Abs(clip(score) - rating)
			denominator++
		}
	}

	if denominator == 0 {
		return 0, false, nil
	}
	return numerator / float64(denominator), true, nil
}

// classification aggregates precision, recall and F1 for one algorithm
// over the test users. A held-out rating at or above the relevance
// threshold counts as relevant; a recommended item that is not a relevant
// held-out one is a false positive. Users with no positive signal in
// either numerator are excluded from the per-algorithm average.
func (h *Harness) classification(ctx context.Context, users []int, alg store.Algorithm) (precision, recall, f1 float64, err error) {
	var sumP, sumR, sumF float64
	excluded := 0

	for _, userID := range users {
		disabled, err := h.store.DisabledRatings(ctx, userID)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("eval: disabled ratings of user %d: %w", userID, err)
		}
		recs, err := h.store.Recommendations(ctx, userID, alg)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("eval: recommendations of user %d: %w", userID, err)
		}

		var tp, fn int
		for itemID, rating := range disabled {
			if rating < h.cfg.RelevanceThreshold {
				continue
			}
			if _, hit := recs[itemID]; hit {
				tp++
			} else {
				fn++
			}
		}
		fp := len(recs) - tp

		var p, r, f float64
		if tp+fp > 0 {
			p = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			r = float64(tp) / float64(tp+fn)
		}
		if p > 0 && r > 0 {
			f = 2 * p * r / (p + r)
		}

		if (tp == 0 && fn == 0) || (tp == 0 && fp == 0) {
			excluded++
		}
		sumP += p
		sumR += r
		sumF += f
	}

	n := len(users) - excluded
	if n <= 0 {
		return 0, 0, 0, nil
	}
	return sumP / float64(n), sumR / float64(n), sumF / float64(n), nil
}
