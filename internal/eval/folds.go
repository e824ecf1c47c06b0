// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package eval

import (
	"math/rand"
)

// prepareFolds shuffles the user population and slices it into disjoint
// test-user sets. With folds > 0 the population splits into that many
// equal parts; otherwise a single fold holds populationPercentage percent
// of the users. Sampling is without replacement across folds.
func prepareFolds(users []int, rng *rand.Rand, folds int, populationPercentage float64) [][]int {
	shuffled := make([]int, len(users))
	copy(shuffled, users)
	rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	if folds > 0 {
		size := len(shuffled) / folds
		out := make([][]int, 0, folds)
		for i := 0; i < folds; i++ {
			out = append(out, shuffled[i*size:(i+1)*size])
		}
		return out
	}

	size := int(float64(len(shuffled)) * populationPercentage / 100)
	if size > len(shuffled) {
		size = len(shuffled)
	}
	return [][]int{shuffled[:size]}
}
