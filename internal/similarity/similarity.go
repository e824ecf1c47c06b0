// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package similarity

import (
	"math"
)

// minCommonSupport is the smallest co-rated set a similarity score can be
// computed from. Below it the score is undefined and reported as 0.
const minCommonSupport = 2

// commonKeys returns the counterpart IDs present in both rating vectors.
func commonKeys(a, b map[int]float64) []int {
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	common := make([]int, 0, len(a))
	for k := range a {
		if _, ok := b[k]; ok {
			common = append(common, k)
		}
	}
	return common
}

// Cosine computes cosine similarity between two rating vectors over their
// co-rated counterparts, centering each rating by the counterpart's average.
// Counterparts without a computed average are skipped. A zero denominator
// (no variance on either side) yields 0, never NaN.
func Cosine(a, b map[int]float64, counterpartAvg map[int]float64) float64 {
	common := commonKeys(a, b)
	if len(common) < minCommonSupport {
		return 0
	}

	var dot, normA, normB float64
	n := 0
	for _, k := range common {
		avg, ok := counterpartAvg[k]
		if !ok {
			continue
		}
		du := a[k] - avg
		dv := b[k] - avg
		dot += du * dv
		normA += du * du
		normB += dv * dv
		n++
	}
	if n < minCommonSupport {
		return 0
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Pearson computes the Pearson correlation between two rating vectors over
// their co-rated counterparts, centering each side by its own mean over the
// shared set. A zero denominator yields 0, never NaN.
func Pearson(a, b map[int]float64) float64 {
	common := commonKeys(a, b)
	if len(common) < minCommonSupport {
		return 0
	}

	var sumA, sumB float64
	for _, k := range common {
		sumA += a[k]
		sumB += b[k]
	}
	meanA := sumA / float64(len(common))
	meanB := sumB / float64(len(common))

	var dot, normA, normB float64
	for _, k := range common {
		du := a[k] - meanA
		dv := b[k] - meanB
		dot += du * dv
		normA += du * du
		normB += dv * dv
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Shrink discounts a raw similarity by the evidence behind it:
// weight = min(1, support/baseSupport). With baseSupport <= 0 no shrinkage
// is applied.
func Shrink(raw float64, support, baseSupport int) float64 {
	if baseSupport <= 0 {
		return raw
	}
	weight := float64(support) / float64(baseSupport)
	if weight > 1 {
		weight = 1
	}
	return raw * weight
}
