// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package store

import (
	"fmt"
	"strings"
)

// EntityKind distinguishes the two node types of the bipartite rating graph.
type EntityKind int

const (
	// KindUser selects the user side of the graph.
	KindUser EntityKind = iota
	// KindItem selects the item side of the graph.
	KindItem
)

// String returns a human-readable name for the entity kind.
func (k EntityKind) String() string {
	switch k {
	case KindUser:
		return "user"
	case KindItem:
		return "item"
	default:
		return "unknown"
	}
}

// SimilarityKind identifies how a similarity edge was computed.
type SimilarityKind string

const (
	// SimCosine is counterpart-mean-centered cosine similarity.
	SimCosine SimilarityKind = "COS_SIM"
	// SimPearson is Pearson correlation over co-rated pairs.
	SimPearson SimilarityKind = "PEARS_SIM"
)

// SimilarityKinds lists all supported similarity kinds.
var SimilarityKinds = []SimilarityKind{SimCosine, SimPearson}

// Algorithm tags a recommendation edge with the strategy that produced it.
type Algorithm string

const (
	// AlgUserBased is user-based k-nearest-neighbor prediction.
	AlgUserBased Algorithm = "UB"
	// AlgItemBased is item-based k-nearest-neighbor prediction.
	AlgItemBased Algorithm = "IB"
)

// WalkAlgorithm returns the algorithm tag for a random-walk recommender with
// the given walk length: RW_<steps> for uniform selection, BRW_<steps> for
// edge-weight-biased selection.
func WalkAlgorithm(steps int, biased bool) Algorithm {
	if biased {
		return Algorithm(fmt.Sprintf("BRW_%d", steps))
	}
	return Algorithm(fmt.Sprintf("RW_%d", steps))
}

// IsRandomWalk reports whether the algorithm is a random-walk variant.
// Random-walk recommendations carry visit counts, not predicted ratings, so
// rating-error metrics are undefined for them.
func (a Algorithm) IsRandomWalk() bool {
	return strings.HasPrefix(string(a), "RW_") || strings.HasPrefix(string(a), "BRW_")
}

// Rating is a single user-item rating. Value is on the [0, 5] scale.
// Active is the only field that changes during evaluation: fold setup masks
// a rating by clearing it, teardown restores it.
type Rating struct {
	UserID int
	ItemID int
	Value  float64
	Active bool
}

// PairKey is the canonical key for an undirected entity pair: Lo < Hi by
// construction, so a pair can never be stored twice under mirrored orders.
type PairKey struct {
	Lo int
	Hi int
}

// NewPairKey returns the canonical key for the unordered pair {a, b}.
func NewPairKey(a, b int) PairKey {
	if a > b {
		a, b = b, a
	}
	return PairKey{Lo: a, Hi: b}
}

// SimilarityEdge is an undirected, weighted similarity link between two
// entities of the same kind.
type SimilarityEdge struct {
	Pair   PairKey
	Kind   SimilarityKind
	Weight float64
}

// ScoredItem pairs an item with a recommendation score.
type ScoredItem struct {
	ItemID int
	Score  float64
}
