// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package predict

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/recbench/internal/store"
)

// neighbor is one similarity link considered for a prediction.
type neighbor struct {
	id     int
	sim    float64
	rating float64
}

// Predictor predicts ratings from the k most similar neighbors.
type Predictor struct {
	store store.GraphStore
	k     int
}

// New creates a predictor selecting the top k neighbors by similarity
// magnitude.
func New(gs store.GraphStore, k int) (*Predictor, error) {
	if k < 1 {
		return nil, fmt.Errorf("predict: k must be >= 1, got %d", k)
	}
	return &Predictor{store: gs, k: k}, nil
}

// topK orders neighbors by similarity magnitude descending, breaking ties
// by ID ascending so that repeated runs select the same neighbor set, and
// keeps at most k.
func (p *Predictor) topK(neighbors []neighbor) []neighbor {
	sort.Slice(neighbors, func(i, j int) bool {
		mi, mj := math.Abs(neighbors[i].sim), math.Abs(neighbors[j].sim)
		if mi != mj {
			return mi > mj
		}
		return neighbors[i].id < neighbors[j].id
	})
	if len(neighbors) > p.k {
		neighbors = neighbors[:p.k]
	}
	return neighbors
}

// UserBased predicts the rating of user userID for item itemID from similar
// users who rated that item:
//
//	avg(u) + sum(sim_v * (r_v - avg(v))) / sum(|sim_v|)
//
// ok is false when no similar user rated the item or the similarity mass is
// zero.
func (p *Predictor) UserBased(ctx context.Context, userID, itemID int, sim store.SimilarityKind) (float64, bool, error) {
	sims, err := p.store.Similarities(ctx, store.KindUser, sim, userID)
	if err != nil {
		return 0, false, fmt.Errorf("predict: similar users of %d: %w", userID, err)
	}
	if len(sims) == 0 {
		return 0, false, nil
	}

	raters, err := p.store.ActiveRatings(ctx, store.KindItem, itemID)
	if err != nil {
		return 0, false, fmt.Errorf("predict: raters of item %d: %w", itemID, err)
	}

	candidates := make([]neighbor, 0, len(sims))
	for v, weight := range sims {
		if rating, ok := raters[v]; ok {
			candidates = append(candidates, neighbor{id: v, sim: weight, rating: rating})
		}
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}
	candidates = p.topK(candidates)

	userAvg, ok, err := p.store.AverageRating(ctx, store.KindUser, userID)
	if err != nil {
		return 0, false, fmt.Errorf("predict: average of user %d: %w", userID, err)
	}
	if !ok {
		return 0, false, nil
	}

	var num, den float64
	for _, c := range candidates {
		avg, ok, err := p.store.AverageRating(ctx, store.KindUser, c.id)
		if err != nil {
			return 0, false, fmt.Errorf("predict: average of user %d: %w", c.id, err)
		}
		if !ok {
			continue
		}
		num += c.sim * (c.rating - avg)
		den += math.Abs(c.sim)
	}
	if den == 0 {
		return 0, false, nil
	}
	return userAvg + num/den, true, nil
}

// ItemBased predicts the rating of user userID for item itemID from the
// user's own ratings of similar items:
//
//	sum(sim_n * r_n) / sum(|sim_n|)
//
// ok is false when the user rated no similar item or the similarity mass is
// zero.
func (p *Predictor) ItemBased(ctx context.Context, userID, itemID int, sim store.SimilarityKind) (float64, bool, error) {
	sims, err := p.store.Similarities(ctx, store.KindItem, sim, itemID)
	if err != nil {
		return 0, false, fmt.Errorf("predict: similar items of %d: %w", itemID, err)
	}
	if len(sims) == 0 {
		return 0, false, nil
	}

	rated, err := p.store.ActiveRatings(ctx, store.KindUser, userID)
	if err != nil {
		return 0, false, fmt.Errorf("predict: ratings of user %d: %w", userID, err)
	}

	candidates := make([]neighbor, 0, len(sims))
	for n, weight := range sims {
		if rating, ok := rated[n]; ok {
			candidates = append(candidates, neighbor{id: n, sim: weight, rating: rating})
		}
	}
	if len(candidates) == 0 {
		return 0, false, nil
	}
	candidates = p.topK(candidates)

	var num, den float64
	for _, c := range candidates {
		num += c.sim * c.rating
		den += math.Abs(c.sim)
	}
	if den == 0 {
		return 0, false, nil
	}
	return num / den, true, nil
}
