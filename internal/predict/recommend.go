// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package predict

import (
	"context"
	"fmt"
	"sort"

	"github.com/tomtom215/recbench/internal/logging"
	"github.com/tomtom215/recbench/internal/metrics"
	"github.com/tomtom215/recbench/internal/store"
)

// Recommend generates the user's top-n recommendations for the given
// algorithm and persists them. Only novel items enter the candidate pool:
// anything the user has actively rated is excluded. Candidates with no
// prediction are dropped, never persisted as 0.
func (p *Predictor) Recommend(ctx context.Context, userID, n int, alg store.Algorithm, sim store.SimilarityKind) error {
	if n < 1 {
		return fmt.Errorf("predict: recommendation size must be >= 1, got %d", n)
	}

	var candidates map[int]struct{}
	var err error
	switch alg {
	case store.AlgUserBased:
		candidates, err = p.userBasedCandidates(ctx, userID, sim)
	case store.AlgItemBased:
		candidates, err = p.itemBasedCandidates(ctx, userID, sim)
	default:
		return fmt.Errorf("predict: algorithm %s is not neighbor-based", alg)
	}
	if err != nil {
		return err
	}

	scored := make([]store.ScoredItem, 0, len(candidates))
	for itemID := range candidates {
		var score float64
		var ok bool
		switch alg {
		case store.AlgUserBased:
			score, ok, err = p.UserBased(ctx, userID, itemID, sim)
		case store.AlgItemBased:
			score, ok, err = p.ItemBased(ctx, userID, itemID, sim)
		}
		if err != nil {
			return err
		}
		if ok {
			scored = append(scored, store.ScoredItem{ItemID: itemID, Score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ItemID < scored[j].ItemID
	})
	if len(scored) > n {
		scored = scored[:n]
	}

	for _, rec := range scored {
		if err := p.store.UpsertRecommendation(ctx, userID, rec.ItemID, alg, rec.Score); err != nil {
			return fmt.Errorf("predict: persist recommendation (%d, %d): %w", userID, rec.ItemID, err)
		}
		metrics.RecommendationsStored.WithLabelValues(string(alg)).Inc()
	}

	logging.Ctx(ctx).Debug().
		Int("user", userID).
		Str("algorithm", string(alg)).
		Int("candidates", len(candidates)).
		Int("stored", len(scored)).
		Msg("recommendations generated")
	return nil
}

// userBasedCandidates collects novel items rated by the user's similarity
// neighbors.
func (p *Predictor) userBasedCandidates(ctx context.Context, userID int, sim store.SimilarityKind) (map[int]struct{}, error) {
	sims, err := p.store.Similarities(ctx, store.KindUser, sim, userID)
	if err != nil {
		return nil, fmt.Errorf("predict: similar users of %d: %w", userID, err)
	}
	rated, err := p.store.ActiveRatings(ctx, store.KindUser, userID)
	if err != nil {
		return nil, fmt.Errorf("predict: ratings of user %d: %w", userID, err)
	}

	candidates := make(map[int]struct{})
	for v := range sims {
		theirs, err := p.store.ActiveRatings(ctx, store.KindUser, v)
		if err != nil {
			return nil, fmt.Errorf("predict: ratings of user %d: %w", v, err)
		}
		for itemID := range theirs {
			if _, seen := rated[itemID]; !seen {
				candidates[itemID] = struct{}{}
			}
		}
	}
	return candidates, nil
}

// itemBasedCandidates collects novel items similar to items the user has
// rated.
func (p *Predictor) itemBasedCandidates(ctx context.Context, userID int, sim store.SimilarityKind) (map[int]struct{}, error) {
	rated, err := p.store.ActiveRatings(ctx, store.KindUser, userID)
	if err != nil {
		return nil, fmt.Errorf("predict: ratings of user %d: %w", userID, err)
	}

	candidates := make(map[int]struct{})
	for itemID := range rated {
		sims, err := p.store.Similarities(ctx, store.KindItem, sim, itemID)
		if err != nil {
			return nil, fmt.Errorf("predict: similar items of %d: %w", itemID, err)
		}
		for similar := range sims {
			if _, seen := rated[similar]; !seen {
				candidates[similar] = struct{}{}
			}
		}
	}
	return candidates, nil
}
