// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package similarity

import (
	"context"
	"fmt"
	"sync"

	"github.com/tomtom215/recbench/internal/metrics"
	"github.com/tomtom215/recbench/internal/store"
)

// RatingSource is the slice of the graph store the engine reads from.
type RatingSource interface {
	ActiveRatings(ctx context.Context, kind store.EntityKind, id int) (map[int]float64, error)
	AverageRating(ctx context.Context, kind store.EntityKind, id int) (avg float64, ok bool, err error)
}

// Config selects and tunes one similarity measure for one call site.
// Different call sites carry different support bases and filter policies,
// so the engine takes the whole policy explicitly rather than reading any
// shared run state.
type Config struct {
	// Kind selects the similarity measure.
	Kind store.SimilarityKind

	// BaseSupport is the co-rated count at which shrinkage reaches 1.
	BaseSupport int

	// Threshold filters weak edges after shrinkage.
	Threshold float64

	// Signed keeps edges by signed value (weighted > threshold) instead of
	// magnitude (|weighted| > threshold).
	Signed bool
}

// Validate rejects configurations that would make every score meaningless.
func (c Config) Validate() error {
	switch c.Kind {
	case store.SimCosine, store.SimPearson:
	default:
		return fmt.Errorf("similarity: unknown kind %q", c.Kind)
	}
	if c.Threshold < 0 {
		return fmt.Errorf("similarity: threshold must be >= 0, got %f", c.Threshold)
	}
	return nil
}

// Keep reports whether a weighted score passes the edge filter.
func (c Config) Keep(weighted float64) bool {
	if c.Signed {
		return weighted > c.Threshold
	}
	if weighted < 0 {
		weighted = -weighted
	}
	return weighted > c.Threshold
}

// Engine computes shrunk pairwise similarity for one entity side and one
// measure, memoizing results symmetrically.
//
// The cache is written at most once per unordered pair; a racing duplicate
// computation overwrites with the identical value, so last-write-wins is
// safe.
type Engine struct {
	source RatingSource
	entity store.EntityKind
	cfg    Config

	mu    sync.RWMutex
	cache map[store.PairKey]float64
}

// NewEngine creates an engine for one entity side.
func NewEngine(source RatingSource, entity store.EntityKind, cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		source: source,
		entity: entity,
		cfg:    cfg,
		cache:  make(map[store.PairKey]float64),
	}, nil
}

// Config returns the engine's policy.
func (e *Engine) Config() Config { return e.cfg }

// Kind returns the similarity measure the engine computes.
func (e *Engine) Kind() store.SimilarityKind { return e.cfg.Kind }

// Reset drops all memoized scores. Call it whenever the active rating
// population changes, e.g. after fold masking.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.cache = make(map[store.PairKey]float64)
	e.mu.Unlock()
}

// Similarity returns the shrunk similarity between two entities of the
// engine's side. Scores are symmetric: both orderings hit the same cache
// entry. Pairs with fewer than two co-rated counterparts score 0.
func (e *Engine) Similarity(ctx context.Context, a, b int) (float64, error) {
	if a == b {
		return 0, fmt.Errorf("similarity: self-pair on %s %d", e.entity, a)
	}
	key := store.NewPairKey(a, b)

	e.mu.RLock()
	score, ok := e.cache[key]
	e.mu.RUnlock()
	if ok {
		metrics.SimilarityCacheHits.Inc()
		return score, nil
	}

	score, err := e.compute(ctx, key)
	if err != nil {
		return 0, err
	}

	e.mu.Lock()
	e.cache[key] = score
	e.mu.Unlock()

	metrics.SimilarityPairsComputed.WithLabelValues(e.entity.String(), string(e.cfg.Kind)).Inc()
	return score, nil
}

func (e *Engine) compute(ctx context.Context, key store.PairKey) (float64, error) {
	ratingsA, err := e.source.ActiveRatings(ctx, e.entity, key.Lo)
	if err != nil {
		return 0, fmt.Errorf("similarity: ratings of %s %d: %w", e.entity, key.Lo, err)
	}
	ratingsB, err := e.source.ActiveRatings(ctx, e.entity, key.Hi)
	if err != nil {
		return 0, fmt.Errorf("similarity: ratings of %s %d: %w", e.entity, key.Hi, err)
	}

	common := commonKeys(ratingsA, ratingsB)
	if len(common) < minCommonSupport {
		return 0, nil
	}

	var raw float64
	switch e.cfg.Kind {
	case store.SimCosine:
		avgs, err := e.counterpartAverages(ctx, common)
		if err != nil {
			return 0, err
		}
		raw = Cosine(ratingsA, ratingsB, avgs)
	case store.SimPearson:
		raw = Pearson(ratingsA, ratingsB)
	}

	return Shrink(raw, len(common), e.cfg.BaseSupport), nil
}

// counterpartAverages fetches the average rating of every shared
// counterpart, on the opposite side of the bipartite graph.
func (e *Engine) counterpartAverages(ctx context.Context, ids []int) (map[int]float64, error) {
	counterpart := store.KindItem
	if e.entity == store.KindItem {
		counterpart = store.KindUser
	}

	avgs := make(map[int]float64, len(ids))
	for _, id := range ids {
		avg, ok, err := e.source.AverageRating(ctx, counterpart, id)
		if err != nil {
			return nil, fmt.Errorf("similarity: average of %s %d: %w", counterpart, id, err)
		}
		if ok {
			avgs[id] = avg
		}
	}
	return avgs, nil
}
