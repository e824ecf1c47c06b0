// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package walk

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"

	"github.com/tomtom215/recbench/internal/logging"
	"github.com/tomtom215/recbench/internal/metrics"
	"github.com/tomtom215/recbench/internal/store"
)

// Config tunes one batch of walks.
type Config struct {
	// Walks is the number of independent trials per user.
	Walks int

	// Steps is the number of hops per walk.
	Steps int

	// Biased selects edge-weight-proportional hops instead of uniform.
	Biased bool

	// UserSim and ItemSim select the similarity edge kind followed from
	// user and item nodes respectively.
	UserSim store.SimilarityKind
	ItemSim store.SimilarityKind
}

// Validate rejects configurations that cannot produce recommendations.
func (c Config) Validate() error {
	if c.Walks < 1 {
		return fmt.Errorf("walk: walks must be >= 1, got %d", c.Walks)
	}
	if c.Steps < 1 {
		return fmt.Errorf("walk: steps must be >= 1, got %d", c.Steps)
	}
	if c.UserSim == "" || c.ItemSim == "" {
		return fmt.Errorf("walk: similarity kinds must be set")
	}
	return nil
}

// Algorithm returns the recommendation tag for this configuration.
func (c Config) Algorithm() store.Algorithm {
	return store.WalkAlgorithm(c.Steps, c.Biased)
}

// node is a position in the bipartite graph.
type node struct {
	kind store.EntityKind
	id   int
}

// edge is one eligible hop out of a node.
type edge struct {
	to     node
	weight float64
}

// Sampler runs batches of bounded random walks. Safe for concurrent use;
// the random source is guarded because math/rand sources are not.
type Sampler struct {
	store store.GraphStore

	mu  sync.Mutex
	rng *rand.Rand
}

func (s *Sampler) intn(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(n)
}

func (s *Sampler) float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

// NewSampler creates a sampler over the given graph with an explicit random
// source. The source is used for hop selection and ranking tie-breaks; seed
// it in tests that need reproducible hop sequences.
func NewSampler(gs store.GraphStore, rng *rand.Rand) (*Sampler, error) {
	if rng == nil {
		return nil, fmt.Errorf("walk: random source is required")
	}
	return &Sampler{store: gs, rng: rng}, nil
}

// Recommend runs cfg.Walks walks for the user, tallies terminal items and
// persists the top n by visit count under the configuration's algorithm
// tag. Ties in visit count break randomly.
func (s *Sampler) Recommend(ctx context.Context, userID, n int, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if n < 1 {
		return fmt.Errorf("walk: recommendation size must be >= 1, got %d", n)
	}

	rated, err := s.store.ActiveRatings(ctx, store.KindUser, userID)
	if err != nil {
		return fmt.Errorf("walk: ratings of user %d: %w", userID, err)
	}

	alg := cfg.Algorithm()
	visits := make(map[int]int)
	for i := 0; i < cfg.Walks; i++ {
		terminal, ok, err := s.walk(ctx, userID, rated, cfg)
		if err != nil {
			return err
		}
		if ok {
			visits[terminal]++
			metrics.WalksCompleted.WithLabelValues(string(alg)).Inc()
		} else {
			metrics.WalksFailed.WithLabelValues(string(alg)).Inc()
		}
	}

	candidates := make([]int, 0, len(visits))
	for itemID := range visits {
		candidates = append(candidates, itemID)
	}
	sort.Slice(candidates, func(i, j int) bool {
		vi, vj := visits[candidates[i]], visits[candidates[j]]
		if vi != vj {
			return vi > vj
		}
		return s.intn(2) == 0
	})
	if len(candidates) > n {
		candidates = candidates[:n]
	}

	for _, itemID := range candidates {
		if err := s.store.UpsertRecommendation(ctx, userID, itemID, alg, float64(visits[itemID])); err != nil {
			return fmt.Errorf("walk: persist recommendation (%d, %d): %w", userID, itemID, err)
		}
		metrics.RecommendationsStored.WithLabelValues(string(alg)).Inc()
	}

	logging.Ctx(ctx).Debug().
		Int("user", userID).
		Str("algorithm", string(alg)).
		Int("candidates", len(visits)).
		Int("stored", len(candidates)).
		Msg("walk recommendations generated")
	return nil
}

// walk runs one trial. It returns the terminal item and ok=true on success,
// ok=false when the walk dead-ends with no item to report.
func (s *Sampler) walk(ctx context.Context, userID int, rated map[int]float64, cfg Config) (int, bool, error) {
	current := node{kind: store.KindUser, id: userID}
	for step := 0; step < cfg.Steps; step++ {
		final := step == cfg.Steps-1
		edges, err := s.neighbors(ctx, current, cfg, final, userID, rated)
		if err != nil {
			return 0, false, err
		}

		if len(edges) == 0 {
			// A stuck item ends the walk early instead of failing; a
			// stuck user has nothing to recommend. Every terminal must
			// still be novel to the originating user.
			if current.kind == store.KindItem {
				if _, seen := rated[current.id]; !seen {
					return current.id, true, nil
				}
			}
			return 0, false, nil
		}

		current = s.pick(edges, cfg.Biased)
	}

	if current.kind != store.KindItem {
		return 0, false, nil
	}
	return current.id, true, nil
}

// neighbors gathers the eligible hops out of a node: rating edges plus
// similarity edges of the node's own side. On the final step only items the
// originating user has not rated are eligible.
func (s *Sampler) neighbors(ctx context.Context, from node, cfg Config, final bool, userID int, rated map[int]float64) ([]edge, error) {
	ratings, err := s.store.ActiveRatings(ctx, from.kind, from.id)
	if err != nil {
		return nil, fmt.Errorf("walk: ratings of %s %d: %w", from.kind, from.id, err)
	}

	simKind := cfg.UserSim
	counterpart := store.KindItem
	if from.kind == store.KindItem {
		simKind = cfg.ItemSim
		counterpart = store.KindUser
	}
	sims, err := s.store.Similarities(ctx, from.kind, simKind, from.id)
	if err != nil {
		return nil, fmt.Errorf("walk: similarities of %s %d: %w", from.kind, from.id, err)
	}

	eligible := func(to node) bool {
		if !final {
			return true
		}
		if to.kind != store.KindItem {
			return false
		}
		_, seen := rated[to.id]
		return !seen
	}

	edges := make([]edge, 0, len(ratings)+len(sims))
	for id, rating := range ratings {
		to := node{kind: counterpart, id: id}
		if eligible(to) {
			edges = append(edges, edge{to: to, weight: rating / 5.0})
		}
	}
	for id, weight := range sims {
		to := node{kind: from.kind, id: id}
		if eligible(to) {
			edges = append(edges, edge{to: to, weight: weight})
		}
	}

	// Map iteration order is random; a stable order keeps seeded runs
	// reproducible.
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].to.kind != edges[j].to.kind {
			return edges[i].to.kind < edges[j].to.kind
		}
		return edges[i].to.id < edges[j].to.id
	})
	return edges, nil
}

// pick selects the next hop: uniform, or proportional to edge weight via
// cumulative-weight sampling. Non-positive total weight falls back to
// uniform, since proportional selection is undefined there.
func (s *Sampler) pick(edges []edge, biased bool) node {
	if !biased {
		return edges[s.intn(len(edges))].to
	}

	var total float64
	for _, e := range edges {
		if e.weight > 0 {
			total += e.weight
		}
	}
	if total <= 0 {
		return edges[s.intn(len(edges))].to
	}

	r := s.float64() * total
	var sum float64
	for _, e := range edges {
		if e.weight <= 0 {
			continue
		}
		sum += e.weight
		if sum > r {
			return e.to
		}
	}
	return edges[len(edges)-1].to
}
