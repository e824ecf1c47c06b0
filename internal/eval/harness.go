// Recbench - Offline Recommender Strategy Evaluation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recbench

package eval

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/recbench/internal/logging"
	"github.com/tomtom215/recbench/internal/metrics"
	"github.com/tomtom215/recbench/internal/predict"
	"github.com/tomtom215/recbench/internal/similarity"
	"github.com/tomtom215/recbench/internal/store"
	"github.com/tomtom215/recbench/internal/walk"
)

// Config tunes a full evaluation run.
type Config struct {
	// RatingsPercentage of each test user's ratings is masked per fold.
	RatingsPercentage float64

	// PopulationPercentage of users forms the single test fold when Folds
	// is zero.
	PopulationPercentage float64

	// Folds splits the population into that many disjoint test sets.
	Folds int

	// Cutoffs are the recommendation-list sizes to evaluate at.
	Cutoffs []int

	// Steps are the random-walk lengths to evaluate.
	Steps []int

	// Walks is the number of walk trials per user and variant.
	Walks int

	// UserSimilarities and ItemSimilarities are the edge kinds evaluated
	// on each graph side.
	UserSimilarities []store.SimilarityKind
	ItemSimilarities []store.SimilarityKind

	// RelevanceThreshold is the held-out rating at or above which an item
	// counts as relevant for precision/recall.
	RelevanceThreshold float64

	// Workers bounds concurrent per-user store fan-out.
	Workers int
}

// Validate rejects configurations that cannot produce a meaningful run.
func (c Config) Validate() error {
	if c.RatingsPercentage <= 0 || c.RatingsPercentage > 100 {
		return fmt.Errorf("eval: ratings percentage must be in (0, 100], got %f", c.RatingsPercentage)
	}
	if c.Folds < 0 {
		return fmt.Errorf("eval: folds must be >= 0, got %d", c.Folds)
	}
	if c.Folds == 0 && (c.PopulationPercentage <= 0 || c.PopulationPercentage > 100) {
		return fmt.Errorf("eval: population percentage must be in (0, 100], got %f", c.PopulationPercentage)
	}
	if len(c.Cutoffs) == 0 {
		return fmt.Errorf("eval: at least one cutoff is required")
	}
	for _, n := range c.Cutoffs {
		if n < 1 {
			return fmt.Errorf("eval: cutoff must be >= 1, got %d", n)
		}
	}
	for _, s := range c.Steps {
		if s < 1 {
			return fmt.Errorf("eval: walk steps must be >= 1, got %d", s)
		}
	}
	if len(c.Steps) > 0 && c.Walks < 1 {
		return fmt.Errorf("eval: walks must be >= 1, got %d", c.Walks)
	}
	if len(c.UserSimilarities) == 0 || len(c.ItemSimilarities) == 0 {
		return fmt.Errorf("eval: at least one similarity kind per side is required")
	}
	if c.RelevanceThreshold < 0 || c.RelevanceThreshold > 5 {
		return fmt.Errorf("eval: relevance threshold must be in [0, 5], got %f", c.RelevanceThreshold)
	}
	if c.Workers < 1 {
		return fmt.Errorf("eval: workers must be >= 1, got %d", c.Workers)
	}
	return nil
}

// maxCutoff returns the largest requested recommendation size.
func (c Config) maxCutoff() int {
	max := c.Cutoffs[0]
	for _, n := range c.Cutoffs[1:] {
		if n > max {
			max = n
		}
	}
	return max
}

// Harness drives fold setup, recommendation generation, scoring and
// teardown.
type Harness struct {
	store       store.GraphStore
	predictor   *predict.Predictor
	sampler     *walk.Sampler
	userBuilder *similarity.Builder
	itemBuilder *similarity.Builder
	cfg         Config
	rng         *rand.Rand
}

// New assembles a harness. The random source drives fold sampling and
// rating masking; seed it for reproducible fold membership.
func New(
	gs store.GraphStore,
	predictor *predict.Predictor,
	sampler *walk.Sampler,
	userBuilder, itemBuilder *similarity.Builder,
	cfg Config,
	rng *rand.Rand,
) (*Harness, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("eval: random source is required")
	}
	return &Harness{
		store:       gs,
		predictor:   predictor,
		sampler:     sampler,
		userBuilder: userBuilder,
		itemBuilder: itemBuilder,
		cfg:         cfg,
		rng:         rng,
	}, nil
}

// Run executes every fold and returns the cross-fold report.
func (h *Harness) Run(ctx context.Context) (*Report, error) {
	users, err := h.store.Users(ctx)
	if err != nil {
		return nil, fmt.Errorf("eval: list users: %w", err)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("eval: store holds no users")
	}

	folds := prepareFolds(users, h.rng, h.cfg.Folds, h.cfg.PopulationPercentage)
	rs := newResultSet()
	rs.folds = len(folds)

	for i, testUsers := range folds {
		logging.Ctx(ctx).Info().
			Int("fold", i+1).
			Int("folds", len(folds)).
			Int("test_users", len(testUsers)).
			Msg("starting fold")
		if err := h.runFold(ctx, testUsers, rs); err != nil {
			return nil, fmt.Errorf("eval: fold %d: %w", i+1, err)
		}
	}

	return rs.report(), nil
}

// runFold runs one fold end to end. Teardown is deferred before setup
// starts, so a failure mid-fold never leaks masked ratings into the next
// one.
func (h *Harness) runFold(ctx context.Context, testUsers []int, rs *resultSet) (err error) {
	start := time.Now()
	defer func() {
		metrics.FoldDuration.Observe(time.Since(start).Seconds())
	}()
	defer func() {
		if terr := h.teardown(ctx); terr != nil {
			logging.Ctx(ctx).Error().Err(terr).Msg("fold teardown failed")
			if err == nil {
				err = terr
			}
		}
	}()

	if err := h.setup(ctx, testUsers); err != nil {
		return err
	}

	maxN := h.cfg.maxCutoff()
	skipIB := false
	for _, userSim := range h.cfg.UserSimilarities {
		skipUB := false
		for _, itemSim := range h.cfg.ItemSimilarities {
			if err := h.generate(ctx, testUsers, maxN, userSim, itemSim, skipUB, skipIB); err != nil {
				return err
			}
			if err := h.evaluate(ctx, testUsers, userSim, itemSim, skipUB, skipIB, rs); err != nil {
				return err
			}
			if err := h.store.ClearRecommendations(ctx); err != nil {
				return fmt.Errorf("clear recommendations: %w", err)
			}
			skipUB = true
		}
		skipIB = true
	}
	return nil
}

// setup masks each test user's held-out ratings, flags the users, then
// recomputes averages and similarity edges over the surviving train
// population.
func (h *Harness) setup(ctx context.Context, testUsers []int) error {
	for _, userID := range testUsers {
		ratings, err := h.store.ActiveRatings(ctx, store.KindUser, userID)
		if err != nil {
			return fmt.Errorf("setup: ratings of user %d: %w", userID, err)
		}

		items := make([]int, 0, len(ratings))
		for itemID := range ratings {
			items = append(items, itemID)
		}
		sort.Ints(items)
		h.rng.Shuffle(len(items), func(i, j int) {
			items[i], items[j] = items[j], items[i]
		})

		masked := int(float64(len(items)) * h.cfg.RatingsPercentage / 100)
		for _, itemID := range items[:masked] {
			if err := h.store.MaskRating(ctx, userID, itemID); err != nil {
				return fmt.Errorf("setup: mask rating (%d, %d): %w", userID, itemID, err)
			}
		}
		if err := h.store.MarkTestUser(ctx, userID, true); err != nil {
			return fmt.Errorf("setup: mark test user %d: %w", userID, err)
		}
		metrics.TestUsersEvaluated.Inc()
	}

	if err := h.store.RecomputeAverages(ctx); err != nil {
		return fmt.Errorf("setup: recompute averages: %w", err)
	}
	if err := h.userBuilder.Rebuild(ctx); err != nil {
		return fmt.Errorf("setup: rebuild user similarities: %w", err)
	}
	if err := h.itemBuilder.Rebuild(ctx); err != nil {
		return fmt.Errorf("setup: rebuild item similarities: %w", err)
	}
	return nil
}

// teardown restores every masked rating, clears recommendations and
// test-user flags, and recomputes averages over the restored population.
func (h *Harness) teardown(ctx context.Context) error {
	if err := h.store.UnmaskAll(ctx); err != nil {
		return fmt.Errorf("teardown: unmask ratings: %w", err)
	}
	if err := h.store.ClearRecommendations(ctx); err != nil {
		return fmt.Errorf("teardown: clear recommendations: %w", err)
	}

	flagged, err := h.store.TestUsers(ctx)
	if err != nil {
		return fmt.Errorf("teardown: list test users: %w", err)
	}
	for _, userID := range flagged {
		if err := h.store.MarkTestUser(ctx, userID, false); err != nil {
			return fmt.Errorf("teardown: clear test user %d: %w", userID, err)
		}
	}

	if err := h.store.RecomputeAverages(ctx); err != nil {
		return fmt.Errorf("teardown: recompute averages: %w", err)
	}
	return nil
}

// generate produces recommendations for every test user at the largest
// cutoff, fanning out across users up to the worker bound. UB depends only
// on the user-side kind and IB only on the item-side kind, so each is
// generated once per kind and skipped on repeat combinations.
func (h *Harness) generate(ctx context.Context, testUsers []int, maxN int, userSim, itemSim store.SimilarityKind, skipUB, skipIB bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Workers)

	for _, userID := range testUsers {
		userID := userID
		g.Go(func() error {
			if !skipUB {
				if err := h.predictor.Recommend(gctx, userID, maxN, store.AlgUserBased, userSim); err != nil {
					return err
				}
			}
			if !skipIB {
				if err := h.predictor.Recommend(gctx, userID, maxN, store.AlgItemBased, itemSim); err != nil {
					return err
				}
			}
			for _, steps := range h.cfg.Steps {
				for _, biased := range []bool{false, true} {
					cfg := walk.Config{
						Walks:   h.cfg.Walks,
						Steps:   steps,
						Biased:  biased,
						UserSim: userSim,
						ItemSim: itemSim,
					}
					if err := h.sampler.Recommend(gctx, userID, maxN, cfg); err != nil {
						return err
					}
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// algorithms lists the variants evaluated for one similarity combination.
func (h *Harness) algorithms(skipUB, skipIB bool) []store.Algorithm {
	algs := make([]store.Algorithm, 0, 2+2*len(h.cfg.Steps))
	if !skipUB {
		algs = append(algs, store.AlgUserBased)
	}
	if !skipIB {
		algs = append(algs, store.AlgItemBased)
	}
	for _, steps := range h.cfg.Steps {
		algs = append(algs, store.WalkAlgorithm(steps, false), store.WalkAlgorithm(steps, true))
	}
	return algs
}

// evaluate scores each algorithm per cutoff, descending, trimming the
// stored sets only when the cutoff shrinks.
func (h *Harness) evaluate(ctx context.Context, testUsers []int, userSim, itemSim store.SimilarityKind, skipUB, skipIB bool, rs *resultSet) error {
	cutoffs := make([]int, len(h.cfg.Cutoffs))
	copy(cutoffs, h.cfg.Cutoffs)
	sort.Sort(sort.Reverse(sort.IntSlice(cutoffs)))

	algs := h.algorithms(skipUB, skipIB)
	lastN := cutoffs[0]
	for _, n := range cutoffs {
		if n < lastN {
			if err := h.trim(ctx, testUsers, algs, n); err != nil {
				return err
			}
		}
		lastN = n

		for _, alg := range algs {
			mae, maeDefined, err := h.meanAbsoluteError(ctx, testUsers, alg)
			if err != nil {
				return err
			}
			precision, recall, f1, err := h.classification(ctx, testUsers, alg)
			if err != nil {
				return err
			}

			key := scenarioKey(alg, userSim, itemSim, n)
			rs.add(alg, key, mae, maeDefined, precision, recall, f1)

			evt := logging.Ctx(ctx).Info().
				Str("algorithm", string(alg)).
				Str("scenario", key).
				Float64("precision", precision).
				Float64("recall", recall).
				Float64("f1", f1)
			if maeDefined {
				evt = evt.Float64("mae", mae)
			}
			evt.Msg("scenario evaluated")
		}
	}
	return nil
}

func (h *Harness) trim(ctx context.Context, testUsers []int, algs []store.Algorithm, n int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(h.cfg.Workers)
	for _, userID := range testUsers {
		userID := userID
		g.Go(func() error {
			for _, alg := range algs {
				if err := h.store.TrimRecommendations(gctx, userID, alg, n); err != nil {
					return fmt.Errorf("trim recommendations of user %d: %w", userID, err)
				}
			}
			return nil
		})
	}
	return g.Wait()
}
